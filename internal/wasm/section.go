package wasm

// SectionID identifies a top level section of a core module binary.
//
// See https://webassembly.github.io/spec/core/binary/modules.html#sections
type SectionID = byte

const (
	SectionIDCustom SectionID = iota
	SectionIDType
	SectionIDImport
	SectionIDFunction
	SectionIDTable
	SectionIDMemory
	SectionIDGlobal
	SectionIDExport
	SectionIDStart
	SectionIDElement
	SectionIDCode
	SectionIDData
	SectionIDDataCount
	SectionIDTag
)

// SectionIDName returns the name used in spec prose for id, or "unknown".
func SectionIDName(id SectionID) string {
	switch id {
	case SectionIDCustom:
		return "custom"
	case SectionIDType:
		return "type"
	case SectionIDImport:
		return "import"
	case SectionIDFunction:
		return "function"
	case SectionIDTable:
		return "table"
	case SectionIDMemory:
		return "memory"
	case SectionIDGlobal:
		return "global"
	case SectionIDExport:
		return "export"
	case SectionIDStart:
		return "start"
	case SectionIDElement:
		return "element"
	case SectionIDCode:
		return "code"
	case SectionIDData:
		return "data"
	case SectionIDDataCount:
		return "data count"
	case SectionIDTag:
		return "tag"
	}
	return "unknown"
}

// ReturnStubModuleName is the reserved import module name the source
// toolchain uses for fabricated multi-value return stubs (spec.md §6).
const ReturnStubModuleName = "__export_returns"

// TableRedirectModuleName is the reserved import module name the source
// toolchain uses for calls that should be rebound to the injected slab's
// functions (spec.md §6). Only "free" is a recognized name.
const TableRedirectModuleName = "__table"

// SignatureSectionPrefix begins the name of any custom section carrying
// value-type meta tags for a named import or export (spec.md §4.1).
const SignatureSectionPrefix = "__signature."
