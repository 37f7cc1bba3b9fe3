package wasm

// Module is the index-addressable intermediate representation built once
// by the module reader (C3) and consumed read-only by every later stage
// (spec.md §3 "Module IR").
type Module struct {
	RecGroups []RecGroup

	ImportSection []Import

	// FunctionSection holds one type index per defined function body, in
	// the same order as CodeSection.
	FunctionSection []uint32
	CodeSection     []Code

	TableSection  []Table
	MemorySection []Memory
	TagSection    []Tag
	GlobalSection []Global

	// ExportSection is ordered (not a map) because export order is
	// observable in the binary and the weaver must preserve it.
	ExportSection []Export

	StartSection *uint32

	ElementSection []ElementSegment
	DataSection    []DataSegment
	// HasDataCount records whether the source module carried a data-count
	// section at all; re-encoding only emits one when the source did,
	// honoring the bulk-memory feature gate the producer used (spec.md §9,
	// "data count section correctness").
	HasDataCount bool

	NameSection *NameSection

	// Signatures holds the parsed value-type meta tag sequence for every
	// `__signature.<kind>.<name>` custom section (spec.md §4.1). The
	// reader never interprets the tags, only collects them.
	Signatures map[SignatureKey][]ValueTypeMeta
}

// SignatureKeyKind distinguishes an import-side from an export-side
// signature annotation.
type SignatureKeyKind byte

const (
	SignatureKeyExport SignatureKeyKind = iota
	SignatureKeyImport
)

// SignatureKey identifies one `__signature.*` custom section by the kind
// and name encoded in its section name.
type SignatureKey struct {
	Kind SignatureKeyKind
	Name string
}

// Import is a single imported entity. Exactly one of the Desc* fields is
// meaningful, selected by Type.
type Import struct {
	Type   ExternType
	Module string
	Name   string

	DescFunc   uint32 // type index, when Type == ExternTypeFunc
	DescTable  Table
	DescMemory Memory
	DescGlobal GlobalType
	DescTag    Tag
}

// Export is a single exported entity, keyed by Name at the wire level but
// kept in an ordered slice here (spec.md §3).
type Export struct {
	Name  string
	Kind  ExternType
	Index uint32
}

// ExternalKindFunc etc. are exported aliases matching the teacher's naming
// for export/import kinds; ExternType already covers this but the
// "ExternalKind" name is kept for the encode/decode layer's readability,
// matching the binary format's own "external kind" terminology for exports.
const (
	ExternalKindFunc   = ExternTypeFunc
	ExternalKindTable  = ExternTypeTable
	ExternalKindMemory = ExternTypeMemory
	ExternalKindGlobal = ExternTypeGlobal
	ExternalKindTag    = ExternTypeTag
)

// Limits describes the min/max bounds shared by table and memory types.
type Limits struct {
	Min uint32
	Max *uint32
}

// Table is a table descriptor (element type plus limits).
type Table struct {
	ElemType ValueType // ValueTypeFuncref or ValueTypeExternref
	Limits   Limits
}

// MemoryLimitPages is the maximum number of 64KiB pages a memory may grow
// to when no explicit maximum is declared.
const MemoryLimitPages = 65536

// Memory is a memory descriptor.
type Memory struct {
	Limits Limits
	Shared bool
}

// Tag is a tag (exception type) descriptor: an attribute byte (always 0,
// reserved for future use) plus a function type index describing its
// payload.
type Tag struct {
	Type uint32 // type index of a func type with no results
}

// GlobalType is a global's declared value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// ConstantExpression is a single-instruction initializer, as used by
// globals, element segment offsets and active data segment offsets.
type ConstantExpression struct {
	Opcode byte
	Data   []byte // the instruction's immediate bytes, not including the trailing `end`
}

// Global is a global variable definition.
type Global struct {
	Type GlobalType
	Init ConstantExpression
}

// Code is a single function body: declared locals, one entry per local (the
// binary codec expands and re-groups the encoded runs), plus the
// raw instruction byte stream (spec.md §5 "Module IR", ground:
// tetratelabs-wazero's Code.Body representation).
type Code struct {
	LocalTypes []ValueType
	Body       []byte
}

// ElementSegment is a table initializer.
type ElementSegment struct {
	TableIndex uint32
	Offset     ConstantExpression
	Active     bool
	Declarative bool
	ElemType   ValueType
	// FuncIndexes holds the segment's function indices when it was encoded
	// with the common function-index shorthand. Init holds per-element
	// constant expressions otherwise (ref.func/ref.null). Exactly one is
	// populated.
	FuncIndexes []uint32
	Init        []ConstantExpression
}

// DataSegment is a memory initializer.
type DataSegment struct {
	MemoryIndex uint32
	Offset      ConstantExpression
	Active      bool
	Init        []byte
}

// NameSection is the parsed "name" custom section.
type NameSection struct {
	ModuleName    string
	FunctionNames map[uint32]string
	LocalNames    map[uint32]map[uint32]string
}
