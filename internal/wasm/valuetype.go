// Package wasm holds the in-memory representation of a core WebAssembly
// module: the index-addressable IR that the weaver reads, transforms and
// re-encodes. It does not itself decode or encode bytes; see
// internal/wasmbinary for that.
package wasm

import "fmt"

// ValueType describes a numeric or reference type used by locals, params,
// results and globals.
//
// See https://webassembly.github.io/spec/core/binary/types.html#value-types
type ValueType = byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
	ValueTypeV128 ValueType = 0x7b

	// ValueTypeFuncref is an opaque reference to a function.
	ValueTypeFuncref ValueType = 0x70
	// ValueTypeExternref is an opaque reference to a host object. The
	// weaver's externref transform (C8) rewrites i32 slot parameters and
	// results into this type at the export boundary.
	ValueTypeExternref ValueType = 0x6f
)

// ValueTypeName returns the WebAssembly text format name of t, or "unknown".
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	}
	return "unknown"
}

// IsNumeric reports whether t is one of the four MVP numeric types or v128,
// i.e. not a reference type.
func IsNumeric(t ValueType) bool {
	switch t {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64, ValueTypeV128:
		return true
	}
	return false
}

// ExternType classifies imports and exports.
//
// See https://webassembly.github.io/spec/core/binary/modules.html#export-section
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
	ExternTypeTag    ExternType = 0x04
)

// ExternTypeName returns the text format field name for et.
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return "func"
	case ExternTypeTable:
		return "table"
	case ExternTypeMemory:
		return "memory"
	case ExternTypeGlobal:
		return "global"
	case ExternTypeTag:
		return "tag"
	}
	return fmt.Sprintf("%#x", et)
}
