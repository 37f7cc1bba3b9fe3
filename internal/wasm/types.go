package wasm

import "strings"

// FuncType is a function signature: an ordered list of parameter types and
// an ordered list of result types.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// Equal reports whether f and o describe the identical signature.
func (f *FuncType) Equal(o *FuncType) bool {
	return valueTypesEqual(f.Params, o.Params) && valueTypesEqual(f.Results, o.Results)
}

func valueTypesEqual(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders a FuncType the way the teacher's FunctionType.String does:
// params concatenated, then an underscore, then results, "null" standing in
// for an empty side. Used only for debug output and test names.
func (f *FuncType) String() string {
	return valueTypesString(f.Params) + "_" + valueTypesString(f.Results)
}

func valueTypesString(vs []ValueType) string {
	if len(vs) == 0 {
		return "null"
	}
	var sb strings.Builder
	for _, v := range vs {
		sb.WriteString(ValueTypeName(v))
	}
	return sb.String()
}

// ArrayType, StructType and ContType are carried opaquely: the weaver never
// constructs or inspects them, it only needs to copy them byte-for-byte
// through the type interner so that rec-group structural equality still
// works for GC proposal composite types that might appear in input modules
// produced by a GC-enabled front end.
type ArrayType struct {
	FieldType  ValueType
	FieldMutable bool
}

type StructField struct {
	Type    ValueType
	Mutable bool
}

type StructType struct {
	Fields []StructField
}

type ContType struct {
	FuncTypeIndex uint32
}

// CompositeTypeKind distinguishes the inner variant of a CompositeType.
type CompositeTypeKind byte

const (
	CompositeTypeFunc CompositeTypeKind = iota
	CompositeTypeArray
	CompositeTypeStruct
	CompositeTypeCont
)

// CompositeType is the tagged union of the four subtype shapes the binary
// format supports.
type CompositeType struct {
	Kind   CompositeTypeKind
	Func   *FuncType
	Array  *ArrayType
	Struct *StructType
	Cont   *ContType
	// Shared marks a type from the shared-everything-threads proposal.
	Shared bool
}

// Equal reports structural equality of the composite shape, including Shared.
func (c *CompositeType) Equal(o *CompositeType) bool {
	if c.Kind != o.Kind || c.Shared != o.Shared {
		return false
	}
	switch c.Kind {
	case CompositeTypeFunc:
		return c.Func.Equal(o.Func)
	case CompositeTypeArray:
		return *c.Array == *o.Array
	case CompositeTypeStruct:
		if len(c.Struct.Fields) != len(o.Struct.Fields) {
			return false
		}
		for i := range c.Struct.Fields {
			if c.Struct.Fields[i] != o.Struct.Fields[i] {
				return false
			}
		}
		return true
	case CompositeTypeCont:
		return *c.Cont == *o.Cont
	}
	return false
}

// SubType is one member of a rec group: a composite type plus its final
// flag and optional declared supertype.
type SubType struct {
	IsFinal      bool
	SuperTypeIdx *uint32
	Composite    CompositeType
}

// Equal is the structural-equality relation the type interner's key is
// built from (spec.md §3 "Type interner key").
func (s *SubType) Equal(o *SubType) bool {
	if s.IsFinal != o.IsFinal {
		return false
	}
	if (s.SuperTypeIdx == nil) != (o.SuperTypeIdx == nil) {
		return false
	}
	if s.SuperTypeIdx != nil && *s.SuperTypeIdx != *o.SuperTypeIdx {
		return false
	}
	return s.Composite.Equal(&o.Composite)
}

// FuncType returns the inner function type, failing if this subtype is not
// a function (spec.md §7 FunctionTypeIsNotFunction).
func (s *SubType) FuncType() (*FuncType, bool) {
	if s.Composite.Kind != CompositeTypeFunc {
		return nil, false
	}
	return s.Composite.Func, true
}

// RecGroup is the atomic unit of type emission: a set of subtypes
// introduced together that may refer to each other by index (spec.md §3,
// §4.4, §9 "Cyclic type references").
type RecGroup struct {
	Types []SubType
}

// Explicit reports whether this rec group was written with an explicit
// `rec` wrapper in the binary (size > 1), as opposed to a bare singleton
// subtype.
func (g *RecGroup) Explicit() bool {
	return len(g.Types) > 1
}
