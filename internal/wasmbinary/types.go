package wasmbinary

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// Type section byte tags. A rec group is either an explicit `rec` wrapper
// (recGroupTag, size != 1) or a single subtype written directly at top
// level. A subtype is either a bare composite type (final, no supertype) or
// an explicit `sub`/`sub final` form carrying a supertype index vector.
//
// These tags follow the GC proposal's binary encoding shape; this weaver
// never constructs array/struct/cont types itself; see DESIGN.md.
const (
	recGroupTag   byte = 0x4E
	subTag        byte = 0x50
	subFinalTag   byte = 0x4F
	sharedTag     byte = 0x65
	funcTag       byte = 0x60
	arrayTag      byte = 0x5E
	structTag     byte = 0x5F
	contTag       byte = 0x63
)

func readRecGroup(r *reader) (wasm.RecGroup, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return wasm.RecGroup{}, err
	}
	if tag != recGroupTag {
		sub, err := readSubTypeFromTag(r, tag)
		if err != nil {
			return wasm.RecGroup{}, err
		}
		return wasm.RecGroup{Types: []wasm.SubType{sub}}, nil
	}
	count, err := r.readU32()
	if err != nil {
		return wasm.RecGroup{}, fmt.Errorf("reading rec group size: %w", err)
	}
	types := make([]wasm.SubType, count)
	for i := range types {
		sub, err := readSubType(r)
		if err != nil {
			return wasm.RecGroup{}, fmt.Errorf("reading rec group member %d: %w", i, err)
		}
		types[i] = sub
	}
	return wasm.RecGroup{Types: types}, nil
}

func readSubType(r *reader) (wasm.SubType, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return wasm.SubType{}, err
	}
	return readSubTypeFromTag(r, tag)
}

func readSubTypeFromTag(r *reader, tag byte) (wasm.SubType, error) {
	switch tag {
	case subTag, subFinalTag:
		n, err := r.readU32()
		if err != nil {
			return wasm.SubType{}, err
		}
		var super *uint32
		for i := uint32(0); i < n; i++ {
			idx, err := r.readU32()
			if err != nil {
				return wasm.SubType{}, err
			}
			v := idx
			super = &v
		}
		comp, err := readCompositeType(r)
		if err != nil {
			return wasm.SubType{}, err
		}
		return wasm.SubType{IsFinal: tag == subFinalTag, SuperTypeIdx: super, Composite: comp}, nil
	default:
		comp, err := readCompositeTypeFromTag(r, tag)
		if err != nil {
			return wasm.SubType{}, err
		}
		return wasm.SubType{IsFinal: true, Composite: comp}, nil
	}
}

func readCompositeType(r *reader) (wasm.CompositeType, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return wasm.CompositeType{}, err
	}
	return readCompositeTypeFromTag(r, tag)
}

func readCompositeTypeFromTag(r *reader, tag byte) (wasm.CompositeType, error) {
	shared := false
	if tag == sharedTag {
		shared = true
		var err error
		tag, err = r.ReadByte()
		if err != nil {
			return wasm.CompositeType{}, err
		}
	}
	switch tag {
	case funcTag:
		ft, err := readFuncType(r)
		if err != nil {
			return wasm.CompositeType{}, err
		}
		return wasm.CompositeType{Kind: wasm.CompositeTypeFunc, Func: ft, Shared: shared}, nil
	case arrayTag:
		fieldType, err := readValueType(r)
		if err != nil {
			return wasm.CompositeType{}, err
		}
		mut, err := r.ReadByte()
		if err != nil {
			return wasm.CompositeType{}, err
		}
		return wasm.CompositeType{Kind: wasm.CompositeTypeArray, Array: &wasm.ArrayType{FieldType: fieldType, FieldMutable: mut != 0}, Shared: shared}, nil
	case structTag:
		n, err := r.readU32()
		if err != nil {
			return wasm.CompositeType{}, err
		}
		fields := make([]wasm.StructField, n)
		for i := range fields {
			ft, err := readValueType(r)
			if err != nil {
				return wasm.CompositeType{}, err
			}
			mut, err := r.ReadByte()
			if err != nil {
				return wasm.CompositeType{}, err
			}
			fields[i] = wasm.StructField{Type: ft, Mutable: mut != 0}
		}
		return wasm.CompositeType{Kind: wasm.CompositeTypeStruct, Struct: &wasm.StructType{Fields: fields}, Shared: shared}, nil
	case contTag:
		idx, err := r.readU32()
		if err != nil {
			return wasm.CompositeType{}, err
		}
		return wasm.CompositeType{Kind: wasm.CompositeTypeCont, Cont: &wasm.ContType{FuncTypeIndex: idx}, Shared: shared}, nil
	}
	return wasm.CompositeType{}, fmt.Errorf("unknown composite type tag %#x", tag)
}

func readFuncType(r *reader) (*wasm.FuncType, error) {
	paramCount, err := r.readU32()
	if err != nil {
		return nil, err
	}
	params := make([]wasm.ValueType, paramCount)
	for i := range params {
		if params[i], err = readValueType(r); err != nil {
			return nil, err
		}
	}
	resultCount, err := r.readU32()
	if err != nil {
		return nil, err
	}
	results := make([]wasm.ValueType, resultCount)
	for i := range results {
		if results[i], err = readValueType(r); err != nil {
			return nil, err
		}
	}
	return &wasm.FuncType{Params: params, Results: results}, nil
}

// EncodeRecGroup writes a rec group as a singleton subtype when it has
// exactly one member (no `rec` wrapper), or as an explicit `rec` otherwise.
// Encode uses it for each entry of the type section.
func EncodeRecGroup(w *writer, g wasm.RecGroup) {
	if len(g.Types) == 1 {
		EncodeSubType(w, g.Types[0])
		return
	}
	w.writeByte(recGroupTag)
	w.writeU32(uint32(len(g.Types)))
	for _, sub := range g.Types {
		EncodeSubType(w, sub)
	}
}

// EncodeSubType writes a single subtype, choosing the bare-composite form
// when possible (final, no declared supertype) and the explicit sub/sub
// final form otherwise.
func EncodeSubType(w *writer, s wasm.SubType) {
	if s.IsFinal && s.SuperTypeIdx == nil {
		encodeCompositeType(w, s.Composite)
		return
	}
	if s.IsFinal {
		w.writeByte(subFinalTag)
	} else {
		w.writeByte(subTag)
	}
	if s.SuperTypeIdx == nil {
		w.writeU32(0)
	} else {
		w.writeU32(1)
		w.writeU32(*s.SuperTypeIdx)
	}
	encodeCompositeType(w, s.Composite)
}

func encodeCompositeType(w *writer, c wasm.CompositeType) {
	if c.Shared {
		w.writeByte(sharedTag)
	}
	switch c.Kind {
	case wasm.CompositeTypeFunc:
		w.writeByte(funcTag)
		encodeFuncType(w, c.Func)
	case wasm.CompositeTypeArray:
		w.writeByte(arrayTag)
		w.writeByte(c.Array.FieldType)
		w.writeByte(boolByte(c.Array.FieldMutable))
	case wasm.CompositeTypeStruct:
		w.writeByte(structTag)
		w.writeU32(uint32(len(c.Struct.Fields)))
		for _, f := range c.Struct.Fields {
			w.writeByte(f.Type)
			w.writeByte(boolByte(f.Mutable))
		}
	case wasm.CompositeTypeCont:
		w.writeByte(contTag)
		w.writeU32(c.Cont.FuncTypeIndex)
	}
}

func encodeFuncType(w *writer, f *wasm.FuncType) {
	writeVec(w, f.Params, func(w *writer, v wasm.ValueType) { w.writeByte(v) })
	writeVec(w, f.Results, func(w *writer, v wasm.ValueType) { w.writeByte(v) })
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
