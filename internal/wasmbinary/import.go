package wasmbinary

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

func readImportSection(r *reader) ([]wasm.Import, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Import, count)
	for i := range out {
		out[i], err = readImport(r)
		if err != nil {
			return nil, fmt.Errorf("reading import %d: %w", i, err)
		}
	}
	return out, nil
}

func readImport(r *reader) (wasm.Import, error) {
	mod, err := r.readString()
	if err != nil {
		return wasm.Import{}, err
	}
	name, err := r.readString()
	if err != nil {
		return wasm.Import{}, err
	}
	kind, err := r.ReadByte()
	if err != nil {
		return wasm.Import{}, err
	}
	imp := wasm.Import{Type: kind, Module: mod, Name: name}
	switch kind {
	case wasm.ExternTypeFunc:
		imp.DescFunc, err = r.readU32()
	case wasm.ExternTypeTable:
		imp.DescTable, err = readTable(r)
	case wasm.ExternTypeMemory:
		imp.DescMemory, err = readMemory(r)
	case wasm.ExternTypeGlobal:
		imp.DescGlobal, err = readGlobalType(r)
	case wasm.ExternTypeTag:
		imp.DescTag, err = readTag(r)
	default:
		return wasm.Import{}, fmt.Errorf("unknown import kind %#x", kind)
	}
	return imp, err
}

// EncodeImport writes one import entry, matching the teacher's
// Module.Encode shape (module name, name, kind, then the kind-specific
// descriptor).
func EncodeImport(w *writer, imp wasm.Import) {
	w.writeString(imp.Module)
	w.writeString(imp.Name)
	w.writeByte(imp.Type)
	switch imp.Type {
	case wasm.ExternTypeFunc:
		w.writeU32(imp.DescFunc)
	case wasm.ExternTypeTable:
		encodeTable(w, imp.DescTable)
	case wasm.ExternTypeMemory:
		encodeMemory(w, imp.DescMemory)
	case wasm.ExternTypeGlobal:
		encodeGlobalType(w, imp.DescGlobal)
	case wasm.ExternTypeTag:
		encodeTag(w, imp.DescTag)
	}
}
