package wasmbinary

import "github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"

func readGlobalType(r *reader) (wasm.GlobalType, error) {
	vt, err := readValueType(r)
	if err != nil {
		return wasm.GlobalType{}, err
	}
	mut, err := r.ReadByte()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	return wasm.GlobalType{ValType: vt, Mutable: mut != 0}, nil
}

func encodeGlobalType(w *writer, t wasm.GlobalType) {
	w.writeByte(t.ValType)
	w.writeByte(boolByte(t.Mutable))
}

func readGlobalSection(r *reader) ([]wasm.Global, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Global, count)
	for i := range out {
		gt, err := readGlobalType(r)
		if err != nil {
			return nil, err
		}
		init, err := readConstExpr(r)
		if err != nil {
			return nil, err
		}
		out[i] = wasm.Global{Type: gt, Init: init}
	}
	return out, nil
}

// EncodeGlobal writes one global definition, matching the teacher's
// `(valtype, mutable-flag, init-expr, end)` layout.
func EncodeGlobal(w *writer, g wasm.Global) {
	encodeGlobalType(w, g.Type)
	encodeConstExpr(w, g.Init)
}

func readTag(r *reader) (wasm.Tag, error) {
	attr, err := r.ReadByte()
	if err != nil {
		return wasm.Tag{}, err
	}
	_ = attr // reserved, always 0
	idx, err := r.readU32()
	if err != nil {
		return wasm.Tag{}, err
	}
	return wasm.Tag{Type: idx}, nil
}

func encodeTag(w *writer, t wasm.Tag) {
	w.writeByte(0)
	w.writeU32(t.Type)
}

func readTagSection(r *reader) ([]wasm.Tag, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Tag, count)
	for i := range out {
		out[i], err = readTag(r)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
