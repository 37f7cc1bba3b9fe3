package wasmbinary

import "github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"

func readTableSection(r *reader) ([]wasm.Table, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Table, count)
	for i := range out {
		out[i], err = readTable(r)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readTable(r *reader) (wasm.Table, error) {
	elemType, err := readValueType(r)
	if err != nil {
		return wasm.Table{}, err
	}
	lim, err := readLimits(r)
	if err != nil {
		return wasm.Table{}, err
	}
	return wasm.Table{ElemType: elemType, Limits: lim}, nil
}

func encodeTable(w *writer, t wasm.Table) {
	w.writeByte(t.ElemType)
	writeLimits(w, t.Limits, false)
}

// EncodeTable writes one table descriptor; Encode uses it for each entry of
// the table section.
func EncodeTable(w *writer, t wasm.Table) { encodeTable(w, t) }
