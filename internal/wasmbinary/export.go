package wasmbinary

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

func readExportSection(r *reader) ([]wasm.Export, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Export, count)
	for i := range out {
		name, err := r.readString()
		if err != nil {
			return nil, fmt.Errorf("reading export %d name: %w", i, err)
		}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		idx, err := r.readU32()
		if err != nil {
			return nil, err
		}
		out[i] = wasm.Export{Name: name, Kind: kind, Index: idx}
	}
	return out, nil
}

// EncodeExport writes one export entry.
func EncodeExport(w *writer, e wasm.Export) {
	w.writeString(e.Name)
	w.writeByte(e.Kind)
	w.writeU32(e.Index)
}
