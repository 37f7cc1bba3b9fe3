package wasmbinary

import "github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"

func readMemorySection(r *reader) ([]wasm.Memory, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Memory, count)
	for i := range out {
		out[i], err = readMemory(r)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readMemory(r *reader) (wasm.Memory, error) {
	lim, shared, err := readMemoryLimits(r)
	if err != nil {
		return wasm.Memory{}, err
	}
	return wasm.Memory{Limits: lim, Shared: shared}, nil
}

func encodeMemory(w *writer, m wasm.Memory) {
	writeLimits(w, m.Limits, m.Shared)
}
