package wasmbinary

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// Data segment flags, per the bulk-memory proposal: 0 active w/ implicit
// memory 0, 1 passive, 2 active w/ explicit memory index.

func readDataSection(r *reader) ([]wasm.DataSegment, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.DataSegment, count)
	for i := range out {
		out[i], err = readDataSegment(r)
		if err != nil {
			return nil, fmt.Errorf("reading data segment %d: %w", i, err)
		}
	}
	return out, nil
}

func readDataSegment(r *reader) (wasm.DataSegment, error) {
	flags, err := r.readU32()
	if err != nil {
		return wasm.DataSegment{}, err
	}
	seg := wasm.DataSegment{}
	switch flags {
	case 0:
		seg.Active = true
	case 1:
		seg.Active = false
	case 2:
		seg.Active = true
		idx, err := r.readU32()
		if err != nil {
			return wasm.DataSegment{}, err
		}
		seg.MemoryIndex = idx
	default:
		return wasm.DataSegment{}, fmt.Errorf("unsupported data segment flags %#x", flags)
	}
	if seg.Active {
		off, err := readConstExpr(r)
		if err != nil {
			return wasm.DataSegment{}, err
		}
		seg.Offset = off
	}
	n, err := r.readU32()
	if err != nil {
		return wasm.DataSegment{}, err
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return wasm.DataSegment{}, err
	}
	seg.Init = append([]byte(nil), b...)
	return seg, nil
}

func encodeDataSegment(w *writer, seg wasm.DataSegment) {
	switch {
	case !seg.Active:
		w.writeU32(1)
	case seg.MemoryIndex != 0:
		w.writeU32(2)
		w.writeU32(seg.MemoryIndex)
	default:
		w.writeU32(0)
	}
	if seg.Active {
		encodeConstExpr(w, seg.Offset)
	}
	w.writeU32(uint32(len(seg.Init)))
	w.writeBytes(seg.Init)
}
