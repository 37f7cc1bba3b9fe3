package wasmbinary

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// sectionHeader is one `(id, size)` pair preceding every section's payload.
type sectionHeader struct {
	id   wasm.SectionID
	size uint32
}

func readSectionHeader(r *reader) (sectionHeader, error) {
	id, err := r.ReadByte()
	if err != nil {
		return sectionHeader{}, err
	}
	size, err := r.readU32()
	if err != nil {
		return sectionHeader{}, fmt.Errorf("reading size of section %s: %w", wasm.SectionIDName(id), err)
	}
	return sectionHeader{id: id, size: size}, nil
}

// writeSection appends a framed section: id byte, LEB128 size, payload.
func writeSection(out *writer, id wasm.SectionID, payload []byte) {
	out.writeByte(id)
	out.writeU32(uint32(len(payload)))
	out.writeBytes(payload)
}

func readLimits(r *reader) (wasm.Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return wasm.Limits{}, err
	}
	min, err := r.readU32()
	if err != nil {
		return wasm.Limits{}, err
	}
	lim := wasm.Limits{Min: min}
	if flags&0x01 != 0 {
		max, err := r.readU32()
		if err != nil {
			return wasm.Limits{}, err
		}
		lim.Max = &max
	}
	return lim, nil
}

func writeLimits(w *writer, lim wasm.Limits, shared bool) {
	var flags byte
	if lim.Max != nil {
		flags |= 0x01
	}
	if shared {
		flags |= 0x02
	}
	w.writeByte(flags)
	w.writeU32(lim.Min)
	if lim.Max != nil {
		w.writeU32(*lim.Max)
	}
}

func readMemoryLimits(r *reader) (wasm.Limits, bool, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return wasm.Limits{}, false, err
	}
	min, err := r.readU32()
	if err != nil {
		return wasm.Limits{}, false, err
	}
	lim := wasm.Limits{Min: min}
	hasMax := flags&0x01 != 0
	shared := flags&0x02 != 0
	if hasMax {
		max, err := r.readU32()
		if err != nil {
			return wasm.Limits{}, false, err
		}
		lim.Max = &max
	}
	return lim, shared, nil
}

func readValueType(r *reader) (wasm.ValueType, error) {
	return r.ReadByte()
}
