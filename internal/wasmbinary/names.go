package wasmbinary

import (
	"sort"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// name section subsection ids.
const (
	nameSubsectionModule    = 0
	nameSubsectionFunction  = 1
	nameSubsectionLocal     = 2
)

// DecodeNameSection parses the custom "name" section's payload. Unknown or
// malformed subsections are skipped rather than treated as fatal: the name
// section is debug info, and a producer's custom extension subsection (or a
// tool's mistake) should never block a rewrite.
func DecodeNameSection(payload []byte) wasm.NameSection {
	var ns wasm.NameSection
	r := newReader(payload)
	for !r.atEOF() {
		id, err := r.ReadByte()
		if err != nil {
			return ns
		}
		size, err := r.readU32()
		if err != nil {
			return ns
		}
		sub, err := r.readBytes(int(size))
		if err != nil {
			return ns
		}
		sr := newReader(sub)
		switch id {
		case nameSubsectionModule:
			if name, err := sr.readString(); err == nil {
				ns.ModuleName = name
			}
		case nameSubsectionFunction:
			if m, err := readNameMap(sr); err == nil {
				ns.FunctionNames = m
			}
		case nameSubsectionLocal:
			if m, err := readIndirectNameMap(sr); err == nil {
				ns.LocalNames = m
			}
		}
	}
	return ns
}

func readNameMap(r *reader) (map[uint32]string, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]string, count)
	for i := uint32(0); i < count; i++ {
		idx, err := r.readU32()
		if err != nil {
			return nil, err
		}
		name, err := r.readString()
		if err != nil {
			return nil, err
		}
		out[idx] = name
	}
	return out, nil
}

func readIndirectNameMap(r *reader) (map[uint32]map[uint32]string, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]map[uint32]string, count)
	for i := uint32(0); i < count; i++ {
		idx, err := r.readU32()
		if err != nil {
			return nil, err
		}
		m, err := readNameMap(r)
		if err != nil {
			return nil, err
		}
		out[idx] = m
	}
	return out, nil
}

// EncodeNameSection serializes a NameSection back into a custom section
// payload (the "name" string itself is written by the custom-section
// wrapper, not here).
func EncodeNameSection(ns wasm.NameSection) []byte {
	w := newWriter()
	if ns.ModuleName != "" {
		sub := newWriter()
		sub.writeString(ns.ModuleName)
		writeSubsection(w, nameSubsectionModule, sub.Bytes())
	}
	if len(ns.FunctionNames) > 0 {
		sub := newWriter()
		writeNameMap(sub, ns.FunctionNames)
		writeSubsection(w, nameSubsectionFunction, sub.Bytes())
	}
	if len(ns.LocalNames) > 0 {
		sub := newWriter()
		writeIndirectNameMap(sub, ns.LocalNames)
		writeSubsection(w, nameSubsectionLocal, sub.Bytes())
	}
	return w.Bytes()
}

func writeSubsection(w *writer, id byte, payload []byte) {
	w.writeByte(id)
	w.writeU32(uint32(len(payload)))
	w.writeBytes(payload)
}

func writeNameMap(w *writer, m map[uint32]string) {
	idxs := sortedKeys(m)
	w.writeU32(uint32(len(idxs)))
	for _, idx := range idxs {
		w.writeU32(idx)
		w.writeString(m[idx])
	}
}

func writeIndirectNameMap(w *writer, m map[uint32]map[uint32]string) {
	idxs := sortedKeysIndirect(m)
	w.writeU32(uint32(len(idxs)))
	for _, idx := range idxs {
		w.writeU32(idx)
		writeNameMap(w, m[idx])
	}
}

func sortedKeys(m map[uint32]string) []uint32 {
	out := make([]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeysIndirect(m map[uint32]map[uint32]string) []uint32 {
	out := make([]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
