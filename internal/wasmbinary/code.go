package wasmbinary

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// readCodeSection reads the code section into raw Code entries. Bodies are
// kept as opaque byte streams (ground: tetratelabs-wazero's binary.Module
// decoding, which likewise defers instruction parsing past the section
// reader) since most of the weaver's work never needs to interpret an
// instruction it isn't rewriting.
func readCodeSection(r *reader) ([]wasm.Code, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Code, count)
	for i := range out {
		out[i], err = readCodeEntry(r)
		if err != nil {
			return nil, fmt.Errorf("reading function body %d: %w", i, err)
		}
	}
	return out, nil
}

func readCodeEntry(r *reader) (wasm.Code, error) {
	size, err := r.readU32()
	if err != nil {
		return wasm.Code{}, err
	}
	body, err := r.readBytes(int(size))
	if err != nil {
		return wasm.Code{}, err
	}
	br := newReader(body)

	localTypes, err := readLocalDecls(br)
	if err != nil {
		return wasm.Code{}, fmt.Errorf("reading local declarations: %w", err)
	}

	instrs := append([]byte(nil), body[br.pos:]...)
	return wasm.Code{LocalTypes: localTypes, Body: instrs}, nil
}

// readLocalDecls reads the function body's compressed local-type runs,
// expanding them into one ValueType per declared local.
func readLocalDecls(r *reader) ([]wasm.ValueType, error) {
	runCount, err := r.readU32()
	if err != nil {
		return nil, err
	}
	var out []wasm.ValueType
	for i := uint32(0); i < runCount; i++ {
		n, err := r.readU32()
		if err != nil {
			return nil, err
		}
		vt, err := readValueType(r)
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < n; j++ {
			out = append(out, vt)
		}
	}
	return out, nil
}

// encodeLocalDecls re-compresses a flat local-type list into runs of equal
// consecutive types, matching how a real producer toolchain emits them.
func encodeLocalDecls(w *writer, locals []wasm.ValueType) {
	type run struct {
		vt    wasm.ValueType
		count uint32
	}
	var runs []run
	for _, vt := range locals {
		if n := len(runs); n > 0 && runs[n-1].vt == vt {
			runs[n-1].count++
			continue
		}
		runs = append(runs, run{vt: vt, count: 1})
	}
	w.writeU32(uint32(len(runs)))
	for _, rn := range runs {
		w.writeU32(rn.count)
		w.writeByte(rn.vt)
	}
}

// encodeCodeEntry writes one function body, recomputing its size prefix.
func encodeCodeEntry(w *writer, c wasm.Code) {
	body := newWriter()
	encodeLocalDecls(body, c.LocalTypes)
	body.writeBytes(c.Body)
	b := body.Bytes()
	w.writeU32(uint32(len(b)))
	w.writeBytes(b)
}
