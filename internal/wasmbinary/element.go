package wasmbinary

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/leb128"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// element segment flag bits, per the bulk-memory proposal that folded the
// MVP's single active-segment-of-funcidx shape into an 8-variant encoding.
const (
	elemFlagPassive     = 1 << 0
	elemFlagExplicitIdx = 1 << 1 // active: has explicit table index; declarative: distinguishes from passive
	elemFlagExprInit    = 1 << 2 // elements are expressions, not bare func indices
)

func readElementSection(r *reader) ([]wasm.ElementSegment, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.ElementSegment, count)
	for i := range out {
		out[i], err = readElementSegment(r)
		if err != nil {
			return nil, fmt.Errorf("reading element segment %d: %w", i, err)
		}
	}
	return out, nil
}

func readElementSegment(r *reader) (wasm.ElementSegment, error) {
	flags, err := r.readU32()
	if err != nil {
		return wasm.ElementSegment{}, err
	}
	if flags > 7 {
		return wasm.ElementSegment{}, fmt.Errorf("unsupported element segment flags %#x", flags)
	}
	seg := wasm.ElementSegment{ElemType: wasm.ValueTypeFuncref}

	passive := flags&elemFlagPassive != 0
	declarative := passive && flags&elemFlagExplicitIdx != 0
	seg.Active = !passive
	seg.Declarative = declarative

	if seg.Active {
		if flags&elemFlagExplicitIdx != 0 {
			idx, err := r.readU32()
			if err != nil {
				return wasm.ElementSegment{}, err
			}
			seg.TableIndex = idx
		}
		off, err := readConstExpr(r)
		if err != nil {
			return wasm.ElementSegment{}, err
		}
		seg.Offset = off
	}

	// An elemkind/reftype byte follows for every variant except the two
	// "bare active, implicit table 0" ones (flags 0 and 4).
	hasKind := flags&(elemFlagPassive|elemFlagExplicitIdx) != 0
	exprInit := flags&elemFlagExprInit != 0

	if hasKind {
		if exprInit {
			et, err := readValueType(r)
			if err != nil {
				return wasm.ElementSegment{}, err
			}
			seg.ElemType = et
		} else {
			kind, err := r.ReadByte()
			if err != nil {
				return wasm.ElementSegment{}, err
			}
			if kind != 0 {
				return wasm.ElementSegment{}, fmt.Errorf("unsupported elemkind %#x", kind)
			}
			seg.ElemType = wasm.ValueTypeFuncref
		}
	}

	count, err := r.readU32()
	if err != nil {
		return wasm.ElementSegment{}, err
	}
	if exprInit {
		seg.Init = make([]wasm.ConstantExpression, count)
		for i := range seg.Init {
			seg.Init[i], err = readConstExpr(r)
			if err != nil {
				return wasm.ElementSegment{}, err
			}
		}
	} else {
		seg.FuncIndexes = make([]uint32, count)
		for i := range seg.FuncIndexes {
			seg.FuncIndexes[i], err = r.readU32()
			if err != nil {
				return wasm.ElementSegment{}, err
			}
		}
	}
	return seg, nil
}

// encodeElementSegment always emits the fully explicit expression-initializer
// encoding (flags 4/6/5/7 as applicable): simpler to produce than
// reconstructing the shorthand, and every consumer in this toolchain (a
// validator, an optimizer) accepts it.
func encodeElementSegment(w *writer, seg wasm.ElementSegment) {
	init := seg.Init
	if init == nil {
		init = make([]wasm.ConstantExpression, len(seg.FuncIndexes))
		for i, fi := range seg.FuncIndexes {
			init[i] = wasm.ConstantExpression{Opcode: wasm.OpcodeRefFunc, Data: leb128.EncodeUint32(fi)}
		}
	}

	var flags uint32
	switch {
	case seg.Declarative:
		flags = elemFlagPassive | elemFlagExplicitIdx | elemFlagExprInit
	case !seg.Active:
		flags = elemFlagPassive | elemFlagExprInit
	case seg.TableIndex != 0:
		flags = elemFlagExplicitIdx | elemFlagExprInit
	default:
		flags = elemFlagExprInit
	}

	w.writeU32(flags)
	if seg.Active {
		if flags&elemFlagExplicitIdx != 0 {
			w.writeU32(seg.TableIndex)
		}
		encodeConstExpr(w, seg.Offset)
	}
	if flags&(elemFlagPassive|elemFlagExplicitIdx) != 0 {
		w.writeByte(seg.ElemType)
	}
	writeVec(w, init, encodeConstExpr)
}
