package wasmbinary

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/leb128"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// readConstExpr reads a single-instruction constant expression used by
// global initializers and element/data segment offsets, terminated by
// OpcodeEnd. The immediate bytes are kept raw in ConstantExpression.Data so
// that re-encoding (which may need to remap a global.get's index) can
// reparse only what it needs.
func readConstExpr(r *reader) (wasm.ConstantExpression, error) {
	op, err := r.ReadByte()
	if err != nil {
		return wasm.ConstantExpression{}, err
	}
	start := r.pos
	switch op {
	case wasm.OpcodeI32Const:
		if _, err := r.readI32(); err != nil {
			return wasm.ConstantExpression{}, err
		}
	case wasm.OpcodeI64Const:
		if _, err := r.readI64(); err != nil {
			return wasm.ConstantExpression{}, err
		}
	case wasm.OpcodeF32Const:
		if _, err := r.readBytes(4); err != nil {
			return wasm.ConstantExpression{}, err
		}
	case wasm.OpcodeF64Const:
		if _, err := r.readBytes(8); err != nil {
			return wasm.ConstantExpression{}, err
		}
	case wasm.OpcodeGlobalGet:
		if _, err := r.readU32(); err != nil {
			return wasm.ConstantExpression{}, err
		}
	case wasm.OpcodeRefNull:
		if _, err := r.readI33AsI64(); err != nil {
			return wasm.ConstantExpression{}, err
		}
	case wasm.OpcodeRefFunc:
		if _, err := r.readU32(); err != nil {
			return wasm.ConstantExpression{}, err
		}
	default:
		return wasm.ConstantExpression{}, fmt.Errorf("unsupported constant expression opcode %#x", op)
	}
	data := append([]byte(nil), r.b[start:r.pos]...)
	end, err := r.ReadByte()
	if err != nil {
		return wasm.ConstantExpression{}, err
	}
	if end != wasm.OpcodeEnd {
		return wasm.ConstantExpression{}, fmt.Errorf("constant expression missing terminal end, got %#x", end)
	}
	return wasm.ConstantExpression{Opcode: op, Data: data}, nil
}

func encodeConstExpr(w *writer, c wasm.ConstantExpression) {
	w.writeByte(c.Opcode)
	w.writeBytes(c.Data)
	w.writeByte(wasm.OpcodeEnd)
}

// constExprGlobalIndex returns the referenced global index for a
// global.get initializer, used by the re-encoder to translate it.
func constExprGlobalIndex(c wasm.ConstantExpression) (uint32, bool) {
	if c.Opcode != wasm.OpcodeGlobalGet {
		return 0, false
	}
	v, _, err := leb128.LoadUint32(c.Data)
	if err != nil {
		return 0, false
	}
	return v, true
}

// constExprFuncIndex returns the referenced function index for a ref.func
// initializer, used by the re-encoder to translate it.
func constExprFuncIndex(c wasm.ConstantExpression) (uint32, bool) {
	if c.Opcode != wasm.OpcodeRefFunc {
		return 0, false
	}
	v, _, err := leb128.LoadUint32(c.Data)
	if err != nil {
		return 0, false
	}
	return v, true
}

// withGlobalIndex returns a copy of c with its global.get immediate
// replaced by idx.
func withGlobalIndex(c wasm.ConstantExpression, idx uint32) wasm.ConstantExpression {
	return wasm.ConstantExpression{Opcode: c.Opcode, Data: leb128.EncodeUint32(idx)}
}

// withFuncIndex returns a copy of c with its ref.func immediate replaced by
// idx.
func withFuncIndex(c wasm.ConstantExpression, idx uint32) wasm.ConstantExpression {
	return wasm.ConstantExpression{Opcode: c.Opcode, Data: leb128.EncodeUint32(idx)}
}

// RemapConstExprIndices rewrites a constant expression's global.get or
// ref.func immediate through the supplied lookup, leaving every other
// constant expression shape untouched. Used by the weave orchestrator to
// retarget global and element/data-segment offset initializers after
// function- and global-index remapping. mapFunc/mapGlobal return the
// translated index or the error a source-space lookup miss should surface
// (e.g. a typed werr.*OutOfBounds).
func RemapConstExprIndices(c wasm.ConstantExpression, mapFunc, mapGlobal func(uint32) (uint32, error)) (wasm.ConstantExpression, error) {
	if idx, ok := constExprFuncIndex(c); ok {
		newIdx, err := mapFunc(idx)
		if err != nil {
			return wasm.ConstantExpression{}, err
		}
		return withFuncIndex(c, newIdx), nil
	}
	if idx, ok := constExprGlobalIndex(c); ok {
		newIdx, err := mapGlobal(idx)
		if err != nil {
			return wasm.ConstantExpression{}, err
		}
		return withGlobalIndex(c, newIdx), nil
	}
	return c, nil
}
