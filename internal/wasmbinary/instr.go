package wasmbinary

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/leb128"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// MemArg is a memory instruction's (align, offset) immediate pair.
type MemArg struct {
	Align  uint32
	Offset uint32
}

// Instruction is one decoded instruction from a function body. Only the
// shapes the weaver's transforms need to inspect or rewrite get their
// immediates broken out into named fields (FuncIndex, GlobalIndex, and so
// on); everything else is kept verbatim in Raw so re-encoding is always
// lossless for instructions nobody touches.
//
// Exactly one of the index/branch fields is meaningful, selected by Opcode
// (and Prefix, for 0xFC/0xFB instructions). Raw holds the encoded immediate
// bytes as they appeared in the input, letting a visitor that doesn't care
// about this instruction re-emit it unchanged without re-deriving the
// encoding.
type Instruction struct {
	Opcode wasm.Opcode
	Prefix wasm.Opcode // 0 if this is not a prefixed (misc/GC/vector) instruction

	BlockType int64 // block/loop/if/try/try_table

	FuncIndex   uint32 // call, return_call, ref.func
	TypeIndex   uint32 // call_indirect, call_ref
	TableIndex  uint32 // call_indirect, table.get/set, table.init/copy/grow/size/fill
	GlobalIndex uint32
	LocalIndex  uint32
	HeapType    int64 // ref.null

	BrDepth        uint32
	BrTableDepths  []uint32
	BrTableDefault uint32

	TryTableCatches []byte // try_table's catch clause vector, kept opaque

	MemArg MemArg

	Raw []byte // the immediate bytes exactly as encoded, always populated
}

// blockOpener reports whether op begins a structured block that must be
// matched by a later `end` (and, for if/try_table, possibly an `else`).
func blockOpener(op wasm.Opcode) bool {
	switch op {
	case wasm.OpcodeBlock, wasm.OpcodeLoop, wasm.OpcodeIf, wasm.OpcodeTry, wasm.OpcodeTryTable:
		return true
	}
	return false
}

// decodeInstruction reads one instruction (opcode plus immediate) from r.
func decodeInstruction(r *reader) (Instruction, error) {
	op, err := r.ReadByte()
	if err != nil {
		return Instruction{}, err
	}
	start := r.pos
	ins := Instruction{Opcode: op}

	switch {
	case op == wasm.OpcodeMiscPrefix, op == wasm.OpcodeGCPrefix, op == wasm.OpcodeVecPrefix:
		sub, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		ins.Prefix = op
		ins.Opcode = byte(sub)
		if err := decodePrefixedImmediate(r, &ins); err != nil {
			return Instruction{}, err
		}

	case blockOpener(op):
		bt, err := r.readI33AsI64()
		if err != nil {
			return Instruction{}, err
		}
		ins.BlockType = bt
		if op == wasm.OpcodeTryTable {
			catchesStart := r.pos
			if err := decodeTryTableCatches(r); err != nil {
				return Instruction{}, err
			}
			ins.TryTableCatches = append([]byte(nil), r.b[catchesStart:r.pos]...)
		}

	case op == wasm.OpcodeEnd, op == wasm.OpcodeElse, op == wasm.OpcodeUnreachable, op == wasm.OpcodeNop,
		op == wasm.OpcodeReturn, op == wasm.OpcodeDrop, op == wasm.OpcodeSelect,
		op == wasm.OpcodeMemorySize, op == wasm.OpcodeMemoryGrow,
		op == wasm.OpcodeRefIsNull, op == wasm.OpcodeThrowRef,
		(op >= wasm.OpcodeNumericRangeStart && op <= wasm.OpcodeNumericRangeEnd):
		if op == wasm.OpcodeMemorySize || op == wasm.OpcodeMemoryGrow {
			// reserved memory-index byte, always 0 in the MVP
			if _, err := r.ReadByte(); err != nil {
				return Instruction{}, err
			}
		}

	case op == wasm.OpcodeBr, op == wasm.OpcodeBrIf, op == wasm.OpcodeDelegate:
		d, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		ins.BrDepth = d

	case op == wasm.OpcodeBrTable:
		n, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		depths := make([]uint32, n)
		for i := range depths {
			depths[i], err = r.readU32()
			if err != nil {
				return Instruction{}, err
			}
		}
		def, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		ins.BrTableDepths = depths
		ins.BrTableDefault = def

	case op == wasm.OpcodeCall, op == wasm.OpcodeReturnCall:
		idx, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		ins.FuncIndex = idx

	case op == wasm.OpcodeCallIndirect, op == wasm.OpcodeReturnCallIndirect:
		ty, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		tbl, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		ins.TypeIndex = ty
		ins.TableIndex = tbl

	case op == wasm.OpcodeCallRef, op == wasm.OpcodeReturnCallRef:
		ty, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		ins.TypeIndex = ty

	case op == wasm.OpcodeCatch, op == wasm.OpcodeThrow, op == wasm.OpcodeRethrow, op == wasm.OpcodeCatchAll:
		idx, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		ins.FuncIndex = idx // reused as the tag/rethrow-depth index

	case op == wasm.OpcodeSelectWithType:
		n, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		if _, err := r.readBytes(int(n)); err != nil {
			return Instruction{}, err
		}

	case op == wasm.OpcodeLocalGet, op == wasm.OpcodeLocalSet, op == wasm.OpcodeLocalTee:
		idx, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		ins.LocalIndex = idx

	case op == wasm.OpcodeGlobalGet, op == wasm.OpcodeGlobalSet:
		idx, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		ins.GlobalIndex = idx

	case op == wasm.OpcodeTableGet, op == wasm.OpcodeTableSet:
		idx, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		ins.TableIndex = idx

	case op >= wasm.OpcodeMemoryLoadRangeStart && op <= wasm.OpcodeMemoryLoadRangeEnd:
		ma, err := decodeMemArg(r)
		if err != nil {
			return Instruction{}, err
		}
		ins.MemArg = ma

	case op == wasm.OpcodeI32Const:
		if _, err := r.readI32(); err != nil {
			return Instruction{}, err
		}
	case op == wasm.OpcodeI64Const:
		if _, err := r.readI64(); err != nil {
			return Instruction{}, err
		}
	case op == wasm.OpcodeF32Const:
		if _, err := r.readBytes(4); err != nil {
			return Instruction{}, err
		}
	case op == wasm.OpcodeF64Const:
		if _, err := r.readBytes(8); err != nil {
			return Instruction{}, err
		}

	case op == wasm.OpcodeRefNull:
		ht, err := r.readI33AsI64()
		if err != nil {
			return Instruction{}, err
		}
		ins.HeapType = ht
	case op == wasm.OpcodeRefFunc:
		idx, err := r.readU32()
		if err != nil {
			return Instruction{}, err
		}
		ins.FuncIndex = idx

	default:
		return Instruction{}, fmt.Errorf("unsupported opcode %#x", op)
	}

	ins.Raw = append([]byte(nil), r.b[start:r.pos]...)
	return ins, nil
}

// decodePrefixedImmediate handles the 0xFC "misc" family this weaver
// understands, plus the two GC reference-conversion opcodes used by the
// externref transform. General GC struct/array/ref.cast instructions and
// the full SIMD (0xFD) opcode space are out of scope: no guest toolchain
// in this system's ambit emits them, and decoding them correctly would
// require modeling the full GC/SIMD type grammar for no benefit to any
// transform here.
func decodePrefixedImmediate(r *reader, ins *Instruction) error {
	if ins.Prefix == wasm.OpcodeGCPrefix {
		switch ins.Opcode {
		case wasm.GCAnyConvertExtern, wasm.GCExternConvertAny:
			return nil
		default:
			return fmt.Errorf("unsupported GC sub-opcode %#x", ins.Opcode)
		}
	}
	if ins.Prefix == wasm.OpcodeVecPrefix {
		return fmt.Errorf("vector (SIMD) instructions are not supported")
	}
	switch ins.Opcode {
	case wasm.MiscI32TruncSatF32S, wasm.MiscI32TruncSatF32U, wasm.MiscI32TruncSatF64S, wasm.MiscI32TruncSatF64U,
		wasm.MiscI64TruncSatF32S, wasm.MiscI64TruncSatF32U, wasm.MiscI64TruncSatF64S, wasm.MiscI64TruncSatF64U:
		return nil
	case wasm.MiscMemoryInit:
		idx, err := r.readU32()
		if err != nil {
			return err
		}
		ins.FuncIndex = idx // reused as the data-segment index
		if _, err := r.ReadByte(); err != nil {
			return err
		}
	case wasm.MiscDataDrop:
		idx, err := r.readU32()
		if err != nil {
			return err
		}
		ins.FuncIndex = idx
	case wasm.MiscMemoryCopy:
		if _, err := r.readBytes(2); err != nil {
			return err
		}
	case wasm.MiscMemoryFill:
		if _, err := r.ReadByte(); err != nil {
			return err
		}
	case wasm.MiscTableInit:
		elem, err := r.readU32()
		if err != nil {
			return err
		}
		tbl, err := r.readU32()
		if err != nil {
			return err
		}
		ins.FuncIndex = elem
		ins.TableIndex = tbl
	case wasm.MiscElemDrop:
		idx, err := r.readU32()
		if err != nil {
			return err
		}
		ins.FuncIndex = idx
	case wasm.MiscTableCopy:
		dst, err := r.readU32()
		if err != nil {
			return err
		}
		src, err := r.readU32()
		if err != nil {
			return err
		}
		ins.TableIndex = dst
		ins.FuncIndex = src
	case wasm.MiscTableGrow, wasm.MiscTableSize, wasm.MiscTableFill:
		idx, err := r.readU32()
		if err != nil {
			return err
		}
		ins.TableIndex = idx
	default:
		return fmt.Errorf("unsupported misc sub-opcode %#x", ins.Opcode)
	}
	return nil
}

// decodeTryTableCatches skips over a try_table's catch clause vector. The
// weaver never rewrites exception handling, so these are treated as opaque
// bytes captured in the enclosing Instruction.Raw span.
func decodeTryTableCatches(r *reader) error {
	n, err := r.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		if kind <= 1 { // catch, catch_ref: tag index then label
			if _, err := r.readU32(); err != nil {
				return err
			}
		}
		if _, err := r.readU32(); err != nil { // label depth
			return err
		}
	}
	return nil
}

func decodeMemArg(r *reader) (MemArg, error) {
	align, err := r.readU32()
	if err != nil {
		return MemArg{}, err
	}
	offset, err := r.readU32()
	if err != nil {
		return MemArg{}, err
	}
	return MemArg{Align: align, Offset: offset}, nil
}

// encodeInstruction re-emits ins. Instructions whose named fields were not
// touched by a visitor are still re-derived from those fields rather than
// from Raw, so that a visitor only needs to mutate the named index/depth
// fields and never has to hand-splice LEB128 bytes.
func encodeInstruction(w *writer, ins Instruction) {
	if ins.Prefix != 0 {
		w.writeByte(ins.Prefix)
		w.writeU32(uint32(ins.Opcode))
		encodePrefixedImmediate(w, ins)
		return
	}
	w.writeByte(ins.Opcode)
	switch {
	case blockOpener(ins.Opcode):
		w.writeI33(ins.BlockType)
		if ins.Opcode == wasm.OpcodeTryTable {
			w.writeBytes(ins.TryTableCatches)
		}
	case ins.Opcode == wasm.OpcodeBr, ins.Opcode == wasm.OpcodeBrIf, ins.Opcode == wasm.OpcodeDelegate:
		w.writeU32(ins.BrDepth)
	case ins.Opcode == wasm.OpcodeBrTable:
		writeVec(w, ins.BrTableDepths, func(w *writer, d uint32) { w.writeU32(d) })
		w.writeU32(ins.BrTableDefault)
	case ins.Opcode == wasm.OpcodeCall, ins.Opcode == wasm.OpcodeReturnCall, ins.Opcode == wasm.OpcodeRefFunc:
		w.writeU32(ins.FuncIndex)
	case ins.Opcode == wasm.OpcodeCallIndirect, ins.Opcode == wasm.OpcodeReturnCallIndirect:
		w.writeU32(ins.TypeIndex)
		w.writeU32(ins.TableIndex)
	case ins.Opcode == wasm.OpcodeCallRef, ins.Opcode == wasm.OpcodeReturnCallRef:
		w.writeU32(ins.TypeIndex)
	case ins.Opcode == wasm.OpcodeCatch, ins.Opcode == wasm.OpcodeThrow, ins.Opcode == wasm.OpcodeRethrow, ins.Opcode == wasm.OpcodeCatchAll:
		w.writeU32(ins.FuncIndex)
	case ins.Opcode == wasm.OpcodeLocalGet, ins.Opcode == wasm.OpcodeLocalSet, ins.Opcode == wasm.OpcodeLocalTee:
		w.writeU32(ins.LocalIndex)
	case ins.Opcode == wasm.OpcodeGlobalGet, ins.Opcode == wasm.OpcodeGlobalSet:
		w.writeU32(ins.GlobalIndex)
	case ins.Opcode == wasm.OpcodeTableGet, ins.Opcode == wasm.OpcodeTableSet:
		w.writeU32(ins.TableIndex)
	case ins.Opcode >= wasm.OpcodeMemoryLoadRangeStart && ins.Opcode <= wasm.OpcodeMemoryLoadRangeEnd:
		w.writeU32(ins.MemArg.Align)
		w.writeU32(ins.MemArg.Offset)
	case ins.Opcode == wasm.OpcodeRefNull:
		w.writeI33(ins.HeapType)
	case ins.Opcode == wasm.OpcodeMemorySize, ins.Opcode == wasm.OpcodeMemoryGrow:
		w.writeByte(0)
	default:
		w.writeBytes(ins.Raw)
	}
}

func encodePrefixedImmediate(w *writer, ins Instruction) {
	switch ins.Opcode {
	case wasm.MiscMemoryInit:
		w.writeU32(ins.FuncIndex)
		w.writeByte(0)
	case wasm.MiscDataDrop, wasm.MiscElemDrop:
		w.writeU32(ins.FuncIndex)
	case wasm.MiscMemoryCopy:
		w.writeBytes([]byte{0, 0})
	case wasm.MiscMemoryFill:
		w.writeByte(0)
	case wasm.MiscTableInit:
		w.writeU32(ins.FuncIndex)
		w.writeU32(ins.TableIndex)
	case wasm.MiscTableCopy:
		w.writeU32(ins.TableIndex)
		w.writeU32(ins.FuncIndex)
	case wasm.MiscTableGrow, wasm.MiscTableSize, wasm.MiscTableFill:
		w.writeU32(ins.TableIndex)
	default:
		w.writeBytes(ins.Raw)
	}
}

func (w *writer) writeI33(v int64) {
	w.buf.Write(leb128.EncodeInt64(v))
}
