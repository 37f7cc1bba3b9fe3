package wasmbinary

import (
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/leb128"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// BuildBody encodes a sequence of instructions into a function body byte
// stream (no locals prefix — that's encoded separately by Code.LocalTypes).
// Used by the slab, return-stub and externref transforms to synthesize
// function bodies and injected prologues/epilogues directly from
// Instruction values instead of hand-assembling LEB128 bytes.
func BuildBody(instrs []Instruction) []byte {
	w := newWriter()
	for _, ins := range instrs {
		encodeInstruction(w, ins)
	}
	return w.Bytes()
}

// Simple instruction constructors for the handful of shapes the transforms
// need to synthesize; anything else can be built by populating an
// Instruction literal directly.

func Call(funcIdx uint32) Instruction { return Instruction{Opcode: wasm.OpcodeCall, FuncIndex: funcIdx} }

func LocalGet(idx uint32) Instruction {
	return Instruction{Opcode: wasm.OpcodeLocalGet, LocalIndex: idx}
}

func LocalSet(idx uint32) Instruction {
	return Instruction{Opcode: wasm.OpcodeLocalSet, LocalIndex: idx}
}

func LocalTee(idx uint32) Instruction {
	return Instruction{Opcode: wasm.OpcodeLocalTee, LocalIndex: idx}
}

func GlobalGet(idx uint32) Instruction {
	return Instruction{Opcode: wasm.OpcodeGlobalGet, GlobalIndex: idx}
}

func GlobalSet(idx uint32) Instruction {
	return Instruction{Opcode: wasm.OpcodeGlobalSet, GlobalIndex: idx}
}

func TableGet(idx uint32) Instruction {
	return Instruction{Opcode: wasm.OpcodeTableGet, TableIndex: idx}
}

func TableSet(idx uint32) Instruction {
	return Instruction{Opcode: wasm.OpcodeTableSet, TableIndex: idx}
}

func TableGrow(idx uint32) Instruction {
	return Instruction{Prefix: wasm.OpcodeMiscPrefix, Opcode: wasm.MiscTableGrow, TableIndex: idx}
}

// RefNullExtern pushes a null externref.
func RefNullExtern() Instruction {
	return Instruction{Opcode: wasm.OpcodeRefNull, HeapType: -17} // externref abstract heap type
}

func I32Const(v int32) Instruction {
	return Instruction{Opcode: wasm.OpcodeI32Const, Raw: leb128.EncodeInt32(v)}
}

func Return() Instruction { return Instruction{Opcode: wasm.OpcodeReturn} }

func Br(depth uint32) Instruction { return Instruction{Opcode: wasm.OpcodeBr, BrDepth: depth} }

func End() Instruction { return Instruction{Opcode: wasm.OpcodeEnd} }

// ExternConvertAny converts an anyref (as read from a table.get on an
// externref-typed table, which surfaces as anyref per the GC proposal's
// type hierarchy) back into a genuine externref.
func ExternConvertAny() Instruction {
	return Instruction{Prefix: wasm.OpcodeGCPrefix, Opcode: wasm.GCExternConvertAny}
}
