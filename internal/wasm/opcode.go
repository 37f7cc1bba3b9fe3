package wasm

// Opcode is a single WebAssembly instruction opcode byte. Multi-byte
// instructions (the 0xFC "misc", 0xFD "vector" and 0xFB "GC" encodings) use
// this as their prefix followed by a LEB128 sub-opcode.
type Opcode = byte

const (
	OpcodeUnreachable Opcode = 0x00
	OpcodeNop         Opcode = 0x01
	OpcodeBlock       Opcode = 0x02
	OpcodeLoop        Opcode = 0x03
	OpcodeIf          Opcode = 0x04
	OpcodeElse        Opcode = 0x05
	OpcodeTry         Opcode = 0x06
	OpcodeCatch       Opcode = 0x07
	OpcodeThrow       Opcode = 0x08
	OpcodeRethrow     Opcode = 0x09
	OpcodeThrowRef    Opcode = 0x0A
	OpcodeEnd         Opcode = 0x0B
	OpcodeBr          Opcode = 0x0C
	OpcodeBrIf        Opcode = 0x0D
	OpcodeBrTable     Opcode = 0x0E
	OpcodeReturn      Opcode = 0x0F
	OpcodeCall        Opcode = 0x10
	OpcodeCallIndirect Opcode = 0x11
	OpcodeReturnCall   Opcode = 0x12
	OpcodeReturnCallIndirect Opcode = 0x13
	OpcodeCallRef       Opcode = 0x14
	OpcodeReturnCallRef Opcode = 0x15
	OpcodeDelegate Opcode = 0x18
	OpcodeCatchAll Opcode = 0x19

	OpcodeDrop   Opcode = 0x1A
	OpcodeSelect Opcode = 0x1B
	OpcodeSelectWithType Opcode = 0x1C

	OpcodeTryTable Opcode = 0x1F

	OpcodeLocalGet  Opcode = 0x20
	OpcodeLocalSet  Opcode = 0x21
	OpcodeLocalTee  Opcode = 0x22
	OpcodeGlobalGet Opcode = 0x23
	OpcodeGlobalSet Opcode = 0x24

	OpcodeTableGet Opcode = 0x25
	OpcodeTableSet Opcode = 0x26

	// OpcodeMemoryLoadRangeStart/End bound the contiguous memory load/store
	// family (i32.load .. i64.store32), all sharing the memarg immediate.
	OpcodeMemoryLoadRangeStart Opcode = 0x28
	OpcodeMemoryLoadRangeEnd   Opcode = 0x3E
	OpcodeMemorySize           Opcode = 0x3F
	OpcodeMemoryGrow           Opcode = 0x40

	OpcodeI32Const Opcode = 0x41
	OpcodeI64Const Opcode = 0x42
	OpcodeF32Const Opcode = 0x43
	OpcodeF64Const Opcode = 0x44

	// OpcodeNumericRangeStart/End bound the large contiguous band of
	// no-immediate numeric instructions (i32.eqz through i64.extend32_s):
	// comparisons, arithmetic, conversions and sign-extension ops.
	OpcodeNumericRangeStart Opcode = 0x45
	OpcodeNumericRangeEnd   Opcode = 0xC4

	OpcodeRefNull  Opcode = 0xD0
	OpcodeRefIsNull Opcode = 0xD1
	OpcodeRefFunc  Opcode = 0xD2

	OpcodeMiscPrefix Opcode = 0xFC
	OpcodeVecPrefix  Opcode = 0xFD
	OpcodeGCPrefix   Opcode = 0xFB
)

// Misc (0xFC-prefixed) sub-opcodes.
const (
	MiscI32TruncSatF32S Opcode = 0
	MiscI32TruncSatF32U Opcode = 1
	MiscI32TruncSatF64S Opcode = 2
	MiscI32TruncSatF64U Opcode = 3
	MiscI64TruncSatF32S Opcode = 4
	MiscI64TruncSatF32U Opcode = 5
	MiscI64TruncSatF64S Opcode = 6
	MiscI64TruncSatF64U Opcode = 7
	MiscMemoryInit      Opcode = 8
	MiscDataDrop        Opcode = 9
	MiscMemoryCopy      Opcode = 10
	MiscMemoryFill      Opcode = 11
	MiscTableInit       Opcode = 12
	MiscElemDrop        Opcode = 13
	MiscTableCopy       Opcode = 14
	MiscTableGrow       Opcode = 15
	MiscTableSize       Opcode = 16
	MiscTableFill       Opcode = 17
)

// GC (0xFB-prefixed) sub-opcodes this weaver actively emits and consumes
// for the externref transform (spec.md §4.8). Other GC sub-opcodes are not
// decoded; see internal/wasmbinary's instruction scanner.
const (
	GCAnyConvertExtern   Opcode = 0x1A
	GCExternConvertAny   Opcode = 0x1B
)
