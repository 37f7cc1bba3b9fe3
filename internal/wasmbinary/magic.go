// Package wasmbinary implements the module reader (C3) and the low-level
// encode/decode primitives the re-encoder, interner and transforms build
// on top of. It mirrors tetratelabs-wazero's internal/wasm/binary package
// in shape: one file per section concept, a streaming decoder and an
// encoder that never materializes a whole output buffer before the last
// section is appended.
package wasmbinary

// magic is the 4-byte `\0asm` preamble every core module starts with.
var magic = []byte{0x00, 0x61, 0x73, 0x6d}

// version is the binary format version this package reads and writes.
var version = []byte{0x01, 0x00, 0x00, 0x00}
