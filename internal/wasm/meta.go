package wasm

import "fmt"

// ValueTypeMeta is a 4-byte opaque symbol describing how to translate one
// parameter or result slot at the host boundary (spec.md §3).
//
// Ground: original_source's ValueTypeMeta (parse.rs), kept here as a [4]byte
// array so a signature custom section's payload maps onto a []ValueTypeMeta
// four bytes per tag (MetaFromBytes copies each tag out of the payload),
// mirroring the Rust side's view of the payload as [u8; 4] slices.
type ValueTypeMeta [4]byte

var (
	// MetaNone means no transformation: the slot passes through unchanged.
	MetaNone = ValueTypeMeta{0x00, 0x00, 0x00, 0x00}
	// MetaExternrefOwned marks an i32 slot as an owned externref: ownership
	// of the slab slot transfers across the boundary.
	MetaExternrefOwned = ValueTypeMeta{'E', 'X', 'R', 'o'}
	// MetaExternrefBorrow marks an i32 slot as a borrowed externref:
	// ownership does not transfer.
	MetaExternrefBorrow = ValueTypeMeta{'E', 'X', 'R', 'r'}
)

// String renders a meta tag for diagnostics, matching the original's Debug
// impl: "None" for the zero tag, else the ASCII rendering.
func (m ValueTypeMeta) String() string {
	if m == MetaNone {
		return "None"
	}
	return fmt.Sprintf("%q", string(m[:]))
}

// IsExternref reports whether m designates an externref slot of either
// ownership mode.
func (m ValueTypeMeta) IsExternref() bool {
	return m == MetaExternrefOwned || m == MetaExternrefBorrow
}

// MetaFromBytes reinterprets a signature section payload (a multiple-of-4
// byte slice) as a sequence of meta tags.
func MetaFromBytes(b []byte) []ValueTypeMeta {
	out := make([]ValueTypeMeta, len(b)/4)
	for i := range out {
		copy(out[i][:], b[i*4:i*4+4])
	}
	return out
}

// MetaToBytes is the inverse of MetaFromBytes, used when the weaver needs
// to round-trip an untouched signature section.
func MetaToBytes(m []ValueTypeMeta) []byte {
	out := make([]byte, len(m)*4)
	for i, tag := range m {
		copy(out[i*4:i*4+4], tag[:])
	}
	return out
}
