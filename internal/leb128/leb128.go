// Package leb128 implements the LEB128 variable-length integer encodings
// used throughout the core WebAssembly binary format.
package leb128

import (
	"fmt"
	"io"
	"math/bits"
)

const (
	maxVarintLen32 = 5
	maxVarintLen33 = 5
	maxVarintLen64 = 10
)

// EncodeUint32 encodes v as an unsigned LEB128.
func EncodeUint32(v uint32) []byte {
	return EncodeUint64(uint64(v))
}

// EncodeUint64 encodes v as an unsigned LEB128.
func EncodeUint64(v uint64) []byte {
	out := make([]byte, 0, maxVarintLen64)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			return out
		}
	}
}

// EncodeInt32 encodes v as a signed LEB128.
func EncodeInt32(v int32) []byte {
	return EncodeInt64(int64(v))
}

// EncodeInt64 encodes v as a signed LEB128.
func EncodeInt64(v int64) []byte {
	out := make([]byte, 0, maxVarintLen64)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}

// DecodeUint32 reads an unsigned LEB128 from r, returning the number of
// bytes consumed.
func DecodeUint32(r io.ByteReader) (uint32, uint64, error) {
	v, n, err := DecodeUint64(r)
	if err != nil {
		return 0, n, err
	}
	if v > 0xffffffff || n > maxVarintLen32 {
		return 0, n, fmt.Errorf("invalid uint32: overflows 32 bits")
	}
	return uint32(v), n, nil
}

// DecodeUint64 reads an unsigned LEB128 from r.
func DecodeUint64(r io.ByteReader) (uint64, uint64, error) {
	var result uint64
	var shift uint
	var read uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, read, fmt.Errorf("reading leb128: %w", err)
		}
		read++
		if shift == 63 && b > 1 {
			return 0, read, fmt.Errorf("invalid uint64: overflows 64 bits")
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, read, nil
		}
		shift += 7
		if read > maxVarintLen64 {
			return 0, read, fmt.Errorf("invalid uint64: too many bytes")
		}
	}
}

// DecodeInt32 reads a signed LEB128 from r, constrained to fit in 32 bits.
func DecodeInt32(r io.ByteReader) (int32, uint64, error) {
	v, n, err := decodeSigned(r, 32)
	if err != nil {
		return 0, n, err
	}
	return int32(v), n, nil
}

// DecodeInt64 reads a signed LEB128 from r.
func DecodeInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeSigned(r, 64)
}

// DecodeInt33AsInt64 reads a signed 33-bit LEB128 (as used by block types'
// `s33` encoding) sign-extended into an int64.
func DecodeInt33AsInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeSigned(r, 33)
}

func decodeSigned(r io.ByteReader, size uint) (int64, uint64, error) {
	var result int64
	var shift uint
	var read uint64
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, read, fmt.Errorf("reading leb128: %w", err)
		}
		read++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 64 {
			return 0, read, fmt.Errorf("invalid int%d: too many bytes", size)
		}
	}
	if shift < uint(bits.UintSize) && shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	if size < 64 {
		// sign-extend from `size` bits, then verify the value actually fits
		// to reject inputs the producer encoded with excess precision.
		extra := 64 - size
		signExtended := (result << extra) >> extra
		if signExtended != result {
			return 0, read, fmt.Errorf("invalid int%d: does not fit in %d bits", size, size)
		}
	}
	return result, read, nil
}

// LoadUint32 decodes an unsigned LEB128 from the start of b.
func LoadUint32(b []byte) (uint32, uint64, error) {
	return DecodeUint32(&byteSliceReader{b: b})
}

// LoadUint64 decodes an unsigned LEB128 from the start of b.
func LoadUint64(b []byte) (uint64, uint64, error) {
	return DecodeUint64(&byteSliceReader{b: b})
}

// LoadInt32 decodes a signed LEB128 from the start of b.
func LoadInt32(b []byte) (int32, uint64, error) {
	return DecodeInt32(&byteSliceReader{b: b})
}

// LoadInt64 decodes a signed LEB128 from the start of b.
func LoadInt64(b []byte) (int64, uint64, error) {
	return DecodeInt64(&byteSliceReader{b: b})
}

type byteSliceReader struct {
	b   []byte
	pos int
}

func (r *byteSliceReader) ReadByte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.b[r.pos]
	r.pos++
	return b, nil
}
