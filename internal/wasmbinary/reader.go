package wasmbinary

import (
	"fmt"
	"io"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/leb128"
)

// reader is a cursor over an in-memory byte slice. The whole weaver holds
// the input buffer read-only for the rewrite's duration (spec.md §5), so a
// slice-backed cursor avoids any copying during decode.
type reader struct {
	b   []byte
	pos int
}

func newReader(b []byte) *reader { return &reader{b: b} }

func (r *reader) ReadByte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.b[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.b) {
		return nil, io.ErrUnexpectedEOF
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) readU32() (uint32, error) {
	v, n, err := leb128.DecodeUint32(r)
	_ = n
	return v, err
}

func (r *reader) readI32() (int32, error) {
	v, _, err := leb128.DecodeInt32(r)
	return v, err
}

func (r *reader) readI64() (int64, error) {
	v, _, err := leb128.DecodeInt64(r)
	return v, err
}

func (r *reader) readI33AsI64() (int64, error) {
	v, _, err := leb128.DecodeInt33AsInt64(r)
	return v, err
}

func (r *reader) readByteValue() (byte, error) { return r.ReadByte() }

func (r *reader) readString() (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", fmt.Errorf("reading string length: %w", err)
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", fmt.Errorf("reading string bytes: %w", err)
	}
	return string(b), nil
}

func (r *reader) remaining() int { return len(r.b) - r.pos }

func (r *reader) atEOF() bool { return r.pos >= len(r.b) }
