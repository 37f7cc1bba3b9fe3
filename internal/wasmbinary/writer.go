package wasmbinary

import (
	"bytes"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/leb128"
)

// writer accumulates an encoded section or instruction stream. Every
// encode* function in this package writes through one of these rather than
// returning freshly allocated slices for every sub-piece, matching the
// teacher's Module.Encode style of appending straight into a growing byte
// slice.
type writer struct {
	buf bytes.Buffer
}

func newWriter() *writer { return &writer{} }

func (w *writer) Bytes() []byte { return w.buf.Bytes() }

func (w *writer) writeByte(b byte) { w.buf.WriteByte(b) }

func (w *writer) writeBytes(b []byte) { w.buf.Write(b) }

func (w *writer) writeU32(v uint32) { w.buf.Write(leb128.EncodeUint32(v)) }

func (w *writer) writeU64(v uint64) { w.buf.Write(leb128.EncodeUint64(v)) }

func (w *writer) writeI32(v int32) { w.buf.Write(leb128.EncodeInt32(v)) }

func (w *writer) writeI64(v int64) { w.buf.Write(leb128.EncodeInt64(v)) }

func (w *writer) writeString(s string) {
	w.writeU32(uint32(len(s)))
	w.buf.WriteString(s)
}

// writeVec writes the vector length prefix followed by calling enc for each
// element's bytes, which it appends verbatim.
func writeVec[T any](w *writer, items []T, enc func(*writer, T)) {
	w.writeU32(uint32(len(items)))
	for _, item := range items {
		enc(w, item)
	}
}
