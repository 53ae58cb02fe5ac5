package protocol

import (
	"bytes"
	"encoding/binary"

	"github.com/Faultbox/meshsync/pkg/encoding"
	"github.com/Faultbox/meshsync/pkg/math"
)

// Encoder builds a payload in memory. It is the sender-side mirror of
// Decoder.
type Encoder struct {
	buf  bytes.Buffer
	text encoding.TextEncoder
}

// NewEncoder creates an encoder. A nil text encoder writes strings as
// their UTF-8 bytes.
func NewEncoder(text encoding.TextEncoder) *Encoder {
	if text == nil {
		text = func(s string) []byte { return []byte(s) }
	}
	return &Encoder{text: text}
}

// Bytes returns the encoded payload.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the payload size so far.
func (e *Encoder) Len() int {
	return e.buf.Len()
}

// Reset discards the payload so the encoder can be reused.
func (e *Encoder) Reset() {
	e.buf.Reset()
}

// Uint32 writes one u32.
func (e *Encoder) Uint32(v uint32) {
	e.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

// Uint64 writes one u64.
func (e *Encoder) Uint64(v uint64) {
	e.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

// Float32 writes one f32.
func (e *Encoder) Float32(v float32) {
	e.writeFixed(v)
}

// Vec3 writes three f32.
func (e *Encoder) Vec3(v math.Vec3) {
	e.writeFixed(v)
}

// String writes a length-prefixed string.
func (e *Encoder) String(s string) {
	b := e.text(s)
	e.Uint32(uint32(len(b)))
	e.buf.Write(b)
}

// StringList writes a count followed by the strings.
func (e *Encoder) StringList(list []string) {
	e.Uint32(uint32(len(list)))
	for _, s := range list {
		e.String(s)
	}
}

// Raw appends bytes verbatim.
func (e *Encoder) Raw(b []byte) {
	e.buf.Write(b)
}

// writeFixed appends a fixed-size value. Writes to a bytes.Buffer of the
// value types used here cannot fail.
func (e *Encoder) writeFixed(v any) {
	_ = binary.Write(&e.buf, binary.LittleEndian, v)
}

// WriteArray writes a count followed by the raw elements.
func WriteArray[T any](e *Encoder, items []T) {
	e.Uint32(uint32(len(items)))
	if len(items) > 0 {
		e.writeFixed(items)
	}
}
