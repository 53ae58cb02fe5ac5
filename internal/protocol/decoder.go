package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Faultbox/meshsync/pkg/encoding"
	"github.com/Faultbox/meshsync/pkg/math"
)

// Limits bounds what a single element may allocate. The wire format has
// no redundancy, so a corrupted count would otherwise ask for gigabytes.
type Limits struct {
	MaxArrayElements uint32
	MaxStringBytes   uint32
}

// DefaultLimits returns limits generous enough for large terrain tiles.
func DefaultLimits() Limits {
	return Limits{
		MaxArrayElements: 16 * 1024 * 1024,
		MaxStringBytes:   64 * 1024,
	}
}

// Decoder reads protocol elements from a byte source. It keeps no state
// between elements other than the running byte count.
type Decoder struct {
	r      io.Reader
	n      int64
	limits Limits
	text   encoding.TextDecoder
}

// NewDecoder creates a decoder over r. A nil text decoder passes string
// bytes through unchanged.
func NewDecoder(r io.Reader, limits Limits, text encoding.TextDecoder) *Decoder {
	if text == nil {
		text = func(b []byte) string { return string(b) }
	}
	return &Decoder{r: r, limits: limits, text: text}
}

// Read implements io.Reader and counts consumed bytes.
func (d *Decoder) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	d.n += int64(n)
	return n, err
}

// Consumed returns the number of bytes read so far.
func (d *Decoder) Consumed() int64 {
	return d.n
}

// readFixed fills v, which must be a fixed-size value or slice of them.
// It succeeds only if every requested byte arrived.
func (d *Decoder) readFixed(v any) error {
	if err := binary.Read(d, binary.LittleEndian, v); err != nil {
		return shortRead(err)
	}
	return nil
}

// Uint32 reads one u32.
func (d *Decoder) Uint32() (uint32, error) {
	var v uint32
	err := d.readFixed(&v)
	return v, err
}

// Float32 reads one f32.
func (d *Decoder) Float32() (float32, error) {
	var v float32
	err := d.readFixed(&v)
	return v, err
}

// Vec3 reads three f32.
func (d *Decoder) Vec3() (math.Vec3, error) {
	var v math.Vec3
	err := d.readFixed(&v)
	return v, err
}

// String reads a length-prefixed string. A zero length is a valid empty
// string. Text stops at the first NUL, like the C string it came from.
func (d *Decoder) String() (string, error) {
	n, err := d.Uint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if n > d.limits.MaxStringBytes {
		return "", fmt.Errorf("%w: string of %d bytes", ErrTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d, buf); err != nil {
		return "", shortRead(err)
	}
	return d.text(encoding.TrimNull(buf)), nil
}

// StringList reads a count followed by that many strings.
func (d *Decoder) StringList() ([]string, error) {
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if n > d.limits.MaxArrayElements {
		return nil, fmt.Errorf("%w: string list of %d entries", ErrTooLarge, n)
	}
	if n == 0 {
		return nil, nil
	}
	list := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := d.String()
		if err != nil {
			return nil, fmt.Errorf("string %d of %d: %w", i, n, err)
		}
		list = append(list, s)
	}
	return list, nil
}

// ReadArray reads a count followed by count fixed-size elements of T.
// The returned slice has exactly count elements; a zero count yields nil.
func ReadArray[T any](d *Decoder) ([]T, error) {
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > d.limits.MaxArrayElements {
		var zero T
		return nil, fmt.Errorf("%w: %d elements of %d bytes", ErrTooLarge, n, binary.Size(zero))
	}
	out := make([]T, n)
	if err := d.readFixed(out); err != nil {
		return nil, err
	}
	return out, nil
}

// shortRead maps a truncated stream onto ErrShortRead. Other transport
// errors pass through unchanged.
func shortRead(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrShortRead, err)
	}
	return err
}
