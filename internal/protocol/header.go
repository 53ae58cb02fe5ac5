package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic starts every frame. A mismatch means the stream is out of sync.
const Magic uint64 = 0x64202114F

// HeaderSize is the encoded size of Header.
const HeaderSize = 16

// Command selects the payload layout that follows a header.
type Command uint32

const (
	SendMesh     Command = 0
	SendMaterial Command = 1
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case SendMesh:
		return "SendMesh"
	case SendMaterial:
		return "SendMaterial"
	default:
		return fmt.Sprintf("Command(%d)", uint32(c))
	}
}

// Valid reports whether c is one of the known commands.
func (c Command) Valid() bool {
	return c == SendMesh || c == SendMaterial
}

// Header is the fixed frame header.
type Header struct {
	Magic   uint64
	Length  uint32 // declared payload size, advisory
	Command Command
}

// ReadHeader reads exactly one header from r and verifies its magic.
// The command is returned as sent; callers decide what unknown commands
// mean.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: header: %w", ErrShortRead, err)
		}
		return Header{}, err
	}

	h := DecodeHeader(buf)
	if h.Magic != Magic {
		return h, fmt.Errorf("%w: 0x%x", ErrBadMagic, h.Magic)
	}
	return h, nil
}

// DecodeHeader parses a header without validating it.
func DecodeHeader(b [HeaderSize]byte) Header {
	return Header{
		Magic:   binary.LittleEndian.Uint64(b[0:8]),
		Length:  binary.LittleEndian.Uint32(b[8:12]),
		Command: Command(binary.LittleEndian.Uint32(b[12:16])),
	}
}

// EncodeHeader serializes h.
func EncodeHeader(h Header) [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint64(b[0:8], h.Magic)
	binary.LittleEndian.PutUint32(b[8:12], h.Length)
	binary.LittleEndian.PutUint32(b[12:16], uint32(h.Command))
	return b
}

// WriteFrame writes a header carrying the real payload length, then the
// payload.
func WriteFrame(w io.Writer, cmd Command, payload []byte) error {
	hdr := EncodeHeader(Header{Magic: Magic, Length: uint32(len(payload)), Command: cmd})
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("writing payload: %w", err)
		}
	}
	return nil
}
