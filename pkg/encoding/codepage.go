// Package encoding converts legacy code-page text sent by authoring tools.
package encoding

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Supported code page names.
const (
	Windows1252 = "windows-1252"
	Latin1      = "iso-8859-1"
	UTF8        = "utf-8"
)

// TextDecoder turns raw wire bytes into a UTF-8 string.
type TextDecoder func(data []byte) string

// TextEncoder turns a UTF-8 string into wire bytes.
type TextEncoder func(s string) []byte

// Lookup returns the decoder and encoder for a code page name.
// An empty name selects Windows-1252, the code page most authoring tools
// use for their "ANSI" strings.
func Lookup(name string) (TextDecoder, TextEncoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Windows1252, "cp1252", "ansi":
		return charmapCodec(charmap.Windows1252)
	case Latin1, "latin1":
		return charmapCodec(charmap.ISO8859_1)
	case UTF8, "utf8":
		return func(data []byte) string { return string(data) },
			func(s string) []byte { return []byte(s) }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported text encoding %q", name)
	}
}

func charmapCodec(cm *charmap.Charmap) (TextDecoder, TextEncoder, error) {
	dec := func(data []byte) string { return decode(cm, data) }
	enc := func(s string) []byte { return encode(cm, s) }
	return dec, enc, nil
}

// decode converts code-page bytes to UTF-8.
// Returns the original bytes as a string if conversion fails.
func decode(enc encoding.Encoding, data []byte) string {
	result, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// encode converts UTF-8 to code-page bytes.
// Characters without a mapping fall back to the raw UTF-8 bytes.
func encode(enc encoding.Encoding, s string) []byte {
	result, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// TrimNull cuts data at the first NUL byte, the way C strings end.
func TrimNull(data []byte) []byte {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return data[:i]
	}
	return data
}
