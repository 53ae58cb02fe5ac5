package assetstore

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// An asset file is a fixed header followed by the (possibly compressed)
// CBOR body:
//
//	[4]byte magic "MSA1"
//	u8      kind
//	u8      compression
//	u32     uncompressed body size (little-endian)
//	...     body
const (
	fileMagic      = "MSA1"
	fileHeaderSize = 10
	fileExt        = ".masset"
)

var (
	ErrNotFound  = errors.New("asset not found")
	ErrExists    = errors.New("asset already exists")
	ErrBadFile   = errors.New("malformed asset file")
	ErrWrongKind = errors.New("asset has a different kind")
	ErrBadPath   = errors.New("invalid package path")
)

// Kind tells meshes and materials apart in files and the catalog.
type Kind uint8

const (
	KindMesh     Kind = 1
	KindMaterial Kind = 2
)

// String returns the catalog name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindMaterial:
		return "material"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func parseKind(s string) Kind {
	switch s {
	case "mesh":
		return KindMesh
	case "material":
		return KindMaterial
	default:
		return 0
	}
}

// encodeFile marshals v and frames it. It returns the file bytes and the
// digest of the uncompressed body.
func encodeFile(kind Kind, c Compression, v any) ([]byte, Digest, error) {
	body, err := encMode.Marshal(v)
	if err != nil {
		return nil, Digest{}, fmt.Errorf("encoding %s: %w", kind, err)
	}
	packed, used, err := compress(body, c)
	if err != nil {
		return nil, Digest{}, err
	}

	out := make([]byte, fileHeaderSize, fileHeaderSize+len(packed))
	copy(out, fileMagic)
	out[4] = byte(kind)
	out[5] = byte(used)
	binary.LittleEndian.PutUint32(out[6:], uint32(len(body)))
	out = append(out, packed...)
	return out, digestOf(body), nil
}

// decodeFile checks the header and unmarshals the body into v.
func decodeFile(data []byte, want Kind, v any) error {
	if len(data) < fileHeaderSize || string(data[:4]) != fileMagic {
		return ErrBadFile
	}
	kind := Kind(data[4])
	if kind != want {
		return fmt.Errorf("%w: got %s, want %s", ErrWrongKind, kind, want)
	}
	size := int(binary.LittleEndian.Uint32(data[6:]))
	body, err := decompress(data[fileHeaderSize:], Compression(data[5]), size)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadFile, err)
	}
	if err := decMode.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFile, err)
	}
	return nil
}
