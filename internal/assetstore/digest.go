package assetstore

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is the BLAKE3 keyed hash of an asset's uncompressed body.
type Digest [32]byte

// digestKey separates asset digests from other BLAKE3 uses.
var digestKey = [32]byte{
	'm', 'e', 's', 'h', 's', 'y', 'n', 'c', '.', 'a', 's', 's', 'e', 't',
}

// digestOf hashes an uncompressed body, so the digest is stable across
// compression settings.
func digestOf(body []byte) Digest {
	h, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		panic("assetstore: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	h.Write(body)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// String returns the digest in hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
