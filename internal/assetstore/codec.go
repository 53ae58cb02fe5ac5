package assetstore

import (
	"github.com/fxamacker/cbor/v2"
)

// Asset bodies use Core Deterministic Encoding so the same asset always
// produces the same bytes and therefore the same digest.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("assetstore: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 27,
	}.DecMode()
	if err != nil {
		panic("assetstore: CBOR decoder initialization failed: " + err.Error())
	}
}
