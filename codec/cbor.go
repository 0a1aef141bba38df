package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	cborEnc = mustEncMode()
	cborDec = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	// Core deterministic encoding: sorted map keys, shortest integer and
	// float forms, definite lengths.
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func mustDecMode() cbor.DecMode {
	// Maps decoded into an interface value come back as map[string]any,
	// matching encoding/json and yaml.v3.
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

// CBOR is a deterministic CBOR codec backed by github.com/fxamacker/cbor/v2.
//
// It is the default: compact, binary-safe and canonical, so equal values
// produce equal payloads.
type CBOR struct{}

// Marshal encodes the value to deterministic CBOR.
func (CBOR) Marshal(v any) ([]byte, error) { return cborEnc.Marshal(v) }

// Unmarshal decodes the CBOR data into v.
func (CBOR) Unmarshal(data []byte, v any) error { return cborDec.Unmarshal(data, v) }

// Name returns the unique name of the codec ("cbor").
func (CBOR) Name() string { return "cbor" }
