// Package codec encodes list values into the payload bytes stored per entry.
//
// Membership tests compare encoded payloads byte for byte, so a codec must be
// deterministic: equal values must always encode to equal bytes. Every codec
// here is. Changing the codec of an existing table makes its payloads
// undecodable; the codec name is the compatibility boundary.
package codec

import (
	"fmt"
	"strings"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = CBOR{}

// ByName returns a codec by its stable name.
//
// Base names are "cbor" and "json". A compression wrapper is selected with a
// suffix: "cbor+zstd", "json+lz4".
func ByName(name string) (Codec, error) {
	base, wrap, _ := strings.Cut(name, "+")

	var c Codec
	switch base {
	case "", "cbor":
		c = CBOR{}
	case "json":
		c = JSON{}
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}

	switch wrap {
	case "":
		return c, nil
	case "zstd":
		return NewZstd(c)
	case "lz4":
		return LZ4{Codec: c}, nil
	default:
		return nil, fmt.Errorf("unknown codec compression %q", wrap)
	}
}

// MustMarshal is a helper for tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
