package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string            `json:"name" cbor:"name"`
	Tags  []string          `json:"tags" cbor:"tags"`
	Attrs map[string]string `json:"attrs" cbor:"attrs"`
	Count int64             `json:"count" cbor:"count"`
}

func allCodecs(t *testing.T) []Codec {
	t.Helper()
	z, err := NewZstd(CBOR{})
	require.NoError(t, err)
	zj, err := NewZstd(JSON{})
	require.NoError(t, err)
	return []Codec{CBOR{}, JSON{}, z, zj, LZ4{Codec: CBOR{}}, LZ4{Codec: JSON{}}}
}

func TestRoundTrip(t *testing.T) {
	in := record{
		Name:  "埃亚菲亚德拉冰盖",
		Tags:  []string{"a", "b"},
		Attrs: map[string]string{"z": "1", "a": "2"},
		Count: 1 << 60,
	}

	for _, c := range allCodecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out record
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestDeterministic(t *testing.T) {
	// Map iteration order is random; the payload must not be.
	m := map[string]int{}
	for i := 0; i < 64; i++ {
		m[strings.Repeat("k", i+1)] = i
	}

	for _, c := range allCodecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			first := MustMarshal(c, m)
			for i := 0; i < 10; i++ {
				assert.Equal(t, first, MustMarshal(c, m))
			}
		})
	}
}

func TestCompressionShrinksLargePayloads(t *testing.T) {
	big := strings.Repeat("abcdefgh", 4096)
	plain := MustMarshal(CBOR{}, big)

	z, err := NewZstd(nil)
	require.NoError(t, err)
	assert.Less(t, len(MustMarshal(z, big)), len(plain))
	assert.Less(t, len(MustMarshal(LZ4{}, big)), len(plain))
}

func TestByName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "cbor"},
		{"cbor", "cbor"},
		{"json", "json"},
		{"cbor+zstd", "cbor+zstd"},
		{"json+lz4", "json+lz4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name())
		})
	}

	_, err := ByName("gob")
	assert.Error(t, err)
	_, err = ByName("cbor+snappy")
	assert.Error(t, err)
}

func TestUnmarshalCorrupt(t *testing.T) {
	z, err := NewZstd(nil)
	require.NoError(t, err)

	var s string
	assert.Error(t, z.Unmarshal([]byte("not zstd"), &s))
	assert.Error(t, LZ4{}.Unmarshal([]byte("not lz4"), &s))
	assert.Error(t, JSON{}.Unmarshal([]byte("{"), &s))
}
