package keys

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLen(t *testing.T) {
	assert.Equal(t, 3, Len("abc"))
	assert.Equal(t, 0, Len(""))
}

func TestFold(t *testing.T) {
	fold := Fold()
	assert.Equal(t, fold("HELLO"), fold("hello"))
	assert.Equal(t, fold("Straße"), fold("STRASSE"))
}

func TestNormalized(t *testing.T) {
	// "é" precomposed vs "e" + combining acute.
	assert.Equal(t, Normalized("é"), Normalized("é"))
}

func TestCollate(t *testing.T) {
	key := Collate(language.German)

	a := key("Äpfel").([]byte)
	b := key("Birnen").([]byte)
	z := key("Zitronen").([]byte)

	// Bytewise "Ä" sorts after "Z"; German collation puts it next to "A".
	assert.Negative(t, bytes.Compare(a, b))
	assert.Negative(t, bytes.Compare(b, z))
}

func TestField(t *testing.T) {
	type item struct {
		Name string
		Rank int
	}
	f := Field("Rank")

	assert.Equal(t, 3, f(item{Name: "x", Rank: 3}))
	assert.Equal(t, 4, f(&item{Rank: 4}))
	assert.Equal(t, 7.0, f(map[string]any{"Rank": 7.0}))
	assert.Nil(t, f(map[string]any{}))
	assert.Nil(t, f("not a struct"))
}

func TestNamed(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		want  any
		isNil bool
	}{
		{name: "", isNil: true},
		{name: "identity", in: "x", want: "x"},
		{name: "len", in: "abcd", want: 4},
		{name: "len", in: []any{1, 2}, want: 2},
		{name: "len", in: 3.0, want: nil},
		{name: "fold", in: "ABC", want: "abc"},
		{name: "nfc", in: "é", want: "é"},
		{name: "field:n", in: map[string]any{"n": 1.0}, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := Named(tt.name)
			require.NoError(t, err)
			if tt.isNil {
				assert.Nil(t, fn)
				return
			}
			assert.Equal(t, tt.want, fn(tt.in))
		})
	}

	fn, err := Named("collate:en")
	require.NoError(t, err)
	assert.IsType(t, []byte{}, fn("abc"))
	assert.Equal(t, 5.0, fn(5.0), "non-strings pass through")

	for _, bad := range []string{"bogus", "field:", "collate:not a tag!"} {
		_, err := Named(bad)
		assert.Error(t, err, bad)
	}
}
