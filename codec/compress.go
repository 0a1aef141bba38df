package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Zstd wraps a codec and compresses its payloads with zstd.
//
// Worth it for large values; small payloads grow by the frame header.
type Zstd struct {
	Codec Codec

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstd returns a zstd wrapper around c (Default when nil).
func NewZstd(c Codec) (*Zstd, error) {
	if c == nil {
		c = Default
	}
	// Single-threaded EncodeAll keeps output deterministic.
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Zstd{Codec: c, enc: enc, dec: dec}, nil
}

// Marshal encodes v with the inner codec and compresses the result.
func (z *Zstd) Marshal(v any) ([]byte, error) {
	raw, err := z.Codec.Marshal(v)
	if err != nil {
		return nil, err
	}
	return z.enc.EncodeAll(raw, nil), nil
}

// Unmarshal decompresses data and decodes it with the inner codec.
func (z *Zstd) Unmarshal(data []byte, v any) error {
	raw, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	return z.Codec.Unmarshal(raw, v)
}

// Name returns "<inner>+zstd".
func (z *Zstd) Name() string { return z.Codec.Name() + "+zstd" }

// LZ4 wraps a codec and compresses its payloads as LZ4 frames.
// Faster than zstd with a lower ratio.
type LZ4 struct {
	Codec Codec
}

// Marshal encodes v with the inner codec and compresses the result.
func (l LZ4) Marshal(v any) ([]byte, error) {
	raw, err := l.inner().Marshal(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decompresses data and decodes it with the inner codec.
func (l LZ4) Unmarshal(data []byte, v any) error {
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("lz4: %w", err)
	}
	return l.inner().Unmarshal(raw, v)
}

// Name returns "<inner>+lz4".
func (l LZ4) Name() string { return l.inner().Name() + "+lz4" }

func (l LZ4) inner() Codec {
	if l.Codec == nil {
		return Default
	}
	return l.Codec
}
