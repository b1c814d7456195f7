package postgres

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressionAlgo specifies the compression algorithm used for stored
// snapshot payloads.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the payload size above which snapshots are
// compressed before storage.
const DefaultCompressThreshold = 4 * 1024 // 4KB

// SnapshotCodec compresses large snapshot payloads before storage and
// transparently decompresses them on read. Small payloads are stored as-is.
type SnapshotCodec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewSnapshotCodec creates a codec with the default threshold.
func NewSnapshotCodec() (*SnapshotCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &SnapshotCodec{
		encoder:   encoder,
		decoder:   decoder,
		threshold: DefaultCompressThreshold,
	}, nil
}

// Encode returns the payload to store and the algorithm used.
func (c *SnapshotCodec) Encode(raw []byte) ([]byte, CompressionAlgo) {
	if len(raw) <= c.threshold {
		return raw, CompressionNone
	}
	return c.encoder.EncodeAll(raw, nil), CompressionZstd
}

// Decode restores the original payload.
func (c *SnapshotCodec) Decode(stored []byte, algo CompressionAlgo) ([]byte, error) {
	switch algo {
	case CompressionNone, "":
		return stored, nil
	case CompressionZstd:
		raw, err := c.decoder.DecodeAll(stored, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown compression algo %q", algo)
	}
}
