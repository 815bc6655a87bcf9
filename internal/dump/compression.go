package dump

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the block compression algorithm.
type Compression uint8

const (
	// CompressionNone stores blocks as they are.
	CompressionNone Compression = 0
	// CompressionLZ4 indicates LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD indicates ZSTD block compression (better ratio).
	CompressionZSTD Compression = 2
)

// ErrUnknownCompression is returned for an unsupported compression value.
var ErrUnknownCompression = errors.New("dump: unknown compression")

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
}

func (c Compression) valid() bool { return c <= CompressionZSTD }

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

const blockHeaderSize = 8

// encodeBlock returns the block header followed by the (possibly compressed)
// data. Data that does not shrink below 90% is stored uncompressed.
func encodeBlock(data []byte, c Compression) ([]byte, error) {
	var compressed []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("dump: lz4: %w", err)
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	}

	stored := data
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		compressed = nil
	} else {
		stored = compressed
	}

	block := make([]byte, blockHeaderSize+len(stored))
	binary.LittleEndian.PutUint32(block[0:], uint32(len(data)))       //nolint:gosec // region sizes fit uint32
	binary.LittleEndian.PutUint32(block[4:], uint32(len(compressed))) //nolint:gosec // bounded by the region size
	copy(block[blockHeaderSize:], stored)
	return block, nil
}

// decodeBlock expands payload to uncompressedSize bytes.
func decodeBlock(payload []byte, uncompressedSize uint32, c Compression) ([]byte, error) {
	result := make([]byte, uncompressedSize)

	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(payload, result)
		if err != nil {
			return nil, fmt.Errorf("dump: lz4: %w", err)
		}
		if uint32(n) != uncompressedSize { //nolint:gosec // n <= len(result)
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return result, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(payload, result[:0])
		if err != nil {
			return nil, fmt.Errorf("dump: zstd: %w", err)
		}
		if uint32(len(decoded)) != uncompressedSize { //nolint:gosec // checked against a uint32
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return decoded, nil
	}

	return nil, fmt.Errorf("%w: compressed block in %s dump", ErrCorrupt, c)
}
