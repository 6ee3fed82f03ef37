package loader

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the container an input was wrapped in.
type Compression string

// Recognized containers.
const (
	CompressionNone   Compression = "none"
	CompressionZstd   Compression = "zstd"
	CompressionGzip   Compression = "gzip"
	CompressionLZ4    Compression = "lz4"
	CompressionSnappy Compression = "snappy"
	CompressionS2     Compression = "s2"
)

var (
	zstdMagic   = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic   = []byte{0x1F, 0x8B}
	lz4Magic    = []byte{0x04, 0x22, 0x4D, 0x18}
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
	s2Magic     = []byte("\xff\x06\x00\x00S2sTwO")
)

// DetectCompression identifies the container from its magic bytes.
func DetectCompression(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(data, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(data, lz4Magic):
		return CompressionLZ4
	case bytes.HasPrefix(data, snappyMagic):
		return CompressionSnappy
	case bytes.HasPrefix(data, s2Magic):
		return CompressionS2
	default:
		return CompressionNone
	}
}

// Decompress unwraps data when it starts with a known container header and
// returns it unchanged otherwise. The decompressed size is limited to limit
// bytes; ErrTooLarge is returned past it.
func Decompress(data []byte, limit int64) ([]byte, Compression, error) {
	kind := DetectCompression(data)
	if kind == CompressionNone {
		return data, kind, nil
	}

	r, closeFn, err := newDecompressor(kind, bytes.NewReader(data))
	if err != nil {
		return nil, kind, fmt.Errorf("failed to open %s stream: %w", kind, err)
	}
	defer closeFn()

	out, err := readLimited(r, limit)
	if err != nil {
		return nil, kind, fmt.Errorf("failed to decompress %s input: %w", kind, err)
	}
	return out, kind, nil
}

func newDecompressor(kind Compression, r io.Reader) (io.Reader, func(), error) {
	switch kind {
	case CompressionZstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { _ = gz.Close() }, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	case CompressionSnappy, CompressionS2:
		// s2 reads both framings.
		return s2.NewReader(r), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression %q", kind)
	}
}
