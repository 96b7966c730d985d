package recorder

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// CompressionType defines the compression algorithm of a trace file
type CompressionType int

const (
	// NoCompression writes plain JSON lines
	NoCompression CompressionType = iota
	// ZstdCompression writes Zstandard frames
	ZstdCompression
)

var (
	// DefaultCompression is the default compression algorithm
	DefaultCompression = ZstdCompression

	// zstdMagic starts every zstd frame
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

func (c CompressionType) String() string {
	switch c {
	case NoCompression:
		return "none"
	case ZstdCompression:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression parses "none" or "zstd".
func ParseCompression(s string) (CompressionType, error) {
	switch s {
	case "none", "":
		return NoCompression, nil
	case "zstd":
		return ZstdCompression, nil
	}
	return 0, errors.Errorf("unknown compression %q", s)
}

// NewCompressedWriter returns a writer that compresses data before writing
func NewCompressedWriter(w io.Writer, compressionType CompressionType) io.Writer {
	if compressionType == NoCompression {
		return w
	}
	encoder, _ := zstd.NewWriter(w)
	return encoder
}

// NewCompressedReader returns a reader that decompresses data after reading
func NewCompressedReader(r io.Reader, compressionType CompressionType) (io.Reader, error) {
	if compressionType == NoCompression {
		return r, nil
	}
	d, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "zstd")
	}
	return d.IOReadCloser(), nil
}

// CloseCompressedWriter closes the compressed writer if needed
func CloseCompressedWriter(w io.Writer, compressionType CompressionType) error {
	if compressionType == NoCompression {
		return nil
	}
	if zw, ok := w.(*zstd.Encoder); ok {
		return zw.Close()
	}
	return nil
}
