package datastep

import (
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// compressor is a compressing stream writer. Flush must push all buffered
// data to the underlying writer.
type compressor interface {
	io.Writer
	Flush() error
	Close() error
}

func newCompressor(w io.Writer, c Compression) (compressor, error) {
	switch c {
	case SnappyCompression:
		return snappy.NewBufferedWriter(w), nil
	case NoCompression:
		return plainWriter{Writer: w}, nil
	case ZstdCompression:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case GzipCompression:
		return gzip.NewWriter(w), nil
	case LZ4Compression:
		return lz4.NewWriter(w), nil
	}
	return nil, ErrBadCompression
}

func newDecompressor(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case SnappyCompression:
		return io.NopCloser(snappy.NewReader(r)), nil
	case NoCompression:
		return io.NopCloser(r), nil
	case ZstdCompression:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case GzipCompression:
		return gzip.NewReader(r)
	case LZ4Compression:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, ErrBadCompression
}

type plainWriter struct{ io.Writer }

func (plainWriter) Flush() error { return nil }
func (plainWriter) Close() error { return nil }

// --------------------------------------------------------------------

func appendPreamble(dst []byte, c Compression, kind byte) []byte {
	dst = append(dst, magic...)
	return append(dst, byte(c), kind)
}

func parsePreamble(p []byte, kind byte) (Compression, error) {
	if len(p) != preambleLen || string(p[:len(magic)]) != string(magic) || p[len(magic)+1] != kind {
		return 0, ErrBadMagic
	}
	c := Compression(p[len(magic)])
	if !c.isValid() {
		return 0, ErrBadCompression
	}
	return c, nil
}
