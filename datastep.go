package datastep

import (
	"errors"
	"fmt"
	"strconv"
)

var magic = []byte{68, 83, 84, 80, 31, 122, 101, 219}

const (
	fileKindHeader = 'H'
	fileKindData   = 'D'
)

// preamble is magic + compression id + file kind
const preambleLen = 10

// ErrNotFound is matched by NotFoundError.
var ErrNotFound = errors.New("datastep: data set not found")

var (
	ErrClosed         = errors.New("datastep: is closed")
	ErrBusy           = errors.New("datastep: data set is already open")
	ErrNoMetadata     = errors.New("datastep: metadata not loaded")
	ErrBadMagic       = errors.New("datastep: bad magic byte sequence")
	ErrBadCompression = errors.New("datastep: bad compression codec")
	ErrKeyMapMismatch = errors.New("datastep: row does not match the key map")
	ErrInconsistent   = errors.New("datastep: data set is missing one of its files")

	errWrongMode    = errors.New("datastep: operation not permitted in this mode")
	errBadValueKind = errors.New("datastep: bad value kind")
	errBadValueLen  = errors.New("datastep: bad value length")
)

// RowOffsetError is returned when a window offset outside of [-lag, +lead]
// is requested.
type RowOffsetError struct {
	Offset   int
	LagRows  int
	LeadRows int
}

func (e *RowOffsetError) Error() string {
	return fmt.Sprintf("datastep: row offset %d not defined (window is -%d..+%d)", e.Offset, e.LagRows, e.LeadRows)
}

// UndefinedVariableError is returned when a name or ordinal is absent from
// the key map.
type UndefinedVariableError struct {
	Name    string
	Ordinal int
}

func (e *UndefinedVariableError) Error() string {
	if e.Name == "" {
		return "datastep: variable ordinal " + strconv.Itoa(e.Ordinal) + " not defined"
	}
	return fmt.Sprintf("datastep: variable %q not defined", e.Name)
}

// NotFoundError is returned when a data set header does not exist.
type NotFoundError struct {
	Name string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("datastep: data set %q not found at %s", e.Name, e.Path)
}

// Is allows errors.Is(err, ErrNotFound).
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConfigError reports an invalid parameter. It is always returned before
// any file is touched.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("datastep: invalid %s: %s", e.Param, e.Reason)
}

// StreamError wraps read, write and compression failures of the underlying
// files. Record is the zero-based record index, or -1 when unknown.
type StreamError struct {
	Op     string
	Path   string
	Record int64
	Err    error
}

func (e *StreamError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("datastep: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("datastep: %s %s (record %d): %v", e.Op, e.Path, e.Record, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// --------------------------------------------------------------------

// Compression is the compression codec
type Compression byte

func (c Compression) isValid() bool {
	return c >= SnappyCompression && c < unknownCompression
}

func (c Compression) String() string {
	switch c {
	case SnappyCompression:
		return "snappy"
	case NoCompression:
		return "none"
	case ZstdCompression:
		return "zstd"
	case GzipCompression:
		return "gzip"
	case LZ4Compression:
		return "lz4"
	}
	return "unknown"
}

// ParseCompression parses a codec name as returned by Compression.String.
func ParseCompression(s string) (Compression, error) {
	for c := SnappyCompression; c < unknownCompression; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return unknownCompression, &ConfigError{Param: "compression", Reason: strconv.Quote(s) + " is not supported"}
}

// Supported compression codecs
const (
	SnappyCompression Compression = iota
	NoCompression
	ZstdCompression
	GzipCompression
	LZ4Compression
	unknownCompression
)
