package datastep

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"
)

// Type is the declared type of a variable.
type Type byte

// Supported variable types.
const (
	TypeString Type = iota
	TypeNumber
)

func (t Type) isValid() bool { return t <= TypeNumber }

// Zero returns the cleared value for the type.
func (t Type) Zero() Value {
	if t == TypeNumber {
		return Number(0)
	}
	return String("")
}

func (t Type) String() string {
	if t == TypeNumber {
		return "number"
	}
	return "string"
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	switch string(b) {
	case "string", "":
		*t = TypeString
	case "number":
		*t = TypeNumber
	default:
		return &ConfigError{Param: "type", Reason: strconv.Quote(string(b)) + " is not supported"}
	}
	return nil
}

// --------------------------------------------------------------------

type valueKind byte

const (
	maxStringLen = math.MaxInt32
	readStep     = 64 * 1024
)

const (
	kindNull valueKind = iota
	kindNumber
	kindString
)

// Value is a single field value: null, a number or a string.
// The zero Value is null.
type Value struct {
	kind valueKind
	num  float64
	str  string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: kindString, str: s} }

// IsNull returns true for null values.
func (v Value) IsNull() bool { return v.kind == kindNull }

// IsNumber returns true for numeric values.
func (v Value) IsNumber() bool { return v.kind == kindNumber }

// IsString returns true for string values.
func (v Value) IsString() bool { return v.kind == kindString }

// Float returns the numeric value, 0 for non-numbers.
func (v Value) Float() float64 { return v.num }

// Str returns the string value, "" for non-strings.
func (v Value) Str() string { return v.str }

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case kindString:
		return v.str
	}
	return ""
}

// Equal returns true if both values have the same kind and content.
func (v Value) Equal(o Value) bool { return v.Compare(o) == 0 }

// Compare orders values. Nulls sort first, then numbers, then strings.
// NaN sorts before all other numbers.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}

	switch v.kind {
	case kindNumber:
		vnan, onan := math.IsNaN(v.num), math.IsNaN(o.num)
		switch {
		case vnan || onan:
			return compareNaN(vnan, onan)
		case v.num < o.num:
			return -1
		case v.num > o.num:
			return 1
		}
		return 0
	case kindString:
		return strings.Compare(v.str, o.str)
	}
	return 0
}

func compareNaN(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	}
	return 1
}

// fits reports whether v may be stored in a variable of type t.
func (v Value) fits(t Type) bool {
	switch v.kind {
	case kindNumber:
		return t == TypeNumber
	case kindString:
		return t == TypeString
	}
	return true
}

func (v Value) appendBinary(dst []byte) []byte {
	dst = append(dst, byte(v.kind))
	switch v.kind {
	case kindNumber:
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v.num))
	case kindString:
		dst = binary.AppendUvarint(dst, uint64(len(v.str)))
		dst = append(dst, v.str...)
	}
	return dst
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

func (v *Value) readFrom(r byteReader, tmp []byte) ([]byte, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return tmp, err
	}

	switch valueKind(kind) {
	case kindNull:
		*v = Value{}
	case kindNumber:
		tmp = grow(tmp, 8)
		if _, err := io.ReadFull(r, tmp); err != nil {
			return tmp, noEOF(err)
		}
		*v = Number(math.Float64frombits(binary.LittleEndian.Uint64(tmp)))
	case kindString:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return tmp, noEOF(err)
		}
		if n > maxStringLen {
			return tmp, errBadValueLen
		}
		if tmp, err = readN(r, tmp, int(n)); err != nil {
			return tmp, noEOF(err)
		}
		*v = String(string(tmp))
	default:
		return tmp, errBadValueKind
	}
	return tmp, nil
}

// readN reads exactly n bytes into p. Large payloads are read in steps so a
// corrupt length fails at the end of the stream instead of allocating up
// front.
func readN(r io.Reader, p []byte, n int) ([]byte, error) {
	if n <= readStep {
		p = grow(p, n)
		_, err := io.ReadFull(r, p)
		return p, err
	}

	p = p[:0]
	for len(p) < n {
		m := n - len(p)
		if m > readStep {
			m = readStep
		}
		off := len(p)
		p = append(p, make([]byte, m)...)
		if _, err := io.ReadFull(r, p[off:]); err != nil {
			return p, err
		}
	}
	return p, nil
}

func grow(p []byte, n int) []byte {
	if cap(p) < n {
		return make([]byte, n)
	}
	return p[:n]
}

// an EOF inside a record is never a clean end of stream
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
