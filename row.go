package datastep

import (
	"bytes"
	"errors"
	"strconv"
)

// Row is a fixed-width sequence of values, ordered by its key map, plus
// traversal metadata. Rows are meant to be reused: Copy and Clear work in
// place.
type Row struct {
	keys *KeyMap
	vals []Value

	num  int64 // row number within the current traversal
	last bool  // true for the terminal row of a traversal
}

// NewRow allocates a cleared row.
func NewRow(keys *KeyMap) *Row {
	r := &Row{keys: keys, vals: make([]Value, keys.Len())}
	return r.Clear()
}

// KeyMap returns the key map of the row.
func (r *Row) KeyMap() *KeyMap { return r.keys }

// Len returns the number of fields.
func (r *Row) Len() int { return len(r.vals) }

// RowNumber returns the row number, 0 if the row never entered a window.
func (r *Row) RowNumber() int64 { return r.num }

// LastRow returns true for the final row of a traversal.
func (r *Row) LastRow() bool { return r.last }

// SetLastRow marks the row as the final row of a traversal.
func (r *Row) SetLastRow(v bool) { r.last = v }

// Get returns a value by name.
func (r *Row) Get(name string) (Value, error) {
	i, err := r.keys.Ordinal(name)
	if err != nil {
		return Value{}, err
	}
	return r.vals[i], nil
}

// Set sets a value by name. Non-null values must match the declared type of
// the variable.
func (r *Row) Set(name string, v Value) error {
	i, err := r.keys.Ordinal(name)
	if err != nil {
		return err
	}
	return r.set(i, v)
}

// At returns a value by ordinal.
func (r *Row) At(i int) (Value, error) {
	if i < 0 || i >= len(r.vals) {
		return Value{}, &UndefinedVariableError{Ordinal: i}
	}
	return r.vals[i], nil
}

// SetAt sets a value by ordinal, see Set.
func (r *Row) SetAt(i int, v Value) error {
	if i < 0 || i >= len(r.vals) {
		return &UndefinedVariableError{Ordinal: i}
	}
	return r.set(i, v)
}

func (r *Row) set(i int, v Value) error {
	if vr := r.keys.vars[i]; !v.fits(vr.Type) {
		return &ConfigError{
			Param:  "value of " + strconv.Quote(vr.Name),
			Reason: "must be a " + vr.Type.String() + " or null",
		}
	}
	r.vals[i] = v
	return nil
}

// Values returns a copy of all values, in ordinal order.
func (r *Row) Values() []Value {
	return append([]Value(nil), r.vals...)
}

// Copy overwrites all values and metadata with those of src. Both rows must
// share the same key layout.
func (r *Row) Copy(src *Row) error {
	if !r.keys.Equal(src.keys) {
		return ErrKeyMapMismatch
	}
	r.copyFrom(src)
	return nil
}

// copyFrom is Copy for rows already known to share a layout.
func (r *Row) copyFrom(src *Row) {
	copy(r.vals, src.vals)
	r.num = src.num
	r.last = src.last
}

// Clone returns a detached copy of the row.
func (r *Row) Clone() *Row {
	return &Row{
		keys: r.keys,
		vals: r.Values(),
		num:  r.num,
		last: r.last,
	}
}

// Clear resets all values to their type defaults and resets metadata.
func (r *Row) Clear() *Row {
	copy(r.vals, r.keys.zero)
	r.num = 0
	r.last = false
	return r
}

// Equal returns true if both rows hold equal values. Metadata is ignored.
func (r *Row) Equal(o *Row) bool {
	if len(r.vals) != len(o.vals) {
		return false
	}
	for i, v := range r.vals {
		if !v.Equal(o.vals[i]) {
			return false
		}
	}
	return true
}

// MarshalBinary encodes the values of the row. Metadata is not encoded.
func (r *Row) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(nil), nil
}

// AppendBinary appends the encoded values to dst.
func (r *Row) AppendBinary(dst []byte) []byte {
	for _, v := range r.vals {
		dst = v.appendBinary(dst)
	}
	return dst
}

// UnmarshalBinary decodes values produced by MarshalBinary. Metadata is
// reset.
func (r *Row) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)
	if _, err := r.readFrom(rd, nil); err != nil {
		return noEOF(err)
	}
	if rd.Len() != 0 {
		return errors.New("datastep: trailing bytes after row")
	}
	return nil
}

// readFrom decodes a single record. It returns io.EOF only if the stream
// ends before the first field.
func (r *Row) readFrom(rd byteReader, tmp []byte) ([]byte, error) {
	var err error
	for i := range r.vals {
		if tmp, err = r.vals[i].readFrom(rd, tmp); err != nil {
			if i != 0 {
				err = noEOF(err)
			}
			return tmp, err
		}
		if !r.vals[i].fits(r.keys.vars[i].Type) {
			return tmp, errBadValueKind
		}
	}
	r.num = 0
	r.last = false
	return tmp, nil
}
