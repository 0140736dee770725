package datastep

import "io"

// Cursor steps a RowSet through the rows of a RowReader. After each
// successful call to Next, the RowSet's current row is the next row of the
// stream, with lag and lead rows and by-group flags in place. Lead slots
// beyond the end of the stream hold cleared rows.
//
// The cursor reads one row ahead of the window, so the final row is flagged
// with LastRow even if src only signals the end with io.EOF.
type Cursor struct {
	src  RowReader
	set  *RowSet
	pad  *Row
	err  error
	eof  bool
	real int64 // rows read from src
	adds int64 // rows added to the window, including padding
	seen int64 // rows returned by Next

	curr, ahead *Row
	hasAhead    bool
	primed      bool
}

// NewCursor inits a cursor over src with a window of the given shape.
func NewCursor(src RowReader, keys *KeyMap, lagRows, leadRows int, byGroups ...string) (*Cursor, error) {
	set, err := NewRowSet(keys, lagRows, leadRows, byGroups...)
	if err != nil {
		return nil, err
	}
	return &Cursor{
		src:   src,
		set:   set,
		pad:   NewRow(keys),
		curr:  NewRow(keys),
		ahead: NewRow(keys),
	}, nil
}

// Next advances the window by one row and returns true if a row is
// available.
func (c *Cursor) Next() bool {
	if c.err != nil || (c.eof && c.seen >= c.real) {
		return false
	}

	// row k becomes current after k+lead additions
	target := c.seen + 1 + int64(c.set.lead)
	for c.adds < target {
		if err := c.push(); err != nil {
			c.err = err
			return false
		}
	}

	if c.seen >= c.real {
		return false
	}
	c.seen++
	return true
}

// Rows returns the window.
func (c *Cursor) Rows() *RowSet { return c.set }

// Curr is a shortcut for Rows().Curr().
func (c *Cursor) Curr() *Row { return c.set.Curr() }

// N returns the number of the current row, starting at 1.
func (c *Cursor) N() int64 { return c.seen }

// Err returns the first error encountered, if any.
func (c *Cursor) Err() error { return c.err }

func (c *Cursor) push() error {
	c.adds++
	if !c.eof {
		row, err := c.read()
		if err == nil {
			c.real++
			c.eof = row.LastRow()
			return c.set.Add(row)
		} else if err != io.EOF {
			return err
		}
		c.eof = true
	}
	return c.set.Add(c.pad.Clear())
}

// read returns the next row of src, flagged as last if no row follows.
func (c *Cursor) read() (*Row, error) {
	if !c.primed {
		c.primed = true
		if err := c.fetch(); err != nil {
			return nil, err
		}
	}
	if !c.hasAhead {
		return nil, io.EOF
	}

	c.curr, c.ahead = c.ahead, c.curr
	if c.curr.last {
		c.hasAhead = false
	} else if err := c.fetch(); err != nil {
		return nil, err
	}
	c.curr.last = c.curr.last || !c.hasAhead
	return c.curr, nil
}

func (c *Cursor) fetch() error {
	row, err := c.src.ReadRow()
	if err == io.EOF {
		c.hasAhead = false
		return nil
	} else if err != nil {
		return err
	}
	if err := c.ahead.Copy(row); err != nil {
		return err
	}
	c.hasAhead = true
	return nil
}
