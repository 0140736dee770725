package datastep

// RowSet is a window of rows around a current row: lagRows rows behind it
// and leadRows rows ahead of it. Rows are added at the maximum lead
// position and move towards the lag end with every Add.
//
// A RowSet optionally tracks by-groups. For every grouping key, ordered from
// coarsest to finest, it maintains flags which indicate whether the current
// row is the first or last of its group.
type RowSet struct {
	keys  *KeyMap
	lag   int
	lead  int
	slots []*Row
	head  int // physical slot of offset -lag

	byNames []string
	byIdx   []int
	first   []bool
	last    []bool
}

// NewRowSet inits a RowSet. All slots start cleared. When byGroups are
// given, both lagRows and leadRows must be at least 1.
func NewRowSet(keys *KeyMap, lagRows, leadRows int, byGroups ...string) (*RowSet, error) {
	if lagRows < 0 {
		return nil, &ConfigError{Param: "lag rows", Reason: "must not be negative"}
	}
	if leadRows < 0 {
		return nil, &ConfigError{Param: "lead rows", Reason: "must not be negative"}
	}
	if len(byGroups) != 0 && (lagRows < 1 || leadRows < 1) {
		return nil, &ConfigError{Param: "by groups", Reason: "require at least one lag and one lead row"}
	}

	byIdx, err := keys.ordinals(byGroups)
	if err != nil {
		return nil, err
	}

	slots := make([]*Row, lagRows+leadRows+1)
	for i := range slots {
		slots[i] = NewRow(keys)
	}

	return &RowSet{
		keys:    keys,
		lag:     lagRows,
		lead:    leadRows,
		slots:   slots,
		byNames: append([]string(nil), byGroups...),
		byIdx:   byIdx,
		first:   make([]bool, len(byGroups)),
		last:    make([]bool, len(byGroups)),
	}, nil
}

// LagRows returns the number of lag rows.
func (s *RowSet) LagRows() int { return s.lag }

// LeadRows returns the number of lead rows.
func (s *RowSet) LeadRows() int { return s.lead }

// KeyMap returns the key map of the rows.
func (s *RowSet) KeyMap() *KeyMap { return s.keys }

// Add assigns the next row number to row, advances the window by one step and
// copies row into the maximum lead position.
func (s *RowSet) Add(row *Row) error {
	if !s.keys.Equal(row.keys) {
		return ErrKeyMapMismatch
	}
	row.num = s.slot(s.lead).num + 1

	s.head++
	if s.head == len(s.slots) {
		s.head = 0
	}

	s.slot(s.lead).copyFrom(row)

	if len(s.byIdx) != 0 {
		s.updateByGroups()
	}
	return nil
}

// Row returns the row at a relative offset, negative for lag rows.
func (s *RowSet) Row(offset int) (*Row, error) {
	if offset < -s.lag || offset > s.lead {
		return nil, &RowOffsetError{Offset: offset, LagRows: s.lag, LeadRows: s.lead}
	}
	return s.slot(offset), nil
}

// Curr returns the current row.
func (s *RowSet) Curr() *Row { return s.slot(0) }

// Prev is a shortcut for Lag(1).
func (s *RowSet) Prev() (*Row, error) { return s.Row(-1) }

// Next is a shortcut for Lead(1).
func (s *RowSet) Next() (*Row, error) { return s.Row(1) }

// Lag returns the row n steps behind the current row.
func (s *RowSet) Lag(n int) (*Row, error) { return s.Row(-n) }

// Lead returns the row n steps ahead of the current row.
func (s *RowSet) Lead(n int) (*Row, error) { return s.Row(n) }

// Get returns a value of the current row.
func (s *RowSet) Get(name string) (Value, error) { return s.Curr().Get(name) }

// IsFirst reports whether the current row is the first of its finest by-group.
func (s *RowSet) IsFirst() bool {
	if n := len(s.first); n != 0 {
		return s.first[n-1]
	}
	return false
}

// IsLast reports whether the current row is the last of its finest by-group.
func (s *RowSet) IsLast() bool {
	if n := len(s.last); n != 0 {
		return s.last[n-1]
	}
	return false
}

// First reports whether the current row is the first of the by-group
// identified by key.
func (s *RowSet) First(key string) (bool, error) {
	i, err := s.byGroup(key)
	if err != nil {
		return false, err
	}
	return s.first[i], nil
}

// Last reports whether the current row is the last of the by-group
// identified by key.
func (s *RowSet) Last(key string) (bool, error) {
	i, err := s.byGroup(key)
	if err != nil {
		return false, err
	}
	return s.last[i], nil
}

func (s *RowSet) byGroup(key string) (int, error) {
	for i, name := range s.byNames {
		if name == key {
			return i, nil
		}
	}
	return -1, &UndefinedVariableError{Name: key}
}

func (s *RowSet) slot(offset int) *Row {
	n := len(s.slots)
	return s.slots[(s.head+s.lag+offset)%n]
}

// updateByGroups runs from the coarsest to the finest key, a boundary at a
// coarse key forces a boundary at every finer key. A previous row that never
// entered the window marks the start of the stream.
func (s *RowSet) updateByGroups() {
	curr, prev, next := s.slot(0), s.slot(-1), s.slot(1)

	parentFirst := prev.num == 0
	parentLast := curr.last
	for i, k := range s.byIdx {
		v := curr.vals[k]
		s.first[i] = parentFirst || !v.Equal(prev.vals[k])
		s.last[i] = parentLast || !v.Equal(next.vals[k])

		parentFirst, parentLast = s.first[i], s.last[i]
	}
}
