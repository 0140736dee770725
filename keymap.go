package datastep

import "strconv"

// Variable declares a named, typed field.
type Variable struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// StringVar declares a string variable.
func StringVar(name string) Variable { return Variable{Name: name, Type: TypeString} }

// NumberVar declares a numeric variable.
func NumberVar(name string) Variable { return Variable{Name: name, Type: TypeNumber} }

// KeyMap is an immutable mapping of variable names to ordinals. It is shared
// by a data set header and every row read from or written to it.
type KeyMap struct {
	vars  []Variable
	index map[string]int
	zero  []Value
}

// NewKeyMap builds a key map. Ordinals follow the order of vars.
func NewKeyMap(vars ...Variable) (*KeyMap, error) {
	m := &KeyMap{
		vars:  make([]Variable, len(vars)),
		index: make(map[string]int, len(vars)),
		zero:  make([]Value, len(vars)),
	}
	for i, v := range vars {
		if v.Name == "" {
			return nil, &ConfigError{Param: "variable", Reason: "ordinal " + strconv.Itoa(i) + " has no name"}
		}
		if !v.Type.isValid() {
			return nil, &ConfigError{Param: "variable", Reason: strconv.Quote(v.Name) + " has an unknown type"}
		}
		if _, ok := m.index[v.Name]; ok {
			return nil, &ConfigError{Param: "variable", Reason: strconv.Quote(v.Name) + " is declared twice"}
		}
		m.vars[i] = v
		m.index[v.Name] = i
		m.zero[i] = v.Type.Zero()
	}
	return m, nil
}

// MustKeyMap is like NewKeyMap but panics on error.
func MustKeyMap(vars ...Variable) *KeyMap {
	m, err := NewKeyMap(vars...)
	if err != nil {
		panic(err)
	}
	return m
}

// Len returns the number of variables.
func (m *KeyMap) Len() int { return len(m.vars) }

// Ordinal returns the ordinal of a named variable.
func (m *KeyMap) Ordinal(name string) (int, error) {
	if i, ok := m.index[name]; ok {
		return i, nil
	}
	return -1, &UndefinedVariableError{Name: name}
}

// Variable returns the variable at ordinal i.
func (m *KeyMap) Variable(i int) Variable { return m.vars[i] }

// Variables returns a copy of all variables, in ordinal order.
func (m *KeyMap) Variables() []Variable {
	return append([]Variable(nil), m.vars...)
}

// Names returns all variable names, in ordinal order.
func (m *KeyMap) Names() []string {
	names := make([]string, len(m.vars))
	for i, v := range m.vars {
		names[i] = v.Name
	}
	return names
}

// Equal returns true if both key maps declare the same variables in the
// same order.
func (m *KeyMap) Equal(o *KeyMap) bool {
	if m == o {
		return true
	}
	if m == nil || o == nil || len(m.vars) != len(o.vars) {
		return false
	}
	for i, v := range m.vars {
		if v != o.vars[i] {
			return false
		}
	}
	return true
}

func (m *KeyMap) ordinals(names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		n, err := m.Ordinal(name)
		if err != nil {
			return nil, err
		}
		idx[i] = n
	}
	return idx, nil
}
