package datastep

import (
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// Library is a directory of data sets. It resolves data set names to file
// paths and guarantees that, while a data set is open, every lookup of its
// name returns the same handle.
type Library struct {
	dir string
	o   *Options

	mu   sync.Mutex
	open map[string]*Store
}

// NewLibrary opens a library rooted at dir, creating the directory if
// necessary.
func NewLibrary(dir string, o *Options) (*Library, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StreamError{Op: "mkdir", Path: dir, Record: -1, Err: err}
	}
	return &Library{
		dir:  dir,
		o:    o.norm(),
		open: make(map[string]*Store),
	}, nil
}

// Dir returns the library directory.
func (l *Library) Dir() string { return l.dir }

// Dataset returns the handle for name. If the data set is currently open,
// the live handle is returned.
func (l *Library) Dataset(name string) *Store {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.open[name]; ok {
		return s
	}
	s := NewStore(l.dir, name, l.o)
	s.lib = l
	return s
}

// Names lists all data sets in the library, sorted by name.
func (l *Library) Names() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, &StreamError{Op: "list", Path: l.dir, Record: -1, Err: err}
	}

	var names []string
	for _, e := range entries {
		if name := e.Name(); !e.IsDir() && strings.HasSuffix(name, HeaderExt) {
			names = append(names, strings.TrimSuffix(name, HeaderExt))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Sort sorts the data set in into out.
func (l *Library) Sort(in, out string, o *SortOptions) error {
	return Sort(l.Dataset(in), l.Dataset(out), o)
}

// Close closes all open data sets.
func (l *Library) Close() error {
	l.mu.Lock()
	open := make([]*Store, 0, len(l.open))
	for _, s := range l.open {
		open = append(open, s)
	}
	l.mu.Unlock()

	var err error
	for _, s := range open {
		err = multierr.Append(err, s.Close())
	}
	return err
}

// register claims name for s. It fails with ErrBusy while another handle
// holds the name.
func (l *Library) register(s *Store) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.open[s.name]; ok && h != s {
		return ErrBusy
	}
	l.open[s.name] = s
	return nil
}

// heldByOther returns true if a handle other than s has the name open.
func (l *Library) heldByOther(s *Store) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.open[s.name]
	return ok && h != s
}

func (l *Library) unregister(s *Store) {
	l.mu.Lock()
	if l.open[s.name] == s {
		delete(l.open, s.name)
	}
	l.mu.Unlock()
}
