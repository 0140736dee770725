package datastep

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// SortedByAttr is the metadata attribute recording the sort keys of a
// sorted data set.
const SortedByAttr = "sorted_by"

// chunkPrefix names the temporary chunk stores of an external sort.
const chunkPrefix = "_sort-"

// RowReader is implemented by sources of rows, such as a Store opened for
// reading. ReadRow returns io.EOF at the end of the stream.
type RowReader interface {
	ReadRow() (*Row, error)
}

// RowWriter is implemented by sinks of rows.
type RowWriter interface {
	WriteRow(*Row) error
}

// SortOptions define sort specific options.
type SortOptions struct {
	// By lists the sort keys, the first key is primary.
	By []string

	// InMemory sorts all rows in a single in-memory pass. Otherwise rows are
	// sorted in chunks of SplitSize which are spilled to temporary data sets
	// and merged.
	InMemory bool

	// SplitSize is the maximum number of rows held in memory by an external
	// sort. It also bounds the number of chunk files, which are all open
	// during the merge. Required unless InMemory is set.
	SplitSize int

	// Logger receives progress events. Default: the logger of the output store.
	Logger *zap.SugaredLogger
}

func (o *SortOptions) validate() error {
	if o == nil || len(o.By) == 0 {
		return &ConfigError{Param: "by", Reason: "at least one sort key is required"}
	}
	if !o.InMemory && o.SplitSize <= 0 {
		return &ConfigError{Param: "split size", Reason: fmt.Sprintf("must be positive, got %d", o.SplitSize)}
	}
	return nil
}

// Sort reads in and writes its rows to out, ordered by the sort keys.
// Ties keep their input order, in-memory and external sorts produce
// identical output. Invalid options are rejected before any file is
// opened. On error, out is left incomplete and must be discarded.
func Sort(in, out *Store, o *SortOptions) (err error) {
	if err := o.validate(); err != nil {
		return err
	}
	if in.headerPath == out.headerPath {
		return &ConfigError{Param: "output", Reason: "must differ from the input"}
	}

	log := o.Logger
	if log == nil {
		log = out.o.Logger
	}

	if err := in.OpenForRead(); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, in.Close()) }()

	meta, err := in.ReadMetadata()
	if err != nil {
		return err
	}
	idx, err := meta.KeyMap.ordinals(o.By)
	if err != nil {
		return err
	}

	attrs := make(map[string]string, len(meta.Attributes)+1)
	for k, v := range meta.Attributes {
		attrs[k] = v
	}
	attrs[SortedByAttr] = strings.Join(o.By, ",")
	outMeta := &Metadata{KeyMap: meta.KeyMap, Attributes: attrs}

	if o.InMemory {
		rows, err := sortInMemory(in, out, outMeta, comparator(idx))
		if err != nil {
			return err
		}
		log.Infow("Sorted data set", "in", in.name, "out", out.name, "mode", "memory", "rows", rows)
		return nil
	}

	rows, chunks, err := sortExternal(in, out, outMeta, comparator(idx), o.SplitSize, log)
	if err != nil {
		return err
	}
	log.Infow("Sorted data set", "in", in.name, "out", out.name, "mode", "external", "rows", rows, "chunks", chunks)
	return nil
}

// comparator orders rows lexicographically by a list of ordinals.
type comparator []int

func (c comparator) compare(a, b *Row) int {
	for _, i := range c {
		if n := a.vals[i].Compare(b.vals[i]); n != 0 {
			return n
		}
	}
	return 0
}

func (c comparator) sortStable(rows []*Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return c.compare(rows[i], rows[j]) < 0
	})
}

func sortInMemory(in RowReader, out *Store, meta *Metadata, cmp comparator) (int, error) {
	var rows []*Row
	for {
		row, err := in.ReadRow()
		if err == io.EOF {
			break
		} else if err != nil {
			return 0, err
		}
		rows = append(rows, row.Clone())
	}

	cmp.sortStable(rows)
	return len(rows), writeAll(out, meta, rows)
}

func sortExternal(in RowReader, out *Store, meta *Metadata, cmp comparator, splitSize int, log *zap.SugaredLogger) (rows int64, numChunks int, err error) {
	var chunks []*Store
	defer func() {
		for _, c := range chunks {
			err = multierr.Append(err, c.Close())
			if e := c.Delete(); e != nil && !errors.Is(e, ErrNotFound) {
				err = multierr.Append(err, e)
			}
		}
	}()

	dir := filepath.Dir(out.headerPath)
	prefix := chunkPrefix + uuid.NewString()
	chunkMeta := &Metadata{KeyMap: meta.KeyMap}

	// rows are allocated once and reused by every batch
	pool := make([]*Row, 0, splitSize)
	batch := pool[:0]

	spill := func() error {
		cmp.sortStable(batch)

		chunk := NewStore(dir, fmt.Sprintf("%s-%04d", prefix, len(chunks)), out.o)
		chunks = append(chunks, chunk)
		if err := writeAll(chunk, chunkMeta, batch); err != nil {
			return err
		}

		log.Debugw("Spilled sort chunk", "chunk", chunk.name, "rows", len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		row, err := in.ReadRow()
		if err == io.EOF {
			break
		} else if err != nil {
			return rows, len(chunks), err
		}

		n := len(batch)
		if n == len(pool) {
			pool = append(pool, NewRow(meta.KeyMap))
		}
		batch = pool[:n+1]
		batch[n].copyFrom(row)
		rows++

		if len(batch) == splitSize {
			if err := spill(); err != nil {
				return rows, len(chunks), err
			}
		}
	}
	if len(batch) != 0 {
		if err := spill(); err != nil {
			return rows, len(chunks), err
		}
	}
	pool, batch = nil, nil

	return rows, len(chunks), merge(out, meta, chunks, cmp)
}

func writeAll(out *Store, meta *Metadata, rows []*Row) (err error) {
	if err := out.OpenForWrite(); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, out.Close()) }()

	if err := out.WriteMetadata(meta); err != nil {
		return err
	}
	for _, row := range rows {
		if err := out.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}
