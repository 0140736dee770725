package datastep

import (
	"container/heap"
	"io"

	"go.uber.org/multierr"
)

// mergeCursor holds the current row of a single chunk.
type mergeCursor struct {
	src *Store
	row *Row
	seq int // chunk creation order
}

type mergeHeap struct {
	cursors []*mergeCursor
	cmp     comparator
}

func (h *mergeHeap) Len() int { return len(h.cursors) }

func (h *mergeHeap) Less(i, j int) bool {
	a, b := h.cursors[i], h.cursors[j]
	if n := h.cmp.compare(a.row, b.row); n != 0 {
		return n < 0
	}
	return a.seq < b.seq
}

func (h *mergeHeap) Swap(i, j int) { h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i] }

func (h *mergeHeap) Push(x interface{}) { h.cursors = append(h.cursors, x.(*mergeCursor)) }

func (h *mergeHeap) Pop() interface{} {
	n := len(h.cursors) - 1
	c := h.cursors[n]
	h.cursors[n] = nil
	h.cursors = h.cursors[:n]
	return c
}

// merge performs a k-way merge of sorted chunks into out. Equal rows are
// taken from earlier chunks first.
func merge(out *Store, meta *Metadata, chunks []*Store, cmp comparator) (err error) {
	h := &mergeHeap{cmp: cmp, cursors: make([]*mergeCursor, 0, len(chunks))}
	for seq, chunk := range chunks {
		if err := chunk.OpenForRead(); err != nil {
			return err
		}
		if _, err := chunk.ReadMetadata(); err != nil {
			return err
		}

		row, err := chunk.ReadRow()
		if err == io.EOF {
			continue
		} else if err != nil {
			return err
		}
		h.cursors = append(h.cursors, &mergeCursor{src: chunk, row: row, seq: seq})
	}
	heap.Init(h)

	if err := out.OpenForWrite(); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, out.Close()) }()

	if err := out.WriteMetadata(meta); err != nil {
		return err
	}

	for h.Len() != 0 {
		c := h.cursors[0]
		if err := out.WriteRow(c.row); err != nil {
			return err
		}

		row, err := c.src.ReadRow()
		if err == io.EOF {
			heap.Pop(h)
			continue
		} else if err != nil {
			return err
		}
		c.row = row
		heap.Fix(h, 0)
	}
	return nil
}
