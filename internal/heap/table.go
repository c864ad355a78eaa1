// Package heap implements the table heap: the unordered collection of
// pages that Volcano operators scan, insert into, and mutate. It is not
// one of spec.md's four named core subsystems, but it is the concrete
// collaborator those operators need to pull real rows through the buffer
// pool manager and page latches.
package heap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coredb/coredb/internal/bufferpool"
	"github.com/coredb/coredb/internal/record"
	"github.com/coredb/coredb/internal/storage"
)

var ErrTableClosed = errors.New("heap: table is closed")

// TableHeap is a heap file: a sequence of pages, each holding some
// number of row slots, with no particular row order (spec.md's
// "table heap" collaborator referenced by SeqScan/Insert/Delete/Update).
//
// pages tracks the actual ids this heap's own NewPage calls returned.
// Page ids cannot be derived by arithmetic from a "first" id: every heap
// and index registered with a catalog.Catalog shares one buffer pool and
// therefore one disk manager's page-id sequence (see
// storage.FileDiskManager.AllocatePage), so a heap's own pages are
// generally not contiguous once anything else has allocated a page in
// between.
type TableHeap struct {
	Name   string
	Schema record.Schema
	BP     bufferpool.Manager

	mu    sync.Mutex
	pages []record.PageID
}

// NewTableHeap creates an empty heap with one allocated page.
func NewTableHeap(name string, schema record.Schema, bp bufferpool.Manager) (*TableHeap, error) {
	_, id, err := bp.NewPage()
	if err != nil {
		return nil, fmt.Errorf("heap: allocate first page for %s: %w", name, err)
	}
	bp.UnpinPage(id, true)
	return &TableHeap{Name: name, Schema: schema, BP: bp, pages: []record.PageID{id}}, nil
}

// OpenTableHeap reattaches to an existing heap whose page ids are already
// known (e.g. from the catalog).
func OpenTableHeap(name string, schema record.Schema, bp bufferpool.Manager, pages []record.PageID) *TableHeap {
	own := make([]record.PageID, len(pages))
	copy(own, pages)
	return &TableHeap{Name: name, Schema: schema, BP: bp, pages: own}
}

// PageCount reports how many pages this heap has allocated.
func (t *TableHeap) PageCount() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint32(len(t.pages))
}

// Pages returns a copy of every page id this heap owns, in allocation
// order (e.g. for the catalog to persist).
func (t *TableHeap) Pages() []record.PageID {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]record.PageID, len(t.pages))
	copy(out, t.pages)
	return out
}

// pagesSnapshot returns the heap's current page list without copying the
// backing array further than necessary; callers must treat it read-only.
func (t *TableHeap) pagesSnapshot() []record.PageID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pages[:len(t.pages):len(t.pages)]
}

// InsertTuple stores values in the first page with room, allocating a new
// page if none has space, and returns the row's RID.
func (t *TableHeap) InsertTuple(values record.Tuple) (record.RID, error) {
	raw, err := record.EncodeRow(t.Schema, values)
	if err != nil {
		return record.RID{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, pageID := range t.pages {
		frame, err := t.BP.FetchPage(pageID)
		if err != nil {
			return record.RID{}, err
		}

		frame.Latch.WLock()
		slot, err := frame.Page.InsertTuple(raw)
		frame.Latch.WUnlock()

		if errors.Is(err, storage.ErrNoSpace) {
			t.BP.UnpinPage(pageID, false)
			continue
		}
		if err != nil {
			t.BP.UnpinPage(pageID, false)
			return record.RID{}, err
		}
		t.BP.UnpinPage(pageID, true)
		return record.RID{PageID: pageID, Slot: uint16(slot)}, nil
	}

	// Every existing page is full: allocate a new one. The returned id is
	// recorded explicitly rather than assumed contiguous with the heap's
	// other pages, since the buffer pool's disk manager hands out ids
	// from one sequence shared by every heap and index on it.
	frame, id, err := t.BP.NewPage()
	if err != nil {
		return record.RID{}, fmt.Errorf("heap: grow table %s: %w", t.Name, err)
	}
	t.pages = append(t.pages, id)
	frame.Latch.WLock()
	slot, err := frame.Page.InsertTuple(raw)
	frame.Latch.WUnlock()
	if err != nil {
		t.BP.UnpinPage(id, false)
		return record.RID{}, fmt.Errorf("heap: row too large for an empty page: %w", err)
	}
	t.BP.UnpinPage(id, true)
	return record.RID{PageID: id, Slot: uint16(slot)}, nil
}

// GetTuple reads the row at id.
func (t *TableHeap) GetTuple(id record.RID) (record.Tuple, error) {
	frame, err := t.BP.FetchPage(id.PageID)
	if err != nil {
		return nil, err
	}
	defer t.BP.UnpinPage(id.PageID, false)

	frame.Latch.RLock()
	raw, err := frame.Page.ReadTuple(int(id.Slot))
	frame.Latch.RUnlock()
	if err != nil {
		return nil, err
	}
	return record.DecodeRow(t.Schema, raw)
}

// UpdateTuple overwrites the row at id in place.
func (t *TableHeap) UpdateTuple(id record.RID, values record.Tuple) error {
	raw, err := record.EncodeRow(t.Schema, values)
	if err != nil {
		return err
	}

	frame, err := t.BP.FetchPage(id.PageID)
	if err != nil {
		return err
	}
	dirty := false
	defer func() { t.BP.UnpinPage(id.PageID, dirty) }()

	frame.Latch.WLock()
	err = frame.Page.UpdateTuple(int(id.Slot), raw)
	frame.Latch.WUnlock()
	if err != nil {
		return err
	}
	dirty = true
	return nil
}

// MarkDelete tombstones the row at id (spec.md §4.6: Delete calls
// MarkDelete).
func (t *TableHeap) MarkDelete(id record.RID) error {
	frame, err := t.BP.FetchPage(id.PageID)
	if err != nil {
		return err
	}
	dirty := false
	defer func() { t.BP.UnpinPage(id.PageID, dirty) }()

	frame.Latch.WLock()
	err = frame.Page.DeleteTuple(int(id.Slot))
	frame.Latch.WUnlock()
	if err != nil {
		return err
	}
	dirty = true
	return nil
}

// Iterator walks every live row of the heap from Begin() to End(),
// matching spec.md §4.6's SeqScan contract. pages is a snapshot of the
// heap's page ids taken at Begin, so the heap growing mid-scan (an
// InsertTuple appending a new page) neither disrupts nor is picked up by
// an iterator already in flight.
type Iterator struct {
	heap    *TableHeap
	pages   []record.PageID
	pageIdx int
	slot    int
}

// Begin returns an iterator positioned at the heap's first row.
func (t *TableHeap) Begin() *Iterator {
	it := &Iterator{heap: t, pages: t.pagesSnapshot(), pageIdx: 0, slot: -1}
	it.advance()
	return it
}

// advance moves to the next live slot, skipping tombstoned and exhausted
// pages.
func (it *Iterator) advance() {
	for it.pageIdx < len(it.pages) {
		pageID := it.pages[it.pageIdx]
		frame, err := it.heap.BP.FetchPage(pageID)
		if err != nil {
			it.pageIdx = len(it.pages)
			return
		}

		frame.Latch.RLock()
		numSlots := frame.Page.NumSlots()
		it.slot++
		for it.slot < numSlots && frame.Page.IsDeleted(it.slot) {
			it.slot++
		}
		found := it.slot < numSlots
		frame.Latch.RUnlock()
		it.heap.BP.UnpinPage(pageID, false)

		if found {
			return
		}
		it.pageIdx++
		it.slot = -1
	}
}

// End reports whether the iterator has exhausted the heap.
func (it *Iterator) End() bool {
	return it.pageIdx >= len(it.pages)
}

// Next returns the current row and its RID, then advances.
func (it *Iterator) Next() (record.Tuple, record.RID, bool) {
	if it.End() {
		return nil, record.RID{}, false
	}
	pageID := it.pages[it.pageIdx]
	rid := record.RID{PageID: pageID, Slot: uint16(it.slot)}
	row, err := it.heap.GetTuple(rid)
	if err != nil {
		return nil, record.RID{}, false
	}
	it.advance()
	return row, rid, true
}
