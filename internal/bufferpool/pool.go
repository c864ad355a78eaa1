// Package bufferpool implements the buffer pool manager: the fixed-
// capacity frame cache with pinning, LRU eviction, and dirty write-back
// that is the sole I/O gateway for every other subsystem (spec.md §4.2).
package bufferpool

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/coredb/coredb/internal/record"
	"github.com/coredb/coredb/internal/storage"
)

const logPrefix = "bufferpool: "

// Manager is the BufferPoolManager contract a single pool shard exposes.
// Defined as an interface so the hash index, heap, and executors can be
// tested against a fake.
type Manager interface {
	FetchPage(id record.PageID) (*Frame, error)
	NewPage() (*Frame, record.PageID, error)
	UnpinPage(id record.PageID, isDirty bool) bool
	FlushPage(id record.PageID) bool
	DeletePage(id record.PageID) bool
	FlushAllPages()
}

var _ Manager = (*BufferPoolManager)(nil)

// BufferPoolManager is one pool shard: poolSize frames backed by one
// DiskManager. ParallelBufferPoolManager stripes several of these across
// num_instances to spread page ids (spec.md §3).
type BufferPoolManager struct {
	disk     storage.DiskManager
	poolSize int

	mu        sync.Mutex // protects pageTable, freeList, replacer, and frame descriptors
	frames    []*Frame
	pageTable map[record.PageID]int // page id -> frame index
	freeList  []int                 // frame indices holding no page
	replacer  *LRUReplacer
}

func NewBufferPoolManager(poolSize int, disk storage.DiskManager) *BufferPoolManager {
	if poolSize <= 0 {
		poolSize = 1
	}
	bp := &BufferPoolManager{
		disk:      disk,
		poolSize:  poolSize,
		frames:    make([]*Frame, poolSize),
		pageTable: make(map[record.PageID]int, poolSize),
		freeList:  make([]int, poolSize),
		replacer:  NewLRUReplacer(),
	}
	for i := 0; i < poolSize; i++ {
		bp.freeList[i] = poolSize - 1 - i // pop from the back, arbitrary order is fine
		bp.frames[i] = &Frame{PageID: record.InvalidPageID, Page: storage.Page{Buf: make([]byte, storage.PageSize)}}
	}
	return bp
}

// FetchPage returns the page for id, pinning it. It is resident already,
// is loaded from a free frame, or evicts an LRU victim — in that order
// (spec.md §4.2).
func (bp *BufferPoolManager) FetchPage(id record.PageID) (*Frame, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if idx, ok := bp.pageTable[id]; ok {
		f := bp.frames[idx]
		if f.Pin.Get() == 0 {
			bp.replacer.Pin(idx)
		}
		f.Pin.Inc()
		return f, nil
	}

	idx, err := bp.victimLocked()
	if err != nil {
		return nil, err
	}

	f := bp.frames[idx]
	if err := bp.evictFrameLocked(idx); err != nil {
		return nil, err
	}

	if err := bp.disk.ReadPage(id, f.Page.Buf); err != nil {
		return nil, fmt.Errorf("bufferpool: fetch page %d: %w", id, err)
	}
	f.PageID = id
	f.IsDirty = false
	f.Pin = PinCount{}
	f.Pin.Inc()
	bp.pageTable[id] = idx
	bp.replacer.Pin(idx)

	slog.Debug(logPrefix+"fetched page", "pageID", id, "frame", idx)
	return f, nil
}

// NewPage allocates a fresh page id from the disk manager, zeroes a
// frame for it, and returns it pinned.
func (bp *BufferPoolManager) NewPage() (*Frame, record.PageID, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, err := bp.victimLocked()
	if err != nil {
		return nil, record.InvalidPageID, err
	}

	f := bp.frames[idx]
	if err := bp.evictFrameLocked(idx); err != nil {
		return nil, record.InvalidPageID, err
	}

	id := bp.disk.AllocatePage()
	f.Page.Reset(id)
	f.PageID = id
	f.IsDirty = false
	f.Pin = PinCount{}
	f.Pin.Inc()
	bp.pageTable[id] = idx

	slog.Debug(logPrefix+"new page", "pageID", id, "frame", idx)
	return f, id, nil
}

// victimLocked picks a frame index to (re)populate: a free frame (holding
// no page) if any remain, else the LRU replacer's victim. Caller holds bp.mu.
func (bp *BufferPoolManager) victimLocked() (int, error) {
	if n := len(bp.freeList); n > 0 {
		idx := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return idx, nil
	}
	idx, ok := bp.replacer.Victim()
	if !ok {
		return 0, fmt.Errorf("bufferpool: no free frame available (all pinned)")
	}
	return idx, nil
}

// evictFrameLocked flushes idx's current page if dirty and removes its
// page-table entry, readying it to host a new page. Caller holds bp.mu.
func (bp *BufferPoolManager) evictFrameLocked(idx int) error {
	f := bp.frames[idx]
	if f.PageID == record.InvalidPageID {
		return nil // free-list frame holding no page
	}
	if f.IsDirty {
		f.Latch.WLock()
		err := bp.disk.WritePage(f.PageID, f.Page.Buf)
		f.Latch.WUnlock()
		if err != nil {
			return fmt.Errorf("bufferpool: evict flush page %d: %w", f.PageID, err)
		}
	}
	delete(bp.pageTable, f.PageID)
	return nil
}

// UnpinPage decrements a page's pin count and ORs in isDirty. When the
// pin count reaches zero the frame becomes evictable again.
func (bp *BufferPoolManager) UnpinPage(id record.PageID, isDirty bool) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.pageTable[id]
	if !ok {
		return false
	}
	f := bp.frames[idx]
	if isDirty {
		f.IsDirty = true
	}
	if f.Pin.Get() == 0 {
		return false
	}
	if f.Pin.Dec() == 0 {
		bp.replacer.Unpin(idx)
	}
	return true
}

// FlushPage writes a resident page's bytes to disk under its write latch.
// Per spec.md §4.2's preserved design choice, is_dirty is NOT cleared.
func (bp *BufferPoolManager) FlushPage(id record.PageID) bool {
	bp.mu.Lock()
	idx, ok := bp.pageTable[id]
	if !ok {
		bp.mu.Unlock()
		return false
	}
	f := bp.frames[idx]
	bp.mu.Unlock()

	f.Latch.WLock()
	defer f.Latch.WUnlock()
	if err := bp.disk.WritePage(id, f.Page.Buf); err != nil {
		slog.Error(logPrefix+"flush failed", "pageID", id, "err", err)
		return false
	}
	return true
}

// FlushAllPages flushes every resident frame under its write latch.
func (bp *BufferPoolManager) FlushAllPages() {
	bp.mu.Lock()
	ids := make([]record.PageID, 0, len(bp.pageTable))
	for id := range bp.pageTable {
		ids = append(ids, id)
	}
	bp.mu.Unlock()

	for _, id := range ids {
		bp.FlushPage(id)
	}
}

// DeletePage evicts a page from the pool (failing if it is pinned),
// flushing it first if dirty, and returns its frame to the free list.
// Per spec.md §9's open question, a false return is advisory: callers
// should re-check pin state rather than treat it as a hard failure.
func (bp *BufferPoolManager) DeletePage(id record.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.pageTable[id]
	if !ok {
		return true
	}
	f := bp.frames[idx]
	if f.Pin.Get() > 0 {
		return false
	}

	if f.IsDirty {
		f.Latch.WLock()
		_ = bp.disk.WritePage(id, f.Page.Buf)
		f.Latch.WUnlock()
	}

	bp.replacer.Pin(idx) // make sure it isn't sitting in the replacer
	delete(bp.pageTable, id)
	f.PageID = record.InvalidPageID
	f.IsDirty = false
	f.Pin = PinCount{}
	bp.disk.DeallocatePage(id)
	bp.freeList = append(bp.freeList, idx)
	return false
}

// PoolSize returns the shard's frame capacity.
func (bp *BufferPoolManager) PoolSize() int { return bp.poolSize }
