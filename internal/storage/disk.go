package storage

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/coredb/coredb/internal/record"
)

// DiskManager is the external collaborator the buffer pool manager uses
// for all page I/O (spec.md §6). It is the sole interface this core
// depends on; how pages actually land on disk is out of scope here.
type DiskManager interface {
	ReadPage(id record.PageID, dst []byte) error
	WritePage(id record.PageID, src []byte) error
	AllocatePage() record.PageID
	DeallocatePage(id record.PageID)
}

// FileDiskManager is a single flat-file DiskManager: page id p lives at
// byte offset p*PageSize. It exists so the buffer pool and its tests have
// a concrete collaborator to drive; durability/recovery are non-goals
// (spec.md §1), so there is no WAL coupling here.
type FileDiskManager struct {
	mu   sync.Mutex
	f    *os.File
	next int64 // next page id to hand out; AllocatePage advances it by numInstances

	numInstances int32
	instance     int32
}

// NewFileDiskManager opens (creating if needed) path as the backing file
// for one buffer pool shard. numInstances/instance implement the page id
// striping spec.md §3 requires: p mod numInstances == instance.
func NewFileDiskManager(path string, numInstances, instance int) (*FileDiskManager, error) {
	if numInstances <= 0 {
		numInstances = 1
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
	if err != nil {
		return nil, fmt.Errorf("storage: open disk file %q: %w", path, err)
	}
	return &FileDiskManager{
		f:            f,
		next:         int64(instance),
		numInstances: int32(numInstances),
		instance:     int32(instance),
	}, nil
}

func (d *FileDiskManager) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f.Close()
}

func (d *FileDiskManager) ReadPage(id record.PageID, dst []byte) error {
	if id == record.InvalidPageID {
		return fmt.Errorf("storage: read invalid page id")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	off := int64(id) * PageSize
	n, err := d.f.ReadAt(dst, off)
	if err != nil {
		// Reading a page that was never written (e.g. a freshly
		// allocated page) is not an error: it reads as zeroes.
		if n == 0 {
			for i := range dst {
				dst[i] = 0
			}
			return nil
		}
		return fmt.Errorf("storage: read page %d: %w", id, err)
	}
	return nil
}

func (d *FileDiskManager) WritePage(id record.PageID, src []byte) error {
	if id == record.InvalidPageID {
		return fmt.Errorf("storage: write invalid page id")
	}
	if len(src) != PageSize {
		return fmt.Errorf("storage: write page %d: expected %d bytes, got %d", id, PageSize, len(src))
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	off := int64(id) * PageSize
	if _, err := d.f.WriteAt(src, off); err != nil {
		return fmt.Errorf("storage: write page %d: %w", id, err)
	}
	return nil
}

// AllocatePage hands out the next page id striped for this instance:
// id mod numInstances == instance.
func (d *FileDiskManager) AllocatePage() record.PageID {
	raw := atomic.AddInt64(&d.next, int64(d.numInstances))
	return record.PageID(raw - int64(d.numInstances))
}

// DeallocatePage is a no-op: there is no free-space map to reclaim the id
// into (durability/space reuse is out of scope); it exists to satisfy the
// DiskManager interface's documented contract.
func (d *FileDiskManager) DeallocatePage(id record.PageID) {}
