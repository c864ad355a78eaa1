package bufferpool

import (
	"sync/atomic"

	"github.com/coredb/coredb/internal/record"
	"github.com/coredb/coredb/internal/storage"
)

// PinCount is the reference-counted pin guard the design notes call for
// (spec.md §9: "Page* returned to callers is a borrow valid until
// UnpinPage"). Adapted from the teacher's internal/lock.RefCount, which
// served the same pin/unpin-until-flush role for a single page.
type PinCount struct {
	n int32
}

func (p *PinCount) Inc() int32 { return atomic.AddInt32(&p.n, 1) }

// Dec decrements and returns the new count. It never goes negative; the
// buffer pool manager is responsible for never unpinning past zero.
func (p *PinCount) Dec() int32 {
	for {
		old := atomic.LoadInt32(&p.n)
		if old == 0 {
			return 0
		}
		if atomic.CompareAndSwapInt32(&p.n, old, old-1) {
			return old - 1
		}
	}
}

func (p *PinCount) Get() int32 { return atomic.LoadInt32(&p.n) }

// Frame is one resident slot in the pool: a page's bytes plus its
// descriptor (spec.md §3). A frame is in exactly one of free /
// resident-pinned / resident-unpinned.
type Frame struct {
	PageID  record.PageID
	Page    storage.Page
	Pin     PinCount
	IsDirty bool
	Latch   storage.PageLatch
}
