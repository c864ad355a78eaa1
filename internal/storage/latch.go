package storage

import "sync"

// PageLatch is a page descriptor's reader/writer latch, independent of the
// buffer pool's bookkeeping mutex (spec.md §4.3). It participates in no
// deadlock detection; callers must release it on every exit path.
type PageLatch struct {
	mu sync.RWMutex
}

func (l *PageLatch) RLock()   { l.mu.RLock() }
func (l *PageLatch) RUnlock() { l.mu.RUnlock() }
func (l *PageLatch) WLock()   { l.mu.Lock() }
func (l *PageLatch) WUnlock() { l.mu.Unlock() }
