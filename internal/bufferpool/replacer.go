package bufferpool

import (
	"container/list"
	"sync"
)

// LRUReplacer is the eviction-order oracle over unpinned frames
// (spec.md §4.1). A frame is present in the replacer iff it is evictable;
// Victim always returns the least-recently-unpinned frame. Grounded on
// the teacher's container/list-backed LRUManager, generalized from a
// page-cache helper into the strict Victim/Pin/Unpin/Size contract the
// buffer pool manager needs.
type LRUReplacer struct {
	mu   sync.Mutex
	list *list.List
	elem map[int]*list.Element // frame id -> its node in list
}

func NewLRUReplacer() *LRUReplacer {
	return &LRUReplacer{
		list: list.New(),
		elem: make(map[int]*list.Element),
	}
}

// Victim pops and returns the oldest (front) frame id. ok is false if the
// replacer is empty.
func (r *LRUReplacer) Victim() (frameID int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	front := r.list.Front()
	if front == nil {
		return 0, false
	}
	id := front.Value.(int)
	r.list.Remove(front)
	delete(r.elem, id)
	return id, true
}

// Pin removes frameID from the replacer if present; no-op otherwise.
func (r *LRUReplacer) Pin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.elem[frameID]; ok {
		r.list.Remove(e)
		delete(r.elem, frameID)
	}
}

// Unpin appends frameID to the back (most-recently-used end) iff it is
// not already present.
func (r *LRUReplacer) Unpin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.elem[frameID]; ok {
		return
	}
	r.elem[frameID] = r.list.PushBack(frameID)
}

// Size returns the current number of evictable frames.
func (r *LRUReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.Len()
}
