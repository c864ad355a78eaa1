package hashindex

import (
	"errors"
	"hash/fnv"
	"sync"

	"github.com/coredb/coredb/internal/bufferpool"
	"github.com/coredb/coredb/internal/record"
)

// ErrDirectoryFull is returned when a bucket needs to split but the
// directory has already reached MaxGlobalDepth and cannot grow further.
var ErrDirectoryFull = errors.New("hashindex: directory already at max global depth")

// HashFunc hashes an encoded key to a 32-bit value used to pick
// directory slots and split/merge buddies.
type HashFunc func(key []byte) uint32

// FNV32 is the default HashFunc.
func FNV32(key []byte) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(key)
	return h.Sum32()
}

// HashTable is the extendible hash index: one directory page plus
// however many bucket pages splitting/merging demands (spec.md §4.4).
// A table-level readers-writer latch guards directory structure changes;
// individual bucket pages carry their own latch from the buffer pool.
type HashTable struct {
	bp      bufferpool.Manager
	keySize int
	hashFn  HashFunc

	tableLatch sync.RWMutex
	dirPageID  record.PageID
}

// NewHashTable allocates a fresh directory page and its first bucket.
func NewHashTable(bp bufferpool.Manager, keySize int) (*HashTable, error) {
	bucketFrame, bucketID, err := bp.NewPage()
	if err != nil {
		return nil, err
	}
	BucketPage{Buf: bucketFrame.Page.Buf, KeySize: keySize}.Reset()
	bp.UnpinPage(bucketID, true)

	dirFrame, dirID, err := bp.NewPage()
	if err != nil {
		return nil, err
	}
	InitDirectory(dirFrame.Page.Buf, bucketID)
	bp.UnpinPage(dirID, true)

	return &HashTable{bp: bp, keySize: keySize, hashFn: FNV32, dirPageID: dirID}, nil
}

func (h *HashTable) directoryIndex(dir DirectoryPage, key []byte) int {
	return int(h.hashFn(key) & mask(dir.GlobalDepth()))
}

// GetValue returns every value stored under key.
func (h *HashTable) GetValue(key []byte) ([]record.RID, error) {
	h.tableLatch.RLock()
	dirFrame, err := h.bp.FetchPage(h.dirPageID)
	if err != nil {
		h.tableLatch.RUnlock()
		return nil, err
	}
	dir := DirectoryPage{Buf: dirFrame.Page.Buf}
	idx := h.directoryIndex(dir, key)
	bucketID := dir.BucketPageID(idx)
	h.bp.UnpinPage(h.dirPageID, false)
	h.tableLatch.RUnlock()

	bucketFrame, err := h.bp.FetchPage(bucketID)
	if err != nil {
		return nil, err
	}
	defer h.bp.UnpinPage(bucketID, false)

	bucketFrame.Latch.RLock()
	defer bucketFrame.Latch.RUnlock()

	var result []record.RID
	BucketPage{Buf: bucketFrame.Page.Buf, KeySize: h.keySize}.GetValue(key, &result)
	return result, nil
}

// Insert adds (key, value), splitting the target bucket as many times
// as needed when it's full.
func (h *HashTable) Insert(key []byte, value record.RID) (bool, error) {
	h.tableLatch.RLock()
	dirFrame, err := h.bp.FetchPage(h.dirPageID)
	if err != nil {
		h.tableLatch.RUnlock()
		return false, err
	}
	dir := DirectoryPage{Buf: dirFrame.Page.Buf}
	idx := h.directoryIndex(dir, key)
	bucketID := dir.BucketPageID(idx)
	h.bp.UnpinPage(h.dirPageID, false)

	bucketFrame, err := h.bp.FetchPage(bucketID)
	if err != nil {
		h.tableLatch.RUnlock()
		return false, err
	}
	bucketFrame.Latch.WLock()
	bucket := BucketPage{Buf: bucketFrame.Page.Buf, KeySize: h.keySize}
	if !bucket.IsFull() {
		ok := bucket.Insert(key, value)
		bucketFrame.Latch.WUnlock()
		h.bp.UnpinPage(bucketID, true)
		h.tableLatch.RUnlock()
		return ok, nil
	}
	bucketFrame.Latch.WUnlock()
	h.bp.UnpinPage(bucketID, false)
	h.tableLatch.RUnlock()
	return h.splitInsert(key, value)
}

// splitInsert implements spec.md §4.4's retry-until-space split loop.
func (h *HashTable) splitInsert(key []byte, value record.RID) (bool, error) {
	for {
		h.tableLatch.RLock()
		dirFrame, err := h.bp.FetchPage(h.dirPageID)
		if err != nil {
			h.tableLatch.RUnlock()
			return false, err
		}
		dir := DirectoryPage{Buf: dirFrame.Page.Buf}
		idx := h.directoryIndex(dir, key)
		bucketID := dir.BucketPageID(idx)

		bucketFrame, err := h.bp.FetchPage(bucketID)
		if err != nil {
			h.bp.UnpinPage(h.dirPageID, false)
			h.tableLatch.RUnlock()
			return false, err
		}
		bucketFrame.Latch.WLock()
		bucket := BucketPage{Buf: bucketFrame.Page.Buf, KeySize: h.keySize}

		if !bucket.IsFull() {
			ok := bucket.Insert(key, value)
			bucketFrame.Latch.WUnlock()
			h.bp.UnpinPage(bucketID, true)
			h.bp.UnpinPage(h.dirPageID, false)
			h.tableLatch.RUnlock()
			return ok, nil
		}

		// Still full: upgrade to the table write-latch and split.
		bucketFrame.Latch.WUnlock()
		h.bp.UnpinPage(bucketID, false)
		h.bp.UnpinPage(h.dirPageID, false)
		h.tableLatch.RUnlock()

		if err := h.split(key, idx); err != nil {
			return false, err
		}
		// Loop: re-fetch and retry the insert against the (possibly new) bucket.
	}
}

// split performs one split step for the bucket at directory index idx,
// growing the directory first if local_depth would exceed global_depth.
func (h *HashTable) split(key []byte, idx int) error {
	h.tableLatch.Lock()
	defer h.tableLatch.Unlock()

	dirFrame, err := h.bp.FetchPage(h.dirPageID)
	if err != nil {
		return err
	}
	defer h.bp.UnpinPage(h.dirPageID, true)
	dir := DirectoryPage{Buf: dirFrame.Page.Buf}

	// idx may be stale if another goroutine already split; recompute.
	idx = h.directoryIndex(dir, key)
	bucketID := dir.BucketPageID(idx)
	localDepth := dir.LocalDepth(idx) + 1

	if localDepth <= uint8(dir.GlobalDepth()) {
		return h.splitNoGrow(dir, idx, bucketID, uint32(localDepth))
	}
	if !dir.IncrGlobalDepth() {
		return ErrDirectoryFull
	}
	idx = h.directoryIndex(dir, key)
	localDepth = dir.LocalDepth(idx) + 1
	return h.splitNoGrow(dir, idx, bucketID, uint32(localDepth))
}

// splitNoGrow allocates a buddy bucket, redistributes entries between
// old and new bucket by the new hash class, and repoints every
// directory slot that referenced the old bucket.
func (h *HashTable) splitNoGrow(dir DirectoryPage, idx int, oldBucketID record.PageID, newDepth uint32) error {
	oldFrame, err := h.bp.FetchPage(oldBucketID)
	if err != nil {
		return err
	}
	oldFrame.Latch.WLock()
	oldBucket := BucketPage{Buf: oldFrame.Page.Buf, KeySize: h.keySize}

	newFrame, newID, err := h.bp.NewPage()
	if err != nil {
		oldFrame.Latch.WUnlock()
		h.bp.UnpinPage(oldBucketID, false)
		return err
	}
	newFrame.Latch.WLock()
	newBucket := BucketPage{Buf: newFrame.Page.Buf, KeySize: h.keySize}
	newBucket.Reset()

	m := mask(newDepth)
	keyHashClass := uint32(idx) & m

	capacity := oldBucket.Capacity()
	moved := make([]int, 0, capacity)
	for i := 0; i < capacity; i++ {
		if !oldBucket.occupied(i) {
			break
		}
		if !oldBucket.readable(i) {
			continue
		}
		if h.hashFn(oldBucket.keyAt(i))&m == keyHashClass {
			moved = append(moved, i)
		}
	}
	for _, i := range moved {
		newBucket.Insert(oldBucket.keyAt(i), oldBucket.valueAt(i))
		oldBucket.setReadable(i, false)
	}

	newFrame.Latch.WUnlock()
	h.bp.UnpinPage(newID, true)
	oldFrame.Latch.WUnlock()
	h.bp.UnpinPage(oldBucketID, true)

	for i := 0; i < dir.Size(); i++ {
		if dir.BucketPageID(i) != oldBucketID {
			continue
		}
		if uint32(i)&m == keyHashClass {
			dir.setBucketPageID(i, newID)
		}
		dir.setLocalDepth(i, uint8(newDepth))
	}
	return nil
}

// Remove deletes (key, value); if the bucket becomes empty it attempts
// to merge with its buddy.
func (h *HashTable) Remove(key []byte, value record.RID) (bool, error) {
	h.tableLatch.RLock()
	dirFrame, err := h.bp.FetchPage(h.dirPageID)
	if err != nil {
		h.tableLatch.RUnlock()
		return false, err
	}
	dir := DirectoryPage{Buf: dirFrame.Page.Buf}
	idx := h.directoryIndex(dir, key)
	bucketID := dir.BucketPageID(idx)
	h.bp.UnpinPage(h.dirPageID, false)

	bucketFrame, err := h.bp.FetchPage(bucketID)
	if err != nil {
		h.tableLatch.RUnlock()
		return false, err
	}
	bucketFrame.Latch.WLock()
	bucket := BucketPage{Buf: bucketFrame.Page.Buf, KeySize: h.keySize}
	removed := bucket.Remove(key, value)
	empty := bucket.IsEmpty()
	bucketFrame.Latch.WUnlock()
	h.bp.UnpinPage(bucketID, removed)
	h.tableLatch.RUnlock()

	if removed && empty {
		h.merge(key)
	}
	return removed, nil
}

// merge repeatedly collapses an empty bucket into its buddy while legal
// (spec.md §4.4), then shrinks the directory while CanShrink holds.
func (h *HashTable) merge(key []byte) {
	for {
		h.tableLatch.Lock()
		dirFrame, err := h.bp.FetchPage(h.dirPageID)
		if err != nil {
			h.tableLatch.Unlock()
			return
		}
		dir := DirectoryPage{Buf: dirFrame.Page.Buf}
		idx := h.directoryIndex(dir, key)
		localDepth := dir.LocalDepth(idx)
		bucketID := dir.BucketPageID(idx)

		if localDepth == 0 {
			h.bp.UnpinPage(h.dirPageID, false)
			h.tableLatch.Unlock()
			return
		}

		bucketFrame, err := h.bp.FetchPage(bucketID)
		if err != nil {
			h.bp.UnpinPage(h.dirPageID, false)
			h.tableLatch.Unlock()
			return
		}
		bucketFrame.Latch.RLock()
		isEmpty := BucketPage{Buf: bucketFrame.Page.Buf, KeySize: h.keySize}.IsEmpty()
		bucketFrame.Latch.RUnlock()
		h.bp.UnpinPage(bucketID, false)

		if !isEmpty {
			h.bp.UnpinPage(h.dirPageID, false)
			h.tableLatch.Unlock()
			return
		}

		m := mask(uint32(localDepth))
		hashVal := uint32(idx) & m
		buddyHash := hashVal ^ (1 << (localDepth - 1))

		canMerge := true
		buddyID := record.InvalidPageID
		for i := 0; i < dir.Size(); i++ {
			if uint32(i)&m != buddyHash {
				continue
			}
			if dir.LocalDepth(i) != localDepth {
				canMerge = false
			} else {
				buddyID = dir.BucketPageID(i)
			}
		}

		if !canMerge || buddyID == record.InvalidPageID {
			h.bp.UnpinPage(h.dirPageID, false)
			h.tableLatch.Unlock()
			return
		}

		h.bp.DeletePage(bucketID)
		for i := 0; i < dir.Size(); i++ {
			if dir.BucketPageID(i) == bucketID || dir.BucketPageID(i) == buddyID {
				dir.setLocalDepth(i, dir.LocalDepth(i)-1)
			}
			if dir.BucketPageID(i) == bucketID {
				dir.setBucketPageID(i, buddyID)
			}
		}
		for dir.CanShrink() {
			dir.DecrGlobalDepth()
		}
		h.bp.UnpinPage(h.dirPageID, true)
		h.tableLatch.Unlock()
		// Loop: the buddy bucket may itself now be empty at a lower depth.
	}
}

// GlobalDepth reports the directory's current global depth (test/debug
// helper mirroring BusTub's "DO NOT TOUCH" GetGlobalDepth).
func (h *HashTable) GlobalDepth() uint32 {
	h.tableLatch.RLock()
	defer h.tableLatch.RUnlock()
	frame, err := h.bp.FetchPage(h.dirPageID)
	if err != nil {
		return 0
	}
	defer h.bp.UnpinPage(h.dirPageID, false)
	return DirectoryPage{Buf: frame.Page.Buf}.GlobalDepth()
}
