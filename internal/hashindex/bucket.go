package hashindex

import (
	"bytes"

	"github.com/coredb/coredb/internal/record"
	"github.com/coredb/coredb/internal/storage"
)

const ridSize = 6 // record.RID encoded: int32 page id + uint16 slot

// BucketPage is a byte-layout view over one bucket page's buffer. Each
// slot is laid out contiguously as [occupied byte][readable byte][key
// bytes][value bytes] rather than BusTub's separate parallel bitmap
// arrays — functionally identical (occupied/readable per slot, spec.md
// §3) but simpler to index from Go without bit-packing.
type BucketPage struct {
	Buf     []byte
	KeySize int
}

func (b BucketPage) slotSize() int { return 2 + b.KeySize + ridSize }

// Capacity returns BUCKET_ARRAY_SIZE for this key size.
func (b BucketPage) Capacity() int {
	return storage.PageSize / b.slotSize()
}

func (b BucketPage) slotOff(i int) int { return i * b.slotSize() }

func (b BucketPage) occupied(i int) bool { return b.Buf[b.slotOff(i)] == 1 }
func (b BucketPage) readable(i int) bool { return b.Buf[b.slotOff(i)+1] == 1 }

func (b BucketPage) setOccupied(i int, v bool) {
	if v {
		b.Buf[b.slotOff(i)] = 1
	} else {
		b.Buf[b.slotOff(i)] = 0
	}
}

func (b BucketPage) setReadable(i int, v bool) {
	if v {
		b.Buf[b.slotOff(i)+1] = 1
	} else {
		b.Buf[b.slotOff(i)+1] = 0
	}
}

func (b BucketPage) keyAt(i int) []byte {
	off := b.slotOff(i) + 2
	return b.Buf[off : off+b.KeySize]
}

func (b BucketPage) valueAt(i int) record.RID {
	off := b.slotOff(i) + 2 + b.KeySize
	return record.RID{
		PageID: record.PageID(int32(uint32(b.Buf[off])<<24 | uint32(b.Buf[off+1])<<16 | uint32(b.Buf[off+2])<<8 | uint32(b.Buf[off+3]))),
		Slot:   uint16(b.Buf[off+4])<<8 | uint16(b.Buf[off+5]),
	}
}

func (b BucketPage) setSlot(i int, key []byte, value record.RID) {
	off := b.slotOff(i) + 2
	copy(b.Buf[off:off+b.KeySize], key)
	voff := off + b.KeySize
	pid := uint32(int32(value.PageID))
	b.Buf[voff] = byte(pid >> 24)
	b.Buf[voff+1] = byte(pid >> 16)
	b.Buf[voff+2] = byte(pid >> 8)
	b.Buf[voff+3] = byte(pid)
	b.Buf[voff+4] = byte(value.Slot >> 8)
	b.Buf[voff+5] = byte(value.Slot)
	b.setOccupied(i, true)
	b.setReadable(i, true)
}

// NumReadable returns the count of currently-live entries.
func (b BucketPage) NumReadable() int {
	n := 0
	for i := 0; i < b.Capacity(); i++ {
		if b.readable(i) {
			n++
		}
	}
	return n
}

// IsFull reports whether every slot currently holds a live entry. Mirrors
// the grounding source's readable-based IsFull: occupied alone would stay
// true forever once a slot has ever been used, even after the entry there
// is deleted or migrated away by a split, which would force needless
// re-splits on a bucket that actually has room.
func (b BucketPage) IsFull() bool {
	for i := 0; i < b.Capacity(); i++ {
		if !b.readable(i) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether no slot is currently readable.
func (b BucketPage) IsEmpty() bool {
	for i := 0; i < b.Capacity(); i++ {
		if b.readable(i) {
			return false
		}
	}
	return true
}

// GetValue appends every value stored under key to result, stopping the
// scan at the first never-occupied slot (spec.md §4.4).
func (b BucketPage) GetValue(key []byte, result *[]record.RID) {
	for i := 0; i < b.Capacity(); i++ {
		if !b.occupied(i) {
			break
		}
		if b.readable(i) && bytes.Equal(b.keyAt(i), key) {
			*result = append(*result, b.valueAt(i))
		}
	}
}

// Insert appends a (key, value) pair into the first available slot. A
// "available" slot is one that is not readable: either never occupied,
// or occupied-but-deleted (tombstoned, reused to cap file growth).
func (b BucketPage) Insert(key []byte, value record.RID) bool {
	for i := 0; i < b.Capacity(); i++ {
		if b.occupied(i) && b.readable(i) && bytes.Equal(b.keyAt(i), key) && b.valueAt(i) == value {
			return false // duplicate (key, value) pair
		}
	}
	for i := 0; i < b.Capacity(); i++ {
		if !b.readable(i) {
			b.setSlot(i, key, value)
			return true
		}
	}
	return false
}

// Remove marks the first matching (key, value) pair unreadable.
func (b BucketPage) Remove(key []byte, value record.RID) bool {
	for i := 0; i < b.Capacity(); i++ {
		if !b.occupied(i) {
			break
		}
		if b.readable(i) && bytes.Equal(b.keyAt(i), key) && b.valueAt(i) == value {
			b.setReadable(i, false)
			return true
		}
	}
	return false
}

// Reset zeroes a fresh bucket page.
func (b BucketPage) Reset() {
	for i := range b.Buf {
		b.Buf[i] = 0
	}
}
