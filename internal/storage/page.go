package storage

import (
	"github.com/coredb/coredb/internal/alias/bx"
	"github.com/coredb/coredb/internal/record"
)

// Page header layout, all little-endian:
//
//	[0:4)   page_id  int32
//	[4:6)   lower    uint16  -- offset just past the slot array
//	[6:8)   upper    uint16  -- start of free space / top of tuple area
//	[8:12)  reserved uint32
const (
	HeaderSize = 12
	SlotSize   = 6 // offset uint16, length uint16, flags uint16

	slotDead = uint16(1)
)

// Page is a fixed PageSize byte block laid out as a slotted page: a
// header, a slot array growing downward from the header, and tuple bytes
// growing upward from the end of the page. This is the unit the buffer
// pool manager pins and the table heap stores rows in. The hash index's
// directory/bucket pages use the same PageSize buffers but zero them and
// lay them out with their own codecs, not this slotted layout.
//
//	+------------------+ 0
//	| header           |
//	| slot array       | <-- lower
//	+------------------+
//	|   free space     |
//	+------------------+ <-- upper
//	|  tuple data      |
//	|  (grows down)    |
//	+------------------+ PageSize
type Page struct {
	Buf []byte
}

// NewPage wraps buf (which must be exactly PageSize bytes) as a fresh,
// empty page for pageID.
func NewPage(buf []byte, pageID record.PageID) Page {
	p := Page{Buf: buf}
	p.Reset(pageID)
	return p
}

// Reset zeroes the page and reinitializes its header for pageID. Used
// both by NewPage and by the buffer pool when it recycles a frame.
func (p Page) Reset(pageID record.PageID) {
	for i := range p.Buf {
		p.Buf[i] = 0
	}
	bx.PutU32(p.Buf[0:4], uint32(pageID))
	bx.PutU16(p.Buf[4:6], HeaderSize)
	bx.PutU16(p.Buf[6:8], uint16(PageSize))
}

func (p Page) PageID() record.PageID {
	return record.PageID(bx.U32(p.Buf[0:4]))
}

func (p Page) lower() int     { return int(bx.U16(p.Buf[4:6])) }
func (p Page) setLower(v int) { bx.PutU16(p.Buf[4:6], uint16(v)) }
func (p Page) upper() int     { return int(bx.U16(p.Buf[6:8])) }
func (p Page) setUpper(v int) { bx.PutU16(p.Buf[6:8], uint16(v)) }

// NumSlots returns the number of slot entries ever allocated, live or
// dead; callers scanning a page should skip dead slots.
func (p Page) NumSlots() int {
	return (p.lower() - HeaderSize) / SlotSize
}

func (p Page) slotOffset(i int) int { return HeaderSize + i*SlotSize }

func (p Page) getSlot(i int) (offset, length int, flags uint16) {
	o := p.slotOffset(i)
	return int(bx.U16(p.Buf[o : o+2])),
		int(bx.U16(p.Buf[o+2 : o+4])),
		bx.U16(p.Buf[o+4 : o+6])
}

func (p Page) putSlot(i, offset, length int, flags uint16) {
	o := p.slotOffset(i)
	bx.PutU16(p.Buf[o:o+2], uint16(offset))
	bx.PutU16(p.Buf[o+2:o+4], uint16(length))
	bx.PutU16(p.Buf[o+4:o+6], flags)
}

// FreeSpace returns the number of bytes available for a new tuple and its
// slot entry.
func (p Page) FreeSpace() int {
	return p.upper() - p.lower()
}

// InsertTuple appends tup's bytes to the free area and allocates a new
// slot pointing at it. Returns ErrNoSpace if the page cannot fit it.
func (p Page) InsertTuple(tup []byte) (slot int, err error) {
	need := len(tup) + SlotSize
	if p.FreeSpace() < need {
		return 0, ErrNoSpace
	}
	newUpper := p.upper() - len(tup)
	copy(p.Buf[newUpper:], tup)
	p.setUpper(newUpper)

	i := p.NumSlots()
	p.putSlot(i, newUpper, len(tup), 0)
	p.setLower(p.lower() + SlotSize)
	return i, nil
}

// ReadTuple returns the raw bytes stored at slot, or ErrBadSlot if the
// slot is out of range or has been deleted.
func (p Page) ReadTuple(slot int) ([]byte, error) {
	if slot < 0 || slot >= p.NumSlots() {
		return nil, ErrBadSlot
	}
	offset, length, flags := p.getSlot(slot)
	if flags&slotDead != 0 {
		return nil, ErrBadSlot
	}
	return p.Buf[offset : offset+length], nil
}

// UpdateTuple overwrites the bytes at slot. If newTuple fits in the
// existing reserved space it is written in place; otherwise it is
// appended to the free area and the slot entry is repointed (the old
// bytes are abandoned, matching the teacher's no-compaction policy).
func (p Page) UpdateTuple(slot int, newTuple []byte) error {
	if slot < 0 || slot >= p.NumSlots() {
		return ErrBadSlot
	}
	offset, length, flags := p.getSlot(slot)
	if flags&slotDead != 0 {
		return ErrBadSlot
	}
	if len(newTuple) <= length {
		copy(p.Buf[offset:], newTuple)
		p.putSlot(slot, offset, len(newTuple), 0)
		return nil
	}
	if p.FreeSpace() < len(newTuple) {
		return ErrNoSpace
	}
	newUpper := p.upper() - len(newTuple)
	copy(p.Buf[newUpper:], newTuple)
	p.setUpper(newUpper)
	p.putSlot(slot, newUpper, len(newTuple), 0)
	return nil
}

// DeleteTuple marks slot as dead; its bytes remain until the page is
// reclaimed (no compaction).
func (p Page) DeleteTuple(slot int) error {
	if slot < 0 || slot >= p.NumSlots() {
		return ErrBadSlot
	}
	offset, length, flags := p.getSlot(slot)
	if flags&slotDead != 0 {
		return ErrBadSlot
	}
	p.putSlot(slot, offset, length, flags|slotDead)
	return nil
}

// IsDeleted reports whether slot has been tombstoned.
func (p Page) IsDeleted(slot int) bool {
	if slot < 0 || slot >= p.NumSlots() {
		return true
	}
	_, _, flags := p.getSlot(slot)
	return flags&slotDead != 0
}
