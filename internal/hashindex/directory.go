// Package hashindex implements the extendible hash secondary index:
// a directory page of 2^global_depth slots, each pointing to a bucket
// page, plus the concurrent GetValue/Insert/Remove operations described
// by spec.md §4.4, grounded on BusTub's extendible_hash_table.cpp and
// hash_table_bucket_page.cpp (original_source/src/container/hash,
// original_source/src/storage/page).
package hashindex

import (
	"encoding/binary"

	"github.com/coredb/coredb/internal/record"
)

// MaxGlobalDepth caps the directory at 9 bits of global depth, i.e. 512
// slots (maxDirSlots), chosen so the directory always fits in one page:
// 4 (global depth) + 512*(1 local-depth byte + 4 page-id bytes) = 2564
// bytes, well under storage.PageSize.
const MaxGlobalDepth = 9
const maxDirSlots = 1 << MaxGlobalDepth

const (
	dirGlobalDepthOff = 0 // uint32
	dirLocalDepthsOff = 4 // maxDirSlots * 1 byte
	dirBucketIDsOff   = dirLocalDepthsOff + maxDirSlots
)

// DirectoryPage is a byte-layout view over one page's buffer:
// global_depth (uint32), local_depths ([maxDirSlots]uint8), and
// bucket_page_ids ([maxDirSlots]int32), matching spec.md §3's named
// directory fields.
type DirectoryPage struct {
	Buf []byte
}

func (d DirectoryPage) GlobalDepth() uint32 {
	return binary.LittleEndian.Uint32(d.Buf[dirGlobalDepthOff:])
}

func (d DirectoryPage) setGlobalDepth(v uint32) {
	binary.LittleEndian.PutUint32(d.Buf[dirGlobalDepthOff:], v)
}

func (d DirectoryPage) Size() int { return 1 << d.GlobalDepth() }

func (d DirectoryPage) LocalDepth(idx int) uint8 {
	return d.Buf[dirLocalDepthsOff+idx]
}

func (d DirectoryPage) setLocalDepth(idx int, ld uint8) {
	d.Buf[dirLocalDepthsOff+idx] = ld
}

func (d DirectoryPage) BucketPageID(idx int) record.PageID {
	off := dirBucketIDsOff + idx*4
	return record.PageID(int32(binary.LittleEndian.Uint32(d.Buf[off:])))
}

func (d DirectoryPage) setBucketPageID(idx int, id record.PageID) {
	off := dirBucketIDsOff + idx*4
	binary.LittleEndian.PutUint32(d.Buf[off:], uint32(int32(id)))
}

// InitDirectory resets a fresh directory page to global_depth 0 with a
// single slot pointing at firstBucket.
func InitDirectory(buf []byte, firstBucket record.PageID) DirectoryPage {
	d := DirectoryPage{Buf: buf}
	for i := range d.Buf {
		d.Buf[i] = 0
	}
	d.setGlobalDepth(0)
	d.setLocalDepth(0, 0)
	d.setBucketPageID(0, firstBucket)
	return d
}

// mask returns the low-`depth`-bits mask.
func mask(depth uint32) uint32 {
	if depth == 0 {
		return 0
	}
	return (1 << depth) - 1
}

// IncrGlobalDepth doubles the directory, mirroring the lower half's
// page-ids and local-depths into the upper half (spec.md §4.4 step 4).
// It reports false without changing anything if global depth is already
// at MaxGlobalDepth, since growing further would index past the
// maxDirSlots-sized arrays.
func (d DirectoryPage) IncrGlobalDepth() bool {
	oldDepth := d.GlobalDepth()
	if oldDepth >= MaxGlobalDepth {
		return false
	}
	base := 1 << oldDepth
	d.setGlobalDepth(oldDepth + 1)
	for i := base; i < 2*base; i++ {
		d.setBucketPageID(i, d.BucketPageID(i-base))
		d.setLocalDepth(i, d.LocalDepth(i-base))
	}
	return true
}

// DecrGlobalDepth halves the directory (CanShrink must already hold).
func (d DirectoryPage) DecrGlobalDepth() {
	gd := d.GlobalDepth()
	if gd == 0 {
		return
	}
	d.setGlobalDepth(gd - 1)
}

// CanShrink reports whether every slot's local depth is strictly less
// than the global depth, i.e. the directory can be halved.
func (d DirectoryPage) CanShrink() bool {
	gd := d.GlobalDepth()
	if gd == 0 {
		return false
	}
	for i := 0; i < d.Size(); i++ {
		if d.LocalDepth(i) == uint8(gd) {
			return false
		}
	}
	return true
}
