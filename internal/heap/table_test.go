package heap

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb/coredb/internal/bufferpool"
	"github.com/coredb/coredb/internal/hashindex"
	"github.com/coredb/coredb/internal/record"
	"github.com/coredb/coredb/internal/storage"
)

func newTestPool(t *testing.T) bufferpool.Manager {
	t.Helper()
	dir := t.TempDir()
	disk, err := storage.NewFileDiskManager(filepath.Join(dir, "heap.db"), 1, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Close() })
	return bufferpool.NewBufferPoolManager(16, disk)
}

// TestTableHeap_GrowsPastFirstPageWhileSharingPoolWithIndex mirrors
// cmd/coredemo's wiring: a heap and a hash index both allocate pages from
// the same buffer pool (hence the same disk manager's page-id sequence),
// so the heap's own pages are interleaved with, not contiguous after, the
// index's pages. A heap that assumed `firstPage + i` page ids would read
// and write the index's pages as if they were its own once it grew.
func TestTableHeap_GrowsPastFirstPageWhileSharingPoolWithIndex(t *testing.T) {
	bp := newTestPool(t)

	schema := record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt32},
		{Name: "payload", Type: record.ColText},
	}}

	h, err := NewTableHeap("people", schema, bp) // claims page 0
	require.NoError(t, err)

	idxTable, err := hashindex.NewHashTable(bp, 5) // null-bitmap byte + int32 key; claims pages 1 and 2
	require.NoError(t, err)
	key, err := record.EncodeRow(record.Schema{Cols: []record.Column{{Name: "id", Type: record.ColInt32}}}, record.Tuple{int32(99)})
	require.NoError(t, err)
	indexRID := record.RID{PageID: 123, Slot: 4}
	ok, err := idxTable.Insert(key, indexRID)
	require.NoError(t, err)
	require.True(t, ok)

	// Large payloads force the heap past its first page quickly; the new
	// page the heap allocates here will land on whatever id the shared
	// pool's disk manager hands out next (not firstPage+1, since the
	// index already claimed ids 1 and 2).
	payload := strings.Repeat("x", 512)
	const rowsPerPageApprox = storage.PageSize / (len(payload) + 32)
	const n = 4 * rowsPerPageApprox

	rids := make([]record.RID, 0, n)
	for i := int32(0); i < int32(n); i++ {
		rid, err := h.InsertTuple(record.Tuple{i, payload})
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.Greater(t, h.PageCount(), uint32(1), "large payloads must force the heap to grow past its first page")

	// Every row the heap inserted must read back as itself, not as bytes
	// belonging to the index's bucket/directory pages.
	for i, rid := range rids {
		row, err := h.GetTuple(rid)
		require.NoError(t, err)
		require.Equal(t, int32(i), row[0])
		require.Equal(t, payload, row[1])
	}

	// A full scan must see exactly the rows the heap inserted, in some
	// order, each intact.
	seen := make(map[int32]bool, n)
	it := h.Begin()
	for !it.End() {
		row, _, ok := it.Next()
		require.True(t, ok)
		id := row[0].(int32)
		require.False(t, seen[id], "row %d scanned twice", id)
		seen[id] = true
		require.Equal(t, payload, row[1])
	}
	require.Len(t, seen, n)

	// The index's own pages must still read back untouched: the heap's
	// growth must not have overwritten them.
	got, err := idxTable.GetValue(key)
	require.NoError(t, err)
	require.Equal(t, []record.RID{indexRID}, got)
}

func TestTableHeap_OpenTableHeapReattachesToExplicitPageList(t *testing.T) {
	bp := newTestPool(t)
	schema := record.Schema{Cols: []record.Column{{Name: "id", Type: record.ColInt32}}}

	h, err := NewTableHeap("t", schema, bp)
	require.NoError(t, err)
	_, err = h.InsertTuple(record.Tuple{int32(1)})
	require.NoError(t, err)

	reopened := OpenTableHeap("t", schema, bp, h.Pages())
	require.Equal(t, h.PageCount(), reopened.PageCount())

	it := reopened.Begin()
	row, _, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, int32(1), row[0])
}
