package executor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb/coredb/internal/bufferpool"
	"github.com/coredb/coredb/internal/catalog"
	"github.com/coredb/coredb/internal/heap"
	"github.com/coredb/coredb/internal/lockmgr"
	"github.com/coredb/coredb/internal/record"
	"github.com/coredb/coredb/internal/storage"
)

func newHarness(t *testing.T) (*bufferpool.BufferPoolManager, *catalog.SimpleCatalog, *lockmgr.TransactionManager, *lockmgr.LockManager) {
	t.Helper()
	dir := t.TempDir()
	disk, err := storage.NewFileDiskManager(filepath.Join(dir, "exec.db"), 1, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Close() })
	bp := bufferpool.NewBufferPoolManager(32, disk)
	cat := catalog.NewSimpleCatalog()
	tm := lockmgr.NewTransactionManager()
	lm := lockmgr.NewLockManager(tm)
	return bp, cat, tm, lm
}

func twoColSchema() record.Schema {
	return record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt32},
		{Name: "val", Type: record.ColText},
	}}
}

func createTestTable(t *testing.T, bp bufferpool.Manager, cat *catalog.SimpleCatalog, name string, schema record.Schema, rows []record.Tuple) *catalog.TableInfo {
	t.Helper()
	h, err := heap.NewTableHeap(name, schema, bp)
	require.NoError(t, err)
	info, err := cat.CreateTable(name, schema, h)
	require.NoError(t, err)
	for _, r := range rows {
		_, err := h.InsertTuple(r)
		require.NoError(t, err)
	}
	return info
}
