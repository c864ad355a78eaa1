// Command coredemo wires the buffer pool, catalog, lock manager, and
// execution operators together and runs a fixed set of operations
// against them. It is not a SQL shell: every plan below is built from Go
// code, matching the "CLI shell is out of scope" boundary.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/coredb/coredb/internal/bufferpool"
	"github.com/coredb/coredb/internal/catalog"
	"github.com/coredb/coredb/internal/config"
	"github.com/coredb/coredb/internal/executor"
	"github.com/coredb/coredb/internal/hashindex"
	"github.com/coredb/coredb/internal/heap"
	"github.com/coredb/coredb/internal/lockmgr"
	"github.com/coredb/coredb/internal/record"
	"github.com/coredb/coredb/internal/storage"
)

func main() {
	var cfgPath, workdir string
	flag.StringVar(&cfgPath, "config", "coredb.yaml", "path to coredb yaml config")
	flag.StringVar(&workdir, "workdir", "./data", "directory holding the page file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(workdir, 0o755); err != nil {
		logger.Error("create workdir", "err", err)
		os.Exit(1)
	}

	disk, err := storage.NewFileDiskManager(filepath.Join(workdir, cfg.Storage.PageFile), cfg.BufferPool.NumInstances, 0)
	if err != nil {
		logger.Error("open page file", "err", err)
		os.Exit(1)
	}
	defer disk.Close()

	bp := bufferpool.NewBufferPoolManager(cfg.BufferPool.PoolSize, disk)
	cat := catalog.NewSimpleCatalog()
	txnMgr := lockmgr.NewTransactionManager()
	locks := lockmgr.NewLockManager(txnMgr)

	if err := run(logger, cfg, bp, cat, txnMgr, locks); err != nil {
		logger.Error("demo run", "err", err)
		os.Exit(1)
	}
}

func run(
	logger *slog.Logger,
	cfg *config.Config,
	bp bufferpool.Manager,
	cat *catalog.SimpleCatalog,
	txnMgr *lockmgr.TransactionManager,
	locks *lockmgr.LockManager,
) error {
	schema := record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt32},
		{Name: "name", Type: record.ColText},
	}}

	h, err := heap.NewTableHeap("people", schema, bp)
	if err != nil {
		return fmt.Errorf("create table heap: %w", err)
	}
	table, err := cat.CreateTable("people", schema, h)
	if err != nil {
		return fmt.Errorf("register table: %w", err)
	}

	idxTable, err := hashindex.NewHashTable(bp, 5) // null-bitmap byte + int32
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	keySchema := record.Schema{Cols: []record.Column{{Name: "id", Type: record.ColInt32}}}
	idx := cat.CreateIndex("people_id_idx", "people", keySchema, []int{0}, idxTable)

	txn := txnMgr.Begin(cfg.IsolationLevel())
	logger.Info("transaction started", "txn_id", txn.ID, "isolation", cfg.LockManager.DefaultIsolation)

	ins := &executor.Insert{
		Table:   table,
		Indexes: []*catalog.IndexInfo{idx},
		Txn:     txn,
		RawValues: []record.Tuple{
			{int32(1), "ada"},
			{int32(2), "grace"},
			{int32(3), "margaret"},
		},
	}
	if err := drive(ins, func(row record.Tuple, rid record.RID) {
		logger.Info("inserted", "rid", rid.String(), "row", row)
	}); err != nil {
		return err
	}

	pred := executor.BinaryExpr{
		Op:    executor.OpGt,
		Left:  executor.ColumnRef{Index: 0},
		Right: executor.Literal{Value: int32(1)},
	}
	scan := executor.NewSeqScan(table, txn, locks, pred)
	if err := drive(scan, func(row record.Tuple, rid record.RID) {
		logger.Info("scanned", "rid", rid.String(), "row", row)
	}); err != nil {
		return err
	}

	txnMgr.Commit(txn)
	logger.Info("transaction committed", "txn_id", txn.ID)
	return nil
}

func drive(op executor.Operator, onRow func(record.Tuple, record.RID)) error {
	if err := op.Init(); err != nil {
		return err
	}
	for {
		row, rid, ok, err := op.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		onRow(row, rid)
	}
}
