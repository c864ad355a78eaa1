package executor

import (
	"fmt"

	"github.com/coredb/coredb/internal/catalog"
	"github.com/coredb/coredb/internal/lockmgr"
	"github.com/coredb/coredb/internal/record"
)

// Delete pulls rows from Child, tombstones them, and removes their index
// entries (spec.md §4.6: promotes SHARED to EXCLUSIVE or acquires
// EXCLUSIVE, calls MarkDelete, releases under READ_UNCOMMITTED only,
// appends a DELETE record to the transaction's index write-set).
type Delete struct {
	Table   *catalog.TableInfo
	Indexes []*catalog.IndexInfo
	Txn     *lockmgr.Transaction
	Locks   *lockmgr.LockManager
	Child   Operator
}

func (d *Delete) Init() error { return d.Child.Init() }

func (d *Delete) Next() (record.Tuple, record.RID, bool, error) {
	row, rid, ok, err := d.Child.Next()
	if err != nil {
		return nil, record.RID{}, false, err
	}
	if !ok {
		return nil, record.RID{}, false, nil
	}

	switch {
	case d.Txn.IsExclusive(rid):
		// already held
	case d.Txn.IsShared(rid):
		if err := d.Locks.LockUpgrade(d.Txn, rid); err != nil {
			return nil, record.RID{}, false, err
		}
	default:
		if err := d.Locks.LockExclusive(d.Txn, rid); err != nil {
			return nil, record.RID{}, false, err
		}
	}

	if err := d.Table.Heap.MarkDelete(rid); err != nil {
		return nil, record.RID{}, false, fmt.Errorf("executor: delete from %s: %w", d.Table.Name, err)
	}
	d.Txn.RecordWrite(d.Table.Name, rid, lockmgr.WriteDelete)

	for _, idx := range d.Indexes {
		key, err := KeyFromTuple(idx.KeyAttrs, idx.KeySchema, row)
		if err != nil {
			return nil, record.RID{}, false, fmt.Errorf("executor: index key for %s: %w", idx.Name, err)
		}
		if _, err := idx.Index.Remove(key, rid); err != nil {
			return nil, record.RID{}, false, fmt.Errorf("executor: index remove from %s: %w", idx.Name, err)
		}
		d.Txn.RecordIndexWrite(idx.Name, rid, lockmgr.WriteDelete)
	}

	if d.Txn.Isolation == lockmgr.ReadUncommitted {
		if err := d.Locks.Unlock(d.Txn, rid); err != nil {
			return nil, record.RID{}, false, err
		}
	}

	return row, rid, true, nil
}
