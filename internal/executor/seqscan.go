package executor

import (
	"github.com/coredb/coredb/internal/catalog"
	"github.com/coredb/coredb/internal/heap"
	"github.com/coredb/coredb/internal/lockmgr"
	"github.com/coredb/coredb/internal/record"
)

// SeqScan walks a table heap end to end, evaluating an optional
// predicate and taking row locks per spec.md §4.6: under READ_COMMITTED
// or REPEATABLE_READ it acquires a SHARED lock on a matching row (unless
// already held exclusively), then under READ_COMMITTED releases it
// immediately, before the row is returned to the caller.
type SeqScan struct {
	Table     *catalog.TableInfo
	Txn       *lockmgr.Transaction
	Locks     *lockmgr.LockManager
	Predicate Expr // nil matches every row

	it *heap.Iterator
}

func NewSeqScan(table *catalog.TableInfo, txn *lockmgr.Transaction, locks *lockmgr.LockManager, predicate Expr) *SeqScan {
	return &SeqScan{Table: table, Txn: txn, Locks: locks, Predicate: predicate}
}

func (s *SeqScan) Init() error {
	s.it = s.Table.Heap.Begin()
	return nil
}

func (s *SeqScan) Next() (record.Tuple, record.RID, bool, error) {
	for {
		row, rid, ok := s.it.Next()
		if !ok {
			return nil, record.RID{}, false, nil
		}

		if s.Predicate != nil {
			matched, err := s.Predicate.Eval(s.Table.Schema, row)
			if err != nil {
				return nil, record.RID{}, false, err
			}
			if mb, ok := matched.(bool); !ok || !mb {
				continue
			}
		}

		if s.Txn.Isolation != lockmgr.ReadUncommitted && !s.Txn.IsExclusive(rid) {
			if err := s.Locks.LockShared(s.Txn, rid); err != nil {
				return nil, record.RID{}, false, err
			}
			if s.Txn.Isolation == lockmgr.ReadCommitted {
				if err := s.Locks.Unlock(s.Txn, rid); err != nil {
					return nil, record.RID{}, false, err
				}
			}
		}

		return row, rid, true, nil
	}
}
