package executor

import (
	"fmt"

	"github.com/coredb/coredb/internal/catalog"
	"github.com/coredb/coredb/internal/lockmgr"
	"github.com/coredb/coredb/internal/record"
)

// UpdateKind distinguishes an overwrite from an accumulating update
// (spec.md §4.6 supplemented features: "per-column {Add, Set} update
// expression kinds").
type UpdateKind uint8

const (
	UpdateSet UpdateKind = iota
	UpdateAdd
)

// ColumnUpdate names one output column's new value.
type ColumnUpdate struct {
	Col   int
	Kind  UpdateKind
	Value Expr
}

// Update pulls rows from Child, applies ColumnUpdates to build the new
// tuple, rewrites it in place, and re-indexes by deleting then
// re-inserting the key image on every registered index (spec.md §4.6).
type Update struct {
	Table   *catalog.TableInfo
	Indexes []*catalog.IndexInfo
	Txn     *lockmgr.Transaction
	Locks   *lockmgr.LockManager
	Child   Operator
	Updates []ColumnUpdate
}

func (u *Update) Init() error { return u.Child.Init() }

func (u *Update) Next() (record.Tuple, record.RID, bool, error) {
	oldRow, rid, ok, err := u.Child.Next()
	if err != nil {
		return nil, record.RID{}, false, err
	}
	if !ok {
		return nil, record.RID{}, false, nil
	}

	switch {
	case u.Txn.IsExclusive(rid):
	case u.Txn.IsShared(rid):
		if err := u.Locks.LockUpgrade(u.Txn, rid); err != nil {
			return nil, record.RID{}, false, err
		}
	default:
		if err := u.Locks.LockExclusive(u.Txn, rid); err != nil {
			return nil, record.RID{}, false, err
		}
	}

	newRow := append(record.Tuple(nil), oldRow...)
	for _, cu := range u.Updates {
		v, err := cu.Value.Eval(u.Table.Schema, oldRow)
		if err != nil {
			return nil, record.RID{}, false, err
		}
		switch cu.Kind {
		case UpdateSet:
			newRow[cu.Col] = v
		case UpdateAdd:
			sum, err := addValues(newRow[cu.Col], v)
			if err != nil {
				return nil, record.RID{}, false, err
			}
			newRow[cu.Col] = sum
		}
	}

	if err := u.Table.Heap.UpdateTuple(rid, newRow); err != nil {
		return nil, record.RID{}, false, fmt.Errorf("executor: update %s: %w", u.Table.Name, err)
	}
	u.Txn.RecordWrite(u.Table.Name, rid, lockmgr.WriteUpdate)

	for _, idx := range u.Indexes {
		oldKey, err := KeyFromTuple(idx.KeyAttrs, idx.KeySchema, oldRow)
		if err != nil {
			return nil, record.RID{}, false, err
		}
		if _, err := idx.Index.Remove(oldKey, rid); err != nil {
			return nil, record.RID{}, false, fmt.Errorf("executor: index remove from %s: %w", idx.Name, err)
		}
		u.Txn.RecordIndexWrite(idx.Name, rid, lockmgr.WriteDelete)

		newKey, err := KeyFromTuple(idx.KeyAttrs, idx.KeySchema, newRow)
		if err != nil {
			return nil, record.RID{}, false, err
		}
		if _, err := idx.Index.Insert(newKey, rid); err != nil {
			return nil, record.RID{}, false, fmt.Errorf("executor: index insert into %s: %w", idx.Name, err)
		}
		u.Txn.RecordIndexWrite(idx.Name, rid, lockmgr.WriteInsert)
	}

	return newRow, rid, true, nil
}

func addValues(a, b any) (any, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, fmt.Errorf("executor: cannot add %T and %T", a, b)
	}
	switch a.(type) {
	case int32:
		return int32(af + bf), nil
	case int64:
		return int64(af + bf), nil
	default:
		return af + bf, nil
	}
}
