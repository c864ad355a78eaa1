package executor

import (
	"fmt"

	"github.com/coredb/coredb/internal/catalog"
	"github.com/coredb/coredb/internal/lockmgr"
	"github.com/coredb/coredb/internal/record"
)

// Insert writes rows into a table, either from literal RawValues or from
// a child subplan (spec.md §4.6: "two sources — inline literal rows ...
// or a child subplan"), maintaining every index registered against the
// table.
type Insert struct {
	Table     *catalog.TableInfo
	Indexes   []*catalog.IndexInfo
	Txn       *lockmgr.Transaction
	RawValues []record.Tuple // nil when Child is set
	Child     Operator       // nil when RawValues is set

	pos  int
	done bool
}

func (in *Insert) Init() error {
	in.pos = 0
	in.done = false
	if in.Child != nil {
		return in.Child.Init()
	}
	return nil
}

func (in *Insert) Next() (record.Tuple, record.RID, bool, error) {
	if in.done {
		return nil, record.RID{}, false, nil
	}

	var row record.Tuple
	if in.Child != nil {
		r, _, ok, err := in.Child.Next()
		if err != nil {
			return nil, record.RID{}, false, err
		}
		if !ok {
			in.done = true
			return nil, record.RID{}, false, nil
		}
		row = r
	} else {
		if in.pos >= len(in.RawValues) {
			in.done = true
			return nil, record.RID{}, false, nil
		}
		row = in.RawValues[in.pos]
		in.pos++
	}

	rid, err := in.Table.Heap.InsertTuple(row)
	if err != nil {
		return nil, record.RID{}, false, fmt.Errorf("executor: insert into %s: %w", in.Table.Name, err)
	}
	in.Txn.RecordWrite(in.Table.Name, rid, lockmgr.WriteInsert)

	for _, idx := range in.Indexes {
		key, err := KeyFromTuple(idx.KeyAttrs, idx.KeySchema, row)
		if err != nil {
			return nil, record.RID{}, false, fmt.Errorf("executor: index key for %s: %w", idx.Name, err)
		}
		if _, err := idx.Index.Insert(key, rid); err != nil {
			return nil, record.RID{}, false, fmt.Errorf("executor: index insert into %s: %w", idx.Name, err)
		}
		in.Txn.RecordIndexWrite(idx.Name, rid, lockmgr.WriteInsert)
	}

	return row, rid, true, nil
}
