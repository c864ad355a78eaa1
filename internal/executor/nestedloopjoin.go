package executor

import "github.com/coredb/coredb/internal/record"

// NestedLoopJoin iterates every right row per left row, re-initializing
// the right child each time the left side advances (spec.md §4.6). An
// optional predicate is evaluated per candidate pair; nil means cross
// join.
type NestedLoopJoin struct {
	Left, Right             Operator
	LeftSchema, RightSchema record.Schema
	Predicate               Expr

	schema record.Schema

	leftRow   record.Tuple
	leftRID   record.RID
	leftValid bool
	started   bool
}

func (n *NestedLoopJoin) Init() error {
	n.schema = concatSchemas(n.LeftSchema, n.RightSchema)
	n.started = false
	if err := n.Left.Init(); err != nil {
		return err
	}
	return n.advanceLeft()
}

func (n *NestedLoopJoin) advanceLeft() error {
	row, rid, ok, err := n.Left.Next()
	if err != nil {
		return err
	}
	if !ok {
		n.leftValid = false
		return nil
	}
	n.leftRow, n.leftRID, n.leftValid = row, rid, true
	return n.Right.Init()
}

func (n *NestedLoopJoin) Next() (record.Tuple, record.RID, bool, error) {
	for n.leftValid {
		row, _, ok, err := n.Right.Next()
		if err != nil {
			return nil, record.RID{}, false, err
		}
		if !ok {
			if err := n.advanceLeft(); err != nil {
				return nil, record.RID{}, false, err
			}
			continue
		}

		joined := concatRows(n.leftRow, row)
		if n.Predicate != nil {
			matched, err := n.Predicate.Eval(n.schema, joined)
			if err != nil {
				return nil, record.RID{}, false, err
			}
			if mb, ok := matched.(bool); !ok || !mb {
				continue
			}
		}
		return joined, n.leftRID, true, nil
	}
	return nil, record.RID{}, false, nil
}
