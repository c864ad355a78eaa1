package executor

import "github.com/coredb/coredb/internal/record"

type leftEntry struct {
	row record.Tuple
	rid record.RID
}

// HashJoin builds a hash table over the left child at Init, then probes
// it once per right row at Next, emitting every joined pair in the left
// bucket's insertion order before advancing the right child again
// (spec.md §4.6, literal scenario 6).
type HashJoin struct {
	Left, Right             Operator
	LeftSchema, RightSchema record.Schema
	LeftKey, RightKey       Expr

	buckets map[string][]leftEntry

	bucket   []leftEntry
	bpos     int
	rightRow record.Tuple
}

func (h *HashJoin) Init() error {
	if err := h.Left.Init(); err != nil {
		return err
	}

	h.buckets = make(map[string][]leftEntry)
	for {
		row, rid, ok, err := h.Left.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		k, err := h.LeftKey.Eval(h.LeftSchema, row)
		if err != nil {
			return err
		}
		key := groupKey([]any{k})
		h.buckets[key] = append(h.buckets[key], leftEntry{row: row, rid: rid})
	}

	h.bucket = nil
	h.bpos = 0
	return h.Right.Init()
}

func (h *HashJoin) Next() (record.Tuple, record.RID, bool, error) {
	for {
		if h.bpos < len(h.bucket) {
			entry := h.bucket[h.bpos]
			h.bpos++
			return concatRows(entry.row, h.rightRow), entry.rid, true, nil
		}

		row, _, ok, err := h.Right.Next()
		if err != nil {
			return nil, record.RID{}, false, err
		}
		if !ok {
			return nil, record.RID{}, false, nil
		}

		k, err := h.RightKey.Eval(h.RightSchema, row)
		if err != nil {
			return nil, record.RID{}, false, err
		}
		h.rightRow = row
		h.bucket = h.buckets[groupKey([]any{k})]
		h.bpos = 0
	}
}
