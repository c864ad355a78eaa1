package executor

import (
	"fmt"

	"github.com/coredb/coredb/internal/record"
)

// Operator is the Volcano pull contract shared by every executor: Init()
// resets iteration state, Next() yields one row at a time until
// exhausted (spec.md §4.6).
type Operator interface {
	Init() error
	Next() (record.Tuple, record.RID, bool, error)
}

// concatRows builds a combined row from two child rows, used by the join
// operators to assemble an output tuple without touching either side.
func concatRows(left, right record.Tuple) record.Tuple {
	out := make(record.Tuple, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

// concatSchemas builds the schema a join predicate evaluates against.
func concatSchemas(left, right record.Schema) record.Schema {
	out := record.Schema{Cols: make([]record.Column, 0, len(left.Cols)+len(right.Cols))}
	out.Cols = append(out.Cols, left.Cols...)
	out.Cols = append(out.Cols, right.Cols...)
	return out
}

// groupKey encodes a set of values into a map key, used by Aggregate,
// HashJoin and Distinct wherever the spec calls for a composite-key
// lookup. BusTub uses a hashable key type generated from the row codec;
// a formatted string of the Go values serves the same role here. Go-syntax
// formatting quotes strings, so adjacent values cannot run together.
func groupKey(values []any) string {
	return fmt.Sprintf("%#v", values)
}
