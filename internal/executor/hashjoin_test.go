package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb/coredb/internal/lockmgr"
	"github.com/coredb/coredb/internal/record"
)

// Scenario 6 (spec.md §8): left = {(1,a),(1,b),(2,c)}, right = {(1,x),(3,y)};
// joining on column 0 yields {(1,a,x),(1,b,x)} in the left bucket's
// insertion order.
func TestHashJoin_LiteralScenario(t *testing.T) {
	bp, cat, tm, lm := newHarness(t)
	leftSchema := twoColSchema()
	rightSchema := twoColSchema()

	left := createTestTable(t, bp, cat, "left", leftSchema, []record.Tuple{
		{int32(1), "a"},
		{int32(1), "b"},
		{int32(2), "c"},
	})
	right := createTestTable(t, bp, cat, "right", rightSchema, []record.Tuple{
		{int32(1), "x"},
		{int32(3), "y"},
	})

	txn := tm.Begin(lockmgr.RepeatableRead)
	leftScan := NewSeqScan(left, txn, lm, nil)
	rightScan := NewSeqScan(right, txn, lm, nil)

	join := &HashJoin{
		Left: leftScan, Right: rightScan,
		LeftSchema: leftSchema, RightSchema: rightSchema,
		LeftKey:  ColumnRef{Index: 0},
		RightKey: ColumnRef{Index: 0},
	}
	require.NoError(t, join.Init())

	var got []record.Tuple
	for {
		row, _, ok, err := join.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, row)
	}

	require.Equal(t, []record.Tuple{
		{int32(1), "a", int32(1), "x"},
		{int32(1), "b", int32(1), "x"},
	}, got)
}
