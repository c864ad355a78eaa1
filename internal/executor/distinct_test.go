package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb/coredb/internal/lockmgr"
	"github.com/coredb/coredb/internal/record"
)

func TestDistinct_SuppressesDuplicateRows(t *testing.T) {
	bp, cat, tm, lm := newHarness(t)
	schema := twoColSchema()
	table := createTestTable(t, bp, cat, "t", schema, []record.Tuple{
		{int32(1), "a"},
		{int32(1), "a"},
		{int32(2), "b"},
	})

	txn := tm.Begin(lockmgr.RepeatableRead)
	scan := NewSeqScan(table, txn, lm, nil)
	dist := &Distinct{Child: scan}
	require.NoError(t, dist.Init())

	var got []record.Tuple
	for {
		row, _, ok, err := dist.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, row)
	}
	require.Len(t, got, 2)
}
