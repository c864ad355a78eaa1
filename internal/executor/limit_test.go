package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb/coredb/internal/lockmgr"
	"github.com/coredb/coredb/internal/record"
)

func TestLimit_ForwardsAtMostN(t *testing.T) {
	bp, cat, tm, lm := newHarness(t)
	schema := twoColSchema()
	table := createTestTable(t, bp, cat, "t", schema, []record.Tuple{
		{int32(1), "a"},
		{int32(2), "b"},
		{int32(3), "c"},
	})

	txn := tm.Begin(lockmgr.RepeatableRead)
	scan := NewSeqScan(table, txn, lm, nil)
	lim := &Limit{Child: scan, N: 2}
	require.NoError(t, lim.Init())

	count := 0
	for {
		_, _, ok, err := lim.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 2, count)
}
