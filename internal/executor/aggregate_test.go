package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredb/coredb/internal/lockmgr"
	"github.com/coredb/coredb/internal/record"
)

func TestAggregate_CountSumByGroup(t *testing.T) {
	bp, cat, tm, lm := newHarness(t)
	schema := record.Schema{Cols: []record.Column{
		{Name: "dept", Type: record.ColText},
		{Name: "amount", Type: record.ColInt32},
	}}
	table := createTestTable(t, bp, cat, "t", schema, []record.Tuple{
		{"eng", int32(10)},
		{"eng", int32(20)},
		{"sales", int32(5)},
	})

	txn := tm.Begin(lockmgr.RepeatableRead)
	scan := NewSeqScan(table, txn, lm, nil)

	outSchema := record.Schema{Cols: []record.Column{
		{Name: "dept", Type: record.ColText},
		{Name: "count", Type: record.ColInt64},
		{Name: "sum", Type: record.ColFloat64},
	}}

	agg := &Aggregate{
		Child:       scan,
		ChildSchema: schema,
		GroupBy:     []Expr{ColumnRef{Index: 0}},
		Aggregates: []AggregateExpr{
			{Func: AggCount, Child: ColumnRef{Index: 1}},
			{Func: AggSum, Child: ColumnRef{Index: 1}},
		},
		OutputSchema: outSchema,
	}
	require.NoError(t, agg.Init())

	results := map[string]record.Tuple{}
	for {
		row, _, ok, err := agg.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		results[row[0].(string)] = row
	}

	require.Equal(t, int64(2), results["eng"][1])
	require.Equal(t, 30.0, results["eng"][2])
	require.Equal(t, int64(1), results["sales"][1])
	require.Equal(t, 5.0, results["sales"][2])
}

func TestAggregate_HavingFiltersGroups(t *testing.T) {
	bp, cat, tm, lm := newHarness(t)
	schema := record.Schema{Cols: []record.Column{
		{Name: "dept", Type: record.ColText},
		{Name: "amount", Type: record.ColInt32},
	}}
	table := createTestTable(t, bp, cat, "t", schema, []record.Tuple{
		{"eng", int32(10)},
		{"eng", int32(20)},
		{"sales", int32(5)},
	})

	txn := tm.Begin(lockmgr.RepeatableRead)
	scan := NewSeqScan(table, txn, lm, nil)
	outSchema := record.Schema{Cols: []record.Column{
		{Name: "dept", Type: record.ColText},
		{Name: "sum", Type: record.ColFloat64},
	}}

	agg := &Aggregate{
		Child:        scan,
		ChildSchema:  schema,
		GroupBy:      []Expr{ColumnRef{Index: 0}},
		Aggregates:   []AggregateExpr{{Func: AggSum, Child: ColumnRef{Index: 1}}},
		Having:       BinaryExpr{Op: OpGt, Left: ColumnRef{Index: 1}, Right: Literal{Value: 10.0}},
		OutputSchema: outSchema,
	}
	require.NoError(t, agg.Init())

	var depts []string
	for {
		row, _, ok, err := agg.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		depts = append(depts, row[0].(string))
	}
	require.Equal(t, []string{"eng"}, depts)
}
