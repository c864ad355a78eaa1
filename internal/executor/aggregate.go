package executor

import (
	"fmt"

	"github.com/coredb/coredb/internal/record"
)

// AggFunc enumerates the supported aggregate functions (spec.md §4.6
// supplemented features, per BusTub's aggregation_executor.cpp).
type AggFunc uint8

const (
	AggCount AggFunc = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

// AggregateExpr names one output aggregate: the function and the child
// column it reduces over. Child is nil for COUNT(*).
type AggregateExpr struct {
	Func  AggFunc
	Child Expr
}

type aggState struct {
	count int64
	sum   float64
	min   any
	max   any
}

// Aggregate performs hash aggregation over Child's stream at Init, then
// yields one row per group at Next, applying an optional HAVING filter
// (spec.md §4.6). Grouping uses a Go map keyed by the group-by values'
// formatted string, standing in for BusTub's hashable custom key type.
type Aggregate struct {
	Child       Operator
	ChildSchema record.Schema
	GroupBy     []Expr
	Aggregates  []AggregateExpr
	Having      Expr
	// OutputSchema is (group-by columns ++ aggregate columns), used only
	// to evaluate Having against the assembled row.
	OutputSchema record.Schema

	groups map[string][]any // key -> group-by values
	order  []string
	states map[string][]*aggState
	pos    int
}

func (a *Aggregate) Init() error {
	if err := a.Child.Init(); err != nil {
		return err
	}

	a.groups = make(map[string][]any)
	a.states = make(map[string][]*aggState)
	a.order = nil
	a.pos = 0

	for {
		row, _, ok, err := a.Child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		groupVals := make([]any, len(a.GroupBy))
		for i, g := range a.GroupBy {
			v, err := g.Eval(a.ChildSchema, row)
			if err != nil {
				return err
			}
			groupVals[i] = v
		}
		key := groupKey(groupVals)

		states, seen := a.states[key]
		if !seen {
			states = make([]*aggState, len(a.Aggregates))
			for i := range states {
				states[i] = &aggState{}
			}
			a.states[key] = states
			a.groups[key] = groupVals
			a.order = append(a.order, key)
		}

		for i, agg := range a.Aggregates {
			if err := accumulate(states[i], agg, a.ChildSchema, row); err != nil {
				return err
			}
		}
	}

	return nil
}

func accumulate(st *aggState, agg AggregateExpr, schema record.Schema, row record.Tuple) error {
	if agg.Func == AggCount && agg.Child == nil {
		st.count++
		return nil
	}

	v, err := agg.Child.Eval(schema, row)
	if err != nil {
		return err
	}
	if v == nil {
		return nil // NULLs don't participate
	}

	st.count++
	f, ok := asFloat(v)

	switch agg.Func {
	case AggCount:
		// count of non-null values; already incremented above
	case AggSum, AggAvg:
		if !ok {
			return fmt.Errorf("executor: aggregate over non-numeric value %T", v)
		}
		st.sum += f
	case AggMin:
		if st.min == nil {
			st.min = v
		} else if less, err := compare(OpLt, v, st.min); err == nil && less {
			st.min = v
		}
	case AggMax:
		if st.max == nil {
			st.max = v
		} else if greater, err := compare(OpGt, v, st.max); err == nil && greater {
			st.max = v
		}
	}
	return nil
}

func (a *Aggregate) Next() (record.Tuple, record.RID, bool, error) {
	for a.pos < len(a.order) {
		key := a.order[a.pos]
		a.pos++

		groupVals := a.groups[key]
		states := a.states[key]

		row := make(record.Tuple, 0, len(groupVals)+len(states))
		row = append(row, groupVals...)
		for i, agg := range a.Aggregates {
			row = append(row, aggResult(agg.Func, states[i]))
		}

		if a.Having != nil {
			matched, err := a.Having.Eval(a.OutputSchema, row)
			if err != nil {
				return nil, record.RID{}, false, err
			}
			if mb, ok := matched.(bool); !ok || !mb {
				continue
			}
		}

		return row, record.RID{}, true, nil
	}
	return nil, record.RID{}, false, nil
}

func aggResult(fn AggFunc, st *aggState) any {
	switch fn {
	case AggCount:
		return st.count
	case AggSum:
		return st.sum
	case AggAvg:
		if st.count == 0 {
			return nil
		}
		return st.sum / float64(st.count)
	case AggMin:
		return st.min
	case AggMax:
		return st.max
	default:
		return nil
	}
}
