// Package executor implements the Volcano pull-based operator family:
// SeqScan, Insert, Delete, Update, Aggregate, HashJoin, NestedLoopJoin,
// Distinct, Limit, all sharing the Init()/Next() contract (spec.md
// §4.6). Grounded on original_source's executor/*.cpp files for the
// per-operator algorithms and on the teacher's sql/executor/executor.go
// for Go control-flow idiom (colPos, matchWhere-style evaluation,
// coercion helpers), generalized from a flat switch-executor into
// composable pull operators.
package executor

import (
	"bytes"
	"fmt"

	"github.com/coredb/coredb/internal/record"
)

// Expr evaluates to a scalar value against a row under a schema.
type Expr interface {
	Eval(schema record.Schema, row record.Tuple) (any, error)
}

// ColumnRef reads column Index from the row.
type ColumnRef struct {
	Index int
}

func (c ColumnRef) Eval(_ record.Schema, row record.Tuple) (any, error) {
	if c.Index < 0 || c.Index >= len(row) {
		return nil, fmt.Errorf("executor: column index %d out of range", c.Index)
	}
	return row[c.Index], nil
}

// Literal evaluates to a fixed value.
type Literal struct {
	Value any
}

func (l Literal) Eval(_ record.Schema, _ record.Tuple) (any, error) { return l.Value, nil }

// BinOp is a comparison or boolean operator.
type BinOp string

const (
	OpEq  BinOp = "="
	OpNeq BinOp = "!="
	OpLt  BinOp = "<"
	OpLte BinOp = "<="
	OpGt  BinOp = ">"
	OpGte BinOp = ">="
	OpAnd BinOp = "AND"
	OpOr  BinOp = "OR"
)

// BinaryExpr applies Op to the evaluation of Left and Right.
type BinaryExpr struct {
	Op    BinOp
	Left  Expr
	Right Expr
}

func (b BinaryExpr) Eval(schema record.Schema, row record.Tuple) (any, error) {
	lv, err := b.Left.Eval(schema, row)
	if err != nil {
		return nil, err
	}

	if b.Op == OpAnd || b.Op == OpOr {
		lb, ok := lv.(bool)
		if !ok {
			return nil, fmt.Errorf("executor: %s left operand is not bool", b.Op)
		}
		if b.Op == OpAnd && !lb {
			return false, nil
		}
		if b.Op == OpOr && lb {
			return true, nil
		}
		rv, err := b.Right.Eval(schema, row)
		if err != nil {
			return nil, err
		}
		rb, ok := rv.(bool)
		if !ok {
			return nil, fmt.Errorf("executor: %s right operand is not bool", b.Op)
		}
		return rb, nil
	}

	rv, err := b.Right.Eval(schema, row)
	if err != nil {
		return nil, err
	}
	return compare(b.Op, lv, rv)
}

// compare implements the scalar comparison operators over the row
// codec's value domain (nil, int32, int64, float64, bool, string,
// []byte).
func compare(op BinOp, a, b any) (bool, error) {
	if a == nil || b == nil {
		eq := a == nil && b == nil
		switch op {
		case OpEq:
			return eq, nil
		case OpNeq:
			return !eq, nil
		default:
			return false, nil // NULL is never <, >, <=, >= anything
		}
	}

	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return numCompare(op, af, bf)
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case OpEq:
			return as == bs, nil
		case OpNeq:
			return as != bs, nil
		case OpLt:
			return as < bs, nil
		case OpLte:
			return as <= bs, nil
		case OpGt:
			return as > bs, nil
		case OpGte:
			return as >= bs, nil
		}
	}

	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		switch op {
		case OpEq:
			return ab == bb, nil
		case OpNeq:
			return ab != bb, nil
		}
	}

	if ax, ok := a.([]byte); ok {
		if bx, ok := b.([]byte); ok {
			return numCompare(op, float64(bytes.Compare(ax, bx)), 0)
		}
	}

	return false, fmt.Errorf("executor: cannot compare %T and %T with %s", a, b, op)
}

func numCompare(op BinOp, a, b float64) (bool, error) {
	switch op {
	case OpEq:
		return a == b, nil
	case OpNeq:
		return a != b, nil
	case OpLt:
		return a < b, nil
	case OpLte:
		return a <= b, nil
	case OpGt:
		return a > b, nil
	case OpGte:
		return a >= b, nil
	default:
		return false, fmt.Errorf("executor: unsupported numeric op %s", op)
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
