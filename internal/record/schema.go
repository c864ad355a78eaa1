// Package record defines the tuple/schema model shared by the heap,
// hash index, and execution operators.
package record

// ColumnType enumerates the value types a Column may hold.
type ColumnType uint8

const (
	ColInt32 ColumnType = iota
	ColInt64
	ColBool
	ColFloat64
	ColText  // UTF-8
	ColBytes // opaque bytes
)

func (t ColumnType) String() string {
	switch t {
	case ColInt32:
		return "INT32"
	case ColInt64:
		return "INT64"
	case ColBool:
		return "BOOL"
	case ColFloat64:
		return "FLOAT64"
	case ColText:
		return "TEXT"
	case ColBytes:
		return "BYTES"
	default:
		return "UNKNOWN"
	}
}

type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Schema is an ordered list of columns. A Tuple's values line up
// positionally with Cols.
type Schema struct {
	Cols []Column
}

func (s Schema) NumCols() int { return len(s.Cols) }

// ColumnIndex returns the position of name in the schema, or -1.
func (s Schema) ColumnIndex(name string) int {
	for i := range s.Cols {
		if s.Cols[i].Name == name {
			return i
		}
	}
	return -1
}

// Project returns a new schema containing only the named columns, in the
// given order, used to build the output schema of operators.
func (s Schema) Project(names ...string) Schema {
	out := Schema{Cols: make([]Column, 0, len(names))}
	for _, n := range names {
		if i := s.ColumnIndex(n); i >= 0 {
			out.Cols = append(out.Cols, s.Cols[i])
		}
	}
	return out
}
