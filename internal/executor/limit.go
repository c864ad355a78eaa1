package executor

import "github.com/coredb/coredb/internal/record"

// Limit forwards at most N rows from Child (spec.md §4.6).
type Limit struct {
	Child Operator
	N     int

	emitted int
}

func (l *Limit) Init() error {
	l.emitted = 0
	return l.Child.Init()
}

func (l *Limit) Next() (record.Tuple, record.RID, bool, error) {
	if l.emitted >= l.N {
		return nil, record.RID{}, false, nil
	}
	row, rid, ok, err := l.Child.Next()
	if err != nil || !ok {
		return nil, record.RID{}, false, err
	}
	l.emitted++
	return row, rid, true, nil
}
