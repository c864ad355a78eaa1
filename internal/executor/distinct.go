package executor

import "github.com/coredb/coredb/internal/record"

// Distinct suppresses rows whose full column set was already seen,
// materializing the seen-set on demand rather than up front (spec.md
// §4.6).
type Distinct struct {
	Child Operator

	seen map[string]struct{}
}

func (d *Distinct) Init() error {
	d.seen = make(map[string]struct{})
	return d.Child.Init()
}

func (d *Distinct) Next() (record.Tuple, record.RID, bool, error) {
	for {
		row, rid, ok, err := d.Child.Next()
		if err != nil {
			return nil, record.RID{}, false, err
		}
		if !ok {
			return nil, record.RID{}, false, nil
		}
		key := groupKey(row)
		if _, dup := d.seen[key]; dup {
			continue
		}
		d.seen[key] = struct{}{}
		return row, rid, true, nil
	}
}
