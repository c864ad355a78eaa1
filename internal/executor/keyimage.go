package executor

import "github.com/coredb/coredb/internal/record"

// KeyFromTuple projects row's key columns (named by keyAttrs, positions
// into the table schema) and encodes them under keySchema, producing the
// byte key an index stores (spec.md §4.6: "derived via KeyFromTuple
// using the index's column attrs").
func KeyFromTuple(keyAttrs []int, keySchema record.Schema, row record.Tuple) ([]byte, error) {
	values := make(record.Tuple, len(keyAttrs))
	for i, attr := range keyAttrs {
		values[i] = row[attr]
	}
	return record.EncodeRow(keySchema, values)
}
