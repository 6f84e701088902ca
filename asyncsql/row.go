package asyncsql

// Row is a fixed-arity tuple of column values as delivered by the wrapped toolkit.
//
// Value types are whatever the toolkit produces, e.g. int32 from pgx for an INTEGER column
// and int64 from lib/pq for the same column.
type Row []any

// Rows is an alias type for a slice of Row.
type Rows = []Row

// Len returns the number of columns in the row.
func (r Row) Len() int {
	return len(r)
}

// RowMapping pairs the ordered column keys of a result with the values of one row.
// Columns without a key (or keys without a value) are left out.
func RowMapping(keys []string, row Row) map[string]any {
	mapping := make(map[string]any, len(keys))

	for i, key := range keys {
		if i >= len(row) {
			break
		}

		mapping[key] = row[i]
	}

	return mapping
}
