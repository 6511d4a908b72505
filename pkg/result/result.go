// SPDX-License-Identifier: Apache-2.0

// Package result materializes a *sql.Rows from a compiled view read into
// one of the shapes callers actually want: a slice of dicts, a single dict,
// a dict keyed by one of the selected columns, or fixed-size chunks for
// streaming a large read in batches. Column names come from the view's own
// field aliases, so every row is scanned generically into a
// map[string]any rather than a generated struct.
package result

import (
	"database/sql"
	"fmt"
)

// Row is one result row, keyed by the projected field name.
type Row = map[string]any

// Rows is a fully materialized, decoded result set.
type Rows struct {
	cols []string
	rows []Row
}

// FromSQL drains sqlRows into a Rows, closing it when done. Driver-returned
// []byte values (TEXT columns come back this way from both lib/pq and
// modernc.org/sqlite in some configurations) are normalized to string so
// callers never have to type-switch on the driver in use.
func FromSQL(sqlRows *sql.Rows) (*Rows, error) {
	defer sqlRows.Close()

	cols, err := sqlRows.Columns()
	if err != nil {
		return nil, err
	}

	var rows []Row
	for sqlRows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := sqlRows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = normalize(vals[i])
		}
		rows = append(rows, row)
	}

	return &Rows{cols: cols, rows: rows}, sqlRows.Err()
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Columns returns the projected field names, in select order.
func (r *Rows) Columns() []string { return r.cols }

// All returns every row.
func (r *Rows) All() []Row { return r.rows }

// One returns the first row, failing with NoRowsError if the result set
// is empty; any further rows are ignored.
func (r *Rows) One() (Row, error) {
	if len(r.rows) == 0 {
		return nil, NoRowsError{}
	}
	return r.rows[0], nil
}

// ByKey indexes rows by the value of key, failing if two rows collide on
// it. Intended for single-column-unique projections such as a natural
// key.
func (r *Rows) ByKey(key string) (map[any]Row, error) {
	out := make(map[any]Row, len(r.rows))
	for _, row := range r.rows {
		k := row[key]
		if _, exists := out[k]; exists {
			return nil, DuplicateKeyError{Key: keyString(k)}
		}
		out[k] = row
	}
	return out, nil
}

// Chunks splits the result set into slices of at most n rows each, in
// original order, for callers that want to process a large read in
// batches without holding every row's downstream side effect in memory at
// once.
func (r *Rows) Chunks(n int) [][]Row {
	if n <= 0 {
		n = len(r.rows)
	}
	if n == 0 {
		return nil
	}

	var out [][]Row
	for i := 0; i < len(r.rows); i += n {
		end := min(i+n, len(r.rows))
		out = append(out, r.rows[i:end])
	}
	return out
}

func keyString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
