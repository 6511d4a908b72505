// SPDX-License-Identifier: Apache-2.0

// Package sqlite is the SQLite implementation of pkg/dialect.Dialect, built
// on the pure-Go modernc.org/sqlite driver so Tanker never requires cgo.
// SQLite lacks native arrays, ILIKE, EXTRACT and COPY; this package absorbs
// each gap as described in spec.md's dialect design notes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xataio/tanker/pkg/dialect"
	"github.com/xataio/tanker/pkg/schema"
)

// Dialect implements dialect.Dialect against SQLite.
type Dialect struct{}

func New() Dialect { return Dialect{} }

func (Dialect) Name() string { return "sqlite" }

// Quote follows SQLite's double-quoted identifier convention, doubling any
// embedded quote.
func (Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Dialect) Placeholder(n int) string { return "?" + strconv.Itoa(n) }

func (Dialect) AutoIncrementColumn() string { return "INTEGER PRIMARY KEY AUTOINCREMENT" }

func (Dialect) ColumnType(t schema.ScalarType, array bool) string {
	if array {
		// No native array type; arrays round-trip as a JSON text column.
		return "TEXT"
	}
	base, ok := columnTypes[t]
	if !ok {
		panic(fmt.Sprintf("tanker: unsupported scalar type %q", t))
	}
	return base
}

var columnTypes = map[schema.ScalarType]string{
	schema.TypeVarchar:   "TEXT",
	schema.TypeInteger:   "INTEGER",
	schema.TypeBigint:    "INTEGER",
	schema.TypeFloat:     "REAL",
	schema.TypeBool:      "INTEGER",
	schema.TypeDate:      "TEXT",
	schema.TypeTimestamp: "TEXT",
	schema.TypeBytea:     "BLOB",
}

// LikeOperator falls back to LIKE with an explicit NOCASE collation for
// case-insensitive matches, since SQLite has no ILIKE operator.
func (Dialect) LikeOperator(caseInsensitive bool) (string, string) {
	if caseInsensitive {
		return "LIKE", " COLLATE NOCASE"
	}
	return "LIKE", ""
}

// Extract maps a handful of common date-part units onto strftime format
// codes; any other unit falls back to the year code (%Y).
func (Dialect) Extract(unit, expr string) string {
	code, ok := strftimeCodes[strings.ToLower(unit)]
	if !ok {
		code = "%Y"
	}
	return fmt.Sprintf("CAST(strftime('%s', %s) AS INTEGER)", code, expr)
}

var strftimeCodes = map[string]string{
	"year":   "%Y",
	"month":  "%m",
	"day":    "%d",
	"hour":   "%H",
	"minute": "%M",
	"second": "%S",
	"dow":    "%w",
	"doy":    "%j",
}

// ArrayLiteral renders elements as a JSON array text literal, mirroring how
// array columns are stored.
func (Dialect) ArrayLiteral(elems []string) string {
	return "json_array(" + strings.Join(elems, ", ") + ")"
}

func (d Dialect) ExistingTables(ctx context.Context, exec schema.Execer) (map[string]bool, error) {
	names, err := exec.QueryStrings(ctx, `
		SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, err
	}
	return toSet(names), nil
}

func (d Dialect) ExistingColumns(ctx context.Context, exec schema.Execer, table string) (map[string]bool, error) {
	names, err := exec.QueryStrings(ctx, fmt.Sprintf("SELECT name FROM pragma_table_info(%s)", quoteLiteral(table)))
	if err != nil {
		return nil, err
	}
	return toSet(names), nil
}

func (d Dialect) ExistingIndexes(ctx context.Context, exec schema.Execer) (map[string]bool, error) {
	names, err := exec.QueryStrings(ctx, `SELECT name FROM sqlite_master WHERE type = 'index'`)
	if err != nil {
		return nil, err
	}
	return toSet(names), nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func (Dialect) CreateStagingTable(ctx context.Context, tx *sql.Tx, name string, cols []dialect.ColumnDef) error {
	d := New()
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TEMP TABLE %s (", d.Quote(name))
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", d.Quote(c.Name), d.ColumnType(c.Type, c.Array))
	}
	b.WriteString(")")
	_, err := tx.ExecContext(ctx, b.String())
	return err
}

func (Dialect) DropStagingTable(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+New().Quote(name))
	return err
}

// BulkLoad has no COPY equivalent on SQLite: rows are loaded via a single
// prepared multi-row INSERT statement, batched to stay under SQLite's
// default parameter-count ceiling.
const bulkLoadBatchSize = 200

func (d Dialect) BulkLoad(ctx context.Context, tx *sql.Tx, table string, cols []string, rows [][]any) error {
	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = d.Quote(c)
	}

	for start := 0; start < len(rows); start += bulkLoadBatchSize {
		end := min(start+bulkLoadBatchSize, len(rows))
		batch := rows[start:end]

		var b strings.Builder
		fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", d.Quote(table), strings.Join(quotedCols, ", "))
		args := make([]any, 0, len(batch)*len(cols))
		for i, row := range batch {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(")
			for j, v := range row {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString("?")
				args = append(args, normalizeArg(v))
			}
			b.WriteString(")")
		}

		if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
			return fmt.Errorf("inserting batch into %q: %w", table, err)
		}
	}
	return nil
}

// normalizeArg encodes []any/[]string arguments as JSON text, since the
// driver has no native array binding.
func normalizeArg(v any) any {
	switch v.(type) {
	case []any, []string, []int, []int64, []float64:
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		return string(b)
	default:
		return v
	}
}

// UpsertStatement uses INSERT OR REPLACE, SQLite's closest equivalent to
// ON CONFLICT DO UPDATE: the whole row is replaced rather than merged. The
// conflicting row is deleted and a new one inserted, so it receives a new
// id and any column not listed in cols takes its default value.
func (d Dialect) UpsertStatement(table string, cols []string, key []string, fromSelect string) string {
	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = d.Quote(c)
	}
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s)\n%s",
		d.Quote(table), strings.Join(quotedCols, ", "), fromSelect)
}

// RetryableError matches SQLITE_BUSY / SQLITE_LOCKED, raised when another
// connection holds the write lock.
func (Dialect) RetryableError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked")
}

// ConstraintViolation matches the constraint-failure wording
// modernc.org/sqlite surfaces in the error text (it has no typed error
// code comparable to lib/pq's SQLSTATE).
func (Dialect) ConstraintViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "NOT NULL constraint failed") ||
		strings.Contains(msg, "CHECK constraint failed")
}

func (Dialect) Open(ctx context.Context, uri string) (*sql.DB, error) {
	path := strings.TrimPrefix(uri, "sqlite://")
	path = strings.TrimPrefix(path, "sqlite:")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite connection: %w", err)
	}
	// Writers serialize through a single connection; SQLite's own locking
	// otherwise surfaces as spurious SQLITE_BUSY under Go's pooled *sql.DB.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	// SQLite ignores FOREIGN KEY constraints unless told otherwise per
	// connection; ON DELETE CASCADE on m2o columns depends on this.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling sqlite foreign keys: %w", err)
	}
	return db, nil
}
