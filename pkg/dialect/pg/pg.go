// SPDX-License-Identifier: Apache-2.0

// Package pg is the PostgreSQL implementation of pkg/dialect.Dialect. It
// uses lib/pq for both the driver and its identifier-quoting and COPY
// helpers.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/xataio/tanker/pkg/dialect"
	"github.com/xataio/tanker/pkg/schema"
)

// Dialect implements dialect.Dialect against PostgreSQL.
type Dialect struct{}

// New returns the PostgreSQL dialect. It holds no state; all methods are
// pure functions of their arguments plus the open *sql.DB/*sql.Tx passed in.
func New() Dialect { return Dialect{} }

func (Dialect) Name() string { return "postgresql" }

func (Dialect) Quote(ident string) string { return pq.QuoteIdentifier(ident) }

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Dialect) AutoIncrementColumn() string { return "BIGSERIAL PRIMARY KEY" }

func (Dialect) ColumnType(t schema.ScalarType, array bool) string {
	base, ok := columnTypes[t]
	if !ok {
		panic(fmt.Sprintf("tanker: unsupported scalar type %q", t))
	}
	if array {
		return base + "[]"
	}
	return base
}

var columnTypes = map[schema.ScalarType]string{
	schema.TypeVarchar:   "TEXT",
	schema.TypeInteger:   "INTEGER",
	schema.TypeBigint:    "BIGINT",
	schema.TypeFloat:     "DOUBLE PRECISION",
	schema.TypeBool:      "BOOLEAN",
	schema.TypeDate:      "DATE",
	schema.TypeTimestamp: "TIMESTAMPTZ",
	schema.TypeBytea:     "BYTEA",
}

func (Dialect) LikeOperator(caseInsensitive bool) (string, string) {
	if caseInsensitive {
		return "ILIKE", ""
	}
	return "LIKE", ""
}

func (Dialect) Extract(unit, expr string) string {
	return fmt.Sprintf("EXTRACT(%s FROM %s)", unit, expr)
}

func (Dialect) ArrayLiteral(elems []string) string {
	return "ARRAY[" + strings.Join(elems, ", ") + "]"
}

// ExistingTables queries pg_catalog for base tables visible on the search
// path.
func (d Dialect) ExistingTables(ctx context.Context, exec schema.Execer) (map[string]bool, error) {
	names, err := exec.QueryStrings(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = ANY (current_schemas(false)) AND table_type = 'BASE TABLE'`)
	if err != nil {
		return nil, err
	}
	return toSet(names), nil
}

func (d Dialect) ExistingColumns(ctx context.Context, exec schema.Execer, table string) (map[string]bool, error) {
	names, err := exec.QueryStrings(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = ANY (current_schemas(false)) AND table_name = $1`, table)
	if err != nil {
		return nil, err
	}
	return toSet(names), nil
}

func (d Dialect) ExistingIndexes(ctx context.Context, exec schema.Execer) (map[string]bool, error) {
	names, err := exec.QueryStrings(ctx, `
		SELECT indexname FROM pg_indexes WHERE schemaname = ANY (current_schemas(false))`)
	if err != nil {
		return nil, err
	}
	return toSet(names), nil
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
	fmt.Fprintf(&b, "CREATE TEMPORARY TABLE %s (", d.Quote(name))
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", d.Quote(c.Name), d.ColumnType(c.Type, c.Array))
	}
	b.WriteString(") ON COMMIT DROP")
	_, err := tx.ExecContext(ctx, b.String())
	return err
}

func (Dialect) DropStagingTable(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+New().Quote(name))
	return err
}

// BulkLoad streams rows into the staging table with COPY FROM STDIN, the
// fastest load path lib/pq exposes.
func (d Dialect) BulkLoad(ctx context.Context, tx *sql.Tx, table string, cols []string, rows [][]any) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, cols...))
	if err != nil {
		return fmt.Errorf("preparing copy into %q: %w", table, err)
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			stmt.Close()
			return fmt.Errorf("copying row into %q: %w", table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flushing copy into %q: %w", table, err)
	}
	return stmt.Close()
}

// UpsertStatement builds a single INSERT ... ON CONFLICT (key) DO UPDATE
// statement, as described for the PostgreSQL write engine.
func (d Dialect) UpsertStatement(table string, cols []string, key []string, fromSelect string) string {
	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = d.Quote(c)
	}
	quotedKey := make([]string, len(key))
	for i, k := range key {
		quotedKey[i] = d.Quote(k)
	}

	var updates []string
	for _, c := range cols {
		if contains(key, c) {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", d.Quote(c), d.Quote(c)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s)\n%s\nON CONFLICT (%s)",
		d.Quote(table), strings.Join(quotedCols, ", "), fromSelect, strings.Join(quotedKey, ", "))
	if len(updates) == 0 {
		b.WriteString(" DO NOTHING")
	} else {
		fmt.Fprintf(&b, " DO UPDATE SET %s", strings.Join(updates, ", "))
	}
	return b.String()
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// RetryableError matches the lock_not_available, serialization_failure and
// deadlock_detected classes Postgres raises under contention.
func (Dialect) RetryableError(err error) bool {
	var pqErr *pq.Error
	if !asPQError(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "55P03", // lock_not_available
		"40001", // serialization_failure
		"40P01": // deadlock_detected
		return true
	}
	return false
}

// ConstraintViolation matches the integrity-constraint-violation class
// (SQLSTATE prefix 23: unique, foreign-key, not-null, check).
func (Dialect) ConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if !asPQError(err, &pqErr) {
		return false
	}
	return strings.HasPrefix(string(pqErr.Code), "23")
}

func asPQError(err error, target **pq.Error) bool {
	for err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			*target = pqErr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func (Dialect) Open(ctx context.Context, uri string) (*sql.DB, error) {
	db, err := sql.Open("postgres", uri)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return db, nil
}
