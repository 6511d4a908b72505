// SPDX-License-Identifier: Apache-2.0

// Package dialect isolates the handful of places Tanker's SQL differs
// between PostgreSQL and SQLite: identifier quoting, placeholder style,
// scalar-type mapping, bulk loading into a staging table, the upsert
// statement shape, and the small set of functions (ILIKE, array literals,
// EXTRACT) spec.md §9 calls out as dialect gaps on SQLite. The compiler and
// view packages never branch on dialect themselves; they call through this
// interface.
package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xataio/tanker/pkg/schema"
)

// ColumnDef describes one column of a staging table, independent of the
// schema registry (staging columns are named after dotted field paths, not
// declared column names).
type ColumnDef struct {
	Name  string
	Type  schema.ScalarType
	Array bool
}

// Dialect is the full dialect shim. It embeds schema.DDLDialect so that a
// Dialect value can be passed directly to Registry.CreateTables.
type Dialect interface {
	schema.DDLDialect

	Name() string

	// Placeholder returns the positional parameter marker for the n'th
	// (1-based) bound parameter.
	Placeholder(n int) string

	// LikeOperator returns the SQL operator (and, for SQLite case-insensitive
	// matching, the COLLATE suffix) used to lower the `like`/`ilike` heads.
	LikeOperator(caseInsensitive bool) (operator string, collation string)

	// Extract lowers `(extract "unit" expr)` to the dialect's date-part
	// syntax: EXTRACT(...) on Postgres, strftime(...) on SQLite.
	Extract(unit, expr string) string

	// ArrayLiteral renders a Go-side slice of already-quoted/parameterized
	// SQL fragments as the dialect's array constructor.
	ArrayLiteral(elems []string) string

	// CreateStagingTable creates a transaction-scoped table (named `tmp`)
	// with the given columns, used by the write engine to stage rows before
	// FK resolution and upsert.
	CreateStagingTable(ctx context.Context, tx *sql.Tx, name string, cols []ColumnDef) error

	// DropStagingTable drops a table created by CreateStagingTable.
	DropStagingTable(ctx context.Context, tx *sql.Tx, name string) error

	// BulkLoad loads rows into an already-created staging table: COPY FROM
	// STDIN on Postgres, a batched multi-row prepared INSERT on SQLite.
	BulkLoad(ctx context.Context, tx *sql.Tx, table string, cols []string, rows [][]any) error

	// UpsertStatement returns the full `INSERT ... SELECT ... ON CONFLICT`
	// (or `INSERT OR REPLACE`) statement described in spec.md §4.G, reading
	// resolved values from fromSelect (normally the staging table, optionally
	// pre-filtered by an ACL predicate) and writing cols into table, keyed
	// on the natural key.
	UpsertStatement(table string, cols []string, key []string, fromSelect string) string

	// RetryableError reports whether err is a lock-timeout or serialization
	// failure that the connection wrapper should retry.
	RetryableError(err error) bool

	// ConstraintViolation reports whether err is a unique/foreign-key/
	// not-null/check constraint failure raised by the driver, so callers
	// can surface it as a ConstraintError instead of a bare DriverError.
	ConstraintViolation(err error) bool

	// Open establishes a *sql.DB for this dialect from a db_uri.
	Open(ctx context.Context, uri string) (*sql.DB, error)
}

// ErrUnknownScheme is returned by Open when a db_uri's scheme matches
// neither the PostgreSQL nor the SQLite dialect.
var ErrUnknownScheme = errors.New("tanker: unrecognized db_uri scheme")

// columnTypeError describes an unrecognized schema.ScalarType. Nothing in
// this package calls it; the pg and sqlite ColumnType methods panic with
// their own message for an unknown type.
func columnTypeError(t schema.ScalarType) error {
	return fmt.Errorf("tanker: unsupported scalar type %q", t)
}
