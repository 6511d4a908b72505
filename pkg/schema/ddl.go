// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"context"
	"fmt"
	"strings"
)

// DDLDialect is the subset of pkg/dialect.Dialect that create_tables needs.
// It is declared here, rather than imported, so that this package never
// depends on pkg/dialect: concrete dialects satisfy it structurally.
type DDLDialect interface {
	Quote(ident string) string
	ColumnType(t ScalarType, array bool) string
	AutoIncrementColumn() string
	ExistingTables(ctx context.Context, exec Execer) (map[string]bool, error)
	ExistingColumns(ctx context.Context, exec Execer, table string) (map[string]bool, error)
	ExistingIndexes(ctx context.Context, exec Execer) (map[string]bool, error)
}

// Execer is the minimal database handle create_tables needs: run a DDL
// statement, or run a single-column catalog query (table/column/index
// names) and get back the scanned strings.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) error
	QueryStrings(ctx context.Context, query string, args ...any) ([]string, error)
}

// CreateTables emits CREATE TABLE for every table missing from the live
// catalog (surrogate id first), then ALTER TABLE for every missing m2o
// column (issued after all tables exist, so cyclic references work), then
// CREATE UNIQUE INDEX for every natural key missing its induced index. It
// is idempotent: tables, columns and indexes already present are left
// untouched.
func (r *Registry) CreateTables(ctx context.Context, exec Execer, d DDLDialect) error {
	existingTables, err := d.ExistingTables(ctx, exec)
	if err != nil {
		return fmt.Errorf("reading existing tables: %w", err)
	}

	for _, name := range r.TableNames() {
		t := r.Tables[name]
		if existingTables[name] {
			continue
		}
		if err := createTable(ctx, exec, d, t); err != nil {
			return fmt.Errorf("creating table %q: %w", name, err)
		}
	}

	for _, name := range r.TableNames() {
		t := r.Tables[name]
		existingCols, err := d.ExistingColumns(ctx, exec, name)
		if err != nil {
			return fmt.Errorf("reading existing columns of %q: %w", name, err)
		}
		for _, col := range t.ScalarColumns() {
			if col.Kind != KindM2O || existingCols[col.Name] {
				continue
			}
			if err := addForeignKeyColumn(ctx, exec, d, t, col); err != nil {
				return fmt.Errorf("adding column %q to %q: %w", col.Name, name, err)
			}
		}
	}

	existingIndexes, err := d.ExistingIndexes(ctx, exec)
	if err != nil {
		return fmt.Errorf("reading existing indexes: %w", err)
	}
	for _, name := range r.TableNames() {
		t := r.Tables[name]
		indexName := "unique_index_" + name
		if existingIndexes[indexName] {
			continue
		}
		if err := createUniqueIndex(ctx, exec, d, indexName, t, t.Key); err != nil {
			return fmt.Errorf("creating natural key index on %q: %w", name, err)
		}
	}

	return nil
}

func createTable(ctx context.Context, exec Execer, d DDLDialect, t *Table) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", d.Quote(t.Name))
	fmt.Fprintf(&b, "  %s %s", d.Quote("id"), d.AutoIncrementColumn())

	for _, col := range t.ScalarColumns() {
		if col.Name == "id" {
			continue
		}
		if col.Kind == KindM2O {
			// m2o columns are added after every table exists, to support cycles.
			continue
		}
		b.WriteString(",\n  ")
		writeColumnDef(&b, d, col)
	}
	b.WriteString("\n)")

	return exec.ExecContext(ctx, b.String())
}

func writeColumnDef(b *strings.Builder, d DDLDialect, col *Column) {
	fmt.Fprintf(b, "%s %s", d.Quote(col.Name), d.ColumnType(col.Type, col.Array))
	if col.NotNull {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		fmt.Fprintf(b, " DEFAULT %s", *col.Default)
	}
}

func addForeignKeyColumn(ctx context.Context, exec Execer, d DDLDialect, t *Table, col *Column) error {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD COLUMN %s %s",
		d.Quote(t.Name), d.Quote(col.Name), d.ColumnType(TypeBigint, false))
	if col.NotNull {
		b.WriteString(" NOT NULL")
	}
	fmt.Fprintf(&b, " REFERENCES %s (%s) ON DELETE CASCADE",
		d.Quote(col.RefTable), d.Quote(col.RefColumn))

	return exec.ExecContext(ctx, b.String())
}

func createUniqueIndex(ctx context.Context, exec Execer, d DDLDialect, indexName string, t *Table, columns []string) error {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
	}
	stmt := fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)",
		d.Quote(indexName), d.Quote(t.Name), strings.Join(quoted, ", "))
	return exec.ExecContext(ctx, stmt)
}
