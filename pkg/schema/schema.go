// SPDX-License-Identifier: Apache-2.0

// Package schema holds the typed model of a Tanker schema: tables, their
// scalar and relational columns, natural keys, and the many-to-one /
// one-to-many edges between tables that the field-path resolver walks.
package schema

import "sort"

// ColumnKind distinguishes a plain scalar column from the two relation
// kinds a column declaration can take.
type ColumnKind int

const (
	KindScalar ColumnKind = iota
	KindM2O
	KindO2M
)

// ScalarType is one of the SQL types a scalar column may declare.
type ScalarType string

const (
	TypeVarchar   ScalarType = "varchar"
	TypeInteger   ScalarType = "integer"
	TypeBigint    ScalarType = "bigint"
	TypeFloat     ScalarType = "float"
	TypeBool      ScalarType = "bool"
	TypeDate      ScalarType = "date"
	TypeTimestamp ScalarType = "timestamp"
	TypeBytea     ScalarType = "bytea"
)

// Column is a single column declaration on a Table. For KindScalar columns
// Type/Array/NotNull/Default are meaningful. For KindM2O, RefTable and
// RefColumn name the target of the stored foreign key (the column itself is
// a plain integer FK, ON DELETE CASCADE). For KindO2M the column is purely
// virtual: SourceTable/SourceColumn name the m2o column on the other table
// that points back here.
type Column struct {
	Name    string
	Kind    ColumnKind
	Type    ScalarType
	Array   bool
	NotNull bool
	Default *string

	// m2o
	RefTable  string
	RefColumn string

	// o2m
	SourceTable  string
	SourceColumn string
}

// Table is a single table declaration: its columns in declaration order,
// its natural key, and any additional unique indexes.
type Table struct {
	Name        string
	ColumnOrder []string
	Columns     map[string]*Column
	Key         []string
	Unique      [][]string

	edges map[string]Edge
}

// Edge is a resolved relation from a table, keyed by the path segment name
// a dotted field path uses to walk it. Edges is computed once, at
// Registry.Build time, from the table's m2o/o2m columns.
type Edge struct {
	Name         string
	Kind         ColumnKind
	SourceColumn string
	TargetTable  string
	TargetColumn string
}

// Registry is the schema registry (component A): a validated, linked set of
// tables built once per process and shared read-only across scopes.
type Registry struct {
	Tables map[string]*Table
}

// New returns an empty, unbuilt registry.
func New() *Registry {
	return &Registry{Tables: make(map[string]*Table)}
}

// NewTable returns a table with an empty column set and the implicit
// surrogate id column already present.
func NewTable(name string, key []string) *Table {
	t := &Table{
		Name:    name,
		Columns: make(map[string]*Column),
		Key:     key,
	}
	t.AddColumn(&Column{Name: "id", Kind: KindScalar, Type: TypeBigint, NotNull: true})
	return t
}

// AddColumn appends a column to the table, preserving declaration order.
// Re-adding a column of the same name replaces it in place.
func (t *Table) AddColumn(c *Column) {
	if t.Columns == nil {
		t.Columns = make(map[string]*Column)
	}
	if _, exists := t.Columns[c.Name]; !exists {
		t.ColumnOrder = append(t.ColumnOrder, c.Name)
	}
	t.Columns[c.Name] = c
}

// GetColumn returns a column by name, or nil if it doesn't exist.
func (t *Table) GetColumn(name string) *Column {
	if t.Columns == nil {
		return nil
	}
	return t.Columns[name]
}

// ScalarColumns returns the physical (non-virtual) columns of the table, in
// declaration order: the surrogate id, plain scalars, and m2o foreign keys.
// o2m columns are excluded since they have no storage.
func (t *Table) ScalarColumns() []*Column {
	cols := make([]*Column, 0, len(t.ColumnOrder))
	for _, name := range t.ColumnOrder {
		c := t.Columns[name]
		if c.Kind != KindO2M {
			cols = append(cols, c)
		}
	}
	return cols
}

// Edges returns the table's relation edges, keyed by path segment name.
// Populated by Registry.Build.
func (t *Table) Edges() map[string]Edge {
	return t.edges
}

// GetEdge looks up a relation edge by path segment name.
func (t *Table) GetEdge(name string) (Edge, bool) {
	e, ok := t.edges[name]
	return e, ok
}

// AddTable registers a table declaration. Call Build afterwards to link and
// validate the full set.
func (r *Registry) AddTable(t *Table) {
	if r.Tables == nil {
		r.Tables = make(map[string]*Table)
	}
	r.Tables[t.Name] = t
}

// GetTable returns a table by name, or nil if it doesn't exist.
func (r *Registry) GetTable(name string) *Table {
	if r.Tables == nil {
		return nil
	}
	return r.Tables[name]
}

// TableNames returns the registered table names, sorted, for deterministic
// iteration (CreateTables, Build).
func (r *Registry) TableNames() []string {
	names := make([]string, 0, len(r.Tables))
	for n := range r.Tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
