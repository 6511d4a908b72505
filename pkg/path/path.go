// SPDX-License-Identifier: Apache-2.0

// Package path resolves dotted field paths ("a.b.c") rooted at a view's
// base table into a chain of join specs and a terminal qualified column,
// allocating deterministic `<target_table>_<k>` aliases and memoizing
// shared prefixes within a single compilation.
package path

import (
	"fmt"
	"strings"

	"github.com/xataio/tanker/pkg/schema"
)

// Join is one LEFT JOIN a resolved path needs.
type Join struct {
	Alias      string
	Table      string
	LeftAlias  string
	LeftColumn string

	RightColumn string
}

// Result is the outcome of resolving one dotted path: the ordered, deduped
// joins needed to reach it, and the terminal column qualified by whichever
// alias owns it. ColumnName is the bare (unquoted) terminal column name;
// Column is TableAlias+"."+ColumnName, unquoted, provided for convenience
// and tests. Callers that need valid SQL must quote TableAlias and
// ColumnName individually through the active dialect.
type Result struct {
	Joins      []Join
	Table      string // real registry table name owning ColumnName
	TableAlias string
	ColumnName string
	Column     string
}

// Resolver resolves paths against one base table for the lifetime of a
// single view compilation. It is not safe for concurrent use; each
// compilation gets its own Resolver.
type Resolver struct {
	registry *schema.Registry
	base     string

	counter map[string]int
	alias   map[string]string // path-prefix -> allocated alias
	joins   map[string]Join   // alias -> join that introduced it
	order   []string          // alias allocation order
}

// NewResolver returns a Resolver rooted at base.
func NewResolver(reg *schema.Registry, base string) *Resolver {
	return &Resolver{
		registry: reg,
		base:     base,
		counter:  make(map[string]int),
		alias:    make(map[string]string),
		joins:    make(map[string]Join),
	}
}

// Joins returns every distinct join allocated so far, in allocation order.
func (r *Resolver) Joins() []Join {
	out := make([]Join, len(r.order))
	for i, alias := range r.order {
		out[i] = r.joins[alias]
	}
	return out
}

// Resolve walks path's segments from the base table, allocating any joins
// it needs and returning the terminal qualified column. Calling Resolve
// twice with paths sharing a dotted prefix reuses the same alias and ON
// clause for that prefix.
func (r *Resolver) Resolve(p string) (*Result, error) {
	return r.ResolveFrom(r.base, r.base, p)
}

// ResolveFrom behaves like Resolve but starts the walk from an explicit
// (table, alias) pair instead of this Resolver's own base, while still
// sharing its join/alias memoization. Used to compile an expression (an
// ACL filter, typically) attached to a table reached partway through an
// already-joined path, so it accumulates onto the same join list rather
// than re-joining the table under a second alias.
func (r *Resolver) ResolveFrom(rootTable, rootAlias, p string) (*Result, error) {
	segments := strings.Split(p, ".")

	table := rootTable
	alias := rootAlias
	var prefix []string
	var joins []Join

	for i, seg := range segments {
		last := i == len(segments)-1

		t := r.registry.GetTable(table)
		if t == nil {
			return nil, ResolveError{Table: table, Path: p, Segment: seg, Reason: "table not in registry"}
		}

		if col := t.GetColumn(seg); col != nil && col.Kind == schema.KindScalar {
			if !last {
				return nil, ResolveError{Table: table, Path: p, Segment: seg, Reason: "not a relation, cannot continue path"}
			}
			return &Result{Joins: joins, Table: table, TableAlias: alias, ColumnName: seg, Column: qualify(alias, seg)}, nil
		}

		edge, ok := t.GetEdge(seg)
		if !ok {
			return nil, ResolveError{Table: table, Path: p, Segment: seg, Reason: "unknown field"}
		}

		if edge.Kind == schema.KindM2O && last {
			return &Result{Joins: joins, Table: table, TableAlias: alias, ColumnName: edge.SourceColumn, Column: qualify(alias, edge.SourceColumn)}, nil
		}

		prefix = append(prefix, seg)
		prefixKey := strings.Join(prefix, ".")

		nextAlias, join := r.resolveJoin(alias, edge, prefixKey)
		joins = append(joins, join)

		table = edge.TargetTable
		alias = nextAlias
	}

	return nil, ResolveError{Table: table, Path: p, Reason: "path does not terminate on a column"}
}

func (r *Resolver) resolveJoin(fromAlias string, edge schema.Edge, prefixKey string) (string, Join) {
	if existing, ok := r.alias[prefixKey]; ok {
		return existing, r.joins[existing]
	}

	r.counter[edge.TargetTable]++
	alias := fmt.Sprintf("%s_%d", edge.TargetTable, r.counter[edge.TargetTable])

	leftCol, rightCol := joinColumns(edge)
	j := Join{
		Alias:       alias,
		Table:       edge.TargetTable,
		LeftAlias:   fromAlias,
		LeftColumn:  leftCol,
		RightColumn: rightCol,
	}

	r.alias[prefixKey] = alias
	r.joins[alias] = j
	r.order = append(r.order, alias)

	return alias, j
}

// joinColumns returns (left-side column on the already-resolved alias,
// right-side column on the newly joined alias) for edge, in either
// direction: an m2o edge joins on its stored FK column against the target's
// referenced column; an o2m edge joins the reverse way, since its
// SourceColumn/TargetColumn are named from the m2o side that declared it.
func joinColumns(edge schema.Edge) (left, right string) {
	if edge.Kind == schema.KindM2O {
		return edge.SourceColumn, edge.TargetColumn
	}
	return edge.TargetColumn, edge.SourceColumn
}

func qualify(alias, column string) string {
	return alias + "." + column
}
