// SPDX-License-Identifier: Apache-2.0

package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/xataio/tanker/pkg/compile"
	"github.com/xataio/tanker/pkg/dialect"
	"github.com/xataio/tanker/pkg/path"
	"github.com/xataio/tanker/pkg/schema"
	"github.com/xataio/tanker/pkg/scope"
	"github.com/xataio/tanker/pkg/sexpr"
)

// stagingTable is the name of the session-scoped table every write/delete
// stages rows through, per spec's "temp tables are named tmp" interface.
const stagingTable = "tmp"

// writeField is one plain (non-relational) field staged directly under its
// own name.
type writeField struct {
	name string
	col  *schema.Column
}

// fkGroup collects the staged fields resolving, through a single m2o edge,
// the full natural key of that edge's target table. Resolution is
// deliberately scoped to one hop: a view write field may cross at most one
// m2o edge, with every natural-key column of the target provided as a
// sibling field sharing that edge's prefix. Deeper chains would need
// separately staged natural keys for each intermediate table and are
// rejected with FieldPathError instead.
type fkGroup struct {
	edgeColumn string // the base table's stored FK column, e.g. "country"
	targetCol  string // the referenced column on target, usually "id"
	target     *schema.Table
	keyStaged  map[string]string // target key column -> staged tmp column name
}

type writePlan struct {
	table    *schema.Table
	plain    []writeField
	fkGroups []*fkGroup
}

// planWrite classifies a view's fields into plain target columns and
// single-hop m2o natural-key groups, per spec's write step 1, and checks
// that together they cover the target's own natural key.
func planWrite(reg *schema.Registry, table *schema.Table, fields []Field) (*writePlan, error) {
	resolver := path.NewResolver(reg, table.Name)
	plan := &writePlan{table: table}
	groups := map[string]*fkGroup{}

	for _, f := range fields {
		if !strings.Contains(f.Expr, ".") {
			col := table.GetColumn(f.Expr)
			if col == nil {
				return nil, FieldPathError{Field: f.Expr, Reason: "not a column of " + table.Name}
			}
			if col.Kind == schema.KindO2M {
				return nil, FieldPathError{Field: f.Expr, Reason: "o2m columns have no storage and cannot be written"}
			}
			plan.plain = append(plan.plain, writeField{name: f.Expr, col: col})
			continue
		}

		res, err := resolver.Resolve(f.Expr)
		if err != nil {
			return nil, FieldPathError{Field: f.Expr, Reason: err.Error()}
		}
		if len(res.Joins) != 1 {
			return nil, FieldPathError{Field: f.Expr, Reason: "writes support only a single m2o hop"}
		}

		j := res.Joins[0]
		g, ok := groups[j.LeftColumn]
		if !ok {
			target := reg.GetTable(res.Table)
			g = &fkGroup{edgeColumn: j.LeftColumn, targetCol: j.RightColumn, target: target, keyStaged: map[string]string{}}
			groups[j.LeftColumn] = g
			plan.fkGroups = append(plan.fkGroups, g)
		}
		g.keyStaged[res.ColumnName] = f.Expr
	}

	for _, g := range plan.fkGroups {
		if !sameKeySet(g.target.Key, g.keyStaged) {
			return nil, FieldPathError{
				Field:  g.edgeColumn,
				Reason: fmt.Sprintf("must provide exactly the natural key of %q (%s)", g.target.Name, strings.Join(g.target.Key, ", ")),
			}
		}
	}

	if err := checkNaturalKeyCovered(table, plan); err != nil {
		return nil, err
	}

	return plan, nil
}

func sameKeySet(key []string, staged map[string]string) bool {
	if len(key) != len(staged) {
		return false
	}
	for _, k := range key {
		if _, ok := staged[k]; !ok {
			return false
		}
	}
	return true
}

func checkNaturalKeyCovered(table *schema.Table, plan *writePlan) error {
	covered := map[string]bool{}
	for _, f := range plan.plain {
		covered[f.name] = true
	}
	for _, g := range plan.fkGroups {
		covered[g.edgeColumn] = true
	}
	for _, k := range table.Key {
		if !covered[k] {
			return FieldPathError{Field: k, Reason: "view does not cover the natural key of " + table.Name}
		}
	}
	return nil
}

// orderedKeys returns a fk-group's target natural-key columns in the
// target's own declared key order, so every caller walking the group's
// staged fields agrees on column order.
func (g *fkGroup) orderedKeys() []string {
	return g.target.Key
}

// stagingColumns returns the staging table's column definitions: the plain
// fields under their own name, then one column per fk-group natural-key
// field, named after its full dotted path.
func (p *writePlan) stagingColumns() []dialect.ColumnDef {
	cols := make([]dialect.ColumnDef, 0, len(p.plain))
	for _, f := range p.plain {
		cols = append(cols, dialect.ColumnDef{Name: f.name, Type: f.col.Type, Array: f.col.Array})
	}
	for _, g := range p.fkGroups {
		for _, keyCol := range g.orderedKeys() {
			col := g.target.GetColumn(keyCol)
			cols = append(cols, dialect.ColumnDef{Name: g.keyStaged[keyCol], Type: col.Type, Array: col.Array})
		}
	}
	return cols
}

func (p *writePlan) stagingColumnNames() []string {
	names := make([]string, 0, len(p.plain))
	for _, f := range p.plain {
		names = append(names, f.name)
	}
	for _, g := range p.fkGroups {
		for _, keyCol := range g.orderedKeys() {
			names = append(names, g.keyStaged[keyCol])
		}
	}
	return names
}

// targetColumns returns the column names of the target table this plan
// writes, in the same order stagingColumnNames lays out the FK groups.
func (p *writePlan) targetColumns() []string {
	cols := make([]string, 0, len(p.plain)+len(p.fkGroups))
	for _, f := range p.plain {
		cols = append(cols, f.name)
	}
	for _, g := range p.fkGroups {
		cols = append(cols, g.edgeColumn)
	}
	return cols
}

// rows converts input rows into positional tuples matching
// stagingColumnNames's order.
func (p *writePlan) rows(input []map[string]any) ([][]any, error) {
	names := p.stagingColumnNames()
	out := make([][]any, len(input))
	for i, row := range input {
		tuple := make([]any, len(names))
		for j, n := range names {
			v, ok := row[n]
			if !ok {
				return nil, FieldPathError{Field: n, Reason: "missing from input row"}
			}
			tuple[j] = v
		}
		out[i] = tuple
	}
	return out, nil
}

// resolveSelect builds the `SELECT ... FROM tmp [LEFT JOIN ...]*` half of
// the upsert: plain columns read straight off tmp, each fk-group's target
// id resolved by joining the target table on its natural key.
func (p *writePlan) resolveSelect(d dialect.Dialect) string {
	q := d.Quote
	var cols []string
	for _, f := range p.plain {
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", q(stagingTable), q(f.name), q(f.name)))
	}
	for _, g := range p.fkGroups {
		alias := stagingTable + "_" + g.edgeColumn
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", q(alias), q(g.targetCol), q(g.edgeColumn)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), q(stagingTable))

	for _, g := range p.fkGroups {
		alias := stagingTable + "_" + g.edgeColumn
		var on []string
		for keyCol, staged := range g.keyStaged {
			on = append(on, fmt.Sprintf("%s.%s = %s.%s", q(stagingTable), q(staged), q(alias), q(keyCol)))
		}
		fmt.Fprintf(&b, " LEFT JOIN %s AS %s ON (%s)", q(g.target.Name), q(alias), strings.Join(on, " AND "))
	}

	return b.String()
}

// Write stages rows, resolves single-hop m2o natural-key references, and
// upserts into the view's base table keyed on its natural key, per spec's
// write pipeline.
func (v *View) Write(ctx context.Context, rows []map[string]any) error {
	if len(v.fields) == 0 {
		return NoFieldsError{}
	}

	s, err := scope.From(ctx)
	if err != nil {
		return err
	}

	table := s.Registry().GetTable(v.table)
	if table == nil {
		return UnknownTableError{Table: v.table}
	}

	plan, err := planWrite(s.Registry(), table, v.fields)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	d := s.Dialect()

	if err := d.CreateStagingTable(ctx, s.Tx(), stagingTable, plan.stagingColumns()); err != nil {
		return classify(d, v.table, err)
	}
	defer d.DropStagingTable(ctx, s.Tx(), stagingTable)

	tuples, err := plan.rows(rows)
	if err != nil {
		return err
	}
	if err := d.BulkLoad(ctx, s.Tx(), stagingTable, plan.stagingColumnNames(), tuples); err != nil {
		return classify(d, v.table, err)
	}

	fromSelect := plan.resolveSelect(d)

	if aclSrc, ok := s.Config().ACLWrite[v.table]; ok {
		fromSelect, err = splitInsertsFromUpdates(s, table, plan.targetColumns(), fromSelect, aclSrc, v.args)
		if err != nil {
			return err
		}
	}

	stmt := d.UpsertStatement(table.Name, plan.targetColumns(), table.Key, fromSelect)
	if _, err := s.ExecContext(ctx, stmt); err != nil {
		return classify(d, v.table, err)
	}
	return nil
}

// splitInsertsFromUpdates anti-joins the resolved staging rows against the
// target table by natural key before applying acl-write[T], so the ACL
// only ever rejects genuinely new rows. Rows whose natural key already
// exists in the target are treated as updates and pass through regardless
// of the ACL: a row already present cannot be newly created in violation
// of it, and an update that would make it ACL-disallowed is left alone
// rather than silently deleted.
func splitInsertsFromUpdates(s *scope.Scope, table *schema.Table, cols []string, fromSelect, aclSrc string, args map[string]any) (string, error) {
	node, err := sexpr.Parse(aclSrc)
	if err != nil {
		return "", err
	}

	resolvedAlias := "resolved"
	c := compile.New(s.Registry(), s.Dialect(), compile.Default(), table.Name, args, s.Config().Args).AtAlias(table.Name, resolvedAlias)
	clause, err := c.Compile(node)
	if err != nil {
		return "", err
	}

	q := s.Dialect().Quote
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = q(col)
	}
	selectList := strings.Join(names, ", ")

	resolved := fmt.Sprintf("(%s) AS %s", fromSelect, q(resolvedAlias))

	var keyMatch []string
	for _, k := range table.Key {
		keyMatch = append(keyMatch, fmt.Sprintf("%s.%s = %s.%s", q(table.Name), q(k), q(resolvedAlias), q(k)))
	}
	existsTarget := fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s)", q(table.Name), strings.Join(keyMatch, " AND "))

	updates := fmt.Sprintf("SELECT %s FROM %s WHERE %s", selectList, resolved, existsTarget)
	insertsFiltered := fmt.Sprintf("SELECT %s FROM %s WHERE NOT %s AND %s", selectList, resolved, existsTarget, clause)

	return updates + "\nUNION ALL\n" + insertsFiltered, nil
}
