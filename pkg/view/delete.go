// SPDX-License-Identifier: Apache-2.0

package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/xataio/tanker/pkg/compile"
	"github.com/xataio/tanker/pkg/scope"
	"github.com/xataio/tanker/pkg/sexpr"
)

// DeleteFiltered deletes every row of the view's base table matching
// filter, via `DELETE FROM <T> WHERE id IN (<subquery>)` so the filter can
// freely reference joined tables.
func (v *View) DeleteFiltered(ctx context.Context, filter string) error {
	s, err := scope.From(ctx)
	if err != nil {
		return err
	}

	table := s.Registry().GetTable(v.table)
	if table == nil {
		return UnknownTableError{Table: v.table}
	}

	root := compile.New(s.Registry(), s.Dialect(), compile.Default(), v.table, v.args, s.Config().Args)

	node, err := sexpr.Parse(filter)
	if err != nil {
		return err
	}
	clause, err := root.Compile(node)
	if err != nil {
		return err
	}

	d := s.Dialect()
	q := d.Quote

	subquery := fmt.Sprintf("SELECT %s.%s FROM %s AS %s%s WHERE %s",
		q(v.table), q("id"), q(v.table), q(v.table), compile.RenderJoins(d, root.Joins()), clause)

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", q(v.table), q("id"), subquery)

	if _, err := s.ExecContext(ctx, stmt, root.Params()...); err != nil {
		return classify(d, v.table, err)
	}
	return nil
}

// DeleteData stages rows identically to Write and deletes every row of the
// base table matching one of their natural keys.
func (v *View) DeleteData(ctx context.Context, rows []map[string]any) error {
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

	q := d.Quote
	resolvedAlias := "resolved"
	var on []string
	for _, k := range table.Key {
		on = append(on, fmt.Sprintf("%s.%s = %s.%s", q(table.Name), q(k), q(resolvedAlias), q(k)))
	}

	stmt := fmt.Sprintf(
		"DELETE FROM %s WHERE EXISTS (SELECT 1 FROM (%s) AS %s WHERE %s)",
		q(table.Name), plan.resolveSelect(d), q(resolvedAlias), strings.Join(on, " AND "),
	)

	if _, err := s.ExecContext(ctx, stmt); err != nil {
		return classify(d, v.table, err)
	}
	return nil
}
