// SPDX-License-Identifier: Apache-2.0

package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/xataio/tanker/pkg/compile"
	"github.com/xataio/tanker/pkg/result"
	"github.com/xataio/tanker/pkg/scope"
	"github.com/xataio/tanker/pkg/sexpr"
)

// Read compiles this view to a single SELECT, runs it against the active
// scope, and returns a result handle over the rows.
func (v *View) Read(ctx context.Context) (*result.Rows, error) {
	if len(v.fields) == 0 {
		return nil, NoFieldsError{}
	}

	s, err := scope.From(ctx)
	if err != nil {
		return nil, err
	}

	if s.Registry().GetTable(v.table) == nil {
		return nil, UnknownTableError{Table: v.table}
	}

	filterAST, filterArgs, err := buildFilter(v.filter)
	if err != nil {
		return nil, err
	}

	root := compile.New(s.Registry(), s.Dialect(), compile.Default(), v.table, mergeArgs(v.args, filterArgs), s.Config().Args)

	selectExprs := make([]string, len(v.fields))
	aggregateField := make([]bool, len(v.fields))
	anyAggregate := false

	for i, f := range v.fields {
		node, err := sexpr.Parse(f.Expr)
		if err != nil {
			return nil, err
		}
		expr, err := root.Compile(node)
		if err != nil {
			return nil, err
		}
		selectExprs[i] = expr
		aggregateField[i] = compile.IsAggregateNode(node)
		if aggregateField[i] {
			anyAggregate = true
		}
	}

	var whereClauses []string

	if filterAST != nil {
		clause, err := root.Compile(filterAST)
		if err != nil {
			return nil, err
		}
		whereClauses = append(whereClauses, clause)
	}

	aclClauses, err := compileACLRead(root, s.Config().ACLRead, v.table)
	if err != nil {
		return nil, err
	}
	whereClauses = append(whereClauses, aclClauses...)

	var orderClauses []string
	for _, term := range v.order {
		node, err := sexpr.Parse(term.expr)
		if err != nil {
			return nil, err
		}
		expr, err := root.Compile(node)
		if err != nil {
			return nil, err
		}
		if term.desc {
			expr += " DESC"
		}
		orderClauses = append(orderClauses, expr)
	}

	aclClauses, err = compileACLRead(root, s.Config().ACLRead, v.table)
	if err != nil {
		return nil, err
	}
	whereClauses = append(whereClauses, aclClauses...)

	d := s.Dialect()
	q := d.Quote

	var b strings.Builder
	b.WriteString("SELECT ")
	for i, expr := range selectExprs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s AS %s", expr, q(v.fields[i].Alias))
	}
	fmt.Fprintf(&b, " FROM %s AS %s", q(v.table), q(v.table))
	b.WriteString(compile.RenderJoins(d, root.Joins()))

	if len(whereClauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(conjoin(whereClauses))
	}

	if anyAggregate {
		var groupExprs []string
		for i, expr := range selectExprs {
			if !aggregateField[i] {
				groupExprs = append(groupExprs, expr)
			}
		}
		if len(groupExprs) > 0 {
			b.WriteString(" GROUP BY ")
			b.WriteString(strings.Join(groupExprs, ", "))
		}
	}

	if len(orderClauses) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orderClauses, ", "))
	}

	if v.hasLimit {
		fmt.Fprintf(&b, " LIMIT %d", v.limit)
	}
	if v.hasOffset {
		fmt.Fprintf(&b, " OFFSET %d", v.offset)
	}

	rows, err := s.QueryContext(ctx, b.String(), root.Params()...)
	if err != nil {
		return nil, classify(d, v.table, err)
	}
	defer rows.Close()

	return result.FromSQL(rows)
}

// compileACLRead conjoins, for the base table and every table reached by a
// join the projection/filter/order already allocated, the ACL filter
// registered for it, compiled against the alias actually in scope for that
// table so correlated `_parent.…` sub-views inside the ACL resolve
// correctly.
func compileACLRead(root *compile.Context, aclMap map[string]string, base string) ([]string, error) {
	if len(aclMap) == 0 {
		return nil, nil
	}

	var clauses []string

	if src, ok := aclMap[base]; ok {
		clause, err := compileACLExpr(root, src)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	for _, j := range root.Joins() {
		src, ok := aclMap[j.Table]
		if !ok {
			continue
		}
		clause, err := compileACLExpr(root.AtAlias(j.Table, j.Alias), src)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	return clauses, nil
}

func compileACLExpr(c *compile.Context, src string) (string, error) {
	node, err := sexpr.Parse(src)
	if err != nil {
		return "", err
	}
	return c.Compile(node)
}

func conjoin(clauses []string) string {
	wrapped := make([]string, len(clauses))
	for i, c := range clauses {
		wrapped[i] = "(" + c + ")"
	}
	return strings.Join(wrapped, " AND ")
}
