// SPDX-License-Identifier: Apache-2.0

// Package view implements the read and write sides of a Tanker view: a
// declarative projection (fields, filter, order, args) over one base table
// that compiles to a single SELECT, or a staged bulk upsert, against the
// active scope.
package view

import "sort"

// Field is one projected column: Alias is the result column name (the
// original dotted path or caller-chosen key), Expr is the path or
// s-expression source compiled to produce it.
type Field struct {
	Alias string
	Expr  string
}

type orderTerm struct {
	expr string
	desc bool
}

// View is a projection over one base table. It owns no state across calls:
// Read and Write each compile and run independently.
type View struct {
	table     string
	fields    []Field
	filter    any
	args      map[string]any
	order     []orderTerm
	limit     int
	hasLimit  bool
	offset    int
	hasOffset bool
}

// New returns a View over table projecting the given dotted field paths or
// s-expressions, each becoming its own result column under its own text as
// alias.
func New(table string, fields ...string) *View {
	fs := make([]Field, len(fields))
	for i, f := range fields {
		fs[i] = Field{Alias: f, Expr: f}
	}
	return &View{table: table, fields: fs}
}

// NewFields returns a View over table whose result columns are named by the
// map's keys, each compiling the corresponding expression. Keys are
// iterated in sorted order so the emitted SELECT list is deterministic.
func NewFields(table string, fields map[string]string) *View {
	aliases := make([]string, 0, len(fields))
	for a := range fields {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)

	fs := make([]Field, len(aliases))
	for i, a := range aliases {
		fs[i] = Field{Alias: a, Expr: fields[a]}
	}
	return &View{table: table, fields: fs}
}

// Filter sets the expression compiled into the WHERE clause: a raw
// s-expression (or bare field-path) string, a []any of filters implicitly
// ANDed together, or a map[string]any sugar for an equality conjunction
// over its entries (`{key: value, …}` is `(and (= key value) …)`).
func (v *View) Filter(expr any) *View {
	v.filter = expr
	return v
}

// Args binds the argument dict resolvable as `{name}`/`{name.attr}`
// placeholders within this view's filter, fields, and order terms.
func (v *View) Args(args map[string]any) *View {
	v.args = args
	return v
}

// Order appends ORDER BY terms. Each term is a dotted field path or
// s-expression, optionally suffixed with " desc" or " asc" (default asc).
func (v *View) Order(terms ...string) *View {
	for _, t := range terms {
		v.order = append(v.order, parseOrderTerm(t))
	}
	return v
}

func parseOrderTerm(t string) orderTerm {
	for _, suffix := range []string{" desc", " DESC"} {
		if rest, ok := cutSuffix(t, suffix); ok {
			return orderTerm{expr: rest, desc: true}
		}
	}
	for _, suffix := range []string{" asc", " ASC"} {
		if rest, ok := cutSuffix(t, suffix); ok {
			return orderTerm{expr: rest}
		}
	}
	return orderTerm{expr: t}
}

func cutSuffix(s, suffix string) (string, bool) {
	if len(s) < len(suffix) || s[len(s)-len(suffix):] != suffix {
		return s, false
	}
	return s[:len(s)-len(suffix)], true
}

// Limit sets a row limit.
func (v *View) Limit(n int) *View {
	v.limit = n
	v.hasLimit = true
	return v
}

// Offset sets a row offset.
func (v *View) Offset(n int) *View {
	v.offset = n
	v.hasOffset = true
	return v
}
