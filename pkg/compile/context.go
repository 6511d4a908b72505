// SPDX-License-Identifier: Apache-2.0

// Package compile lowers an s-expression AST, resolved field paths, and
// argument bindings into SQL text plus a positional parameter list. The
// head-symbol dispatch table (HeadTable) is open: callers may register new
// heads before compiling.
package compile

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/xataio/tanker/pkg/dialect"
	"github.com/xataio/tanker/pkg/path"
	"github.com/xataio/tanker/pkg/schema"
	"github.com/xataio/tanker/pkg/sexpr"
)

// Context carries everything one expression tree needs while it is being
// lowered: the view being compiled (via its path.Resolver), the shared
// parameter accumulator, and a parent pointer used to resolve `_parent.…`
// inside correlated sub-views.
type Context struct {
	Dialect  dialect.Dialect
	Registry *schema.Registry
	Heads    HeadTable

	resolver *path.Resolver
	table    string // root (table, alias) this context resolves bare symbols from
	alias    string
	params   *[]any
	parent   *Context
	args     map[string]any
	cfgArgs  map[string]any
	aggregate bool
}

// New returns the root Context for a view compiled against base.
func New(reg *schema.Registry, d dialect.Dialect, heads HeadTable, base string, args, cfgArgs map[string]any) *Context {
	return &Context{
		Dialect:  d,
		Registry: reg,
		Heads:    heads,
		resolver: path.NewResolver(reg, base),
		table:    base,
		alias:    base,
		params:   new([]any),
		args:     args,
		cfgArgs:  cfgArgs,
	}
}

// Sub opens a nested Context for a correlated sub-view rooted at base,
// sharing the parameter accumulator (sub-view params interleave
// depth-first with the outer view's) and exposing this Context as its
// parent for `_parent.…` resolution. A sub-view gets its own resolver and
// join list: it assembles an independent nested SELECT, not additional
// joins onto the outer one.
func (c *Context) Sub(base string) *Context {
	return &Context{
		Dialect:  c.Dialect,
		Registry: c.Registry,
		Heads:    c.Heads,
		resolver: path.NewResolver(c.Registry, base),
		table:    base,
		alias:    base,
		params:   c.params,
		parent:   c,
		args:     c.args,
		cfgArgs:  c.cfgArgs,
	}
}

// AtAlias returns a Context that resolves bare symbols against table via an
// already-allocated alias, instead of this Context's own root, while
// sharing its resolver (so any further joins it needs land on the same
// shared join list) and its parameter accumulator. Used to compile an ACL
// filter attached to a table reached partway through an already-joined
// path.
func (c *Context) AtAlias(table, alias string) *Context {
	return &Context{
		Dialect:  c.Dialect,
		Registry: c.Registry,
		Heads:    c.Heads,
		resolver: c.resolver,
		table:    table,
		alias:    alias,
		params:   c.params,
		parent:   c.parent,
		args:     c.args,
		cfgArgs:  c.cfgArgs,
	}
}

// Params returns the parameter values accumulated so far, in the order
// their placeholders were encountered.
func (c *Context) Params() []any { return *c.params }

// Joins returns the joins this context's resolver has allocated, in
// allocation order.
func (c *Context) Joins() []path.Join { return c.resolver.Joins() }

// IsAggregate reports whether any List compiled so far through this
// context used an aggregate head (count/sum/avg/min/max); once set, the
// flag is never cleared.
func (c *Context) IsAggregate() bool { return c.aggregate }

// Compile lowers one AST node to a SQL fragment.
func (c *Context) Compile(n sexpr.Node) (string, error) {
	switch v := n.(type) {
	case *sexpr.Symbol:
		return c.compileSymbol(v)
	case *sexpr.Number:
		return v.Raw, nil
	case *sexpr.String:
		return quoteLiteral(v.Value), nil
	case *sexpr.Placeholder:
		return c.compilePlaceholder(v)
	case *sexpr.List:
		return c.compileList(v)
	default:
		return "", FormError{Reason: fmt.Sprintf("unsupported node %T", n)}
	}
}

func (c *Context) compileSymbol(s *sexpr.Symbol) (string, error) {
	if s.Name == "*" {
		return "*", nil
	}
	if rest, ok := strings.CutPrefix(s.Name, "_parent."); ok {
		if c.parent == nil {
			return "", path.ResolveError{Path: s.Name, Reason: "_parent used outside a sub-view"}
		}
		return c.parent.resolveQualified(rest)
	}
	return c.resolveQualified(s.Name)
}

func (c *Context) resolveQualified(p string) (string, error) {
	res, err := c.resolver.ResolveFrom(c.table, c.alias, p)
	if err != nil {
		return "", err
	}
	return c.Dialect.Quote(res.TableAlias) + "." + c.Dialect.Quote(res.ColumnName), nil
}

func (c *Context) compilePlaceholder(p *sexpr.Placeholder) (string, error) {
	val, err := c.lookupArg(p.Name, p.Attr)
	if err != nil {
		return "", err
	}

	if list, ok := asSlice(val); ok {
		markers := make([]string, len(list))
		for i, v := range list {
			markers[i] = c.bindParam(v)
		}
		return strings.Join(markers, ", "), nil
	}

	return c.bindParam(val), nil
}

func (c *Context) bindParam(v any) string {
	*c.params = append(*c.params, v)
	return c.Dialect.Placeholder(len(*c.params))
}

// lookupArg resolves {name} or {name.attr} against the per-call args dict
// first, falling back to the scope's config args for {cfg_key}-style
// globals.
func (c *Context) lookupArg(name, attr string) (any, error) {
	val, ok := c.args[name]
	if !ok {
		val, ok = c.cfgArgs[name]
	}
	if !ok {
		return nil, ArgError{Name: name, Attr: attr, Reason: "no value bound"}
	}
	if attr == "" {
		return val, nil
	}
	return lookupAttr(val, name, attr)
}

// lookupAttr resolves a dotted attribute/item chain against val using
// reflection: struct/map field access by name, or slice/array indexing by
// integer.
func lookupAttr(val any, name, attrPath string) (any, error) {
	cur := reflect.ValueOf(val)
	for _, attr := range strings.Split(attrPath, ".") {
		for cur.Kind() == reflect.Pointer || cur.Kind() == reflect.Interface {
			cur = cur.Elem()
		}

		switch cur.Kind() {
		case reflect.Map:
			v := cur.MapIndex(reflect.ValueOf(attr))
			if !v.IsValid() {
				return nil, ArgError{Name: name, Attr: attrPath, Reason: "no key " + strconv.Quote(attr)}
			}
			cur = v
		case reflect.Struct:
			v := cur.FieldByName(attr)
			if !v.IsValid() {
				return nil, ArgError{Name: name, Attr: attrPath, Reason: "no field " + strconv.Quote(attr)}
			}
			cur = v
		case reflect.Slice, reflect.Array:
			idx, err := strconv.Atoi(attr)
			if err != nil || idx < 0 || idx >= cur.Len() {
				return nil, ArgError{Name: name, Attr: attrPath, Reason: "no index " + strconv.Quote(attr)}
			}
			cur = cur.Index(idx)
		default:
			return nil, ArgError{Name: name, Attr: attrPath, Reason: "cannot look up attribute on " + cur.Kind().String()}
		}
	}
	return cur.Interface(), nil
}

func asSlice(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false // []byte is a scalar value, not a list to expand
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// RenderJoins formats a resolver's accumulated joins as the LEFT JOIN
// clauses a read or sub-view SELECT appends after its FROM, always LEFT so
// an absent o2m row yields NULLs rather than filtering the row out.
func RenderJoins(d dialect.Dialect, joins []path.Join) string {
	var b strings.Builder
	for _, j := range joins {
		fmt.Fprintf(&b, " LEFT JOIN %s AS %s ON (%s.%s = %s.%s)",
			d.Quote(j.Table), d.Quote(j.Alias),
			d.Quote(j.LeftAlias), d.Quote(j.LeftColumn),
			d.Quote(j.Alias), d.Quote(j.RightColumn))
	}
	return b.String()
}
