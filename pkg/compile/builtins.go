// SPDX-License-Identifier: Apache-2.0

package compile

import (
	"strconv"
	"strings"

	"github.com/xataio/tanker/pkg/schema"
	"github.com/xataio/tanker/pkg/sexpr"
)

// LowerFunc lowers one List form (already dispatched on its head) to SQL.
type LowerFunc func(c *Context, list *sexpr.List) (string, error)

// HeadTable is the open head-symbol dispatch table. Default returns the
// builtin set; callers may add to a copy of it before compiling.
type HeadTable map[string]LowerFunc

// IsAggregateNode reports whether n is a top-level call to an aggregate
// head (count/sum/avg/min/max), independent of any Context's accumulated
// IsAggregate state. Used by view compilation to decide, per projected
// field, whether that field belongs in GROUP BY.
func IsAggregateNode(n sexpr.Node) bool {
	list, ok := n.(*sexpr.List)
	return ok && aggregateHeads[list.Head]
}

var aggregateHeads = map[string]bool{
	"count": true,
	"sum":   true,
	"avg":   true,
	"min":   true,
	"max":   true,
}

// Default returns the builtin head table: boolean logic, comparisons,
// arithmetic, aggregates, and the from/exists sub-view forms.
func Default() HeadTable {
	return HeadTable{
		"and": lowerVariadicBool("AND"),
		"or":  lowerVariadicBool("OR"),
		"not": lowerNot,

		"=":  lowerInfix("="),
		"!=": lowerInfix("!="),
		"<":  lowerInfix("<"),
		"<=": lowerInfix("<="),
		">":  lowerInfix(">"),
		">=": lowerInfix(">="),

		"like":  lowerLike(false),
		"ilike": lowerLike(true),
		"in":    lowerIn,
		"is":    lowerIs,

		"+": lowerArith("+"),
		"-": lowerArith("-"),
		"*": lowerArith("*"),
		"/": lowerArith("/"),

		"extract": lowerExtract,
		"cast":    lowerCast,

		"coalesce": lowerVariadicFunc("COALESCE"),
		"nullif":   lowerFixedFunc("NULLIF", 2),

		"count": lowerAggregate("COUNT"),
		"sum":   lowerAggregate("SUM"),
		"avg":   lowerAggregate("AVG"),
		"min":   lowerAggregate("MIN"),
		"max":   lowerAggregate("MAX"),

		"exists": lowerExists,
		"from":   lowerFrom,

		"select": lowerMarkerOnly("select"),
		"where":  lowerMarkerOnly("where"),
	}
}

func (c *Context) compileList(list *sexpr.List) (string, error) {
	fn, ok := c.Heads[list.Head]
	if !ok {
		return "", sexpr.ParseError{Pos: list.Pos, Reason: "unknown head " + strconv.Quote(list.Head)}
	}
	if aggregateHeads[list.Head] {
		c.aggregate = true
	}
	return fn(c, list)
}

func (c *Context) compileArgs(list *sexpr.List) ([]string, error) {
	out := make([]string, len(list.Args))
	for i, a := range list.Args {
		s, err := c.Compile(a)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func lowerVariadicBool(op string) LowerFunc {
	return func(c *Context, list *sexpr.List) (string, error) {
		if len(list.Args) == 0 {
			return "", FormError{Head: list.Head, Reason: "requires at least one argument"}
		}
		parts, err := c.compileArgs(list)
		if err != nil {
			return "", err
		}
		for i, p := range parts {
			parts[i] = "(" + p + ")"
		}
		return strings.Join(parts, " "+op+" "), nil
	}
}

func lowerNot(c *Context, list *sexpr.List) (string, error) {
	if len(list.Args) != 1 {
		return "", FormError{Head: "not", Reason: "requires exactly one argument"}
	}
	arg, err := c.Compile(list.Args[0])
	if err != nil {
		return "", err
	}
	return "NOT (" + arg + ")", nil
}

func lowerInfix(op string) LowerFunc {
	return func(c *Context, list *sexpr.List) (string, error) {
		if len(list.Args) != 2 {
			return "", FormError{Head: op, Reason: "requires exactly two arguments"}
		}
		left, err := c.Compile(list.Args[0])
		if err != nil {
			return "", err
		}
		right, err := c.Compile(list.Args[1])
		if err != nil {
			return "", err
		}
		return "(" + left + " " + op + " " + right + ")", nil
	}
}

func lowerArith(op string) LowerFunc {
	return func(c *Context, list *sexpr.List) (string, error) {
		if len(list.Args) < 2 {
			return "", FormError{Head: op, Reason: "requires at least two arguments"}
		}
		parts, err := c.compileArgs(list)
		if err != nil {
			return "", err
		}
		return "(" + strings.Join(parts, " "+op+" ") + ")", nil
	}
}

func lowerLike(caseInsensitive bool) LowerFunc {
	return func(c *Context, list *sexpr.List) (string, error) {
		if len(list.Args) != 2 {
			return "", FormError{Head: list.Head, Reason: "requires exactly two arguments"}
		}
		left, err := c.Compile(list.Args[0])
		if err != nil {
			return "", err
		}
		right, err := c.Compile(list.Args[1])
		if err != nil {
			return "", err
		}
		operator, collation := c.Dialect.LikeOperator(caseInsensitive)
		return "(" + left + " " + operator + " " + right + collation + ")", nil
	}
}

func lowerIn(c *Context, list *sexpr.List) (string, error) {
	if len(list.Args) < 2 {
		return "", FormError{Head: "in", Reason: "requires a target and at least one candidate"}
	}
	target, err := c.Compile(list.Args[0])
	if err != nil {
		return "", err
	}
	rest, err := c.compileArgs(&sexpr.List{Head: "in", Args: list.Args[1:]})
	if err != nil {
		return "", err
	}
	return "(" + target + " IN (" + strings.Join(rest, ", ") + "))", nil
}

func lowerIs(c *Context, list *sexpr.List) (string, error) {
	if len(list.Args) != 2 {
		return "", FormError{Head: "is", Reason: "requires exactly two arguments"}
	}
	left, err := c.Compile(list.Args[0])
	if err != nil {
		return "", err
	}

	if sym, ok := list.Args[1].(*sexpr.Symbol); ok {
		switch sym.Name {
		case "null":
			return "(" + left + " IS NULL)", nil
		case "not_null":
			return "(" + left + " IS NOT NULL)", nil
		}
	}

	right, err := c.Compile(list.Args[1])
	if err != nil {
		return "", err
	}
	return "(" + left + " IS " + right + ")", nil
}

func lowerExtract(c *Context, list *sexpr.List) (string, error) {
	if len(list.Args) != 2 {
		return "", FormError{Head: "extract", Reason: "requires a unit string and an expression"}
	}
	unit, ok := list.Args[0].(*sexpr.String)
	if !ok {
		return "", FormError{Head: "extract", Reason: "first argument must be a string naming the unit"}
	}
	expr, err := c.Compile(list.Args[1])
	if err != nil {
		return "", err
	}
	return c.Dialect.Extract(unit.Value, expr), nil
}

func lowerCast(c *Context, list *sexpr.List) (string, error) {
	if len(list.Args) != 2 {
		return "", FormError{Head: "cast", Reason: "requires an expression and a target type string"}
	}
	typeName, ok := list.Args[1].(*sexpr.String)
	if !ok {
		return "", FormError{Head: "cast", Reason: "second argument must be a string naming the target type"}
	}
	expr, err := c.Compile(list.Args[0])
	if err != nil {
		return "", err
	}
	return "CAST(" + expr + " AS " + c.Dialect.ColumnType(schema.ScalarType(typeName.Value), false) + ")", nil
}

func lowerVariadicFunc(name string) LowerFunc {
	return func(c *Context, list *sexpr.List) (string, error) {
		if len(list.Args) == 0 {
			return "", FormError{Head: list.Head, Reason: "requires at least one argument"}
		}
		parts, err := c.compileArgs(list)
		if err != nil {
			return "", err
		}
		return name + "(" + strings.Join(parts, ", ") + ")", nil
	}
}

func lowerFixedFunc(name string, arity int) LowerFunc {
	return func(c *Context, list *sexpr.List) (string, error) {
		if len(list.Args) != arity {
			return "", FormError{Head: list.Head, Reason: "requires exactly " + strconv.Itoa(arity) + " arguments"}
		}
		parts, err := c.compileArgs(list)
		if err != nil {
			return "", err
		}
		return name + "(" + strings.Join(parts, ", ") + ")", nil
	}
}

func lowerAggregate(name string) LowerFunc {
	return func(c *Context, list *sexpr.List) (string, error) {
		if len(list.Args) != 1 {
			return "", FormError{Head: list.Head, Reason: "requires exactly one argument"}
		}
		if sym, ok := list.Args[0].(*sexpr.Symbol); ok && sym.Name == "*" {
			return name + "(*)", nil
		}
		arg, err := c.Compile(list.Args[0])
		if err != nil {
			return "", err
		}
		return name + "(" + arg + ")", nil
	}
}

func lowerMarkerOnly(head string) LowerFunc {
	return func(c *Context, list *sexpr.List) (string, error) {
		return "", FormError{Head: head, Reason: "only valid directly inside a from form"}
	}
}

// lowerExists compiles (exists (from …)) to a correlated EXISTS clause.
func lowerExists(c *Context, list *sexpr.List) (string, error) {
	if len(list.Args) != 1 {
		return "", FormError{Head: "exists", Reason: "requires exactly one argument"}
	}
	inner, ok := list.Args[0].(*sexpr.List)
	if !ok || inner.Head != "from" {
		return "", FormError{Head: "exists", Reason: "argument must be a from form"}
	}
	sub, err := lowerFrom(c, inner)
	if err != nil {
		return "", err
	}
	return "EXISTS " + sub, nil
}

// lowerFrom compiles (from table [(where expr)] [(select expr)]) into a
// correlated sub-SELECT: table is a fresh FROM root (not a field path on the
// enclosing table), and an expr inside its where/select form may reach the
// enclosing row via `_parent.…` symbols, which resolve against the outer
// context's resolver rather than this sub-view's own.
func lowerFrom(c *Context, list *sexpr.List) (string, error) {
	if len(list.Args) == 0 {
		return "", FormError{Head: "from", Reason: "requires a base table"}
	}

	table, err := baseTableName(list.Args[0])
	if err != nil {
		return "", err
	}

	sub := c.Sub(table)

	projection := "*"
	where := ""

	for _, arg := range list.Args[1:] {
		marker, ok := arg.(*sexpr.List)
		if !ok {
			return "", FormError{Head: "from", Reason: "expected a (select …) or (where …) form"}
		}
		if len(marker.Args) != 1 {
			return "", FormError{Head: marker.Head, Reason: "requires exactly one argument"}
		}

		switch marker.Head {
		case "select":
			projection, err = sub.Compile(marker.Args[0])
			if err != nil {
				return "", err
			}
		case "where":
			where, err = sub.Compile(marker.Args[0])
			if err != nil {
				return "", err
			}
		default:
			return "", FormError{Head: "from", Reason: "unexpected form " + strconv.Quote(marker.Head)}
		}
	}

	q := c.Dialect.Quote
	sql := "(SELECT " + projection + " FROM " + q(table) + " AS " + q(table) + RenderJoins(c.Dialect, sub.Joins())
	if where != "" {
		sql += " WHERE " + where
	}
	sql += ")"

	return sql, nil
}

func baseTableName(n sexpr.Node) (string, error) {
	switch v := n.(type) {
	case *sexpr.Symbol:
		return v.Name, nil
	case *sexpr.String:
		return v.Value, nil
	default:
		return "", FormError{Head: "from", Reason: "base table must be a bare name"}
	}
}
