// SPDX-License-Identifier: Apache-2.0

package sexpr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/tanker/pkg/sexpr"
)

func TestParseSymbol(t *testing.T) {
	n, err := sexpr.Parse("country.name")
	require.NoError(t, err)
	sym, ok := n.(*sexpr.Symbol)
	require.True(t, ok)
	assert.Equal(t, "country.name", sym.Name)
}

func TestParseNumber(t *testing.T) {
	n, err := sexpr.Parse("-12.5")
	require.NoError(t, err)
	num, ok := n.(*sexpr.Number)
	require.True(t, ok)
	assert.Equal(t, "-12.5", num.Raw)
}

func TestParseString(t *testing.T) {
	n, err := sexpr.Parse(`"Belgium"`)
	require.NoError(t, err)
	str, ok := n.(*sexpr.String)
	require.True(t, ok)
	assert.Equal(t, "Belgium", str.Value)
}

func TestParseDoubledQuoteEscape(t *testing.T) {
	n, err := sexpr.Parse(`'O''Brien'`)
	require.NoError(t, err)
	str := n.(*sexpr.String)
	assert.Equal(t, "O'Brien", str.Value)
}

func TestParsePlaceholderBare(t *testing.T) {
	n, err := sexpr.Parse("{c}")
	require.NoError(t, err)
	ph := n.(*sexpr.Placeholder)
	assert.Equal(t, "c", ph.Name)
	assert.Empty(t, ph.Attr)
}

func TestParsePlaceholderWithAttr(t *testing.T) {
	n, err := sexpr.Parse("{user.id}")
	require.NoError(t, err)
	ph := n.(*sexpr.Placeholder)
	assert.Equal(t, "user", ph.Name)
	assert.Equal(t, "id", ph.Attr)
}

func TestParseAnonymousPlaceholder(t *testing.T) {
	n, err := sexpr.Parse("{}")
	require.NoError(t, err)
	ph := n.(*sexpr.Placeholder)
	assert.Empty(t, ph.Name)
}

func TestParseNestedList(t *testing.T) {
	n, err := sexpr.Parse(`(and (= country.name {c}) (> id 1))`)
	require.NoError(t, err)
	list := n.(*sexpr.List)
	assert.Equal(t, "and", list.Head)
	require.Len(t, list.Args, 2)

	eq := list.Args[0].(*sexpr.List)
	assert.Equal(t, "=", eq.Head)
	require.Len(t, eq.Args, 2)
	assert.Equal(t, "country.name", eq.Args[0].(*sexpr.Symbol).Name)
	assert.Equal(t, "c", eq.Args[1].(*sexpr.Placeholder).Name)
}

func TestParseRejectsUnbalancedParens(t *testing.T) {
	_, err := sexpr.Parse("(and (= a b)")
	require.Error(t, err)
	assert.IsType(t, sexpr.ParseError{}, err)
}

func TestParseRejectsTrailingInput(t *testing.T) {
	_, err := sexpr.Parse("(= a b) extra")
	require.Error(t, err)
}

func TestParseCountStar(t *testing.T) {
	n, err := sexpr.Parse("(count *)")
	require.NoError(t, err)
	list := n.(*sexpr.List)
	assert.Equal(t, "count", list.Head)
	assert.Equal(t, "*", list.Args[0].(*sexpr.Symbol).Name)
}
