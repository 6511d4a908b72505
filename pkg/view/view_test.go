// SPDX-License-Identifier: Apache-2.0

package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAliasesFieldsFromExpr(t *testing.T) {
	v := New("team", "name", "country.name")
	assert.Equal(t, []Field{
		{Alias: "name", Expr: "name"},
		{Alias: "country.name", Expr: "country.name"},
	}, v.fields)
}

func TestNewFieldsSortsByAliasForDeterminism(t *testing.T) {
	v := NewFields("team", map[string]string{
		"zebra_name": "name",
		"alpha_name": "country.name",
	})
	assert.Equal(t, "alpha_name", v.fields[0].Alias)
	assert.Equal(t, "zebra_name", v.fields[1].Alias)
}

func TestOrderParsesTrailingDirection(t *testing.T) {
	v := New("team", "name").Order("name desc", "country.name", "id ASC")
	assert.Equal(t, orderTerm{expr: "name", desc: true}, v.order[0])
	assert.Equal(t, orderTerm{expr: "country.name"}, v.order[1])
	assert.Equal(t, orderTerm{expr: "id"}, v.order[2])
}

func TestLimitAndOffsetAreOptional(t *testing.T) {
	v := New("team", "name")
	assert.False(t, v.hasLimit)
	assert.False(t, v.hasOffset)

	v = v.Limit(10).Offset(5)
	assert.True(t, v.hasLimit)
	assert.Equal(t, 10, v.limit)
	assert.True(t, v.hasOffset)
	assert.Equal(t, 5, v.offset)
}

func TestFilterAndArgsSetFields(t *testing.T) {
	v := New("team", "name").Filter("(= name {wanted})").Args(map[string]any{"wanted": "Italy"})
	assert.Equal(t, "(= name {wanted})", v.filter)
	assert.Equal(t, "Italy", v.args["wanted"])
}

func TestFilterAcceptsListAndMapSugar(t *testing.T) {
	v := New("team", "name").Filter([]any{"a", "b"})
	assert.Equal(t, []any{"a", "b"}, v.filter)

	v = New("team", "name").Filter(map[string]any{"name": "France"})
	assert.Equal(t, map[string]any{"name": "France"}, v.filter)
}
