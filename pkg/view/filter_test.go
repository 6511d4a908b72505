// SPDX-License-Identifier: Apache-2.0

package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/tanker/pkg/sexpr"
)

func TestBuildFilterNilIsNoFilter(t *testing.T) {
	node, args, err := buildFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, node)
	assert.Empty(t, args)
}

func TestBuildFilterEmptyStringIsNoFilter(t *testing.T) {
	node, _, err := buildFilter("")
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestBuildFilterStringParsesAsSexpr(t *testing.T) {
	node, _, err := buildFilter("(= name {wanted})")
	require.NoError(t, err)
	list, ok := node.(*sexpr.List)
	require.True(t, ok)
	assert.Equal(t, "=", list.Head)
}

func TestBuildFilterListIsImplicitAnd(t *testing.T) {
	node, _, err := buildFilter([]any{"(= name {a})", "(= country {b})"})
	require.NoError(t, err)
	list, ok := node.(*sexpr.List)
	require.True(t, ok)
	assert.Equal(t, "and", list.Head)
	require.Len(t, list.Args, 2)
}

func TestBuildFilterSingleElementListSkipsAnd(t *testing.T) {
	node, _, err := buildFilter([]any{"(= name {a})"})
	require.NoError(t, err)
	list, ok := node.(*sexpr.List)
	require.True(t, ok)
	assert.Equal(t, "=", list.Head)
}

func TestBuildFilterMapIsEqualityConjunction(t *testing.T) {
	node, args, err := buildFilter(map[string]any{"name": "France", "founded": 1958})
	require.NoError(t, err)

	list, ok := node.(*sexpr.List)
	require.True(t, ok)
	assert.Equal(t, "and", list.Head)
	require.Len(t, list.Args, 2)

	// sorted by key: "founded" before "name"
	founded := list.Args[0].(*sexpr.List)
	assert.Equal(t, "=", founded.Head)
	assert.Equal(t, "founded", founded.Args[0].(*sexpr.Symbol).Name)
	foundedPlaceholder := founded.Args[1].(*sexpr.Placeholder)
	assert.Equal(t, 1958, args[foundedPlaceholder.Name])

	name := list.Args[1].(*sexpr.List)
	assert.Equal(t, "name", name.Args[0].(*sexpr.Symbol).Name)
	namePlaceholder := name.Args[1].(*sexpr.Placeholder)
	assert.Equal(t, "France", args[namePlaceholder.Name])
}

func TestBuildFilterSingleEntryMapSkipsAnd(t *testing.T) {
	node, args, err := buildFilter(map[string]any{"name": "France"})
	require.NoError(t, err)

	eq, ok := node.(*sexpr.List)
	require.True(t, ok)
	assert.Equal(t, "=", eq.Head)
	placeholder := eq.Args[1].(*sexpr.Placeholder)
	assert.Equal(t, "France", args[placeholder.Name])
}

func TestBuildFilterRejectsUnsupportedType(t *testing.T) {
	_, _, err := buildFilter(42)
	var invalid InvalidFilterError
	require.ErrorAs(t, err, &invalid)
}

func TestBuildFilterNestedListOfMaps(t *testing.T) {
	node, args, err := buildFilter([]any{
		map[string]any{"name": "France"},
		"(> population {min})",
	})
	require.NoError(t, err)
	list, ok := node.(*sexpr.List)
	require.True(t, ok)
	assert.Equal(t, "and", list.Head)
	require.Len(t, list.Args, 2)
	assert.Len(t, args, 1)
}
