// SPDX-License-Identifier: Apache-2.0

package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/tanker/pkg/schema"
)

func countryTeamRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	reg := schema.New()

	country := schema.NewTable("country", []string{"name"})
	country.AddColumn(&schema.Column{Name: "name", Kind: schema.KindScalar, Type: schema.TypeVarchar, NotNull: true})
	country.AddColumn(&schema.Column{Name: "teams", Kind: schema.KindO2M, SourceTable: "team", SourceColumn: "country"})
	reg.AddTable(country)

	team := schema.NewTable("team", []string{"name", "country"})
	team.AddColumn(&schema.Column{Name: "name", Kind: schema.KindScalar, Type: schema.TypeVarchar, NotNull: true})
	team.AddColumn(&schema.Column{Name: "country", Kind: schema.KindM2O, RefTable: "country", RefColumn: "id"})
	reg.AddTable(team)

	require.NoError(t, reg.Build())
	return reg
}

func TestBuildLinksEdges(t *testing.T) {
	reg := countryTeamRegistry(t)

	team := reg.GetTable("team")
	edge, ok := team.GetEdge("country")
	require.True(t, ok)
	assert.Equal(t, schema.KindM2O, edge.Kind)
	assert.Equal(t, "country", edge.TargetTable)
	assert.Equal(t, "id", edge.TargetColumn)

	country := reg.GetTable("country")
	edge, ok = country.GetEdge("teams")
	require.True(t, ok)
	assert.Equal(t, schema.KindO2M, edge.Kind)
	assert.Equal(t, "team", edge.TargetTable)
	assert.Equal(t, "country", edge.SourceColumn)
	assert.Equal(t, "id", edge.TargetColumn)
}

func TestBuildRejectsMissingKey(t *testing.T) {
	reg := schema.New()
	t1 := schema.NewTable("widget", nil)
	reg.AddTable(t1)

	err := reg.Build()
	require.Error(t, err)
	assert.IsType(t, schema.NoNaturalKeyError{}, err)
}

func TestBuildRejectsO2MKeyColumn(t *testing.T) {
	reg := schema.New()
	parent := schema.NewTable("parent", []string{"name"})
	parent.AddColumn(&schema.Column{Name: "name", Kind: schema.KindScalar, Type: schema.TypeVarchar})
	reg.AddTable(parent)

	child := schema.NewTable("child", []string{"parent"})
	child.AddColumn(&schema.Column{Name: "parent", Kind: schema.KindO2M, SourceTable: "parent", SourceColumn: "child"})
	reg.AddTable(child)

	err := reg.Build()
	require.Error(t, err)
	assert.IsType(t, schema.InvalidKeyColumnError{}, err)
}

func TestBuildRejectsUnknownM2OTarget(t *testing.T) {
	reg := schema.New()
	team := schema.NewTable("team", []string{"name"})
	team.AddColumn(&schema.Column{Name: "name", Kind: schema.KindScalar, Type: schema.TypeVarchar})
	team.AddColumn(&schema.Column{Name: "country", Kind: schema.KindM2O, RefTable: "country", RefColumn: "id"})
	reg.AddTable(team)

	err := reg.Build()
	require.Error(t, err)
	assert.IsType(t, schema.UnknownRelationTargetError{}, err)
}
