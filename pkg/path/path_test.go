// SPDX-License-Identifier: Apache-2.0

package path_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/tanker/pkg/path"
	"github.com/xataio/tanker/pkg/schema"
)

func countryTeamSpeaker(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.Load([]byte(`
- table: country
  columns:
    name: varchar
  key: [name]

- table: team
  columns:
    name: varchar
    country: m2o country.id
    roster: o2m speaker.team
  key: [name, country]

- table: speaker
  columns:
    name: varchar
    team: m2o team.id
  key: [name]
`))
	require.NoError(t, err)
	return reg
}

func TestResolveBareID(t *testing.T) {
	r := path.NewResolver(countryTeamSpeaker(t), "country")
	res, err := r.Resolve("id")
	require.NoError(t, err)
	assert.Equal(t, "country.id", res.Column)
	assert.Empty(t, res.Joins)
}

func TestResolveM2OTerminalWithoutDot(t *testing.T) {
	r := path.NewResolver(countryTeamSpeaker(t), "team")
	res, err := r.Resolve("country")
	require.NoError(t, err)
	assert.Equal(t, "team.country", res.Column)
	assert.Equal(t, "team", res.Table)
	assert.Empty(t, res.Joins)
}

func TestResolveM2OThroughJoin(t *testing.T) {
	r := path.NewResolver(countryTeamSpeaker(t), "team")
	res, err := r.Resolve("country.name")
	require.NoError(t, err)
	require.Len(t, res.Joins, 1)
	assert.Equal(t, "country_1", res.Joins[0].Alias)
	assert.Equal(t, "country_1.name", res.Column)
}

func TestResolveSharedPrefixReusesAlias(t *testing.T) {
	r := path.NewResolver(countryTeamSpeaker(t), "speaker")
	a, err := r.Resolve("team.name")
	require.NoError(t, err)
	b, err := r.Resolve("team.country.name")
	require.NoError(t, err)

	assert.Equal(t, a.Joins[0].Alias, b.Joins[0].Alias)
	assert.Len(t, r.Joins(), 2)
}

func TestResolveO2M(t *testing.T) {
	r := path.NewResolver(countryTeamSpeaker(t), "team")
	res, err := r.Resolve("roster.name")
	require.NoError(t, err)
	require.Len(t, res.Joins, 1)
	assert.Equal(t, "speaker", res.Joins[0].Table)
	assert.Equal(t, "id", res.Joins[0].LeftColumn)
	assert.Equal(t, "team", res.Joins[0].RightColumn)
}

func TestResolveUnknownFieldFails(t *testing.T) {
	r := path.NewResolver(countryTeamSpeaker(t), "team")
	_, err := r.Resolve("nope")
	require.Error(t, err)
	assert.IsType(t, path.ResolveError{}, err)
}

func TestResolveNonTerminalScalarFails(t *testing.T) {
	r := path.NewResolver(countryTeamSpeaker(t), "team")
	_, err := r.Resolve("name.nope")
	require.Error(t, err)
}

func TestResolveFromStartsAtExplicitAliasAndSharesJoins(t *testing.T) {
	r := path.NewResolver(countryTeamSpeaker(t), "speaker")
	main, err := r.Resolve("team.name")
	require.NoError(t, err)
	teamAlias := main.Joins[0].Alias

	// An ACL attached to "team", compiled against the alias already
	// allocated for it in the main query, must land its own join onto the
	// same shared join list rather than re-joining team a second time.
	acl, err := r.ResolveFrom("team", teamAlias, "country.name")
	require.NoError(t, err)
	require.Len(t, acl.Joins, 1)
	assert.Len(t, r.Joins(), 2) // speaker->team (from main) + team->country (from acl)
}
