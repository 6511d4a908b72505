// SPDX-License-Identifier: Apache-2.0

package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/tanker/pkg/schema"
)

const speakerSchema = `
- table: country
  columns:
    name: varchar
  key: [name]

- table: team
  columns:
    name: varchar
    country: m2o country.id
  key: [name, country]

- table: speaker
  columns:
    name: varchar
    bio: varchar
  key: [name]
`

func TestLoadBuildsRegistry(t *testing.T) {
	reg, err := schema.Load([]byte(speakerSchema))
	require.NoError(t, err)

	team := reg.GetTable("team")
	require.NotNil(t, team)
	assert.Equal(t, []string{"name", "country"}, team.Key)

	edge, ok := team.GetEdge("country")
	require.True(t, ok)
	assert.Equal(t, "country", edge.TargetTable)
}

func TestLoadRejectsMalformedDocument(t *testing.T) {
	_, err := schema.Load([]byte(`- table: bad`))
	require.Error(t, err)
}

func TestLoadRejectsUnknownScalarType(t *testing.T) {
	_, err := schema.Load([]byte(`
- table: widget
  columns:
    name: nonsense
  key: [name]
`))
	require.Error(t, err)
}
