// SPDX-License-Identifier: Apache-2.0

package compile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/tanker/pkg/compile"
	"github.com/xataio/tanker/pkg/dialect/pg"
	"github.com/xataio/tanker/pkg/schema"
	"github.com/xataio/tanker/pkg/sexpr"
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
    age: integer
  key: [name]
`))
	require.NoError(t, err)
	return reg
}

func compileExpr(t *testing.T, ctx *compile.Context, src string) string {
	t.Helper()
	n, err := sexpr.Parse(src)
	require.NoError(t, err)
	sql, err := ctx.Compile(n)
	require.NoError(t, err)
	return sql
}

func TestCompileFieldPath(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "team", nil, nil)
	sql := compileExpr(t, ctx, "country.name")
	assert.Equal(t, `"country_1"."name"`, sql)
	require.Len(t, ctx.Joins(), 1)
	assert.Equal(t, "country", ctx.Joins()[0].Table)
}

func TestCompileComparisonWithPlaceholder(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "speaker", map[string]any{"n": "Ada"}, nil)
	sql := compileExpr(t, ctx, `(= name {n})`)
	assert.Equal(t, `("speaker"."name" = $1)`, sql)
	assert.Equal(t, []any{"Ada"}, ctx.Params())
}

func TestPlaceholderParamsCountOneEach(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "speaker",
		map[string]any{"a": 1, "b": 2}, nil)
	sql := compileExpr(t, ctx, `(and (> age {a}) (< age {b}))`)
	assert.Contains(t, sql, "$1")
	assert.Contains(t, sql, "$2")
	assert.Equal(t, []any{1, 2}, ctx.Params())
}

func TestPlaceholderListExpandsToMultipleParams(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "speaker",
		map[string]any{"names": []string{"Ada", "Grace", "Marie"}}, nil)
	sql := compileExpr(t, ctx, `(in name {names})`)
	assert.Equal(t, `("speaker"."name" IN ($1, $2, $3))`, sql)
	assert.Equal(t, []any{"Ada", "Grace", "Marie"}, ctx.Params())
}

func TestSharedPathPrefixReusesJoinAcrossCompiles(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "speaker", nil, nil)
	a := compileExpr(t, ctx, "team.country.name")
	b := compileExpr(t, ctx, "team.name")
	_ = a
	_ = b
	require.Len(t, ctx.Joins(), 2) // speaker->team, team->country, shared "team" prefix counted once
}

func TestAggregateMarksContext(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "speaker", nil, nil)
	_ = compileExpr(t, ctx, "(count *)")
	assert.True(t, ctx.IsAggregate())
}

func TestNonAggregateDoesNotMarkContext(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "speaker", map[string]any{"n": "Ada"}, nil)
	_ = compileExpr(t, ctx, "(= name {n})")
	assert.False(t, ctx.IsAggregate())
}

func TestUnknownHeadFails(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "speaker", nil, nil)
	n, err := sexpr.Parse("(frobnicate name)")
	require.NoError(t, err)
	_, err = ctx.Compile(n)
	require.Error(t, err)
	assert.IsType(t, sexpr.ParseError{}, err)
}

func TestMissingArgumentFails(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "speaker", nil, nil)
	n, err := sexpr.Parse(`(= name {missing})`)
	require.NoError(t, err)
	_, err = ctx.Compile(n)
	require.Error(t, err)
	assert.IsType(t, compile.ArgError{}, err)
}

func TestCorrelatedExistsUsesParentScope(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "team", nil, nil)
	sql := compileExpr(t, ctx, `(exists (from speaker (where (= team _parent.id))))`)
	assert.Contains(t, sql, "EXISTS (SELECT * FROM")
	assert.Contains(t, sql, `"speaker"."team" = "team"."id"`)
	// the correlated reference resolves against the outer context, whose own
	// join list stays empty: `team` is the base table, not a joined path.
	assert.Empty(t, ctx.Joins())
}

func TestFromWithSelectAndWhere(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "team", nil, nil)
	sql := compileExpr(t, ctx, `(from speaker (select (count *)) (where (= team _parent.id)))`)
	assert.Contains(t, sql, "SELECT COUNT(*) FROM")
	assert.Contains(t, sql, "WHERE")
}

func TestCastUsesDialectColumnType(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "speaker", nil, nil)
	sql := compileExpr(t, ctx, `(cast age "varchar")`)
	assert.Equal(t, `CAST("speaker"."age" AS TEXT)`, sql)
}

func TestStringLiteralEscapesQuotes(t *testing.T) {
	ctx := compile.New(countryTeamSpeaker(t), pg.New(), compile.Default(), "speaker", nil, nil)
	sql := compileExpr(t, ctx, `'O''Brien'`)
	assert.Equal(t, `'O''Brien'`, sql)
}
