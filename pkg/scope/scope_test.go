// SPDX-License-Identifier: Apache-2.0

package scope_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/tanker/pkg/schema"
	"github.com/xataio/tanker/pkg/scope"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.Load([]byte(`
- table: country
  columns:
    name: varchar
  key: [name]
`))
	require.NoError(t, err)
	return reg
}

func TestFromFailsOutsideConnect(t *testing.T) {
	_, err := scope.From(context.Background())
	require.Error(t, err)
	assert.IsType(t, scope.NotInScopeError{}, err)
}

func TestConnectRejectsEmptyConfig(t *testing.T) {
	err := scope.Connect(context.Background(), scope.Config{}, func(ctx context.Context) error {
		t.Fatal("fn should not run")
		return nil
	})
	require.Error(t, err)
	assert.IsType(t, scope.ConfigError{}, err)
}

func TestConnectMakesScopeAvailable(t *testing.T) {
	cfg := scope.Config{DBURI: "sqlite://" + t.TempDir() + "/tanker.db", Registry: testRegistry(t)}

	err := scope.Connect(context.Background(), cfg, func(ctx context.Context) error {
		s, err := scope.From(ctx)
		require.NoError(t, err)
		assert.NotNil(t, s.Tx())
		assert.Same(t, cfg.Registry, s.Registry())
		return nil
	})
	require.NoError(t, err)
}

func TestNestedConnectUsesSavepoint(t *testing.T) {
	cfg := scope.Config{DBURI: "sqlite://" + t.TempDir() + "/tanker.db", Registry: testRegistry(t)}

	err := scope.Connect(context.Background(), cfg, func(ctx context.Context) error {
		outer, err := scope.From(ctx)
		require.NoError(t, err)

		return scope.Connect(ctx, cfg, func(ctx context.Context) error {
			inner, err := scope.From(ctx)
			require.NoError(t, err)
			assert.Same(t, outer.Tx(), inner.Tx())
			return nil
		})
	})
	require.NoError(t, err)
}

func TestNestedConnectRollsBackOnError(t *testing.T) {
	cfg := scope.Config{DBURI: "sqlite://" + t.TempDir() + "/tanker.db", Registry: testRegistry(t)}
	boom := assertError("boom")

	err := scope.Connect(context.Background(), cfg, func(ctx context.Context) error {
		s, err := scope.From(ctx)
		require.NoError(t, err)
		_, err = s.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
		require.NoError(t, err)

		innerErr := scope.Connect(ctx, cfg, func(ctx context.Context) error {
			inner, err := scope.From(ctx)
			require.NoError(t, err)
			_, err = inner.ExecContext(ctx, "INSERT INTO t (id) VALUES (1)")
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, innerErr, boom)

		var count int
		row := s.Tx().QueryRowContext(ctx, "SELECT COUNT(*) FROM t")
		require.NoError(t, row.Scan(&count))
		assert.Equal(t, 0, count)
		return nil
	})
	require.NoError(t, err)
}

type assertError string

func (e assertError) Error() string { return string(e) }
