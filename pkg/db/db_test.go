// SPDX-License-Identifier: Apache-2.0

package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/tanker/internal/testutils"
	"github.com/xataio/tanker/pkg/db"
	"github.com/xataio/tanker/pkg/dialect/sqlite"
)

func TestExecContextRetriesUntilLockReleased(t *testing.T) {
	testutils.WithSQLiteFile(t, func(conn *sql.DB, path string) {
		ctx := context.Background()
		_, err := conn.ExecContext(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY)")
		require.NoError(t, err)

		release := holdWriteLock(t, path, 300*time.Millisecond)
		defer release()

		rdb := &db.RDB{DB: conn, Dialect: sqlite.New()}
		_, err = rdb.ExecContext(ctx, "INSERT INTO test (id) VALUES (1)")
		require.NoError(t, err)
	})
}

func TestExecContextWhenContextCancelled(t *testing.T) {
	testutils.WithSQLiteFile(t, func(conn *sql.DB, path string) {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := conn.ExecContext(context.Background(), "CREATE TABLE test (id INTEGER PRIMARY KEY)")
		require.NoError(t, err)

		release := holdWriteLock(t, path, 2*time.Second)
		defer release()

		rdb := &db.RDB{DB: conn, Dialect: sqlite.New()}

		go time.AfterFunc(100*time.Millisecond, cancel)

		_, err = rdb.ExecContext(ctx, "INSERT INTO test (id) VALUES (1)")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestWithRetryableTransaction(t *testing.T) {
	testutils.WithSQLiteFile(t, func(conn *sql.DB, path string) {
		ctx := context.Background()
		_, err := conn.ExecContext(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY)")
		require.NoError(t, err)

		release := holdWriteLock(t, path, 300*time.Millisecond)
		defer release()

		rdb := &db.RDB{DB: conn, Dialect: sqlite.New()}
		err = rdb.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "INSERT INTO test (id) VALUES (2)")
			return err
		})
		require.NoError(t, err)

		var count int
		row := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM test")
		require.NoError(t, row.Scan(&count))
		assert.Equal(t, 1, count)
	})
}

func TestScanFirstValue(t *testing.T) {
	testutils.WithSQLiteFile(t, func(conn *sql.DB, path string) {
		ctx := context.Background()
		rows, err := conn.QueryContext(ctx, "SELECT 42")
		require.NoError(t, err)

		var v int
		require.NoError(t, db.ScanFirstValue(rows, &v))
		assert.Equal(t, 42, v)
	})
}

// holdWriteLock opens a second connection to the same SQLite file and holds
// an exclusive write transaction open for d, returning a func that signals
// it to release early (used to shorten the context-cancellation test).
func holdWriteLock(t *testing.T, path string, d time.Duration) func() {
	t.Helper()
	ctx := context.Background()

	conn2, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	conn2.SetMaxOpenConns(1)

	pinned, err := conn2.Conn(ctx)
	require.NoError(t, err)

	_, err = pinned.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		select {
		case <-time.After(d):
		case <-done:
		}
		pinned.ExecContext(ctx, "COMMIT")
		pinned.Close()
		conn2.Close()
	}()

	return func() { close(done) }
}
