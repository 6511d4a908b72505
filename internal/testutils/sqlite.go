// SPDX-License-Identifier: Apache-2.0

package testutils

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	// registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// WithSQLiteFile creates a fresh on-disk SQLite database in a temporary
// directory and hands the caller both the opened *sql.DB and its file path
// (needed to open a second, independent connection to the same database, as
// the retry tests do). The database and its connection are cleaned up when
// the test ends.
func WithSQLiteFile(t *testing.T, f func(conn *sql.DB, path string)) {
	t.Helper()

	path := t.TempDir() + "/tanker-test.db"
	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	f(conn, path)
}
