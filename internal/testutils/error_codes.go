// SPDX-License-Identifier: Apache-2.0

package testutils

// PostgreSQL error-condition names, for matching *pq.Error.Code.Name() in
// tests that exercise constraint violations.
const (
	CheckViolationErrorCode   string = "check_violation"
	FKViolationErrorCode      string = "foreign_key_violation"
	NotNullViolationErrorCode string = "not_null_violation"
	UniqueViolationErrorCode  string = "unique_violation"
)

// SQLite error substrings, for matching against err.Error() in tests:
// modernc.org/sqlite does not expose a typed error-code enum the way
// lib/pq does, so sqlite tests match on the driver's message text instead.
const (
	SQLiteUniqueViolation string = "UNIQUE constraint failed"
	SQLiteFKViolation     string = "FOREIGN KEY constraint failed"
	SQLiteNotNullViolation string = "NOT NULL constraint failed"
	SQLiteBusy             string = "SQLITE_BUSY"
)
