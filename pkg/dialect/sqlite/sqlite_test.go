// SPDX-License-Identifier: Apache-2.0

package sqlite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xataio/tanker/pkg/dialect/sqlite"
	"github.com/xataio/tanker/pkg/schema"
)

func TestUpsertStatementInsertOrReplace(t *testing.T) {
	d := sqlite.New()
	stmt := d.UpsertStatement("team", []string{"id", "name", "country_id"}, []string{"name", "country_id"}, "SELECT * FROM tmp")
	assert.Contains(t, stmt, "INSERT OR REPLACE INTO")
	assert.NotContains(t, stmt, "ON CONFLICT")
}

func TestColumnTypeArrayFallsBackToText(t *testing.T) {
	d := sqlite.New()
	assert.Equal(t, "TEXT", d.ColumnType(schema.TypeVarchar, true))
	assert.Equal(t, "INTEGER", d.ColumnType(schema.TypeBigint, false))
}

func TestLikeOperatorUsesCollateNocase(t *testing.T) {
	d := sqlite.New()
	op, collation := d.LikeOperator(true)
	assert.Equal(t, "LIKE", op)
	assert.Equal(t, " COLLATE NOCASE", collation)
}

func TestExtractUsesStrftime(t *testing.T) {
	d := sqlite.New()
	assert.Equal(t, `CAST(strftime('%Y', "created_at") AS INTEGER)`, d.Extract("year", `"created_at"`))
}

func TestRetryableError(t *testing.T) {
	d := sqlite.New()
	assert.True(t, d.RetryableError(assertError{"database is locked"}))
	assert.False(t, d.RetryableError(assertError{"syntax error"}))
}

func TestConstraintViolation(t *testing.T) {
	d := sqlite.New()
	assert.True(t, d.ConstraintViolation(assertError{"UNIQUE constraint failed: team.name"}))
	assert.True(t, d.ConstraintViolation(assertError{"FOREIGN KEY constraint failed"}))
	assert.False(t, d.ConstraintViolation(assertError{"database is locked"}))
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
