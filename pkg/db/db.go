// SPDX-License-Identifier: Apache-2.0

// Package db wraps a *sql.DB with retry-on-contention semantics shared by
// both dialects: every query is retried with exponential backoff (with
// jitter) when the active dialect classifies the failure as retryable
// (lock_not_available/serialization_failure on Postgres, SQLITE_BUSY on
// SQLite).
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/cloudflare/backoff"

	"github.com/xataio/tanker/pkg/dialect"
)

const (
	maxBackoffDuration = 1 * time.Minute
	backoffInterval    = 1 * time.Second
)

// DB is the retry-wrapped handle Tanker's scope and view layers use instead
// of a bare *sql.DB.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	WithRetryableTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error
	Close() error
}

// RDB wraps a *sql.DB and retries queries using the given dialect's
// retryable-error classification.
type RDB struct {
	DB      *sql.DB
	Dialect dialect.Dialect
}

func (db *RDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		res, err := db.DB.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if db.Dialect.RetryableError(err) {
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return nil, err
			}
			continue
		}
		return nil, err
	}
}

func (db *RDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		rows, err := db.DB.QueryContext(ctx, query, args...)
		if err == nil {
			return rows, nil
		}
		if db.Dialect.RetryableError(err) {
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return nil, err
			}
			continue
		}
		return nil, err
	}
}

// WithRetryableTransaction runs f in a transaction, retrying the whole
// transaction from scratch on a retryable error.
func (db *RDB) WithRetryableTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		tx, err := db.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		err = f(ctx, tx)
		if err == nil {
			return tx.Commit()
		}

		if errRollback := tx.Rollback(); errRollback != nil {
			return errRollback
		}

		if db.Dialect.RetryableError(err) {
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return err
			}
			continue
		}
		return err
	}
}

func (db *RDB) Close() error {
	return db.DB.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ScanFirstValue scans the first value of a single-row, single-column
// result set.
func ScanFirstValue[T any](rows *sql.Rows, dest *T) error {
	if rows.Next() {
		if err := rows.Scan(dest); err != nil {
			return err
		}
	}
	return rows.Err()
}

// queryer is the subset of *sql.DB/*sql.Tx that DDLExecer adapts to
// schema.Execer.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DDLExecer adapts a *sql.DB, *sql.Tx, or *RDB to schema.Execer, so that
// Registry.CreateTables can run against whichever handle the caller has
// open, without pkg/schema importing database/sql.
type DDLExecer struct {
	Queryer queryer
}

func (e DDLExecer) ExecContext(ctx context.Context, query string, args ...any) error {
	_, err := e.Queryer.ExecContext(ctx, query, args...)
	return err
}

func (e DDLExecer) QueryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := e.Queryer.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
