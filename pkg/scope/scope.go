// SPDX-License-Identifier: Apache-2.0

// Package scope implements Tanker's connect/transaction/savepoint model: a
// dynamic extent, entered with Connect and read back with From, carrying
// the active connection, transaction, schema registry, and config. Every
// view read/write/delete call requires an active scope on its context;
// calling one outside Connect fails with NotInScopeError.
package scope

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/xataio/tanker/pkg/db"
	"github.com/xataio/tanker/pkg/dialect"
	"github.com/xataio/tanker/pkg/schema"
)

type contextKey struct{}

// Scope carries everything a view operation needs to run: an open
// transaction, the dialect and schema it was opened against, and the
// config it was opened with.
type Scope struct {
	tx       *sql.Tx
	conn     *sql.DB
	dialect  dialect.Dialect
	registry *schema.Registry
	config   Config
	logger   Logger

	depth     int
	savepoint string
}

func (s *Scope) Tx() *sql.Tx                { return s.tx }
func (s *Scope) Dialect() dialect.Dialect   { return s.dialect }
func (s *Scope) Registry() *schema.Registry { return s.registry }
func (s *Scope) Config() Config             { return s.config }
func (s *Scope) Logger() Logger             { return s.logger }

// ExecContext runs a statement against the scope's transaction.
func (s *Scope) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.tx.ExecContext(ctx, query, args...)
}

// QueryContext runs a query against the scope's transaction.
func (s *Scope) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.tx.QueryContext(ctx, query, args...)
}

// From resolves the active scope from ctx, failing with NotInScopeError if
// no scope is active.
func From(ctx context.Context) (*Scope, error) {
	s, ok := ctx.Value(contextKey{}).(*Scope)
	if !ok || s == nil {
		return nil, NotInScopeError{}
	}
	return s, nil
}

// Connect opens a scope and runs fn within it. If ctx already carries a
// scope (a nested call), Connect opens a SAVEPOINT against the existing
// transaction instead of a new connection; a failing fn rolls back to that
// savepoint rather than aborting the outer transaction. At the outermost
// level, Connect opens a fresh connection (dialect selected from
// cfg.DBURI), begins a transaction, commits on fn's success, rolls back on
// its failure, and always closes the connection on return.
func Connect(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if outer, ok := ctx.Value(contextKey{}).(*Scope); ok && outer != nil {
		return connectNested(ctx, outer, fn)
	}
	return connectOutermost(ctx, cfg, fn)
}

func connectOutermost(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	d, err := dialect.For(cfg.DBURI)
	if err != nil {
		return err
	}

	conn, err := d.Open(ctx, cfg.DBURI)
	if err != nil {
		return err
	}
	if cfg.PoolSize > 0 {
		conn.SetMaxOpenConns(cfg.PoolSize)
	}
	defer conn.Close()

	logger := cfg.logger()
	rdb := &db.RDB{DB: conn, Dialect: d}

	return rdb.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		s := &Scope{
			tx:       tx,
			conn:     conn,
			dialect:  d,
			registry: cfg.Registry,
			config:   cfg,
			logger:   logger,
		}
		logger.Info("scope begin", F("db_uri", redact(cfg.DBURI)))

		scoped := context.WithValue(ctx, contextKey{}, s)
		err := fn(scoped)
		if err != nil {
			logger.Info("scope rollback", F("error", err))
		} else {
			logger.Info("scope commit")
		}
		return err
	})
}

func connectNested(ctx context.Context, outer *Scope, fn func(ctx context.Context) error) error {
	name := "tk_" + uuid.NewString()[:8]

	if _, err := outer.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("opening savepoint: %w", err)
	}

	child := &Scope{
		tx:        outer.tx,
		conn:      outer.conn,
		dialect:   outer.dialect,
		registry:  outer.registry,
		config:    outer.config,
		logger:    outer.logger,
		depth:     outer.depth + 1,
		savepoint: name,
	}
	outer.logger.Debug("savepoint begin", F("name", name), F("depth", child.depth))

	scoped := context.WithValue(ctx, contextKey{}, child)
	err := fn(scoped)
	if err != nil {
		outer.logger.Debug("savepoint rollback", F("name", name))
		if _, rbErr := outer.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("rolling back savepoint %s after %w: %w", name, err, rbErr)
		}
		return err
	}

	outer.logger.Debug("savepoint release", F("name", name))
	if _, err := outer.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}
	return nil
}

// redact strips credentials from a db_uri before logging it.
func redact(uri string) string {
	scheme, rest, ok := splitScheme(uri)
	if !ok {
		return uri
	}
	at := lastIndex(rest, '@')
	if at < 0 {
		return uri
	}
	return scheme + "://***" + rest[at:]
}

func splitScheme(uri string) (scheme, rest string, ok bool) {
	for i := 0; i+2 < len(uri); i++ {
		if uri[i] == ':' && uri[i+1] == '/' && uri[i+2] == '/' {
			return uri[:i], uri[i+3:], true
		}
	}
	return "", "", false
}

func lastIndex(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}
