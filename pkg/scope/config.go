// SPDX-License-Identifier: Apache-2.0

package scope

import "github.com/xataio/tanker/pkg/schema"

// Config is the connection configuration passed to Connect: the db_uri
// (its scheme selects the dialect), the built schema registry, per-table
// read/write ACL filter strings, and arbitrary argument values usable as
// `{key}` placeholders in any expression compiled within the scope.
type Config struct {
	DBURI    string
	Registry *schema.Registry

	// ACLRead and ACLWrite map table name to a filter-string, conjoined
	// onto every read/write that touches the table.
	ACLRead  map[string]string
	ACLWrite map[string]string

	// Args holds arbitrary caller-supplied values resolvable as `{key}`
	// placeholders, distinct from per-call View.Args bindings.
	Args map[string]any

	// PoolSize bounds concurrent connections handed out by Connect at the
	// outermost scope. Zero means the driver default.
	PoolSize int

	Logger Logger
}

func (c Config) validate() error {
	if c.DBURI == "" {
		return ConfigError{Reason: "db_uri is required"}
	}
	if c.Registry == nil {
		return ConfigError{Reason: "schema registry is required"}
	}
	return nil
}

func (c Config) logger() Logger {
	if c.Logger == nil {
		return NoopLogger{}
	}
	return c.Logger
}
