// SPDX-License-Identifier: Apache-2.0

package dialect

import (
	"fmt"
	"strings"

	"github.com/xataio/tanker/pkg/dialect/pg"
	"github.com/xataio/tanker/pkg/dialect/sqlite"
)

// For dispatches on a db_uri's scheme and returns the matching Dialect,
// without opening a connection. Scopes use this to pick the dialect before
// calling Dialect.Open.
func For(uri string) (Dialect, error) {
	scheme, _, ok := strings.Cut(uri, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q has no scheme", ErrUnknownScheme, uri)
	}

	switch scheme {
	case "postgres", "postgresql":
		return pg.New(), nil
	case "sqlite", "sqlite3", "file":
		return sqlite.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}
