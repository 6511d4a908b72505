// SPDX-License-Identifier: Apache-2.0

// Package connstr manipulates db_uri connection strings for both supported
// dialects.
package connstr

import (
	"fmt"
	"net/url"
	"strings"
)

// AppendSearchPathOption takes a PostgreSQL connection string in URL format
// and returns the same string with the search_path option set to schema. It
// is a no-op for SQLite URIs, which have no schema concept.
func AppendSearchPathOption(connStr, schema string) (string, error) {
	if schema == "" || !isPostgres(connStr) {
		return connStr, nil
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse connection string: %w", err)
	}

	q := u.Query()
	q.Set("options", fmt.Sprintf("-c search_path=%s", schema))
	encodedQuery := q.Encode()

	// Replace '+' with '%20' to ensure proper encoding of spaces within the
	// `options` query parameter.
	encodedQuery = strings.ReplaceAll(encodedQuery, "+", "%20")

	u.RawQuery = encodedQuery

	return u.String(), nil
}

func isPostgres(connStr string) bool {
	scheme, _, ok := strings.Cut(connStr, "://")
	return ok && (scheme == "postgres" || scheme == "postgresql")
}
