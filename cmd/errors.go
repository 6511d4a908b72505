// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"

	"github.com/xataio/tanker/pkg/compile"
	"github.com/xataio/tanker/pkg/path"
	"github.com/xataio/tanker/pkg/result"
	"github.com/xataio/tanker/pkg/schema"
	"github.com/xataio/tanker/pkg/scope"
	"github.com/xataio/tanker/pkg/sexpr"
	"github.com/xataio/tanker/pkg/view"
)

// Exit codes, per the CLI's external interface: 0 success, 1 user error
// (bad filter, missing table, malformed config), 2 connection error, 3
// constraint violation.
const (
	ExitSuccess            = 0
	ExitUserError          = 1
	ExitConnectionError    = 2
	ExitConstraintViolated = 3
)

// ExitCode classifies an error returned by a tk subcommand into one of the
// four documented exit codes.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var constraintErr view.ConstraintError
	if errors.As(err, &constraintErr) {
		return ExitConstraintViolated
	}

	var driverErr view.DriverError
	if errors.As(err, &driverErr) {
		return ExitConnectionError
	}

	var configErr scope.ConfigError
	var fileErr ConfigFileError
	var unknownSchemeErr schema.SchemaError
	var parseErr sexpr.ParseError
	var resolveErr path.ResolveError
	var argErr compile.ArgError
	var formErr compile.FormError
	var fieldErr view.FieldPathError
	var unknownTableErr view.UnknownTableError
	var noFieldsErr view.NoFieldsError
	var invalidFilterErr view.InvalidFilterError
	var noRowsErr result.NoRowsError
	var dupKeyErr result.DuplicateKeyError
	var filterRequiredErr FilterRequiredError
	switch {
	case errors.As(err, &configErr),
		errors.As(err, &fileErr),
		errors.As(err, &unknownSchemeErr),
		errors.As(err, &parseErr),
		errors.As(err, &resolveErr),
		errors.As(err, &argErr),
		errors.As(err, &formErr),
		errors.As(err, &fieldErr),
		errors.As(err, &unknownTableErr),
		errors.As(err, &noFieldsErr),
		errors.As(err, &invalidFilterErr),
		errors.As(err, &noRowsErr),
		errors.As(err, &dupKeyErr),
		errors.As(err, &filterRequiredErr):
		return ExitUserError
	}

	return ExitConnectionError
}
