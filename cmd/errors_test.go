// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xataio/tanker/pkg/compile"
	"github.com/xataio/tanker/pkg/path"
	"github.com/xataio/tanker/pkg/view"
)

func TestExitCodeClassifiesBadFilterErrorsAsUserError(t *testing.T) {
	cases := []error{
		path.ResolveError{Table: "team", Path: "bogus.field", Segment: "bogus", Reason: "no such column"},
		compile.ArgError{Name: "wanted", Reason: "no value bound"},
		compile.FormError{Head: "frobnicate", Reason: "unknown head"},
		view.InvalidFilterError{Value: 42},
		view.UnknownTableError{Table: "bogus"},
		FilterRequiredError{},
	}
	for _, err := range cases {
		assert.Equal(t, ExitUserError, ExitCode(err), "%T", err)
	}
}

func TestExitCodeClassifiesConstraintAndDriverErrors(t *testing.T) {
	assert.Equal(t, ExitConstraintViolated, ExitCode(view.ConstraintError{Table: "team", Err: assert.AnError}))
	assert.Equal(t, ExitConnectionError, ExitCode(view.DriverError{Err: assert.AnError}))
	assert.Equal(t, ExitConnectionError, ExitCode(assert.AnError))
	assert.Equal(t, ExitSuccess, ExitCode(nil))
}
