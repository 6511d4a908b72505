// SPDX-License-Identifier: Apache-2.0

package view

import (
	"fmt"

	"github.com/xataio/tanker/pkg/dialect"
)

// NoFieldsError is returned by Read/Write when a View has no fields.
type NoFieldsError struct{}

func (NoFieldsError) Error() string { return "tanker: view has no fields" }

// InvalidFilterError is returned when a View's Filter value is not a
// string, a []any of nested filters, or a map[string]any of field-path to
// value equalities.
type InvalidFilterError struct {
	Value any
}

func (e InvalidFilterError) Error() string {
	return fmt.Sprintf("tanker: filter must be a string, list, or map, got %T", e.Value)
}

// UnknownTableError is returned when a View names a table absent from the
// active scope's schema registry.
type UnknownTableError struct {
	Table string
}

func (e UnknownTableError) Error() string { return "tanker: unknown table " + e.Table }

// FieldPathError reports a write field that cannot be staged: a name that
// is not a writable column, a dotted path that does not resolve or crosses
// more than one m2o edge, an incomplete natural key (of the base table or
// of an m2o target), or a field missing from an input row.
type FieldPathError struct {
	Field  string
	Reason string
}

func (e FieldPathError) Error() string { return "tanker: write field " + e.Field + ": " + e.Reason }

// ConstraintError wraps a unique/foreign-key/not-null/check violation
// surfaced by the driver during a write or delete.
type ConstraintError struct {
	Table string
	Err   error
}

func (e ConstraintError) Error() string {
	return "tanker: constraint violation on " + e.Table + ": " + e.Err.Error()
}

func (e ConstraintError) Unwrap() error { return e.Err }

// DriverError wraps any other error returned by the underlying connection.
type DriverError struct {
	Err error
}

func (e DriverError) Error() string { return "tanker: " + e.Err.Error() }

func (e DriverError) Unwrap() error { return e.Err }

// classify turns a raw driver error into a ConstraintError when the
// dialect recognizes it as a constraint failure, or a DriverError
// otherwise. nil passes through unchanged.
func classify(d dialect.Dialect, table string, err error) error {
	if err == nil {
		return nil
	}
	if d.ConstraintViolation(err) {
		return ConstraintError{Table: table, Err: err}
	}
	return DriverError{Err: err}
}
