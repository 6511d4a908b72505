// SPDX-License-Identifier: Apache-2.0

package schema

import "fmt"

// SchemaError reports a schema document that fails JSON Schema
// validation, returned by Load before the registry is built.
type SchemaError struct {
	Reason string
}

func (e SchemaError) Error() string {
	return e.Reason
}

type TableAlreadyExistsError struct {
	Name string
}

func (e TableAlreadyExistsError) Error() string {
	return fmt.Sprintf("table %q already declared", e.Name)
}

type TableDoesNotExistError struct {
	Name string
}

func (e TableDoesNotExistError) Error() string {
	return fmt.Sprintf("table %q does not exist", e.Name)
}

type NoNaturalKeyError struct {
	Table string
}

func (e NoNaturalKeyError) Error() string {
	return fmt.Sprintf("table %q has no natural key", e.Table)
}

type InvalidKeyColumnError struct {
	Table  string
	Column string
	Reason string
}

func (e InvalidKeyColumnError) Error() string {
	return fmt.Sprintf("table %q key column %q is invalid: %s", e.Table, e.Column, e.Reason)
}

type UnknownRelationTargetError struct {
	Table      string
	Column     string
	TargetName string
}

func (e UnknownRelationTargetError) Error() string {
	return fmt.Sprintf("column %q on table %q references unknown table %q", e.Column, e.Table, e.TargetName)
}

type InvalidRelationTargetError struct {
	Table      string
	Column     string
	TargetName string
	Reason     string
}

func (e InvalidRelationTargetError) Error() string {
	return fmt.Sprintf("column %q on table %q references %q invalidly: %s", e.Column, e.Table, e.TargetName, e.Reason)
}
