// SPDX-License-Identifier: Apache-2.0

package schema

import "fmt"

// Build validates the registered tables against the invariants in the data
// model (exactly one non-empty natural key per table, key columns must be
// scalar-ish and locally declared, m2o targets must exist and be unique in
// the target, o2m sources must name a real m2o column) and computes each
// table's relation edges, used by the field-path resolver.
//
// Build is idempotent and safe to call again after registering more tables;
// it always recomputes edges from scratch.
func (r *Registry) Build() error {
	for _, name := range r.TableNames() {
		t := r.Tables[name]
		if err := validateKey(t); err != nil {
			return err
		}
	}

	for _, name := range r.TableNames() {
		t := r.Tables[name]
		edges, err := r.buildEdges(t)
		if err != nil {
			return err
		}
		t.edges = edges
	}

	return nil
}

func validateKey(t *Table) error {
	if len(t.Key) == 0 {
		return NoNaturalKeyError{Table: t.Name}
	}
	for _, name := range t.Key {
		col := t.GetColumn(name)
		if col == nil {
			return InvalidKeyColumnError{Table: t.Name, Column: name, Reason: "not declared on table"}
		}
		if col.Kind == KindO2M {
			return InvalidKeyColumnError{Table: t.Name, Column: name, Reason: "o2m columns cannot be part of a natural key"}
		}
	}
	return nil
}

func (r *Registry) buildEdges(t *Table) (map[string]Edge, error) {
	edges := make(map[string]Edge, len(t.ColumnOrder))

	for _, name := range t.ColumnOrder {
		col := t.Columns[name]

		switch col.Kind {
		case KindM2O:
			target := r.GetTable(col.RefTable)
			if target == nil {
				return nil, UnknownRelationTargetError{Table: t.Name, Column: col.Name, TargetName: col.RefTable}
			}
			refCol := col.RefColumn
			if refCol == "" {
				refCol = "id"
			}
			if !r.isUniqueColumn(target, refCol) {
				return nil, InvalidRelationTargetError{
					Table: t.Name, Column: col.Name, TargetName: col.RefTable,
					Reason: fmt.Sprintf("column %q is not unique on %q", refCol, col.RefTable),
				}
			}
			edges[col.Name] = Edge{
				Name:         col.Name,
				Kind:         KindM2O,
				SourceColumn: col.Name,
				TargetTable:  col.RefTable,
				TargetColumn: refCol,
			}

		case KindO2M:
			source := r.GetTable(col.SourceTable)
			if source == nil {
				return nil, UnknownRelationTargetError{Table: t.Name, Column: col.Name, TargetName: col.SourceTable}
			}
			backCol := source.GetColumn(col.SourceColumn)
			if backCol == nil || backCol.Kind != KindM2O {
				return nil, InvalidRelationTargetError{
					Table: t.Name, Column: col.Name, TargetName: col.SourceTable,
					Reason: fmt.Sprintf("column %q is not an m2o column on %q", col.SourceColumn, col.SourceTable),
				}
			}
			targetColumn := backCol.RefColumn
			if targetColumn == "" {
				targetColumn = "id"
			}
			edges[col.Name] = Edge{
				Name:         col.Name,
				Kind:         KindO2M,
				SourceColumn: col.SourceColumn,
				TargetTable:  col.SourceTable,
				TargetColumn: targetColumn,
			}
		}
	}

	return edges, nil
}

// isUniqueColumn reports whether col is, by itself, guaranteed unique on t:
// the surrogate id, the sole column of the natural key, or the sole column
// of a secondary unique index.
func (r *Registry) isUniqueColumn(t *Table, col string) bool {
	if col == "id" {
		return true
	}
	if len(t.Key) == 1 && t.Key[0] == col {
		return true
	}
	for _, u := range t.Unique {
		if len(u) == 1 && u[0] == col {
			return true
		}
	}
	return false
}
