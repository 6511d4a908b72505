// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// tableRecord mirrors the schema-file format from the external interfaces:
// a record with `table`, `columns` (name -> type-spec), `key`, and an
// optional `unique` list of additional unique index column lists.
type tableRecord struct {
	Table   string            `yaml:"table"`
	Columns map[string]string `yaml:"columns"`
	Key     []string          `yaml:"key"`
	Unique  [][]string        `yaml:"unique,omitempty"`
}

// Load parses a sequence of table records (YAML) into a built Registry.
func Load(data []byte) (*Registry, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var records []tableRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing schema file: %w", err)
	}

	// yaml.v3 into map[string]string loses declaration order; recover it by
	// re-decoding each record's columns as a yaml.Node so that CREATE TABLE
	// output order matches the schema file.
	orders, err := columnOrders(data)
	if err != nil {
		return nil, err
	}

	reg := New()
	for i, rec := range records {
		t := NewTable(rec.Table, rec.Key)
		t.Unique = rec.Unique

		order := orders[i]
		if len(order) == 0 {
			for name := range rec.Columns {
				order = append(order, name)
			}
		}

		for _, name := range order {
			spec, ok := rec.Columns[name]
			if !ok {
				continue
			}
			col, err := parseTypeSpec(name, spec)
			if err != nil {
				return nil, fmt.Errorf("table %q: %w", rec.Table, err)
			}
			t.AddColumn(col)
		}

		reg.AddTable(t)
	}

	if err := reg.Build(); err != nil {
		return nil, err
	}
	return reg, nil
}

// columnOrders recovers the declaration order of each record's `columns`
// mapping by walking the raw YAML node tree, since decoding straight into a
// Go map discards key order.
func columnOrders(data []byte) ([][]string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	seq := root.Content[0]

	orders := make([][]string, 0, len(seq.Content))
	for _, recNode := range seq.Content {
		var order []string
		for i := 0; i+1 < len(recNode.Content); i += 2 {
			key := recNode.Content[i]
			val := recNode.Content[i+1]
			if key.Value != "columns" {
				continue
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				order = append(order, val.Content[j].Value)
			}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// parseTypeSpec parses one column's type-spec: a scalar SQL type (optionally
// suffixed with `[]` for an array column), "m2o <table>.<col>", or
// "o2m <table>.<col>".
func parseTypeSpec(name, spec string) (*Column, error) {
	spec = strings.TrimSpace(spec)

	if rest, ok := strings.CutPrefix(spec, "m2o "); ok {
		table, col, err := splitTableColumn(rest)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		return &Column{Name: name, Kind: KindM2O, RefTable: table, RefColumn: col}, nil
	}

	if rest, ok := strings.CutPrefix(spec, "o2m "); ok {
		table, col, err := splitTableColumn(rest)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		return &Column{Name: name, Kind: KindO2M, SourceTable: table, SourceColumn: col}, nil
	}

	array := false
	if rest, ok := strings.CutSuffix(spec, "[]"); ok {
		array = true
		spec = rest
	}

	t := ScalarType(spec)
	switch t {
	case TypeVarchar, TypeInteger, TypeBigint, TypeFloat, TypeBool, TypeDate, TypeTimestamp, TypeBytea:
	default:
		return nil, fmt.Errorf("column %q: unknown scalar type %q", name, spec)
	}

	return &Column{Name: name, Kind: KindScalar, Type: t, Array: array, NotNull: name == "id"}, nil
}

func splitTableColumn(s string) (table, col string, err error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected <table>.<column>, got %q", s)
	}
	return parts[0], parts[1], nil
}
