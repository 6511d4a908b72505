// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xataio/tanker/pkg/path"
	"github.com/xataio/tanker/pkg/schema"
	"github.com/xataio/tanker/pkg/scope"
	"github.com/xataio/tanker/pkg/view"
)

func writeCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "write <table>",
		Short: "Upsert CSV rows into a table, keyed by its natural key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			table := args[0]
			t := cfg.Registry.GetTable(table)
			if t == nil {
				return view.UnknownTableError{Table: table}
			}

			r := os.Stdin
			if inputPath != "" {
				f, err := os.Open(inputPath)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			fields, rows, err := readRowsCSV(r)
			if err != nil {
				return err
			}

			typed, err := coerceRows(cfg.Registry, t, fields, rows)
			if err != nil {
				return err
			}

			v := view.New(table, fields...).Args(cfg.Args)
			return scope.Connect(cmd.Context(), cfg, func(ctx context.Context) error {
				return v.Write(ctx, typed)
			})
		},
	}

	cmd.Flags().StringVarP(&inputPath, "file", "f", "", "CSV file to read (default stdin)")
	return cmd
}

// readRowsCSV reads a CSV stream whose header row gives the dotted field
// paths a write view is built from, one record per row to write.
func readRowsCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, nil, err
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}
	return header, records, nil
}

// coerceRows turns raw CSV string records into the typed row maps a view
// write expects, converting each field to the scalar type its resolved
// column declares. An empty field is staged as nil.
func coerceRows(reg *schema.Registry, t *schema.Table, fields []string, records [][]string) ([]map[string]any, error) {
	types := make([]schema.ScalarType, len(fields))
	resolver := path.NewResolver(reg, t.Name)
	for i, f := range fields {
		if !strings.Contains(f, ".") {
			col := t.GetColumn(f)
			if col == nil {
				return nil, view.FieldPathError{Field: f, Reason: "not a column of " + t.Name}
			}
			types[i] = col.Type
			continue
		}
		res, err := resolver.Resolve(f)
		if err != nil {
			return nil, view.FieldPathError{Field: f, Reason: err.Error()}
		}
		target := reg.GetTable(res.Table)
		col := target.GetColumn(res.ColumnName)
		types[i] = col.Type
	}

	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		row := make(map[string]any, len(fields))
		for j, f := range fields {
			v, err := coerceScalar(types[j], rec[j])
			if err != nil {
				return nil, view.FieldPathError{Field: f, Reason: err.Error()}
			}
			row[f] = v
		}
		rows[i] = row
	}
	return rows, nil
}

func coerceScalar(t schema.ScalarType, s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	switch t {
	case schema.TypeInteger, schema.TypeBigint:
		return strconv.ParseInt(s, 10, 64)
	case schema.TypeFloat:
		return strconv.ParseFloat(s, 64)
	case schema.TypeBool:
		return strconv.ParseBool(s)
	default:
		return s, nil
	}
}
