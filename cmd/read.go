// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xataio/tanker/pkg/result"
	"github.com/xataio/tanker/pkg/scope"
	"github.com/xataio/tanker/pkg/view"
)

func readCmd() *cobra.Command {
	var filter string
	var limit int
	var offset int
	var order string
	var tabular bool

	cmd := &cobra.Command{
		Use:   "read <table>[+field...]",
		Short: "Read rows from a view, printed as CSV or a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			table, fields, err := parseTableAndFields(cfg, args[0])
			if err != nil {
				return err
			}

			v := view.New(table, fields...)
			if filter != "" {
				v = v.Filter(filter)
			}
			if order != "" {
				v = v.Order(strings.Split(order, ",")...)
			}
			if limit > 0 {
				v = v.Limit(limit)
			}
			if offset > 0 {
				v = v.Offset(offset)
			}
			v = v.Args(cfg.Args)

			var rows *result.Rows
			err = scope.Connect(cmd.Context(), cfg, func(ctx context.Context) error {
				rows, err = v.Read(ctx)
				return err
			})
			if err != nil {
				return err
			}

			if tabular {
				return renderRowsTable(fields, rows)
			}
			return writeRowsCSV(os.Stdout, fields, rows)
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "F", "", "s-expression filter applied as WHERE")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of rows to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of rows to skip")
	cmd.Flags().StringVarP(&order, "order", "o", "", "comma-separated ORDER BY terms, each optionally suffixed \" desc\"")
	cmd.Flags().BoolVarP(&tabular, "table", "t", false, "render as a table instead of CSV")

	return cmd
}

// parseTableAndFields splits "table+field1+field2" into the base table and
// the requested field paths. With no "+field" suffixes, every scalar
// column of the table is projected.
func parseTableAndFields(cfg scope.Config, spec string) (string, []string, error) {
	parts := strings.Split(spec, "+")
	table := parts[0]

	t := cfg.Registry.GetTable(table)
	if t == nil {
		return "", nil, view.UnknownTableError{Table: table}
	}

	if len(parts) > 1 {
		return table, parts[1:], nil
	}

	fields := make([]string, 0, len(t.ScalarColumns()))
	for _, c := range t.ScalarColumns() {
		fields = append(fields, c.Name)
	}
	return table, fields, nil
}

func writeRowsCSV(w *os.File, fields []string, rows *result.Rows) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fields); err != nil {
		return err
	}
	for _, row := range rows.All() {
		record := make([]string, len(fields))
		for i, f := range fields {
			record[i] = fmt.Sprint(row[f])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderRowsTable(fields []string, rows *result.Rows) error {
	data := [][]string{fields}
	for _, row := range rows.All() {
		record := make([]string, len(fields))
		for i, f := range fields {
			record[i] = fmt.Sprint(row[f])
		}
		data = append(data, record)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
