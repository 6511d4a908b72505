// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xataio/tanker/pkg/schema"
	"github.com/xataio/tanker/pkg/view"
)

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [table]",
		Short: "List tables, or the columns of one table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return renderTableList(cfg.Registry)
			}

			t := cfg.Registry.GetTable(args[0])
			if t == nil {
				return view.UnknownTableError{Table: args[0]}
			}
			return renderColumnList(t)
		},
	}
}

func renderTableList(reg *schema.Registry) error {
	rows := [][]string{{"table", "key", "columns"}}
	for _, name := range reg.TableNames() {
		t := reg.GetTable(name)
		rows = append(rows, []string{t.Name, strings.Join(t.Key, ", "), fmt.Sprint(len(t.ScalarColumns()))})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func renderColumnList(t *schema.Table) error {
	rows := [][]string{{"column", "kind", "detail"}}
	for _, name := range t.ColumnOrder {
		c := t.GetColumn(name)
		rows = append(rows, []string{name, columnKindName(c.Kind), columnDetail(c)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func columnKindName(k schema.ColumnKind) string {
	switch k {
	case schema.KindM2O:
		return "m2o"
	case schema.KindO2M:
		return "o2m"
	default:
		return "scalar"
	}
}

func columnDetail(c *schema.Column) string {
	switch c.Kind {
	case schema.KindM2O:
		return fmt.Sprintf("-> %s.%s", c.RefTable, c.RefColumn)
	case schema.KindO2M:
		return fmt.Sprintf("<- %s.%s", c.SourceTable, c.SourceColumn)
	default:
		ty := string(c.Type)
		if c.Array {
			ty += "[]"
		}
		if c.NotNull {
			ty += " not null"
		}
		return ty
	}
}
