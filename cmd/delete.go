// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/xataio/tanker/pkg/scope"
	"github.com/xataio/tanker/pkg/view"
)

func deleteCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "delete <table>",
		Short: "Delete every row of a table matching a filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if filter == "" {
				return FilterRequiredError{}
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			table := args[0]
			if cfg.Registry.GetTable(table) == nil {
				return view.UnknownTableError{Table: table}
			}

			return scope.Connect(cmd.Context(), cfg, func(ctx context.Context) error {
				return view.New(table).Args(cfg.Args).DeleteFiltered(ctx, filter)
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "F", "", "s-expression filter selecting rows to delete")
	return cmd
}

// FilterRequiredError is returned by delete when no filter was given: an
// unfiltered delete is never allowed, to avoid an accidental full-table
// wipe.
type FilterRequiredError struct{}

func (FilterRequiredError) Error() string { return "tanker: delete requires -F/--filter" }
