// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xataio/tanker/cmd/flags"
)

// Version is the tk version.
var Version = "development"

func init() {
	viper.SetEnvPrefix("TANKER")
	viper.AutomaticEnv()

	flags.PersistentFlags(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:          "tk",
	Short:        "tk reads and writes relational data through a declarative view layer",
	SilenceUsage: true,
	Version:      Version,
}

// Execute runs the root command, returning whatever error the chosen
// subcommand produced so the caller can translate it into an exit code.
func Execute() error {
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(readCmd())
	rootCmd.AddCommand(writeCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd.Execute()
}
