// SPDX-License-Identifier: Apache-2.0

package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ConfigFile returns the path to the Tanker config file, set via
// --config/TANKER_CONFIG.
func ConfigFile() string {
	return viper.GetString("CONFIG")
}

// Verbose reports whether debug-level scope and SQL logging was requested
// via --verbose/TANKER_VERBOSE.
func Verbose() bool {
	return viper.GetBool("VERBOSE")
}

// PersistentFlags registers the flags every tk subcommand shares.
func PersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "tanker.yaml", "Path to the Tanker config file")
	cmd.PersistentFlags().Bool("verbose", false, "Print debug-level scope and SQL logging")

	viper.BindPFlag("CONFIG", cmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("VERBOSE", cmd.PersistentFlags().Lookup("verbose"))
}
