// Package cmd provides the command-line interface of the TSN simulator.
package cmd

import (
	"github.com/miamuminovic/nesting/tsn/config"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tsnsim",
	Short: "tsnsim simulates the forwarding plane of a time-sensitive networking bridge.",
	Long: `tsnsim simulates the forwarding plane of a time-sensitive networking ` +
		`bridge: gate control lists, credit based shapers, frame preemption ` +
		`holds and the filtering database, all driven by one logical clock.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Registered exit handlers run before the process exits.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "",
		"YAML configuration file")
	rootCmd.PersistentFlags().StringSlice("env", nil,
		".env files that set TSN_* variables")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	filename, _ := cmd.Flags().GetString("config")
	envFiles, _ := cmd.Flags().GetStringSlice("env")

	return config.Load(filename, envFiles...)
}
