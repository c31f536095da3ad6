package cmd

import (
	"fmt"

	"github.com/miamuminovic/nesting/tsn/bridge"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and every description it names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		cfg.Files.Record = ""

		if _, err := bridge.MakeBuilder().WithConfig(cfg).Build("Bridge"); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
