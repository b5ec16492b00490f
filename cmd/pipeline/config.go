package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration without secrets",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := printJSON(cmd.OutOrStdout(), cfg.Summary()); err != nil {
			return err
		}
		problems := cfg.Validate()
		for _, p := range problems {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", p)
		}
		if strict, _ := cmd.Flags().GetBool("strict"); strict && len(problems) > 0 {
			return fmt.Errorf("configuration has %d problem(s)", len(problems))
		}
		return nil
	},
}

func init() {
	configCmd.Flags().Bool("strict", false, "exit non-zero when validation reports problems")
	rootCmd.AddCommand(configCmd)
}
