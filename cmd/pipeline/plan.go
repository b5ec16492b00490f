package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the search query plan without running it",
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, err := build(cmd.Context())
		if err != nil {
			return err
		}
		defer setup.Close()

		res, err := setup.Orchestrator.Plan(cmd.Context(), stockFromFlags(cmd))
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}

		if res.Note != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "note: %s\n", res.Note)
		}
		for i, q := range res.Plan.Queries {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s] %s\n   %s\n", i+1, q.Priority, q.Purpose, q.Query)
		}
		return nil
	},
}

func init() {
	addStockFlags(planCmd)
	planCmd.Flags().Bool("json", false, "print the plan as JSON")
	rootCmd.AddCommand(planCmd)
}
