package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the full pipeline and print the report",
	Long: `report plans queries, collects evidence and writes the five-section
valuation report. The assembled markdown is printed unless --json is set;
--out also writes it to a file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, err := build(cmd.Context())
		if err != nil {
			return err
		}
		defer setup.Close()

		out, err := setup.Orchestrator.Run(cmd.Context(), stockFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("报告生成失败: %w", err)
		}

		if path, _ := cmd.Flags().GetString("out"); path != "" {
			if err := os.WriteFile(path, []byte(out.Markdown), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %s\n", path)
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), out)
		}

		fmt.Fprintln(cmd.OutOrStdout(), out.Markdown)
		fmt.Fprintf(cmd.ErrOrStderr(), "queries: %d/%d succeeded, citations: %d, elapsed: %dms\n",
			out.SuccessCount, out.TotalQueries, len(out.Citations), out.ElapsedMs)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Collect evidence and print a short bullet summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, err := build(cmd.Context())
		if err != nil {
			return err
		}
		defer setup.Close()

		res, err := setup.Orchestrator.Summary(cmd.Context(), stockFromFlags(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Report)
		return nil
	},
}

func init() {
	addStockFlags(reportCmd)
	reportCmd.Flags().StringP("out", "o", "", "also write the markdown report to this file")
	reportCmd.Flags().Bool("json", false, "print the full outcome as JSON")
	rootCmd.AddCommand(reportCmd)

	addStockFlags(summaryCmd)
	rootCmd.AddCommand(summaryCmd)
}
