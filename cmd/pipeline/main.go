// Package main is the command-line entry point for report generation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"valuation_research/pkg/core/config"
	"valuation_research/pkg/core/logging"
	"valuation_research/pkg/core/pipeline"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Generate AI valuation research reports",
	Long: `pipeline runs the three-stage report pipeline from the command line:
a reasoning model plans search queries, a search model collects evidence,
and the reasoning model writes a structured valuation report.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load environment variables
		_ = godotenv.Load()

		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.LogLevel
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		logger, err = logging.New(level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "config/models.yaml", "YAML config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
}

func stockFromFlags(cmd *cobra.Command) pipeline.StockRequest {
	symbol, _ := cmd.Flags().GetString("symbol")
	name, _ := cmd.Flags().GetString("name")
	locale, _ := cmd.Flags().GetString("locale")
	return pipeline.StockRequest{Symbol: symbol, Name: name, Locale: locale}
}

func addStockFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("symbol", "s", "", "ticker symbol, e.g. TSLA or 600519.SH")
	cmd.Flags().StringP("name", "n", "", "company name")
	cmd.Flags().String("locale", "zh", "report locale")
	_ = cmd.MarkFlagRequired("symbol")
}

func build(ctx context.Context) (*pipeline.Setup, error) {
	for _, p := range cfg.Validate() {
		logger.Warn("[CONFIG] " + p)
	}
	return pipeline.Build(ctx, cfg, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
