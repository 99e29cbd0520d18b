package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"research-rag/internal/config"
	"research-rag/internal/contextutil"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "research-rag",
	Short: "Citation-grounded question answering over a research document library",
	Long: `Ingests papers, supporting information and experiment spreadsheets into a
traceable document registry, indexes them for retrieval and answers questions
with numbered citations back to the source pages.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		logger := config.NewLogger(cfg)
		slog.SetDefault(logger)
		cmd.SetContext(contextutil.WithLogger(cmd.Context(), logger))
		logger.Debug("logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)
		return nil
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
