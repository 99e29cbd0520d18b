package main

import (
	"github.com/spf13/cobra"

	"research-rag/internal/service"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex [tracing-number]...",
	Short: "Re-index documents from their managed files",
	Long: `Without arguments, indexes every document whose last indexing attempt did
not succeed. With tracing numbers, replaces the passages of those documents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		numbers := make([]int, 0, len(args))
		for _, arg := range args {
			n, err := service.ParseTracingNumber(arg)
			if err != nil {
				return err
			}
			numbers = append(numbers, n)
		}

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(numbers) == 0 {
			outcomes, err := a.ingest.ReindexPending(ctx)
			if err != nil {
				return err
			}
			return printJSON(outcomes)
		}

		outcomes := make([]service.Outcome, 0, len(numbers))
		for _, n := range numbers {
			out, err := a.ingest.Reindex(ctx, n)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, out)
		}
		return printJSON(outcomes)
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
