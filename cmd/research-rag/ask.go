package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"research-rag/internal/rag"
)

var (
	askMode       string
	askK          int
	askFetchK     int
	askScoreFloor float32
	askDocType    string
	askJSON       bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		req := rag.AskRequest{
			Question: strings.Join(args, " "),
			Mode:     askMode,
			K:        askK,
			FetchK:   askFetchK,
			DocType:  askDocType,
			Debug:    askJSON,
		}
		if cmd.Flags().Changed("score-floor") {
			req.ScoreFloor = &askScoreFloor
		}

		resp, err := a.engine.Ask(ctx, req)
		if err != nil {
			return err
		}
		if askJSON {
			return printJSON(resp)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, resp.Answer)
		if resp.Abstained {
			return nil
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for _, c := range resp.Citations {
			fmt.Fprintf(out, "  [%d] %s (%s, p. %s)\n", c.Label, c.Title, c.Source, c.Page)
		}
		if len(resp.Records) > 0 {
			fmt.Fprintf(out, "Experiment records: %s\n", strings.Join(resp.Records, ", "))
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askMode, "mode", "", "grounded (default) or exploratory")
	askCmd.Flags().IntVar(&askK, "k", 0, "passages to keep (default RETRIEVAL_K)")
	askCmd.Flags().IntVar(&askFetchK, "fetch-k", 0, "candidate pool size (default RETRIEVAL_FETCH_K)")
	askCmd.Flags().Float32Var(&askScoreFloor, "score-floor", 0, "minimum similarity (default RETRIEVAL_SCORE_FLOOR)")
	askCmd.Flags().StringVar(&askDocType, "doc-type", "", "restrict retrieval to one document type")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response with retrieval details as JSON")
	rootCmd.AddCommand(askCmd)
}
