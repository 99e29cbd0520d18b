package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"research-rag/internal/document"
	"research-rag/internal/ingest"
	"research-rag/internal/service"
)

var (
	ingestType  string
	ingestTitle string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Admit, classify and index documents",
	Long: `Copies each file into the managed store under its tracing number,
classifies it and indexes its passages. Files whose content is already
registered are reported as duplicates.

Examples:
  research-rag ingest paper.pdf supplement.pdf
  research-rag ingest --type si --title "Sorbent SI" sorbent_si.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		declaredType, err := document.Parse(ingestType)
		if err != nil {
			return err
		}
		if ingestTitle != "" && len(args) > 1 {
			return fmt.Errorf("--title applies to a single file")
		}

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		uploads := make([]service.Upload, 0, len(args))
		for _, path := range args {
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", path, err)
			}
			uploads = append(uploads, service.Upload{
				Source:   ingest.Source{Path: abs, Name: filepath.Base(abs)},
				Declared: ingest.Declared{Type: declaredType, Title: ingestTitle},
			})
		}

		outcomes := a.ingest.IngestFiles(ctx, ingest.NewSession(), uploads)
		if err := printJSON(outcomes); err != nil {
			return err
		}
		for _, o := range outcomes {
			if o.Status == ingest.StatusFailed {
				return fmt.Errorf("one or more files failed to ingest")
			}
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "declared document type (paper, si, experiment)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "declared title (single file only)")
	rootCmd.AddCommand(ingestCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
