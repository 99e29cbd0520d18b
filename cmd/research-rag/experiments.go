package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"research-rag/internal/contextutil"
	"research-rag/internal/experiments"
)

var (
	experimentsSheet string
	experimentsList  bool
)

var experimentsCmd = &cobra.Command{
	Use:   "experiments [workbook.xlsx]...",
	Short: "Materialize experiment records from spreadsheets",
	Long: `Reads each workbook with the configured schema and writes one text file per
row into EXPERIMENTS_DIR. Records that already exist are left untouched, so
curated edits survive re-runs.

Examples:
  research-rag experiments runs.xlsx
  research-rag experiments --sheet "Batch 2" runs.xlsx
  research-rag experiments --list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := contextutil.LoggerFromContext(ctx)

		if !experimentsList && len(args) == 0 {
			return fmt.Errorf("at least one workbook is required")
		}

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if experimentsList {
			records, err := a.records.List(ctx)
			if err != nil {
				return err
			}
			return printJSON(records)
		}

		schema := a.schema
		if experimentsSheet != "" {
			schema.Sheet = experimentsSheet
		}

		reports := make([]experiments.Report, 0, len(args))
		var failed bool
		for _, path := range args {
			report, err := a.materializer.IngestFile(ctx, path, schema)
			if err != nil {
				logger.ErrorContext(ctx, "experiment ingestion failed", "path", path, "error", err)
				failed = true
				continue
			}
			reports = append(reports, report)
		}
		if err := printJSON(reports); err != nil {
			return err
		}
		if failed {
			return fmt.Errorf("one or more workbooks failed to ingest")
		}
		return nil
	},
}

func init() {
	experimentsCmd.Flags().StringVar(&experimentsSheet, "sheet", "", "sheet name (default from schema, else the first sheet)")
	experimentsCmd.Flags().BoolVar(&experimentsList, "list", false, "list stored experiment records instead of ingesting")
	rootCmd.AddCommand(experimentsCmd)
}
