package main

import (
	"github.com/spf13/cobra"
)

var reconcileIndex bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Register managed files that are missing from the database",
	Long: `Scans STORE_DIR for files following the managed naming convention and
appends the ones the database does not know. Every command does this on start;
this one prints the report. Conflicting entries are reported and left alone.
With --index, documents not yet indexed are indexed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := printJSON(a.reconciled); err != nil {
			return err
		}
		if !reconcileIndex {
			return nil
		}

		outcomes, err := a.ingest.ReindexPending(ctx)
		if err != nil {
			return err
		}
		return printJSON(outcomes)
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileIndex, "index", false, "index documents that are not indexed yet")
	rootCmd.AddCommand(reconcileCmd)
}
