package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"research-rag/internal/inbox"
)

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest documents dropped into the inbox directory",
	Long: `Ingests the files already in the inbox, then watches it for new or
rewritten files. A top-level folder named after a document type (paper, si,
experiment) declares that type for the files inside it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		dir := watchDir
		if dir == "" {
			dir = cfg.InboxDir
		}
		return inbox.NewWatcher(dir, a.ingest, a.extractor.Supports, cfg.InboxDebounce).Run(ctx)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "inbox directory (default INBOX_DIR)")
	rootCmd.AddCommand(watchCmd)
}
