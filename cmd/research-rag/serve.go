package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"research-rag/internal/contextutil"
	"research-rag/internal/http"
	"research-rag/internal/inbox"
)

var (
	servePort  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		logger := contextutil.LoggerFromContext(ctx)

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		// Fail fast when the embeddings endpoint does not match the collection.
		if _, err := a.embedder.EmbedTexts(ctx, []string{"test"}); err != nil {
			return fmt.Errorf("validate embedding client: %w", err)
		}

		router := http.NewRouter(&http.Deps{
			Engine:         a.engine,
			Documents:      a.ingest,
			Index:          a.ingest,
			Experiments:    a.materializer,
			Records:        a.records,
			Schema:         a.schema,
			VectorStore:    a.vectorStore,
			Collection:     cfg.QdrantCollection,
			DB:             a.db,
			MaxUploadBytes: cfg.MaxUploadBytes,
		})

		port := servePort
		if port == "" {
			port = cfg.APIPort
		}
		srv := &nethttp.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.InfoContext(ctx, "starting API server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				return fmt.Errorf("server listen: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.InfoContext(ctx, "shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if serveWatch {
			w := inbox.NewWatcher(cfg.InboxDir, a.ingest, a.extractor.Supports, cfg.InboxDebounce)
			g.Go(func() error { return w.Run(gctx) })
		}

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "server port (default from API_PORT)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "also ingest files dropped into INBOX_DIR")
	rootCmd.AddCommand(serveCmd)
}
