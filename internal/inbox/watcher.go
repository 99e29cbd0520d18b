// Package inbox watches a drop directory and hands new documents to ingestion.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"research-rag/internal/contextutil"
	"research-rag/internal/ingest"
	"research-rag/internal/service"
)

// DefaultDebounce is the quiet period before pending files are ingested.
const DefaultDebounce = 2 * time.Second

// Ingestor consumes a batch of inbox files.
type Ingestor interface {
	IngestFiles(ctx context.Context, session *ingest.Session, uploads []service.Upload) []service.Outcome
}

// Watcher ingests files created or rewritten under a directory tree.
type Watcher struct {
	root     string
	ingestor Ingestor
	accept   func(path string) bool
	debounce time.Duration

	// OnBatch, when set, receives the outcomes of every flushed batch.
	OnBatch func([]service.Outcome)
}

// NewWatcher creates a watcher over root. accept filters candidate paths,
// typically by supported extension; nil accepts everything not ignored.
func NewWatcher(root string, ingestor Ingestor, accept func(path string) bool, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		ingestor: ingestor,
		accept:   accept,
		debounce: debounce,
	}
}

// Run ingests the files already present, then watches for changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx).With("inbox", w.root)

	if err := os.MkdirAll(w.root, 0755); err != nil {
		return fmt.Errorf("failed to create inbox %s: %w", w.root, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}

	existing, err := Scan(ctx, w.root, w.accept)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.InfoContext(ctx, "ingesting files already in inbox", "count", len(existing))
		w.flush(ctx, existing)
	}

	logger.InfoContext(ctx, "watching inbox", "debounce", w.debounce)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			info, err := os.Stat(ev.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if !strings.HasPrefix(info.Name(), ".") {
					if err := w.addTree(fw, ev.Name); err != nil {
						logger.WarnContext(ctx, "failed to watch new directory", "path", ev.Name, "error", err)
					}
				}
				continue
			}
			if Ignored(filepath.Base(ev.Name)) || (w.accept != nil && !w.accept(ev.Name)) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "file watcher error", "error", err)

		case <-timer.C:
			files := w.collect(pending)
			clear(pending)
			if len(files) > 0 {
				w.flush(ctx, files)
			}
		}
	}
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// collect resolves pending paths that still exist, in path order.
func (w *Watcher) collect(pending map[string]struct{}) []ScannedFile {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	files := make([]ScannedFile, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		f, err := describe(w.root, p)
		if err != nil {
			continue
		}
		files = append(files, f)
	}
	return files
}

func (w *Watcher) flush(ctx context.Context, files []ScannedFile) {
	logger := contextutil.LoggerFromContext(ctx)

	uploads := make([]service.Upload, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, service.Upload{
			Source:   ingest.Source{Path: f.AbsPath, Name: filepath.Base(f.AbsPath)},
			Declared: ingest.Declared{Type: f.Type},
		})
	}

	outcomes := w.ingestor.IngestFiles(ctx, ingest.NewSession(), uploads)
	for _, o := range outcomes {
		logger.InfoContext(ctx, "inbox file processed",
			"file", o.Source,
			"status", o.Status,
			"tracing_number", o.TracingNumber,
			"reason", o.Reason,
		)
	}
	if w.OnBatch != nil {
		w.OnBatch(outcomes)
	}
}
