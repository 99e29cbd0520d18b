// Package ingest admits incoming files into the managed store: fingerprinting,
// duplicate detection, tracing-number assignment and materialization.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"research-rag/internal/contextutil"
	"research-rag/internal/document"
	"research-rag/internal/registry"
)

// Status is the result of admitting one source.
type Status string

const (
	StatusAdmitted  Status = "admitted"
	StatusDuplicate Status = "duplicate"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// IOError reports a source that could not be read or copied.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error on %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Source is a file offered for ingestion. Name is the original filename and
// defaults to the base of Path.
type Source struct {
	Path string
	Name string
}

func (s Source) name() string {
	if s.Name != "" {
		return s.Name
	}
	return filepath.Base(s.Path)
}

// Declared is caller-supplied metadata used to name the managed file.
type Declared struct {
	Type  document.Type
	Title string
}

// Outcome is the per-source result of Admit.
type Outcome struct {
	Source string         `json:"source"`
	Status Status         `json:"status"`
	Reason string         `json:"reason,omitempty"`
	Entry  registry.Entry `json:"-"`
	Err    error          `json:"-"`
}

// Admitter copies new content into the managed store under a fresh tracing number.
// Files already in the store are registered before the first admission.
type Admitter struct {
	seq      *registry.Sequence
	storeDir string
	titleMax int

	mu         sync.Mutex
	reconciled bool
}

// NewAdmitter creates an Admitter writing into storeDir.
func NewAdmitter(seq *registry.Sequence, storeDir string, titleMax int) *Admitter {
	if titleMax <= 0 {
		titleMax = DefaultTitleMaxLen
	}
	return &Admitter{seq: seq, storeDir: storeDir, titleMax: titleMax}
}

// StoreDir returns the managed store directory.
func (a *Admitter) StoreDir() string {
	return a.storeDir
}

// Admit registers src unless its content is already present. Duplicates and
// session repeats perform no filesystem mutation.
func (a *Admitter) Admit(ctx context.Context, session *Session, src Source, declared Declared) Outcome {
	name := src.name()
	out := Outcome{Source: name}
	ctx = contextutil.WithAttrs(ctx, "source", name)
	logger := contextutil.LoggerFromContext(ctx)

	if session != nil && !session.claim(name) {
		out.Status = StatusSkipped
		out.Reason = "already processed in this session"
		return out
	}
	fail := func(err error) Outcome {
		if session != nil {
			session.release(name)
		}
		logger.ErrorContext(ctx, "admit failed", "error", err)
		out.Status = StatusFailed
		out.Reason = err.Error()
		out.Err = err
		return out
	}

	if err := a.reconcile(ctx); err != nil {
		return fail(err)
	}

	fp, err := registry.FingerprintFile(src.Path)
	if err != nil {
		return fail(&IOError{Path: src.Path, Err: err})
	}
	logger = logger.With("fingerprint", fp[:12])

	existing, found, err := a.seq.Lookup(ctx, fp)
	if err != nil {
		return fail(fmt.Errorf("failed to look up fingerprint: %w", err))
	}
	if found {
		return duplicate(out, existing)
	}

	typ := declared.Type
	if !typ.Valid() {
		typ = document.TypeUnknown
	}
	title := declared.Title
	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	title = SanitizeTitle(title, a.titleMax)
	ext := filepath.Ext(name)
	if ext == "" {
		ext = filepath.Ext(src.Path)
	}

	entry, err := a.seq.ReserveNext(ctx, fp, func(n int) (registry.Entry, func(), error) {
		path, err := a.materialize(src.Path, fp, n, registry.ManagedName(n, title, typ.Token(), ext))
		if err != nil {
			return registry.Entry{}, nil, err
		}
		undo := func() {
			_ = os.Remove(path)
		}
		return registry.Entry{
			OriginalFilename: name,
			Title:            title,
			TypeToken:        typ.Token(),
			StoredPath:       path,
		}, undo, nil
	})
	if errors.Is(err, registry.ErrDuplicate) {
		return duplicate(out, entry)
	}
	if err != nil {
		return fail(err)
	}

	logger.InfoContext(ctx, "document admitted",
		"tracing_number", entry.TracingNumber,
		"stored_path", entry.StoredPath,
	)
	out.Status = StatusAdmitted
	out.Entry = entry
	return out
}

func duplicate(out Outcome, existing registry.Entry) Outcome {
	out.Status = StatusDuplicate
	out.Reason = "duplicate of " + registry.FormatTracingNumber(existing.TracingNumber)
	out.Entry = existing
	return out
}

// reconcile registers managed files the registry does not know yet, once per
// Admitter. A failed attempt is retried on the next admission.
func (a *Admitter) reconcile(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reconciled {
		return nil
	}

	if err := os.MkdirAll(a.storeDir, 0o755); err != nil {
		return &IOError{Path: a.storeDir, Err: err}
	}
	report, err := a.seq.Reconcile(ctx, a.storeDir)
	if err != nil {
		return fmt.Errorf("failed to reconcile managed store: %w", err)
	}
	if len(report.Added) > 0 || len(report.Conflicts) > 0 {
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "managed store reconciled",
			"added", len(report.Added),
			"conflicts", len(report.Conflicts),
		)
	}
	a.reconciled = true
	return nil
}

// numberOnDisk returns the managed file already using tracing number n, if any.
func (a *Admitter) numberOnDisk(n int) (string, error) {
	files, err := registry.ScanDirectory(a.storeDir)
	if err != nil {
		return "", err
	}
	for _, mf := range files {
		if mf.TracingNumber == n {
			return mf.Name, nil
		}
	}
	return "", nil
}

// materialize copies srcPath into the store as name via a temp file and rename.
// The copy is re-hashed so content changed since fingerprinting is rejected.
func (a *Admitter) materialize(srcPath, fingerprint string, n int, name string) (string, error) {
	final := filepath.Join(a.storeDir, name)
	taken, err := a.numberOnDisk(n)
	if err != nil {
		return "", &IOError{Path: a.storeDir, Err: err}
	}
	if taken != "" {
		return "", fmt.Errorf("tracing number %s is already used on disk by %s; run reconcile",
			registry.FormatTracingNumber(n), taken)
	}
	if _, err := os.Lstat(final); err == nil {
		return "", fmt.Errorf("managed file %s already exists on disk; run reconcile", name)
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return "", &IOError{Path: srcPath, Err: err}
	}
	defer func() {
		_ = in.Close()
	}()

	tmp, err := os.CreateTemp(a.storeDir, ".ingest-*")
	if err != nil {
		return "", &IOError{Path: a.storeDir, Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), in); err != nil {
		cleanup()
		return "", &IOError{Path: srcPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", &IOError{Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", &IOError{Path: tmpPath, Err: err}
	}
	if hex.EncodeToString(h.Sum(nil)) != fingerprint {
		_ = os.Remove(tmpPath)
		return "", &IOError{Path: srcPath, Err: errors.New("source changed during ingest")}
	}
	if err := os.Rename(tmpPath, final); err != nil {
		_ = os.Remove(tmpPath)
		return "", &IOError{Path: final, Err: err}
	}
	return final, nil
}
