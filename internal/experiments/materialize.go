package experiments

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"research-rag/internal/contextutil"
	"research-rag/internal/metrics"
	"research-rag/internal/storage"
)

// Record outcomes reported by Materialize.
const (
	StatusWritten = "written"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Outcome is the result for one record.
type Outcome struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Report summarizes one spreadsheet ingestion.
type Report struct {
	Source    string     `json:"source"`
	Outcomes  []Outcome  `json:"outcomes"`
	RowErrors []RowError `json:"row_errors,omitempty"`
}

// Count returns how many outcomes have status.
func (r Report) Count(status string) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Materializer writes records as <id>.txt files and mirrors them into the
// experiment store. Existing files are never overwritten.
type Materializer struct {
	dir   string
	store storage.ExperimentStore
}

// NewMaterializer creates a Materializer writing into dir. store may be nil.
func NewMaterializer(dir string, store storage.ExperimentStore) *Materializer {
	return &Materializer{dir: dir, store: store}
}

// IngestFile reads path with schema and materializes every buildable row.
func (m *Materializer) IngestFile(ctx context.Context, path string, schema Schema) (Report, error) {
	table, err := ReadXLSX(path, schema)
	if err != nil {
		return Report{}, err
	}
	records, rowErrs := Build(table, schema)

	report, err := m.Materialize(ctx, filepath.Base(path), records)
	if err != nil {
		return Report{}, err
	}
	report.RowErrors = rowErrs
	return report, nil
}

// Materialize writes each record exactly once. A record whose file already
// exists is skipped. The store insert runs in both cases so a lost database
// row is restored from the next ingestion.
func (m *Materializer) Materialize(ctx context.Context, source string, records []Record) (Report, error) {
	logger := contextutil.LoggerFromContext(ctx).With("source", source)

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Report{}, fmt.Errorf("failed to create experiments dir: %w", err)
	}

	report := Report{Source: source, Outcomes: make([]Outcome, 0, len(records))}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		out := Outcome{ID: rec.ID}

		written, err := m.writeOnce(rec)
		switch {
		case err != nil:
			out.Status = StatusFailed
			out.Reason = err.Error()
			logger.ErrorContext(ctx, "failed to write experiment record", "id", rec.ID, "error", err)
		case written:
			out.Status = StatusWritten
		default:
			out.Status = StatusSkipped
			out.Reason = "already materialized"
		}

		if err == nil && m.store != nil {
			if _, serr := m.store.InsertIfAbsent(ctx, &storage.ExperimentRecord{ID: rec.ID, SourceFile: source, Text: rec.Text}); serr != nil {
				out.Status = StatusFailed
				out.Reason = serr.Error()
				logger.ErrorContext(ctx, "failed to store experiment record", "id", rec.ID, "error", serr)
			}
		}

		metrics.ExperimentRecordsTotal.WithLabelValues(out.Status).Inc()
		report.Outcomes = append(report.Outcomes, out)
	}

	logger.InfoContext(ctx, "experiment records materialized",
		"written", report.Count(StatusWritten),
		"skipped", report.Count(StatusSkipped),
		"failed", report.Count(StatusFailed),
	)
	return report, nil
}

// writeOnce creates <id>.txt exclusively. It reports false when the file exists.
func (m *Materializer) writeOnce(rec Record) (bool, error) {
	path := filepath.Join(m.dir, rec.ID+".txt")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.WriteString(rec.Text + "\n"); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return false, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return true, nil
}
