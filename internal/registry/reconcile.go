package registry

import (
	"context"
	"errors"
	"fmt"

	"research-rag/internal/contextutil"
)

// ReconcileReport summarizes a Reconcile run.
type ReconcileReport struct {
	Known     int
	Added     []Entry
	Skipped   []string
	Conflicts []string
}

// Reconcile registers managed files found in dir that the store does not know.
// Files whose content is already registered under another number are skipped,
// files whose number is taken by different content are reported as conflicts.
func (s *Sequence) Reconcile(ctx context.Context, dir string) (ReconcileReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := contextutil.LoggerFromContext(ctx)
	var report ReconcileReport

	files, err := ScanDirectory(dir)
	if err != nil {
		return report, err
	}

	for _, mf := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		fp, err := FingerprintFile(mf.Path)
		if err != nil {
			return report, fmt.Errorf("failed to fingerprint %s: %w", mf.Name, err)
		}

		existing, found, err := s.store.LookupFingerprint(ctx, fp)
		if err != nil {
			return report, fmt.Errorf("failed to look up fingerprint: %w", err)
		}
		if found {
			if existing.TracingNumber == mf.TracingNumber {
				report.Known++
			} else {
				report.Skipped = append(report.Skipped, fmt.Sprintf("%s: duplicate of %s", mf.Name, FormatTracingNumber(existing.TracingNumber)))
			}
			continue
		}

		entry := Entry{
			TracingNumber:    mf.TracingNumber,
			Fingerprint:      fp,
			OriginalFilename: mf.Name,
			Title:            mf.Title,
			TypeToken:        mf.TypeToken,
			StoredPath:       mf.Path,
		}
		if err := s.store.Append(ctx, entry); err != nil {
			if errors.Is(err, ErrConflict) {
				report.Conflicts = append(report.Conflicts, fmt.Sprintf("%s: %v", mf.Name, err))
				continue
			}
			return report, fmt.Errorf("failed to register %s: %w", mf.Name, err)
		}
		logger.InfoContext(ctx, "registered managed file", "tracing_number", mf.TracingNumber, "file", mf.Name)
		report.Added = append(report.Added, entry)
	}

	return report, nil
}
