// Package registry tracks admitted documents as an append-only sequence of
// tracing numbers keyed by content fingerprint.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"research-rag/internal/contextutil"
)

var (
	// ErrDuplicate is returned by ReserveNext when the fingerprint is already registered.
	ErrDuplicate = errors.New("duplicate content")
	// ErrConflict is returned by a Store when an append collides with an existing entry.
	ErrConflict = errors.New("registry conflict")
	// ErrRegistryConflict is returned when conflicts persist past the retry budget.
	ErrRegistryConflict = errors.New("registry conflict: retries exhausted")
)

const maxReserveAttempts = 3

// Entry is one registered document.
type Entry struct {
	TracingNumber    int
	Fingerprint      string
	OriginalFilename string
	Title            string
	TypeToken        string
	StoredPath       string
}

// Store persists entries. Append must fail with ErrConflict when the tracing
// number, fingerprint or stored path is already present.
type Store interface {
	LookupFingerprint(ctx context.Context, fingerprint string) (Entry, bool, error)
	MaxTracingNumber(ctx context.Context) (int, error)
	Append(ctx context.Context, e Entry) error
}

// MaterializeFunc writes the managed file for tracing number n and returns the
// entry to register plus an undo that removes what it wrote.
type MaterializeFunc func(n int) (Entry, func(), error)

// Sequence serializes tracing-number reservation over a Store.
type Sequence struct {
	store Store
	mu    sync.Mutex
}

// NewSequence creates a Sequence backed by store.
func NewSequence(store Store) *Sequence {
	return &Sequence{store: store}
}

// Lookup checks for a fingerprint without taking the reservation lock.
func (s *Sequence) Lookup(ctx context.Context, fingerprint string) (Entry, bool, error) {
	return s.store.LookupFingerprint(ctx, fingerprint)
}

// ReserveNext registers fingerprint under max+1. The fingerprint is re-checked
// inside the critical section, materialize runs with the candidate number and
// the entry is appended only after materialize succeeds. A number is consumed
// only once Append returns nil; otherwise undo is invoked.
func (s *Sequence) ReserveNext(ctx context.Context, fingerprint string, materialize MaterializeFunc) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := contextutil.LoggerFromContext(ctx)

	for attempt := 1; attempt <= maxReserveAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Entry{}, err
		}

		existing, found, err := s.store.LookupFingerprint(ctx, fingerprint)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to look up fingerprint: %w", err)
		}
		if found {
			return existing, ErrDuplicate
		}

		last, err := s.store.MaxTracingNumber(ctx)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to read tracing numbers: %w", err)
		}
		next := last + 1

		entry, undo, err := materialize(next)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to materialize %s: %w", FormatTracingNumber(next), err)
		}
		entry.TracingNumber = next
		entry.Fingerprint = fingerprint

		// an abandoned admit must not leave a registered number behind
		if err := ctx.Err(); err != nil {
			undo()
			return Entry{}, err
		}

		err = s.store.Append(ctx, entry)
		if err == nil {
			return entry, nil
		}
		undo()
		if !errors.Is(err, ErrConflict) {
			return Entry{}, fmt.Errorf("failed to append %s: %w", FormatTracingNumber(next), err)
		}
		logger.WarnContext(ctx, "tracing number conflict, retrying",
			"tracing_number", next,
			"attempt", attempt,
		)
	}

	return Entry{}, fmt.Errorf("%w after %d attempts", ErrRegistryConflict, maxReserveAttempts)
}
