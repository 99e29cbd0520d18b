package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"research-rag/internal/storage"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu            sync.RWMutex
	byFingerprint map[string]Entry
	byNumber      map[int]Entry
	byPath        map[string]struct{}
	max           int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byFingerprint: make(map[string]Entry),
		byNumber:      make(map[int]Entry),
		byPath:        make(map[string]struct{}),
	}
}

func (m *MemoryStore) LookupFingerprint(_ context.Context, fingerprint string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byFingerprint[fingerprint]
	return e, ok, nil
}

func (m *MemoryStore) MaxTracingNumber(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.max, nil
}

func (m *MemoryStore) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byNumber[e.TracingNumber]; ok {
		return fmt.Errorf("tracing number %d: %w", e.TracingNumber, ErrConflict)
	}
	if _, ok := m.byFingerprint[e.Fingerprint]; ok {
		return fmt.Errorf("fingerprint %s: %w", e.Fingerprint, ErrConflict)
	}
	if _, ok := m.byPath[e.StoredPath]; ok && e.StoredPath != "" {
		return fmt.Errorf("stored path %s: %w", e.StoredPath, ErrConflict)
	}
	m.byNumber[e.TracingNumber] = e
	m.byFingerprint[e.Fingerprint] = e
	m.byPath[e.StoredPath] = struct{}{}
	if e.TracingNumber > m.max {
		m.max = e.TracingNumber
	}
	return nil
}

// Entries returns a snapshot ordered by tracing number.
func (m *MemoryStore) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.byNumber))
	for _, e := range m.byNumber {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return a.TracingNumber - b.TracingNumber })
	return out
}

// SQLStore adapts storage.DocumentStore to Store.
type SQLStore struct {
	docs storage.DocumentStore
}

// NewSQLStore wraps a document repository.
func NewSQLStore(docs storage.DocumentStore) *SQLStore {
	return &SQLStore{docs: docs}
}

func (s *SQLStore) LookupFingerprint(ctx context.Context, fingerprint string) (Entry, bool, error) {
	doc, err := s.docs.GetByFingerprint(ctx, fingerprint)
	if errors.Is(err, storage.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entryFromRecord(doc), true, nil
}

func (s *SQLStore) MaxTracingNumber(ctx context.Context) (int, error) {
	return s.docs.MaxTracingNumber(ctx)
}

func (s *SQLStore) Append(ctx context.Context, e Entry) error {
	err := s.docs.Insert(ctx, &storage.DocumentRecord{
		TracingNumber:    e.TracingNumber,
		Fingerprint:      e.Fingerprint,
		OriginalFilename: e.OriginalFilename,
		Title:            e.Title,
		DeclaredType:     e.TypeToken,
		StoredPath:       e.StoredPath,
	})
	if errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func entryFromRecord(doc *storage.DocumentRecord) Entry {
	return Entry{
		TracingNumber:    doc.TracingNumber,
		Fingerprint:      doc.Fingerprint,
		OriginalFilename: doc.OriginalFilename,
		Title:            doc.Title,
		TypeToken:        doc.DeclaredType,
		StoredPath:       doc.StoredPath,
	}
}
