package ingest

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Session scopes the set of filenames already handled by one ingestion run.
// Each caller creates its own; nothing is shared across sessions.
type Session struct {
	ID string

	mu        sync.Mutex
	processed map[string]struct{}
}

// NewSession starts an empty session.
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		processed: make(map[string]struct{}),
	}
}

// claim marks name as processed; false if it already was.
func (s *Session) claim(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processed[name]; ok {
		return false
	}
	s.processed[name] = struct{}{}
	return true
}

func (s *Session) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processed, name)
}

// Processed returns the handled filenames in sorted order.
func (s *Session) Processed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.processed))
	for name := range s.processed {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
