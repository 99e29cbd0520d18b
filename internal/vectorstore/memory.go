package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"research-rag/internal/contextutil"
)

// MemoryStore is an in-process VectorStore using brute-force cosine similarity.
// It backs VECTOR_BACKEND=memory and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	size   int
	points map[string]Point
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// EnsureCollection creates the collection or validates its vector size.
func (s *MemoryStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("vector size must be greater than 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[collection]; ok {
		if c.size != vectorSize {
			return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, c.size)
		}
		return nil
	}
	s.collections[collection] = &memoryCollection{size: vectorSize, points: make(map[string]Point)}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "collection created", "collection", collection, "vector_size", vectorSize)
	return nil
}

// CollectionExists reports whether the collection is present.
func (s *MemoryStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok, nil
}

// Upsert inserts or replaces points. A missing collection is created with the
// size of the first vector.
func (s *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		c = &memoryCollection{size: len(points[0].Vec), points: make(map[string]Point)}
		s.collections[collection] = c
	}
	for _, p := range points {
		if len(p.Vec) != c.size {
			return fmt.Errorf("vector dimension mismatch for point %s: expected %d, got %d", p.ID, c.size, len(p.Vec))
		}
	}
	for _, p := range points {
		c.points[p.ID] = Point{ID: p.ID, Vec: append([]float32(nil), p.Vec...), Meta: copyMeta(p.Meta)}
	}
	return nil
}

// Search ranks every point by cosine similarity.
func (s *MemoryStore) Search(ctx context.Context, collection string, req SearchRequest) ([]SearchResult, error) {
	if req.Limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q not found", collection)
	}

	results := make([]SearchResult, 0, len(c.points))
	for _, p := range c.points {
		if !matchesFilters(p.Meta, req.Filters) {
			continue
		}
		score := Cosine(req.Vector, p.Vec)
		if score < req.ScoreFloor {
			continue
		}
		r := SearchResult{PointID: p.ID, Score: score, Meta: copyMeta(p.Meta)}
		if req.WithVectors {
			r.Vec = append([]float32(nil), p.Vec...)
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PointID < results[j].PointID
	})
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "search completed",
		"collection", collection,
		"limit", req.Limit,
		"results", len(results),
	)
	return results, nil
}

// Delete removes points by their IDs. Unknown IDs are ignored.
func (s *MemoryStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(c.points, id)
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 if either is a zero vector
// or their lengths differ.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func matchesFilters(meta, filters map[string]any) bool {
	for k, want := range filters {
		got, ok := meta[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func copyMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
