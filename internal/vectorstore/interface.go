package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks research-rag/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchRequest describes one similarity query.
type SearchRequest struct {
	Vector []float32
	// Limit is the candidate pool size (fetch_k).
	Limit int
	// ScoreFloor drops candidates scoring below it. The floor always applies, so
	// zero still drops negative cosine; pass -1 to keep every candidate.
	ScoreFloor float32
	// WithVectors asks the store to return stored vectors for diversity re-ranking.
	WithVectors bool
	// Filters are exact-match conditions on payload keys.
	Filters map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
	Vec     []float32
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// EnsureCollection creates the collection or validates its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists reports whether the collection is present.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns candidates ordered by descending score, all at or above req.ScoreFloor.
	Search(ctx context.Context, collection string, req SearchRequest) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error
}
