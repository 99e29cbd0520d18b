package storage

import "time"

// Index status values stored in documents.index_status.
const (
	IndexPending = "pending"
	IndexIndexed = "indexed"
	IndexFailed  = "failed"
)

// DocumentRecord is one admitted document in the registry.
type DocumentRecord struct {
	TracingNumber        int
	Fingerprint          string // SHA256 hex of the raw file bytes
	OriginalFilename     string
	Title                string // sanitized title used in the managed filename
	DeclaredType         string // type token used at admission time
	DocType              string // classified type
	ClassifiedTitle      string
	ClassificationSource string // rule_match | model_fallback | unknown
	StoredPath           string
	IndexStatus          string
	CreatedAt            time.Time
}

// ChunkRecord is one passage of a document, indexed for vector search.
type ChunkRecord struct {
	ID            string // UUID (same as the vector store point ID)
	TracingNumber int
	ChunkIndex    int
	Page          string // 1-based page number or "unknown"
	Text          string
}

// ExperimentRecord is one materialized row of tabular experiment data.
type ExperimentRecord struct {
	ID         string
	SourceFile string
	Text       string
	CreatedAt  time.Time
}
