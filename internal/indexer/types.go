package indexer

// PageUnknown is the page value of a chunk whose source page cannot be resolved.
const PageUnknown = "unknown"

// Chunk represents one passage of a document.
type Chunk struct {
	Index int    // Chunk index within the document (starts at 0)
	Page  string // 1-based page number, or PageUnknown
	Text  string // Chunk text content
}
