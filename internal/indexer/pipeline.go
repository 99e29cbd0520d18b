package indexer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"research-rag/internal/contextutil"
	"research-rag/internal/llm"
	"research-rag/internal/storage"
	"research-rag/internal/vectorstore"
)

// embedBatchSize bounds the number of texts per embeddings request.
const embedBatchSize = 32

// chunkNamespace scopes chunk point IDs.
var chunkNamespace = uuid.MustParse("6f1c2b8e-5a43-4f0e-9a7d-2c1b4e8f9d30")

// Payload keys attached to every vector point.
const (
	MetaTitle         = "title"
	MetaFilename      = "filename"
	MetaPage          = "page"
	MetaDocType       = "doc_type"
	MetaTracingNumber = "tracing_number"
	MetaChunkIndex    = "chunk_index"
	MetaText          = "text"
)

// Document is an admitted, extracted and classified document ready to index.
type Document struct {
	TracingNumber int
	Title         string
	Filename      string
	DocType       string
	Pages         []string
}

// Pipeline chunks documents, embeds the chunks and stores them in SQLite and the vector store.
type Pipeline struct {
	chunkRepo   storage.ChunkStore
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	chunker     *Chunker
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	chunkRepo storage.ChunkStore,
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	chunker *Chunker,
) *Pipeline {
	return &Pipeline{
		chunkRepo:   chunkRepo,
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		chunker:     chunker,
	}
}

// Index replaces any previous passages of doc with freshly computed ones and
// returns the number of chunks stored.
func (p *Pipeline) Index(ctx context.Context, doc Document) (int, error) {
	ctx = contextutil.WithAttrs(ctx, "tracing_number", doc.TracingNumber)
	logger := contextutil.LoggerFromContext(ctx)

	chunks := p.chunker.ChunkPages(doc.Pages)

	if err := p.Remove(ctx, doc.TracingNumber); err != nil {
		return 0, err
	}

	if len(chunks) == 0 {
		logger.WarnContext(ctx, "no chunks generated", "filename", doc.Filename)
		return 0, nil
	}

	chunkTexts := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunkTexts[i] = chunk.Text
	}

	embeddings, err := p.embed(ctx, chunkTexts)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	chunkRecords := make([]*storage.ChunkRecord, len(chunks))
	points := make([]vectorstore.Point, len(chunks))
	unknownPages := 0

	for i, chunk := range chunks {
		chunkID := generateStableChunkID(doc.TracingNumber, chunk.Index, chunk.Text)
		if chunk.Page == PageUnknown {
			unknownPages++
		}

		chunkRecords[i] = &storage.ChunkRecord{
			ID:            chunkID,
			TracingNumber: doc.TracingNumber,
			ChunkIndex:    chunk.Index,
			Page:          chunk.Page,
			Text:          chunk.Text,
		}

		points[i] = vectorstore.Point{
			ID:  chunkID,
			Vec: embeddings[i],
			Meta: map[string]any{
				MetaTitle:         doc.Title,
				MetaFilename:      doc.Filename,
				MetaPage:          chunk.Page,
				MetaDocType:       doc.DocType,
				MetaTracingNumber: doc.TracingNumber,
				MetaChunkIndex:    chunk.Index,
				MetaText:          chunk.Text,
			},
		}
	}

	for _, chunkRecord := range chunkRecords {
		if err := p.chunkRepo.Insert(ctx, chunkRecord); err != nil {
			return 0, fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		return 0, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	logger.InfoContext(ctx, "indexed document",
		"filename", doc.Filename,
		"chunks", len(chunks),
		"unknown_pages", unknownPages,
	)
	return len(chunks), nil
}

// Remove deletes all stored passages of a document.
func (p *Pipeline) Remove(ctx context.Context, tracingNumber int) error {
	logger := contextutil.LoggerFromContext(ctx)

	oldChunkIDs, err := p.chunkRepo.ListIDsByDocument(ctx, tracingNumber)
	if err != nil {
		return fmt.Errorf("failed to list old chunk IDs: %w", err)
	}
	if len(oldChunkIDs) == 0 {
		return nil
	}

	if err := p.vectorStore.Delete(ctx, p.collection, oldChunkIDs); err != nil {
		return fmt.Errorf("failed to delete old chunks from vector store: %w", err)
	}
	if err := p.chunkRepo.DeleteByDocument(ctx, tracingNumber); err != nil {
		return fmt.Errorf("failed to delete old chunks from SQLite: %w", err)
	}

	logger.DebugContext(ctx, "removed old chunks", "count", len(oldChunkIDs))
	return nil
}

func (p *Pipeline) embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		batch, err := p.embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", end-start, len(batch))
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

// generateStableChunkID derives a UUID from the document, position and text,
// so re-indexing unchanged text yields the same point IDs.
func generateStableChunkID(tracingNumber, chunkIndex int, text string) string {
	name := strconv.Itoa(tracingNumber) + "|" + strconv.Itoa(chunkIndex) + "|" + text
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
