package rag

import (
	"context"
	"fmt"
	"strings"

	"research-rag/internal/contextutil"
	"research-rag/internal/indexer"
	"research-rag/internal/llm"
	"research-rag/internal/metrics"
	"research-rag/internal/storage"
	"research-rag/internal/vectorstore"
)

// RetrieveParams controls one retrieval.
type RetrieveParams struct {
	K          int
	FetchK     int
	ScoreFloor float32
	Filters    map[string]any
}

// Retriever returns diverse passages above a relevance floor.
type Retriever struct {
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	chunkRepo   storage.ChunkStore
	lambda      float32
}

// NewRetriever creates a Retriever. lambda in [0, 1] weighs relevance against
// novelty during selection; 1 is plain top-k. chunkRepo may be nil when the
// vector store payload carries the passage text.
func NewRetriever(
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	chunkRepo storage.ChunkStore,
	lambda float32,
) *Retriever {
	return &Retriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		chunkRepo:   chunkRepo,
		lambda:      lambda,
	}
}

// Retrieve embeds query, fetches FetchK candidates at or above ScoreFloor and
// selects up to K of them with maximal marginal relevance. An empty result is
// not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, p RetrieveParams) ([]Passage, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if p.K <= 0 {
		return nil, fmt.Errorf("%w: k must be greater than 0", ErrInvalidRequest)
	}
	if p.FetchK < p.K {
		p.FetchK = p.K
	}

	embeddings, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for question")
	}

	results, err := r.vectorStore.Search(ctx, r.collection, vectorstore.SearchRequest{
		Vector:      embeddings[0],
		Limit:       p.FetchK,
		ScoreFloor:  p.ScoreFloor,
		WithVectors: true,
		Filters:     p.Filters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	candidates := r.toCandidates(ctx, results, p.ScoreFloor)
	selected := selectMMR(candidates, p.K, r.lambda)

	passages := make([]Passage, len(selected))
	for i, c := range selected {
		passages[i] = c.passage
	}

	metrics.RetrievalResults.Observe(float64(len(passages)))
	logger.InfoContext(ctx, "retrieval completed",
		"candidates", len(results),
		"above_floor", len(candidates),
		"selected", len(passages),
		"k", p.K,
		"fetch_k", p.FetchK,
		"score_floor", p.ScoreFloor,
	)
	return passages, nil
}

type candidate struct {
	passage Passage
	vec     []float32
	tokens  map[string]struct{}
}

// toCandidates enforces the floor, drops repeated points and text repeated on
// the same page of the same file, and resolves passage text.
func (r *Retriever) toCandidates(ctx context.Context, results []vectorstore.SearchResult, floor float32) []candidate {
	logger := contextutil.LoggerFromContext(ctx)

	seenIDs := make(map[string]struct{}, len(results))
	seenText := make(map[string]struct{}, len(results))
	out := make([]candidate, 0, len(results))

	for _, res := range results {
		if res.Score < floor {
			continue
		}
		if _, ok := seenIDs[res.PointID]; ok {
			continue
		}
		seenIDs[res.PointID] = struct{}{}

		p := passageFromMeta(res.PointID, res.Score, res.Meta)
		if p.Text == "" && r.chunkRepo != nil {
			chunk, err := r.chunkRepo.GetByID(ctx, res.PointID)
			if err != nil {
				logger.WarnContext(ctx, "failed to fetch chunk text", "chunk_id", res.PointID, "error", err)
				continue
			}
			p.Text = chunk.Text
			if _, ok := res.Meta[indexer.MetaPage]; !ok {
				p.Page = chunk.Page
			}
		}
		if p.Text == "" {
			continue
		}

		// The same paragraph in two documents is two sources; only repeats within one page collapse.
		key := p.Filename + "\x00" + p.Page + "\x00" + strings.Join(strings.Fields(strings.ToLower(p.Text)), " ")
		if _, ok := seenText[key]; ok {
			continue
		}
		seenText[key] = struct{}{}

		out = append(out, candidate{passage: p, vec: res.Vec, tokens: tokenSet(p.Text)})
	}
	return out
}

// selectMMR greedily picks k candidates maximizing
// lambda*relevance - (1-lambda)*max similarity to already picked ones.
// Candidates must be ordered by descending score; ties keep that order.
func selectMMR(candidates []candidate, k int, lambda float32) []candidate {
	if len(candidates) <= 1 || lambda >= 1 {
		if len(candidates) > k {
			return candidates[:k]
		}
		return candidates
	}

	remaining := make([]candidate, len(candidates))
	copy(remaining, candidates)
	selected := make([]candidate, 0, min(k, len(candidates)))

	for len(selected) < k && len(remaining) > 0 {
		best, bestScore := 0, float32(0)
		for i, c := range remaining {
			var redundancy float32
			for _, s := range selected {
				if sim := similarity(c, s); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*c.passage.Score - (1-lambda)*redundancy
			if i == 0 || score > bestScore {
				best, bestScore = i, score
			}
		}
		selected = append(selected, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return selected
}

// similarity uses stored vectors when both candidates have them and falls back
// to token Jaccard similarity otherwise.
func similarity(a, b candidate) float32 {
	if len(a.vec) > 0 && len(a.vec) == len(b.vec) {
		return vectorstore.Cosine(a.vec, b.vec)
	}
	return jaccard(a.tokens, b.tokens)
}

func jaccard(a, b map[string]struct{}) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float32(inter) / float32(len(a)+len(b)-inter)
}

func tokenSet(text string) map[string]struct{} {
	tokens := filterStopwords(tokenize(text))
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func passageFromMeta(id string, score float32, meta map[string]any) Passage {
	page := metaString(meta, indexer.MetaPage)
	if page == "" {
		page = indexer.PageUnknown
	}
	return Passage{
		ID:            id,
		TracingNumber: metaInt(meta, indexer.MetaTracingNumber),
		Title:         metaString(meta, indexer.MetaTitle),
		Filename:      metaString(meta, indexer.MetaFilename),
		Page:          page,
		DocType:       metaString(meta, indexer.MetaDocType),
		ChunkIndex:    metaInt(meta, indexer.MetaChunkIndex),
		Text:          metaString(meta, indexer.MetaText),
		Score:         score,
	}
}

func metaString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// metaInt accepts the integer shapes payloads come back as.
func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
