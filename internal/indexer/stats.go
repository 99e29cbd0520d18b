package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"research-rag/internal/storage"
)

const (
	// ChunkerVersion identifies the chunking algorithm. Bump it when output changes.
	ChunkerVersion = "v2.0"
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
)

// IndexingCoverageStats summarizes what the index currently holds.
type IndexingCoverageStats struct {
	DocsRegistered  int             `json:"docs_registered"`
	DocsWith0Chunks int             `json:"docs_with_0_chunks"`
	DocsByStatus    map[string]int  `json:"docs_by_status"`
	ChunksStored    int             `json:"chunks_stored"`
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	ChunkerVersion  string          `json:"chunker_version"`
	// IndexVersion hashes chunker version, embedding model and chunking params.
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about estimated token counts per chunk.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// CoverageStats computes coverage for the registered docs from the chunk table.
func (p *Pipeline) CoverageStats(ctx context.Context, docs []storage.DocumentRecord, embeddingModelName string) (*IndexingCoverageStats, error) {
	if p.chunkRepo == nil || p.chunker == nil {
		return nil, fmt.Errorf("pipeline is not configured for stats")
	}

	lengths, err := p.chunkRepo.Lengths(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk lengths: %w", err)
	}

	stats := &IndexingCoverageStats{
		DocsRegistered: len(docs),
		DocsByStatus:   make(map[string]int),
		ChunksStored:   len(lengths),
		ChunkerVersion: ChunkerVersion,
	}

	chunksPerDoc := make(map[int]int)
	tokenCounts := make([]int, 0, len(lengths))
	for _, l := range lengths {
		chunksPerDoc[l.TracingNumber]++
		tokenCount := int(math.Round(float64(l.Runes) / TokensPerRune))
		if tokenCount < 1 {
			tokenCount = 1
		}
		tokenCounts = append(tokenCounts, tokenCount)
	}
	for _, doc := range docs {
		stats.DocsByStatus[doc.IndexStatus]++
		if chunksPerDoc[doc.TracingNumber] == 0 {
			stats.DocsWith0Chunks++
		}
	}
	stats.ChunkTokenStats = computeTokenStats(tokenCounts)

	indexVersionInput := fmt.Sprintf("%s|%s|chunkSize=%d|chunkOverlap=%d",
		ChunkerVersion, embeddingModelName, p.chunker.Size(), p.chunker.Overlap())
	hash := sha256.Sum256([]byte(indexVersionInput))
	stats.IndexVersion = hex.EncodeToString(hash[:])[:16]

	return stats, nil
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // 2 decimal places
		P95:  sorted[p95Index],
	}
}
