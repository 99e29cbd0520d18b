package indexer

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"go.uber.org/mock/gomock"

	"research-rag/internal/storage"
	storage_mocks "research-rag/internal/storage/mocks"
)

func TestCoverageStats(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	chunker, err := NewChunker(100, 10)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}
	pipeline := &Pipeline{chunkRepo: storage.NewChunkRepo(db), chunker: chunker}
	ctx := context.Background()

	stats, err := pipeline.CoverageStats(ctx, nil, "test-embedding-model")
	if err != nil {
		t.Fatalf("CoverageStats() error = %v", err)
	}
	if stats.DocsRegistered != 0 || stats.DocsWith0Chunks != 0 || stats.ChunksStored != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
	if stats.ChunkerVersion != ChunkerVersion {
		t.Errorf("ChunkerVersion = %s, want %s", stats.ChunkerVersion, ChunkerVersion)
	}
	if len(stats.IndexVersion) != 16 {
		t.Errorf("IndexVersion = %q, want 16 hex chars", stats.IndexVersion)
	}

	docs := storage.NewDocumentRepo(db)
	for n := 1; n <= 3; n++ {
		status := storage.IndexIndexed
		if n == 3 {
			status = storage.IndexFailed
		}
		rec := &storage.DocumentRecord{
			TracingNumber: n,
			Fingerprint:   "fp-" + strconv.Itoa(n),
			StoredPath:    "/store/" + strconv.Itoa(n),
			IndexStatus:   status,
		}
		if err := docs.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	chunks := storage.NewChunkRepo(db)
	texts := map[string]struct {
		doc  int
		text string
	}{
		"c1": {1, "abcd"},
		"c2": {1, "abcdefghijklmnopqrst"},
		"c3": {2, "abcdefgh"},
	}
	i := 0
	for id, c := range texts {
		if err := chunks.Insert(ctx, &storage.ChunkRecord{ID: id, TracingNumber: c.doc, ChunkIndex: i, Page: "1", Text: c.text}); err != nil {
			t.Fatalf("Insert chunk error = %v", err)
		}
		i++
	}

	list, err := docs.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	stats, err = pipeline.CoverageStats(ctx, list, "test-embedding-model")
	if err != nil {
		t.Fatalf("CoverageStats() error = %v", err)
	}

	if stats.DocsRegistered != 3 {
		t.Errorf("DocsRegistered = %d, want 3", stats.DocsRegistered)
	}
	if stats.DocsWith0Chunks != 1 {
		t.Errorf("DocsWith0Chunks = %d, want 1", stats.DocsWith0Chunks)
	}
	if stats.DocsByStatus[storage.IndexIndexed] != 2 || stats.DocsByStatus[storage.IndexFailed] != 1 {
		t.Errorf("DocsByStatus = %v", stats.DocsByStatus)
	}
	if stats.ChunksStored != 3 {
		t.Errorf("ChunksStored = %d, want 3", stats.ChunksStored)
	}
	if stats.ChunkTokenStats.Min != 1 || stats.ChunkTokenStats.Max != 5 {
		t.Errorf("ChunkTokenStats = %+v, want min 1 max 5", stats.ChunkTokenStats)
	}

	other, err := (&Pipeline{chunkRepo: chunks, chunker: chunker}).CoverageStats(ctx, list, "other-model")
	if err != nil {
		t.Fatalf("CoverageStats() error = %v", err)
	}
	if other.IndexVersion == stats.IndexVersion {
		t.Error("IndexVersion should change with the embedding model")
	}
}

func TestComputeTokenStats(t *testing.T) {
	tests := []struct {
		name        string
		tokenCounts []int
		want        ChunkTokenStats
	}{
		{
			name:        "empty",
			tokenCounts: []int{},
			want:        ChunkTokenStats{},
		},
		{
			name:        "single value",
			tokenCounts: []int{10},
			want: ChunkTokenStats{
				Min:  10,
				Max:  10,
				Mean: 10.0,
				P95:  10,
			},
		},
		{
			name:        "multiple values",
			tokenCounts: []int{5, 10, 15, 20, 25},
			want: ChunkTokenStats{
				Min:  5,
				Max:  25,
				Mean: 15.0,
				P95:  25, // 95th percentile of 5 values = index 4 (0-indexed) = 25
			},
		},
		{
			name:        "unsorted values",
			tokenCounts: []int{30, 5, 20, 10, 15},
			want: ChunkTokenStats{
				Min:  5,
				Max:  30,
				Mean: 16.0, // (30+5+20+10+15)/5 = 16
				P95:  30,
			},
		},
		{
			name:        "many values for p95",
			tokenCounts: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			want: ChunkTokenStats{
				Min:  1,
				Max:  20,
				Mean: 10.5,
				P95:  20, // 95th percentile of 20 values = index 19 = 20
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeTokenStats(tt.tokenCounts)
			if got.Min != tt.want.Min {
				t.Errorf("Min = %d, want %d", got.Min, tt.want.Min)
			}
			if got.Max != tt.want.Max {
				t.Errorf("Max = %d, want %d", got.Max, tt.want.Max)
			}
			if got.Mean != tt.want.Mean {
				t.Errorf("Mean = %f, want %f", got.Mean, tt.want.Mean)
			}
			if got.P95 != tt.want.P95 {
				t.Errorf("P95 = %d, want %d", got.P95, tt.want.P95)
			}
		})
	}
}

func TestCoverageStats_ErrorHandling(t *testing.T) {
	if _, err := (&Pipeline{}).CoverageStats(context.Background(), nil, "test-model"); err == nil {
		t.Error("CoverageStats() should return error without a chunk store")
	}

	ctrl := gomock.NewController(t)
	chunkStore := storage_mocks.NewMockChunkStore(ctrl)
	chunkStore.EXPECT().Lengths(gomock.Any()).Return(nil, context.DeadlineExceeded)

	chunker, _ := NewChunker(100, 0)
	if _, err := (&Pipeline{chunkRepo: chunkStore, chunker: chunker}).CoverageStats(context.Background(), nil, "m"); err == nil {
		t.Error("CoverageStats() should propagate store errors")
	}
}
