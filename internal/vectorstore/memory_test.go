package vectorstore

import (
	"context"
	"math"
	"testing"
)

func seedMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.EnsureCollection(ctx, "passages", 2); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	err := s.Upsert(ctx, "passages", []Point{
		{ID: "a", Vec: []float32{1, 0}, Meta: map[string]any{"doc_type": "paper", "tracing_number": 1}},
		{ID: "b", Vec: []float32{0.9, 0.1}, Meta: map[string]any{"doc_type": "supporting_info", "tracing_number": 2}},
		{ID: "c", Vec: []float32{0, 1}, Meta: map[string]any{"doc_type": "paper", "tracing_number": 3}},
		{ID: "d", Vec: []float32{-1, 0}, Meta: map[string]any{"doc_type": "paper", "tracing_number": 4}},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	return s
}

func TestMemoryStore_Search(t *testing.T) {
	s := seedMemoryStore(t)

	tests := []struct {
		name    string
		req     SearchRequest
		wantIDs []string
	}{
		{
			name:    "ranked by cosine",
			req:     SearchRequest{Vector: []float32{1, 0}, Limit: 10, ScoreFloor: -1},
			wantIDs: []string{"a", "b", "c", "d"},
		},
		{
			name:    "limit truncates",
			req:     SearchRequest{Vector: []float32{1, 0}, Limit: 2, ScoreFloor: -1},
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "floor drops low scores regardless of limit",
			req:     SearchRequest{Vector: []float32{1, 0}, Limit: 10, ScoreFloor: 0.5},
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "zero floor still drops negative cosine",
			req:     SearchRequest{Vector: []float32{1, 0}, Limit: 10},
			wantIDs: []string{"a", "b", "c"},
		},
		{
			name:    "nothing above floor",
			req:     SearchRequest{Vector: []float32{1, 0}, Limit: 10, ScoreFloor: 1.5},
			wantIDs: nil,
		},
		{
			name:    "filters",
			req:     SearchRequest{Vector: []float32{1, 0}, Limit: 10, ScoreFloor: -1, Filters: map[string]any{"doc_type": "paper"}},
			wantIDs: []string{"a", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(context.Background(), "passages", tt.req)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Search() returned %d results, want %d", len(got), len(tt.wantIDs))
			}
			for i, r := range got {
				if r.PointID != tt.wantIDs[i] {
					t.Errorf("result[%d] = %s, want %s", i, r.PointID, tt.wantIDs[i])
				}
				if r.Score < tt.req.ScoreFloor {
					t.Errorf("result[%d] score %f below floor %f", i, r.Score, tt.req.ScoreFloor)
				}
				if r.Vec != nil {
					t.Errorf("result[%d] carries a vector without WithVectors", i)
				}
			}
		})
	}
}

func TestMemoryStore_SearchWithVectors(t *testing.T) {
	s := seedMemoryStore(t)
	got, err := s.Search(context.Background(), "passages", SearchRequest{Vector: []float32{0, 1}, Limit: 1, WithVectors: true})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].PointID != "c" || len(got[0].Vec) != 2 {
		t.Errorf("Search() = %+v", got)
	}
}

func TestMemoryStore_DeleteAndReplace(t *testing.T) {
	s := seedMemoryStore(t)
	ctx := context.Background()

	if err := s.Delete(ctx, "passages", []string{"a", "missing"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Upsert(ctx, "passages", []Point{{ID: "b", Vec: []float32{0, 1}}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := s.Search(ctx, "passages", SearchRequest{Vector: []float32{1, 0}, Limit: 10, ScoreFloor: 0.5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Search() = %+v, want no results after delete and replace", got)
	}
}

func TestMemoryStore_Errors(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Search(ctx, "missing", SearchRequest{Vector: []float32{1}, Limit: 1}); err == nil {
		t.Error("Search() on missing collection should fail")
	}
	if err := s.EnsureCollection(ctx, "c", 2); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	if err := s.EnsureCollection(ctx, "c", 3); err == nil {
		t.Error("EnsureCollection() with a different size should fail")
	}
	if err := s.Upsert(ctx, "c", []Point{{ID: "x", Vec: []float32{1, 2, 3}}}); err == nil {
		t.Error("Upsert() with wrong dimension should fail")
	}
	exists, err := s.CollectionExists(ctx, "c")
	if err != nil || !exists {
		t.Errorf("CollectionExists() = %v, %v", exists, err)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float64
	}{
		{a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{a: []float32{1, 1}, b: []float32{-1, -1}, want: -1},
		{a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{a: []float32{1}, b: []float32{1, 0}, want: 0},
	}
	for _, tt := range tests {
		if got := Cosine(tt.a, tt.b); math.Abs(float64(got)-tt.want) > 1e-6 {
			t.Errorf("Cosine(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}
