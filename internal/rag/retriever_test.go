package rag

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"

	"go.uber.org/mock/gomock"

	llm_mocks "research-rag/internal/llm/mocks"
	"research-rag/internal/vectorstore"
)

// unitAt returns a 2-d unit vector whose cosine with (1, 0) is score.
func unitAt(score float64) []float32 {
	return []float32{float32(score), float32(math.Sqrt(1 - score*score))}
}

// seedStore stores one passage per score; passage i lives on page i+1 of its own file.
func seedStore(t *testing.T, scores []float64) *vectorstore.MemoryStore {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	points := make([]vectorstore.Point, len(scores))
	for i, s := range scores {
		points[i] = vectorstore.Point{
			ID:  "p" + strconv.Itoa(i),
			Vec: unitAt(s),
			Meta: map[string]any{
				"title":          "Doc " + strconv.Itoa(i),
				"filename":       strconv.Itoa(i) + ".pdf",
				"page":           strconv.Itoa(i + 1),
				"doc_type":       "paper",
				"tracing_number": i + 1,
				"chunk_index":    0,
				"text":           "passage number " + strconv.Itoa(i),
			},
		}
	}
	if err := store.Upsert(context.Background(), "passages", points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	return store
}

func queryEmbedder(ctrl *gomock.Controller) *llm_mocks.MockEmbedder {
	e := llm_mocks.NewMockEmbedder(ctrl)
	e.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil).AnyTimes()
	return e
}

func TestRetriever_ScoreFloorScenario(t *testing.T) {
	// Five passages above the 0.5 floor and three below it.
	scores := []float64{0.95, 0.4, 0.9, 0.2, 0.85, -0.1, 0.8, 0.7}
	above := map[string]bool{"p0": true, "p2": true, "p4": true, "p6": true, "p7": true}

	for _, k := range []int{5, 8, 20} {
		t.Run("k="+strconv.Itoa(k), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			r := NewRetriever(queryEmbedder(ctrl), seedStore(t, scores), "passages", nil, 0.5)

			got, err := r.Retrieve(context.Background(), "fiber sorbent MOF conversion", RetrieveParams{K: k, FetchK: 20, ScoreFloor: 0.5})
			if err != nil {
				t.Fatalf("Retrieve() error = %v", err)
			}
			if len(got) != 5 {
				t.Fatalf("Retrieve() returned %d passages, want 5", len(got))
			}
			for _, p := range got {
				if !above[p.ID] {
					t.Errorf("passage %s (score %f) is below the floor", p.ID, p.Score)
				}
			}
			if got[0].ID != "p0" {
				t.Errorf("top passage = %s, want p0", got[0].ID)
			}
		})
	}
}

func TestRetriever_EmptyIsNotAnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := NewRetriever(queryEmbedder(ctrl), seedStore(t, []float64{0.1, 0.2}), "passages", nil, 0.5)

	got, err := r.Retrieve(context.Background(), "q", RetrieveParams{K: 3, FetchK: 10, ScoreFloor: 0.9})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Retrieve() = %v, want empty", got)
	}
}

func TestRetriever_KLimitsAndPassageMetadata(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := NewRetriever(queryEmbedder(ctrl), seedStore(t, []float64{0.9, 0.8, 0.7}), "passages", nil, 1)

	got, err := r.Retrieve(context.Background(), "q", RetrieveParams{K: 2, FetchK: 1})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "p0" || got[1].ID != "p1" {
		t.Fatalf("Retrieve() = %+v", got)
	}
	p := got[0]
	if p.Title != "Doc 0" || p.Filename != "0.pdf" || p.Page != "1" || p.TracingNumber != 1 || p.DocType != "paper" || p.Text != "passage number 0" {
		t.Errorf("passage metadata = %+v", p)
	}
}

func TestRetriever_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, errors.New("down"))

	r := NewRetriever(embedder, vectorstore.NewMemoryStore(), "passages", nil, 0.5)
	if _, err := r.Retrieve(context.Background(), "q", RetrieveParams{K: 3}); err == nil {
		t.Error("Retrieve() should fail when embedding fails")
	}
	if _, err := r.Retrieve(context.Background(), "q", RetrieveParams{K: 0}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Retrieve() with k=0 error = %v, want ErrInvalidRequest", err)
	}
}

func TestRetriever_DropsDuplicateText(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := vectorstore.NewMemoryStore()
	err := store.Upsert(context.Background(), "passages", []vectorstore.Point{
		{ID: "a", Vec: unitAt(0.9), Meta: map[string]any{"text": "Same  text", "filename": "a.pdf"}},
		{ID: "a-again", Vec: unitAt(0.85), Meta: map[string]any{"text": "same text", "filename": "a.pdf"}},
		{ID: "b", Vec: unitAt(0.8), Meta: map[string]any{"text": "same text", "filename": "b.pdf"}},
		{ID: "a-p2", Vec: unitAt(0.75), Meta: map[string]any{"text": "same text", "filename": "a.pdf", "page": "2"}},
		{ID: "c", Vec: unitAt(0.7), Meta: map[string]any{"text": "other text", "filename": "c.pdf"}},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	r := NewRetriever(queryEmbedder(ctrl), store, "passages", nil, 1)
	got, err := r.Retrieve(context.Background(), "q", RetrieveParams{K: 5, FetchK: 5})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	want := []string{"a", "b", "a-p2", "c"}
	if len(got) != len(want) {
		t.Fatalf("Retrieve() returned %d passages, want %v: %+v", len(got), want, got)
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("passage[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
	if got[0].Page != "unknown" {
		t.Errorf("missing page should read unknown, got %q", got[0].Page)
	}
}

func TestSelectMMR(t *testing.T) {
	mk := func(id string, score float32, vec []float32, text string) candidate {
		return candidate{passage: Passage{ID: id, Score: score}, vec: vec, tokens: tokenSet(text)}
	}

	t.Run("vectors", func(t *testing.T) {
		cands := []candidate{
			mk("a", 0.9, []float32{1, 0}, ""),
			mk("b", 0.89, []float32{1, 0}, ""),
			mk("c", 0.7, []float32{0, 1}, ""),
		}
		if got := ids(selectMMR(cands, 2, 0.5)); got != "a,c" {
			t.Errorf("selectMMR(lambda=0.5) = %s, want a,c", got)
		}
		if got := ids(selectMMR(cands, 2, 1)); got != "a,b" {
			t.Errorf("selectMMR(lambda=1) = %s, want a,b", got)
		}
	})

	t.Run("jaccard fallback", func(t *testing.T) {
		cands := []candidate{
			mk("a", 0.9, nil, "mof fiber conversion yield"),
			mk("b", 0.88, nil, "mof fiber conversion yield data"),
			mk("c", 0.7, nil, "isotherm nitrogen adsorption"),
		}
		if got := ids(selectMMR(cands, 2, 0.5)); got != "a,c" {
			t.Errorf("selectMMR() = %s, want a,c", got)
		}
	})

	t.Run("k larger than pool", func(t *testing.T) {
		cands := []candidate{mk("a", 0.9, nil, "x"), mk("b", 0.8, nil, "y")}
		if got := ids(selectMMR(cands, 5, 0.5)); got != "a,b" {
			t.Errorf("selectMMR() = %s, want a,b", got)
		}
	})
}

func ids(cands []candidate) string {
	out := ""
	for i, c := range cands {
		if i > 0 {
			out += ","
		}
		out += c.passage.ID
	}
	return out
}
