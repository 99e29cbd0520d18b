package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	llm_mocks "research-rag/internal/llm/mocks"
	"research-rag/internal/storage"
)

type fakeExperimentStore struct {
	records []storage.ExperimentRecord
	err     error
}

func (f *fakeExperimentStore) InsertIfAbsent(_ context.Context, rec *storage.ExperimentRecord) (bool, error) {
	for _, r := range f.records {
		if r.ID == rec.ID {
			return false, nil
		}
	}
	f.records = append(f.records, *rec)
	return true, nil
}

func (f *fakeExperimentStore) List(context.Context) ([]storage.ExperimentRecord, error) {
	return f.records, f.err
}

var testDefaults = Defaults{K: 5, FetchK: 20, ScoreFloor: 0.5, MaxRecords: 3}

func TestEngine_InvalidRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := llm_mocks.NewMockEmbedder(ctrl)
	completer := llm_mocks.NewMockCompleter(ctrl)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Times(0)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	engine := NewEngine(NewRetriever(embedder, seedStore(t, []float64{0.9}), "passages", nil, 0.5), completer, nil, testDefaults)

	tests := []struct {
		name string
		req  AskRequest
	}{
		{name: "empty question", req: AskRequest{Question: "   "}},
		{name: "unknown mode", req: AskRequest{Question: "q", Mode: "creative"}},
		{name: "k too large", req: AskRequest{Question: "q", K: 51}},
		{name: "negative k", req: AskRequest{Question: "q", K: -1}},
		{name: "negative fetch_k", req: AskRequest{Question: "q", FetchK: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Ask(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Ask() error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestEngine_Abstains(t *testing.T) {
	floor := float32(0.99)

	tests := []struct {
		name       string
		req        AskRequest
		embedErr   error
		wantReason string
	}{
		{
			name:       "nothing above floor",
			req:        AskRequest{Question: "what is the yield", ScoreFloor: &floor},
			wantReason: ReasonNoRelevantContext,
		},
		{
			name:       "doc type filter excludes everything",
			req:        AskRequest{Question: "what is the yield", DocType: "supporting_info"},
			wantReason: ReasonNoRelevantContext,
		},
		{
			name:       "embedding unavailable",
			req:        AskRequest{Question: "what is the yield"},
			embedErr:   errors.New("connection refused"),
			wantReason: ReasonUpstreamUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			embedder := llm_mocks.NewMockEmbedder(ctrl)
			if tt.embedErr != nil {
				embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, tt.embedErr)
			} else {
				embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil)
			}
			completer := llm_mocks.NewMockCompleter(ctrl)
			completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			engine := NewEngine(NewRetriever(embedder, seedStore(t, []float64{0.9, 0.8}), "passages", nil, 0.5), completer, nil, testDefaults)

			resp, err := engine.Ask(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Ask() error = %v", err)
			}
			if !resp.Abstained || resp.AbstainReason != tt.wantReason {
				t.Errorf("Ask() abstained=%v reason=%q, want reason %q", resp.Abstained, resp.AbstainReason, tt.wantReason)
			}
			if resp.Citations == nil || len(resp.Citations) != 0 {
				t.Errorf("Ask() citations = %v, want empty non-nil", resp.Citations)
			}
			if resp.Answer == "" {
				t.Error("Ask() abstention should carry an explanatory answer")
			}
		})
	}
}

func TestEngine_CompletionFailureAbstains(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := llm_mocks.NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("503"))

	engine := NewEngine(NewRetriever(queryEmbedder(ctrl), seedStore(t, []float64{0.9}), "passages", nil, 0.5), completer, nil, testDefaults)

	resp, err := engine.Ask(context.Background(), AskRequest{Question: "what is the yield"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !resp.Abstained || resp.AbstainReason != ReasonUpstreamUnavailable {
		t.Errorf("Ask() = %+v, want upstream_unavailable abstention", resp)
	}
	if len(resp.Citations) != 0 {
		t.Errorf("Ask() citations = %v, want none", resp.Citations)
	}
}

func TestEngine_Answers(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := &fakeExperimentStore{records: []storage.ExperimentRecord{
		{ID: "EXP-001", Text: "fiber conversion yield 80 percent"},
		{ID: "EXP-002", Text: "unrelated calibration run"},
	}}

	var gotSystem, gotPrompt string
	completer := llm_mocks.NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, system, prompt string) (string, error) {
			gotSystem, gotPrompt = system, prompt
			return "The conversion reached 80 percent [1].", nil
		})

	engine := NewEngine(NewRetriever(queryEmbedder(ctrl), seedStore(t, []float64{0.9, 0.8, 0.3}), "passages", nil, 0.5), completer, records, testDefaults)

	resp, err := engine.Ask(context.Background(), AskRequest{Question: "What conversion yield did the fiber reach?", Debug: true})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Abstained {
		t.Fatalf("Ask() abstained: %+v", resp)
	}
	if resp.Mode != ModeGrounded {
		t.Errorf("Mode = %q, want grounded", resp.Mode)
	}
	if len(resp.Citations) != 2 {
		t.Fatalf("Citations = %+v, want 2", resp.Citations)
	}
	if !resp.Citations[0].Referenced || resp.Citations[1].Referenced {
		t.Errorf("Referenced flags = %v, %v; want true, false", resp.Citations[0].Referenced, resp.Citations[1].Referenced)
	}
	if len(resp.Records) != 1 || resp.Records[0] != "EXP-001" {
		t.Errorf("Records = %v, want [EXP-001]", resp.Records)
	}
	if !strings.Contains(gotPrompt, "- EXP-001: fiber conversion yield 80 percent") {
		t.Errorf("prompt missing experiment record:\n%s", gotPrompt)
	}
	if strings.Contains(gotPrompt, "EXP-002") {
		t.Errorf("prompt should not include unrelated record:\n%s", gotPrompt)
	}
	if gotSystem == "" {
		t.Error("system instruction should not be empty")
	}
	if resp.Debug == nil || len(resp.Debug.RetrievedChunks) != 2 || resp.Debug.ScoreFloor != 0.5 {
		t.Errorf("Debug = %+v", resp.Debug)
	}
}

func TestEngine_RecordStoreFailureKeepsAnswering(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := &fakeExperimentStore{err: errors.New("locked")}

	var gotPrompt string
	completer := llm_mocks.NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, prompt string) (string, error) {
			gotPrompt = prompt
			return "answer", nil
		})

	engine := NewEngine(NewRetriever(queryEmbedder(ctrl), seedStore(t, []float64{0.9}), "passages", nil, 0.5), completer, records, testDefaults)

	resp, err := engine.Ask(context.Background(), AskRequest{Question: "yield", Mode: "exploratory"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Abstained || resp.Mode != ModeExploratory {
		t.Errorf("Ask() = %+v", resp)
	}
	if !strings.Contains(gotPrompt, NoRecordsMarker) {
		t.Errorf("prompt should carry the no-records marker:\n%s", gotPrompt)
	}
}
