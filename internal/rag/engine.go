package rag

import (
	"context"
	"fmt"
	"strings"

	"research-rag/internal/contextutil"
	"research-rag/internal/llm"
	"research-rag/internal/metrics"
	"research-rag/internal/storage"
)

const (
	noContextAnswer   = "No passage in the library met the relevance floor for this question, so no grounded answer can be given."
	unavailableAnswer = "The answer service is currently unavailable. Please try again later."
	maxK              = 50
)

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine interface {
	// Ask answers a question using RAG by retrieving relevant chunks and generating an answer.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// Defaults fills request fields left at zero.
type Defaults struct {
	K          int
	FetchK     int
	ScoreFloor float32
	MaxRecords int
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	retriever *Retriever
	completer llm.Completer
	records   storage.ExperimentStore
	defaults  Defaults
}

// NewEngine creates a new RAG engine. records may be nil.
func NewEngine(retriever *Retriever, completer llm.Completer, records storage.ExperimentStore, defaults Defaults) Engine {
	return &ragEngine{
		retriever: retriever,
		completer: completer,
		records:   records,
		defaults:  defaults,
	}
}

// Ask answers a question using RAG. Upstream failures and empty retrievals
// produce an abstaining response, not an error; errors are reserved for
// invalid requests.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return AskResponse{}, fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return AskResponse{}, err
	}
	params, err := e.params(req)
	if err != nil {
		return AskResponse{}, err
	}

	logger.InfoContext(ctx, "RAG query started",
		"question_length", len(question),
		"mode", mode,
		"k", params.K,
		"fetch_k", params.FetchK,
		"score_floor", params.ScoreFloor,
	)

	passages, err := e.retriever.Retrieve(ctx, question, params)
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		return e.abstain(mode, ReasonUpstreamUnavailable, unavailableAnswer), nil
	}

	var debug *DebugInfo
	if req.Debug {
		debug = buildDebugInfo(passages, params)
	}

	if len(passages) == 0 {
		logger.InfoContext(ctx, "no passages above score floor")
		resp := e.abstain(mode, ReasonNoRelevantContext, noContextAnswer)
		resp.Debug = debug
		return resp, nil
	}

	records := e.selectRecords(ctx, question, req.MaxRecords)
	assembly := Assemble(passages, records, question, mode)

	logger.InfoContext(ctx, "prompt assembled",
		"passages", len(passages),
		"citations", len(assembly.Citations),
		"records", len(records),
		"prompt_length", len(assembly.Prompt),
	)
	logger.DebugContext(ctx, "full prompt being sent to LLM", "prompt", assembly.Prompt)

	answer, err := e.completer.Complete(ctx, assembly.System, assembly.Prompt)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		resp := e.abstain(mode, ReasonUpstreamUnavailable, unavailableAnswer)
		resp.Debug = debug
		return resp, nil
	}

	MarkReferenced(answer, assembly.Citations)

	recordIDs := make([]string, len(records))
	for i, r := range records {
		recordIDs[i] = r.ID
	}

	metrics.AnswersTotal.WithLabelValues(string(mode), "answered").Inc()
	logger.InfoContext(ctx, "RAG query completed", "answer_length", len(answer), "citations", len(assembly.Citations))

	return AskResponse{
		Answer:    answer,
		Citations: assembly.Citations,
		Records:   recordIDs,
		Mode:      mode,
		Debug:     debug,
	}, nil
}

func (e *ragEngine) params(req AskRequest) (RetrieveParams, error) {
	p := RetrieveParams{
		K:          req.K,
		FetchK:     req.FetchK,
		ScoreFloor: e.defaults.ScoreFloor,
	}
	if p.K == 0 {
		p.K = e.defaults.K
	}
	if p.FetchK == 0 {
		p.FetchK = e.defaults.FetchK
	}
	if req.ScoreFloor != nil {
		p.ScoreFloor = *req.ScoreFloor
	}
	if p.K <= 0 || p.K > maxK {
		return RetrieveParams{}, fmt.Errorf("%w: k must be in [1, %d]", ErrInvalidRequest, maxK)
	}
	if p.FetchK < 0 {
		return RetrieveParams{}, fmt.Errorf("%w: fetch_k must not be negative", ErrInvalidRequest)
	}
	if p.FetchK < p.K {
		p.FetchK = p.K
	}
	if req.DocType != "" {
		p.Filters = map[string]any{"doc_type": req.DocType}
	}
	return p, nil
}

// selectRecords loads experiment records and keeps those relevant to question.
// Failures only drop the records block.
func (e *ragEngine) selectRecords(ctx context.Context, question string, limit int) []Record {
	if e.records == nil {
		return nil
	}
	if limit <= 0 {
		limit = e.defaults.MaxRecords
	}
	if limit <= 0 {
		return nil
	}

	stored, err := e.records.List(ctx)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to load experiment records", "error", err)
		return nil
	}
	all := make([]Record, len(stored))
	for i, r := range stored {
		all[i] = Record{ID: r.ID, Text: r.Text}
	}
	return SelectRecords(question, all, limit)
}

func (e *ragEngine) abstain(mode Mode, reason, answer string) AskResponse {
	metrics.AnswersTotal.WithLabelValues(string(mode), reason).Inc()
	return AskResponse{
		Answer:        answer,
		Citations:     []Citation{},
		Mode:          mode,
		Abstained:     true,
		AbstainReason: reason,
	}
}

func buildDebugInfo(passages []Passage, p RetrieveParams) *DebugInfo {
	chunks := make([]RetrievedChunk, len(passages))
	for i, ps := range passages {
		chunks[i] = RetrievedChunk{
			ChunkID:  ps.ID,
			Filename: ps.Filename,
			Page:     ps.Page,
			Score:    ps.Score,
			Rank:     i + 1,
			Text:     ps.Text,
		}
	}
	return &DebugInfo{RetrievedChunks: chunks, K: p.K, FetchK: p.FetchK, ScoreFloor: p.ScoreFloor}
}
