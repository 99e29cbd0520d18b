package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"research-rag/internal/contextutil"
	"research-rag/internal/indexer"
	"research-rag/internal/rag"
)

// CoverageReporter reports index coverage for debug responses.
type CoverageReporter interface {
	Coverage(ctx context.Context) (*indexer.IndexingCoverageStats, error)
}

// AskHandler handles HTTP requests for RAG queries.
type AskHandler struct {
	ragEngine rag.Engine
	coverage  CoverageReporter
}

// NewAskHandler creates a new AskHandler. coverage may be nil.
func NewAskHandler(ragEngine rag.Engine, coverage CoverageReporter) *AskHandler {
	return &AskHandler{
		ragEngine: ragEngine,
		coverage:  coverage,
	}
}

// AskRequest represents the HTTP request payload for RAG queries.
//
// swagger:model AskRequest
type AskRequest struct {
	Question   string   `json:"question"`
	Mode       string   `json:"mode,omitempty"`
	K          int      `json:"k,omitempty"`
	FetchK     int      `json:"fetch_k,omitempty"`
	ScoreFloor *float32 `json:"score_floor,omitempty"`
	DocType    string   `json:"doc_type,omitempty"`
	MaxRecords int      `json:"max_records,omitempty"`
}

// AskResponse represents the HTTP response payload for RAG queries.
//
// swagger:model AskResponse
type AskResponse struct {
	// The generated answer, with bracketed citation labels.
	Answer string `json:"answer"`

	// Citations in label order. Empty when the system abstained.
	Citations []rag.Citation `json:"citations"`

	// Records lists the experiment record IDs placed in the prompt.
	Records []string `json:"records,omitempty"`

	// Mode is the assembly mode used: grounded or exploratory.
	Mode string `json:"mode"`

	// Abstained indicates whether the system abstained from answering.
	Abstained bool `json:"abstained,omitempty"`

	// AbstainReason is no_relevant_context or upstream_unavailable.
	AbstainReason string `json:"abstain_reason,omitempty"`

	// Debug contains debug information when debug mode is enabled (via ?debug=true query parameter).
	Debug *DebugInfo `json:"debug,omitempty"`
}

// DebugInfo contains debug information when debug mode is enabled.
//
// swagger:model DebugInfo
type DebugInfo struct {
	*rag.DebugInfo
	// IndexingCoverage contains indexing coverage statistics.
	IndexingCoverage *indexer.IndexingCoverageStats `json:"indexing_coverage,omitempty"`
}

// ServeHTTP handles HTTP requests for RAG queries.
//
// swagger:route POST /api/ask askQuestion
//
// # Ask a question using RAG
//
// Retrieves passages above the score floor, adds relevant experiment records
// and answers with citation labels. Use the `debug=true` query parameter to
// include the retrieved passages and index coverage.
//
// responses:
//
//	'200': AskResponse
//	'400': ErrorResponse
//	'500': ErrorResponse
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	debug := false
	if debugParam := r.URL.Query().Get("debug"); debugParam != "" {
		debug = strings.ToLower(debugParam) == "true" || debugParam == "1"
	}

	ragResp, err := h.ragEngine.Ask(ctx, rag.AskRequest{
		Question:   req.Question,
		Mode:       strings.ToLower(strings.TrimSpace(req.Mode)),
		K:          req.K,
		FetchK:     req.FetchK,
		ScoreFloor: req.ScoreFloor,
		DocType:    req.DocType,
		MaxRecords: req.MaxRecords,
		Debug:      debug,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process RAG query")
		return
	}

	citations := ragResp.Citations
	if citations == nil {
		citations = []rag.Citation{}
	}
	resp := AskResponse{
		Answer:        ragResp.Answer,
		Citations:     citations,
		Records:       ragResp.Records,
		Mode:          string(ragResp.Mode),
		Abstained:     ragResp.Abstained,
		AbstainReason: ragResp.AbstainReason,
	}

	if ragResp.Debug != nil {
		resp.Debug = &DebugInfo{DebugInfo: ragResp.Debug}
		if h.coverage != nil {
			stats, err := h.coverage.Coverage(ctx)
			if err != nil {
				logger.WarnContext(ctx, "failed to get indexing coverage stats", "error", err)
			} else {
				resp.Debug.IndexingCoverage = stats
			}
		}
	}

	writeJSON(ctx, w, http.StatusOK, resp)
}
