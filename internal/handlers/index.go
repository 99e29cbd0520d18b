package handlers

import (
	"context"
	"net/http"

	"research-rag/internal/contextutil"
	"research-rag/internal/indexer"
	"research-rag/internal/service"
)

// IndexService re-indexes documents and reports coverage.
type IndexService interface {
	ReindexPending(ctx context.Context) ([]service.Outcome, error)
	Coverage(ctx context.Context) (*indexer.IndexingCoverageStats, error)
}

// IndexHandler handles HTTP requests for triggering re-indexing.
type IndexHandler struct {
	svc IndexService
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(svc IndexService) *IndexHandler {
	return &IndexHandler{svc: svc}
}

// IndexResponse represents the response from the index endpoint.
type IndexResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Reindex handles POST /api/index. Documents that are pending or failed are
// indexed in the background.
func (h *IndexHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "re-indexing triggered via API")

	// Detached from the request so indexing continues after the response.
	indexCtx := contextutil.WithLogger(context.Background(), logger)
	go func() {
		outcomes, err := h.svc.ReindexPending(indexCtx)
		if err != nil {
			logger.ErrorContext(indexCtx, "re-indexing completed with errors", "error", err)
			return
		}
		logger.InfoContext(indexCtx, "re-indexing completed", "documents", len(outcomes))
	}()

	writeJSON(ctx, w, http.StatusAccepted, IndexResponse{
		Message: "Indexing of pending and failed documents started. Check server logs for progress.",
		Status:  "accepted",
	})
}

// Stats handles GET /api/index/stats.
func (h *IndexHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.svc.Coverage(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to compute index coverage")
		return
	}
	writeJSON(ctx, w, http.StatusOK, stats)
}
