package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"research-rag/internal/contextutil"
	"research-rag/internal/experiments"
	"research-rag/internal/storage"
)

// ExperimentIngestor materializes a spreadsheet of experiment records.
type ExperimentIngestor interface {
	IngestFile(ctx context.Context, path string, schema experiments.Schema) (experiments.Report, error)
}

// ExperimentsHandler serves experiment record ingestion and listing.
type ExperimentsHandler struct {
	ingestor ExperimentIngestor
	records  storage.ExperimentStore
	schema   experiments.Schema
}

// NewExperimentsHandler creates a new ExperimentsHandler.
func NewExperimentsHandler(ingestor ExperimentIngestor, records storage.ExperimentStore, schema experiments.Schema) *ExperimentsHandler {
	return &ExperimentsHandler{ingestor: ingestor, records: records, schema: schema}
}

// ExperimentsRequest names a workbook readable by the server.
//
// swagger:model ExperimentsRequest
type ExperimentsRequest struct {
	Path  string `json:"path"`
	Sheet string `json:"sheet,omitempty"`
}

// Ingest handles POST /api/experiments.
func (h *ExperimentsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ExperimentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "Path is required")
		return
	}
	if _, err := os.Stat(req.Path); errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusBadRequest, "Workbook not found")
		return
	}

	schema := h.schema
	if req.Sheet != "" {
		schema.Sheet = req.Sheet
	}

	report, err := h.ingestor.IngestFile(ctx, req.Path, schema)
	if err != nil {
		logger.WarnContext(ctx, "experiment ingestion failed", "path", req.Path, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(ctx, w, http.StatusOK, report)
}

// List handles GET /api/experiments.
func (h *ExperimentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recs, err := h.records.List(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list experiment records")
		return
	}

	type record struct {
		ID         string `json:"id"`
		SourceFile string `json:"source_file"`
		Text       string `json:"text"`
	}
	resp := make([]record, len(recs))
	for i, rec := range recs {
		resp[i] = record{ID: rec.ID, SourceFile: rec.SourceFile, Text: rec.Text}
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
