package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"research-rag/internal/contextutil"
	"research-rag/internal/document"
	"research-rag/internal/ingest"
	"research-rag/internal/registry"
	"research-rag/internal/service"
	"research-rag/internal/storage"
)

const (
	defaultMaxUploadBytes = 200 << 20
	multipartMemory       = 32 << 20
)

// DocumentService is the ingestion surface the documents endpoints need.
type DocumentService interface {
	IngestFiles(ctx context.Context, session *ingest.Session, uploads []service.Upload) []service.Outcome
	List(ctx context.Context) ([]storage.DocumentRecord, error)
	Reindex(ctx context.Context, tracingNumber int) (service.Outcome, error)
}

// DocumentsHandler serves document upload, listing and re-indexing.
type DocumentsHandler struct {
	docs           DocumentService
	maxUploadBytes int64
}

// NewDocumentsHandler creates a new DocumentsHandler. maxUploadBytes <= 0 uses 200 MiB.
func NewDocumentsHandler(docs DocumentService, maxUploadBytes int64) *DocumentsHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &DocumentsHandler{docs: docs, maxUploadBytes: maxUploadBytes}
}

// UploadResponse lists one outcome per uploaded file, in upload order.
//
// swagger:model UploadResponse
type UploadResponse struct {
	Session  string            `json:"session"`
	Outcomes []service.Outcome `json:"outcomes"`
}

// DocumentResponse is one registry entry.
//
// swagger:model DocumentResponse
type DocumentResponse struct {
	TracingNumber        string    `json:"tracing_number"`
	OriginalFilename     string    `json:"original_filename"`
	StoredFilename       string    `json:"stored_filename"`
	Title                string    `json:"title"`
	DocType              string    `json:"doc_type"`
	ClassifiedTitle      string    `json:"classified_title,omitempty"`
	ClassificationSource string    `json:"classification_source,omitempty"`
	IndexStatus          string    `json:"index_status"`
	CreatedAt            time.Time `json:"created_at"`
}

// Upload handles POST /api/documents with multipart files under "files".
// Optional form fields: "type" (paper, supporting_info, ...) and "title",
// which is only honored for single-file uploads.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		logger.WarnContext(ctx, "invalid multipart body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	files := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "At least one file is required")
		return
	}

	docType, err := document.Parse(r.FormValue("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title := ""
	if len(files) == 1 {
		title = strings.TrimSpace(r.FormValue("title"))
	}

	tmpDir, err := os.MkdirTemp("", "research-rag-upload-*")
	if err != nil {
		logger.ErrorContext(ctx, "failed to create upload dir", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()

	uploads := make([]service.Upload, 0, len(files))
	for i, fh := range files {
		path, err := saveUpload(fh, filepath.Join(tmpDir, strconv.Itoa(i)))
		if err != nil {
			logger.ErrorContext(ctx, "failed to save upload", "file", fh.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to store upload")
			return
		}
		uploads = append(uploads, service.Upload{
			Source:   ingest.Source{Path: path, Name: filepath.Base(fh.Filename)},
			Declared: ingest.Declared{Type: docType, Title: title},
		})
	}

	session := ingest.NewSession()
	outcomes := h.docs.IngestFiles(ctx, session, uploads)
	writeJSON(ctx, w, http.StatusOK, UploadResponse{Session: session.ID, Outcomes: outcomes})
}

// saveUpload copies fh into dir, keeping its base name so the extension survives.
func saveUpload(fh *multipart.FileHeader, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := filepath.Base(fh.Filename)
	if name == "." || name == string(filepath.Separator) {
		return "", errors.New("upload has no filename")
	}

	in, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func() {
		_ = in.Close()
	}()

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", err
	}
	return path, out.Close()
}

// List handles GET /api/documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.docs.List(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list documents")
		return
	}

	resp := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		resp[i] = DocumentResponse{
			TracingNumber:        registry.FormatTracingNumber(d.TracingNumber),
			OriginalFilename:     d.OriginalFilename,
			StoredFilename:       filepath.Base(d.StoredPath),
			Title:                d.Title,
			DocType:              d.DocType,
			ClassifiedTitle:      d.ClassifiedTitle,
			ClassificationSource: d.ClassificationSource,
			IndexStatus:          d.IndexStatus,
			CreatedAt:            d.CreatedAt,
		}
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// Reindex handles POST /api/documents/{tracingNumber}/reindex.
func (h *DocumentsHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := service.ParseTracingNumber(chi.URLParam(r, "tracingNumber"))
	if err != nil {
		handleServiceError(ctx, w, err, "Invalid tracing number")
		return
	}

	out, err := h.docs.Reindex(ctx, n)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to reindex document")
		return
	}
	writeJSON(ctx, w, http.StatusOK, out)
}
