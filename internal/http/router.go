package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"research-rag/internal/experiments"
	"research-rag/internal/handlers"
	"research-rag/internal/metrics"
	"research-rag/internal/rag"
	"research-rag/internal/storage"
	"research-rag/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine         rag.Engine
	Documents      handlers.DocumentService
	Index          handlers.IndexService
	Experiments    handlers.ExperimentIngestor
	Records        storage.ExperimentStore
	Schema         experiments.Schema
	VectorStore    vectorstore.VectorStore
	Collection     string
	DB             handlers.Pinger
	MaxUploadBytes int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.Engine, deps.Index)
	documentsHandler := handlers.NewDocumentsHandler(deps.Documents, deps.MaxUploadBytes)
	experimentsHandler := handlers.NewExperimentsHandler(deps.Experiments, deps.Records, deps.Schema)
	indexHandler := handlers.NewIndexHandler(deps.Index)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.DB, deps.Collection)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Get("/documents", documentsHandler.List)
		r.Post("/documents", documentsHandler.Upload)
		r.Post("/documents/{tracingNumber}/reindex", documentsHandler.Reindex)
		r.Get("/experiments", experimentsHandler.List)
		r.Post("/experiments", experimentsHandler.Ingest)
		r.Post("/index", indexHandler.Reindex)
		r.Get("/index/stats", indexHandler.Stats)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
