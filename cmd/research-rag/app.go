package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"research-rag/internal/classify"
	"research-rag/internal/config"
	"research-rag/internal/contextutil"
	"research-rag/internal/experiments"
	"research-rag/internal/extract"
	"research-rag/internal/indexer"
	"research-rag/internal/ingest"
	"research-rag/internal/llm"
	"research-rag/internal/rag"
	"research-rag/internal/registry"
	"research-rag/internal/resilience"
	"research-rag/internal/service"
	"research-rag/internal/storage"
	"research-rag/internal/vectorstore"
)

// app holds the wired components shared by every command.
type app struct {
	db           *sql.DB
	documents    *storage.DocumentRepo
	records      *storage.ExperimentRepo
	vectorStore  vectorstore.VectorStore
	embedder     llm.Embedder
	extractor    *extract.Router
	ingest       *service.IngestService
	engine       rag.Engine
	materializer *experiments.Materializer
	schema       experiments.Schema

	// reconciled is the result of registering the managed store at startup.
	reconciled registry.ReconcileReport
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := contextutil.LoggerFromContext(ctx)

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.InfoContext(ctx, "database initialized", "path", cfg.DBPath)

	a := &app{
		db:        db,
		documents: storage.NewDocumentRepo(db),
		records:   storage.NewExperimentRepo(db),
	}
	chunks := storage.NewChunkRepo(db)

	schema := experiments.DefaultSchema()
	if cfg.ExperimentsSchema != "" {
		if schema, err = experiments.LoadSchema(cfg.ExperimentsSchema); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	a.schema = schema

	opts := llm.Options{
		Timeout:   cfg.LLMTimeout,
		Retry:     resilience.DefaultRetryConfig().WithRetries(cfg.LLMMaxRetries),
		RateLimit: cfg.LLMRateLimit,
	}
	a.embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModel, cfg.QdrantVectorSize, opts)

	var completer llm.Completer
	switch cfg.LLMProvider {
	case "anthropic":
		completer = llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, opts)
	default:
		completer = llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, opts)
	}
	logger.DebugContext(ctx, "LLM configuration", "provider", cfg.LLMProvider, "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)

	if a.vectorStore, err = openVectorStore(ctx, cfg, a.embedder); err != nil {
		_ = db.Close()
		return nil, err
	}

	chunker, err := indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create chunker: %w", err)
	}
	pipeline := indexer.NewPipeline(chunks, a.embedder, a.vectorStore, cfg.QdrantCollection, chunker)

	classifier := classify.New(
		classify.DOIRule{},
		classify.NewModelFallback(completer, cfg.ExcerptChars, cfg.LLMTimeout),
	)

	seq := registry.NewSequence(registry.NewSQLStore(a.documents))
	a.extractor = extract.NewDefaultRouter(cfg.PdfToTextPath)
	a.ingest = service.NewIngestService(service.IngestDeps{
		Sequence:       seq,
		Admitter:       ingest.NewAdmitter(seq, cfg.StoreDir, cfg.TitleMaxLen),
		Extractor:      a.extractor,
		Classifier:     classifier,
		Documents:      a.documents,
		Indexer:        pipeline,
		Concurrency:    cfg.IngestWorkers,
		Stats:          pipeline,
		EmbeddingModel: cfg.EmbeddingModel,
	})

	retriever := rag.NewRetriever(a.embedder, a.vectorStore, cfg.QdrantCollection, chunks, cfg.RetrievalMMRLambda)
	a.engine = rag.NewEngine(retriever, completer, a.records, rag.Defaults{
		K:          cfg.RetrievalK,
		FetchK:     cfg.RetrievalFetchK,
		ScoreFloor: cfg.RetrievalScoreFloor,
		MaxRecords: cfg.MaxRecords,
	})

	a.materializer = experiments.NewMaterializer(cfg.ExperimentsDir, a.records)

	// The managed filenames are the durable record; catch the database up first.
	if a.reconciled, err = a.ingest.Reconcile(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reconcile managed store: %w", err)
	}
	if len(a.reconciled.Added) > 0 || len(a.reconciled.Conflicts) > 0 {
		logger.InfoContext(ctx, "registered managed files missing from the database",
			"added", len(a.reconciled.Added),
			"conflicts", len(a.reconciled.Conflicts),
		)
	}

	if cfg.VectorBackend == "memory" {
		a.rebuildMemoryIndex(ctx)
	}

	return a, nil
}

// openVectorStore connects the configured backend and ensures the collection.
// The in-memory backend learns its vector size from a probe embedding.
func openVectorStore(ctx context.Context, cfg *config.Config, embedder llm.Embedder) (vectorstore.VectorStore, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var (
		store vectorstore.VectorStore
		size  = cfg.QdrantVectorSize
	)
	switch cfg.VectorBackend {
	case "memory":
		probe, err := embedder.EmbedTexts(ctx, []string{"probe"})
		if err != nil {
			return nil, fmt.Errorf("probe embedding size: %w", err)
		}
		if len(probe) == 0 || len(probe[0]) == 0 {
			return nil, fmt.Errorf("probe embedding size: empty embedding")
		}
		size = len(probe[0])
		store = vectorstore.NewMemoryStore()
	default:
		qs, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return nil, fmt.Errorf("create qdrant client: %w", err)
		}
		store = qs
	}

	if err := store.EnsureCollection(ctx, cfg.QdrantCollection, size); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	logger.InfoContext(ctx, "vector collection ready",
		"backend", cfg.VectorBackend,
		"collection", cfg.QdrantCollection,
		"vector_size", size,
	)
	return store, nil
}

// rebuildMemoryIndex re-embeds every registered document; the in-memory
// store starts empty on each run.
func (a *app) rebuildMemoryIndex(ctx context.Context) {
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := a.ingest.List(ctx)
	if err != nil {
		logger.WarnContext(ctx, "failed to list documents for in-memory index", "error", err)
		return
	}
	for _, doc := range docs {
		out, err := a.ingest.Reindex(ctx, doc.TracingNumber)
		if err != nil {
			logger.WarnContext(ctx, "failed to rebuild document index", "tracing_number", doc.TracingNumber, "error", err)
			continue
		}
		logger.DebugContext(ctx, "document indexed in memory", "tracing_number", doc.TracingNumber, "chunks", out.Chunks)
	}
	if len(docs) > 0 {
		logger.InfoContext(ctx, "in-memory index rebuilt", "documents", len(docs))
	}
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}
