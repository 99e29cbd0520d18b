package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_indexer.go -package=mocks research-rag/internal/service Indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"research-rag/internal/classify"
	"research-rag/internal/contextutil"
	"research-rag/internal/document"
	"research-rag/internal/extract"
	"research-rag/internal/indexer"
	"research-rag/internal/ingest"
	"research-rag/internal/metrics"
	"research-rag/internal/registry"
	"research-rag/internal/storage"
)

// Indexer stores a document's passages for retrieval, replacing earlier ones.
// This interface is defined from the service layer's perspective (consumer-first).
type Indexer interface {
	Index(ctx context.Context, doc indexer.Document) (int, error)
}

// Classifier decides a document's type and title.
type Classifier interface {
	Classify(ctx context.Context, in classify.Input) classify.Result
}

// CoverageStatter summarizes what the index holds for the registered documents.
type CoverageStatter interface {
	CoverageStats(ctx context.Context, docs []storage.DocumentRecord, embeddingModelName string) (*indexer.IndexingCoverageStats, error)
}

// Upload is one file offered for ingestion with optional declared metadata.
type Upload struct {
	Source   ingest.Source
	Declared ingest.Declared
}

// Outcome reports what happened to one upload.
type Outcome struct {
	Source               string        `json:"source"`
	Status               ingest.Status `json:"status"`
	Reason               string        `json:"reason,omitempty"`
	TracingNumber        int           `json:"tracing_number,omitempty"`
	StoredPath           string        `json:"stored_path,omitempty"`
	DocType              string        `json:"doc_type,omitempty"`
	Title                string        `json:"title,omitempty"`
	ClassificationSource string        `json:"classification_source,omitempty"`
	IndexStatus          string        `json:"index_status,omitempty"`
	Chunks               int           `json:"chunks"`
}

// IngestDeps wires an IngestService.
type IngestDeps struct {
	Sequence    *registry.Sequence
	Admitter    *ingest.Admitter
	Extractor   extract.Extractor
	Classifier  Classifier
	Documents   storage.DocumentStore
	Indexer     Indexer
	Concurrency int

	// Stats is optional; Coverage fails without it.
	Stats          CoverageStatter
	EmbeddingModel string
}

// IngestService admits, classifies and indexes documents.
type IngestService struct {
	seq         *registry.Sequence
	admitter    *ingest.Admitter
	extractor   extract.Extractor
	classifier  Classifier
	docs        storage.DocumentStore
	indexer     Indexer
	concurrency int
	stats       CoverageStatter
	embedModel  string
}

// NewIngestService creates a new IngestService.
func NewIngestService(deps IngestDeps) *IngestService {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &IngestService{
		seq:         deps.Sequence,
		admitter:    deps.Admitter,
		extractor:   deps.Extractor,
		classifier:  deps.Classifier,
		docs:        deps.Documents,
		indexer:     deps.Indexer,
		concurrency: concurrency,
		stats:       deps.Stats,
		embedModel:  deps.EmbeddingModel,
	}
}

// IngestFiles processes uploads with bounded concurrency and returns one
// outcome per upload in input order. A failing upload never aborts the batch.
// session may be nil, in which case a fresh one is used.
func (s *IngestService) IngestFiles(ctx context.Context, session *ingest.Session, uploads []Upload) []Outcome {
	if session == nil {
		session = ingest.NewSession()
	}
	ctx = contextutil.WithAttrs(ctx, "session", session.ID)
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "ingestion started", "files", len(uploads), "concurrency", s.concurrency)

	outcomes := make([]Outcome, len(uploads))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, up := range uploads {
		g.Go(func() error {
			outcomes[i] = s.ingestOne(ctx, session, up)
			return nil
		})
	}
	_ = g.Wait()

	counts := make(map[ingest.Status]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	logger.InfoContext(ctx, "ingestion finished",
		"admitted", counts[ingest.StatusAdmitted],
		"duplicate", counts[ingest.StatusDuplicate],
		"skipped", counts[ingest.StatusSkipped],
		"failed", counts[ingest.StatusFailed],
	)
	return outcomes
}

func (s *IngestService) ingestOne(ctx context.Context, session *ingest.Session, up Upload) Outcome {
	name := up.Source.Name
	if name == "" {
		name = filepath.Base(up.Source.Path)
	}

	if router, ok := s.extractor.(interface{ Supports(string) bool }); ok && !router.Supports(name) {
		metrics.IngestOutcomesTotal.WithLabelValues(string(ingest.StatusFailed)).Inc()
		return Outcome{
			Source: name,
			Status: ingest.StatusFailed,
			Reason: fmt.Sprintf("%s: %s", extract.ErrUnsupported, filepath.Ext(name)),
		}
	}

	admitted := s.admitter.Admit(ctx, session, up.Source, up.Declared)
	metrics.IngestOutcomesTotal.WithLabelValues(string(admitted.Status)).Inc()

	out := Outcome{
		Source: admitted.Source,
		Status: admitted.Status,
		Reason: admitted.Reason,
	}
	if admitted.Status == ingest.StatusDuplicate {
		out.TracingNumber = admitted.Entry.TracingNumber
		out.StoredPath = admitted.Entry.StoredPath
	}
	if admitted.Status != ingest.StatusAdmitted {
		return out
	}

	e := admitted.Entry
	out.TracingNumber = e.TracingNumber
	out.StoredPath = e.StoredPath
	rec := &storage.DocumentRecord{
		TracingNumber: e.TracingNumber,
		Title:         e.Title,
		DeclaredType:  e.TypeToken,
		StoredPath:    e.StoredPath,
	}
	s.process(ctx, rec, true, &out)
	return out
}

// process extracts, classifies when asked to and indexes rec, recording the
// results in the registry and in out.
func (s *IngestService) process(ctx context.Context, rec *storage.DocumentRecord, reclassify bool, out *Outcome) {
	ctx = contextutil.WithAttrs(ctx, "tracing_number", rec.TracingNumber)
	logger := contextutil.LoggerFromContext(ctx)

	fail := func(reason string, err error) {
		logger.ErrorContext(ctx, reason, "error", err)
		out.IndexStatus = storage.IndexFailed
		out.Reason = fmt.Sprintf("%s: %v", reason, err)
		s.setIndexStatus(ctx, rec.TracingNumber, storage.IndexFailed)
	}

	doc, err := s.extractor.Extract(ctx, rec.StoredPath)
	if err != nil {
		fail("extraction failed", err)
		return
	}

	docType, title, source := rec.DocType, rec.ClassifiedTitle, rec.ClassificationSource
	if reclassify || source == "" {
		res := s.classifier.Classify(ctx, classify.Input{FirstPage: doc.FirstPage, FullText: doc.FullText})
		docType, title, source = string(res.Type), res.Title, string(res.Source)
		if res.Type == document.TypeUnknown {
			// fall back to what the uploader declared
			docType = string(document.FromToken(rec.DeclaredType))
		}
		if title == "" {
			title = doc.Title
		}
		if err := s.docs.UpdateClassification(ctx, rec.TracingNumber, docType, title, source); err != nil {
			logger.ErrorContext(ctx, "failed to store classification", "error", err)
		}
	}
	if title == "" {
		title = rec.Title
	}
	out.DocType = docType
	out.Title = title
	out.ClassificationSource = source

	n, err := s.indexer.Index(ctx, indexer.Document{
		TracingNumber: rec.TracingNumber,
		Title:         title,
		Filename:      filepath.Base(rec.StoredPath),
		DocType:       docType,
		Pages:         doc.Pages,
	})
	if err != nil {
		fail("indexing failed", err)
		return
	}

	out.Chunks = n
	out.IndexStatus = storage.IndexIndexed
	s.setIndexStatus(ctx, rec.TracingNumber, storage.IndexIndexed)
	logger.InfoContext(ctx, "document indexed", "chunks", n, "doc_type", docType, "classification_source", source)
}

func (s *IngestService) setIndexStatus(ctx context.Context, tracingNumber int, status string) {
	metrics.IndexStatusTotal.WithLabelValues(status).Inc()
	if err := s.docs.SetIndexStatus(ctx, tracingNumber, status); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to record index status", "status", status, "error", err)
	}
}

// Reindex rebuilds the passages of one registered document from its managed
// file. The stored classification is kept.
func (s *IngestService) Reindex(ctx context.Context, tracingNumber int) (Outcome, error) {
	if err := validateTracingNumber(tracingNumber); err != nil {
		return Outcome{}, err
	}
	rec, err := s.docs.GetByTracingNumber(ctx, tracingNumber)
	if errors.Is(err, storage.ErrNotFound) {
		return Outcome{}, fmt.Errorf("document %s: %w", registry.FormatTracingNumber(tracingNumber), ErrNotFound)
	}
	if err != nil {
		return Outcome{}, WrapError(err, "failed to load document")
	}

	out := Outcome{
		Source:        rec.OriginalFilename,
		Status:        ingest.StatusAdmitted,
		TracingNumber: rec.TracingNumber,
		StoredPath:    rec.StoredPath,
	}
	s.process(ctx, rec, false, &out)
	return out, nil
}

// ReindexPending reindexes every document whose last indexing attempt did not
// succeed, in tracing-number order.
func (s *IngestService) ReindexPending(ctx context.Context) ([]Outcome, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to list documents")
	}

	var outcomes []Outcome
	for i := range docs {
		if docs[i].IndexStatus == storage.IndexIndexed {
			continue
		}
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		out := Outcome{
			Source:        docs[i].OriginalFilename,
			Status:        ingest.StatusAdmitted,
			TracingNumber: docs[i].TracingNumber,
			StoredPath:    docs[i].StoredPath,
		}
		s.process(ctx, &docs[i], false, &out)
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// Reconcile registers managed files on disk that the registry lost track of.
// New entries are left pending; ReindexPending indexes them.
func (s *IngestService) Reconcile(ctx context.Context) (registry.ReconcileReport, error) {
	report, err := s.seq.Reconcile(ctx, s.admitter.StoreDir())
	if err != nil {
		return report, WrapError(err, "failed to reconcile managed store")
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "reconcile finished",
		"known", report.Known,
		"added", len(report.Added),
		"skipped", len(report.Skipped),
		"conflicts", len(report.Conflicts),
	)
	return report, nil
}

// List returns the registry in tracing-number order.
func (s *IngestService) List(ctx context.Context) ([]storage.DocumentRecord, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to list documents")
	}
	return docs, nil
}

// Coverage reports index coverage over the whole registry.
func (s *IngestService) Coverage(ctx context.Context) (*indexer.IndexingCoverageStats, error) {
	if s.stats == nil {
		return nil, fmt.Errorf("coverage stats: %w", ErrNotFound)
	}
	docs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.CoverageStats(ctx, docs, s.embedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to compute coverage: %w: %w", ErrExternalService, err)
	}
	return stats, nil
}
