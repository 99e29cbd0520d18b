// Package extract turns managed files into plain text with page boundaries.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupported is wrapped by ExtractionError for extensions with no extractor.
var ErrUnsupported = errors.New("unsupported file type")

// ExtractionError reports a document whose text could not be extracted.
// It is fatal to that document only.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Document is extracted text. Pages holds the raw text of each page in order;
// documents without page structure have a single page.
type Document struct {
	Title     string
	FirstPage string
	FullText  string
	Pages     []string
}

// Extractor reads a file and returns its text.
type Extractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

// newDocument builds a Document from page texts.
func newDocument(pages []string) Document {
	// a trailing form feed leaves an empty last page
	for len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	doc := Document{Pages: pages}
	if len(pages) > 0 {
		doc.FirstPage = pages[0]
	}
	doc.FullText = strings.Join(pages, "\n")
	return doc
}

// splitPages splits on form feeds, the page separator pdftotext emits.
func splitPages(text string) []string {
	return strings.Split(text, "\f")
}

// Router dispatches on file extension.
type Router struct {
	byExt map[string]Extractor
}

// NewRouter maps lower-case extensions (with dot) to extractors.
func NewRouter(byExt map[string]Extractor) *Router {
	m := make(map[string]Extractor, len(byExt))
	for ext, ex := range byExt {
		m[strings.ToLower(ext)] = ex
	}
	return &Router{byExt: m}
}

// NewDefaultRouter handles .pdf via pdftotext plus .txt and .md.
func NewDefaultRouter(pdftotextPath string) *Router {
	md := NewMarkdown()
	return NewRouter(map[string]Extractor{
		".pdf":      NewPdfToText(pdftotextPath),
		".txt":      PlainText{},
		".md":       md,
		".markdown": md,
	})
}

// Supports reports whether path has a registered extension.
func (r *Router) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract routes path to its extractor.
func (r *Router) Extract(ctx context.Context, path string) (Document, error) {
	ex, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return Document{}, &ExtractionError{Path: path, Err: ErrUnsupported}
	}
	return ex.Extract(ctx, path)
}
