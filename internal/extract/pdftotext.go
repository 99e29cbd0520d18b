package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// Extract runs pdftotext -layout on the given PDF and splits pages on form feeds.
func (p *PdfToText) Extract(ctx context.Context, path string) (Document, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", "-enc", "UTF-8", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Document{}, &ExtractionError{
			Path: path,
			Err:  fmt.Errorf("pdftotext failed: %w: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	doc := newDocument(splitPages(stdout.String()))
	if strings.TrimSpace(doc.FullText) == "" {
		return Document{}, &ExtractionError{Path: path, Err: errors.New("no text layer")}
	}
	return doc, nil
}
