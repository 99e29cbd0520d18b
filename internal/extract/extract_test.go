package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func fakePdfToText(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub needs a POSIX shell")
	}
	return writeFile(t, t.TempDir(), "pdftotext", "#!/bin/sh\n"+script+"\n", 0o755)
}

func TestPdfToText_SplitsPages(t *testing.T) {
	bin := fakePdfToText(t, `printf 'Title page\nDOI 10.1021/abc\fSecond page body\f'`)
	pdf := writeFile(t, t.TempDir(), "paper.pdf", "%PDF-1.4", 0o644)

	doc, err := NewPdfToText(bin).Extract(context.Background(), pdf)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, "Title page\nDOI 10.1021/abc", doc.FirstPage)
	assert.Equal(t, "Second page body", doc.Pages[1])
	assert.Equal(t, "Title page\nDOI 10.1021/abc\nSecond page body", doc.FullText)
}

func TestPdfToText_Failures(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "tool exits non-zero", script: `echo "Syntax Error: Couldn't find trailer" >&2; exit 1`},
		{name: "no text layer", script: `printf '\f\f'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := fakePdfToText(t, tt.script)
			pdf := writeFile(t, t.TempDir(), "scan.pdf", "%PDF-1.4", 0o644)

			_, err := NewPdfToText(bin).Extract(context.Background(), pdf)
			var extractErr *ExtractionError
			require.ErrorAs(t, err, &extractErr)
			assert.Equal(t, pdf, extractErr.Path)
		})
	}
}

func TestPlainText(t *testing.T) {
	dir := t.TempDir()

	doc, err := PlainText{}.Extract(context.Background(), writeFile(t, dir, "a.txt", "one\ftwo", 0o644))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, doc.Pages)
	assert.Equal(t, "one", doc.FirstPage)

	doc, err = PlainText{}.Extract(context.Background(), writeFile(t, dir, "b.txt", "single page", 0o644))
	require.NoError(t, err)
	assert.Equal(t, []string{"single page"}, doc.Pages)

	_, err = PlainText{}.Extract(context.Background(), writeFile(t, dir, "c.txt", "\xff\xfe bad", 0o644))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = PlainText{}.Extract(context.Background(), filepath.Join(dir, "missing.txt"))
	var extractErr *ExtractionError
	assert.ErrorAs(t, err, &extractErr)
}

func TestMarkdown(t *testing.T) {
	content := "# Hollow Fiber Sorbents\n\nIntro paragraph\nwith a soft break.\n\n## Methods\n\n- first step\n- second step\n\n| Sample | Uptake |\n|---|---|\n| MOF-5 | 2.1 |\n\n```\ncode line\n```\n"
	path := writeFile(t, t.TempDir(), "notes.md", content, 0o644)

	doc, err := NewMarkdown().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Hollow Fiber Sorbents", doc.Title)
	require.Len(t, doc.Pages, 1)
	for _, want := range []string{
		"Hollow Fiber Sorbents",
		"Intro paragraph\nwith a soft break.",
		"Methods",
		"first step",
		"second step",
		"Sample | Uptake",
		"MOF-5 | 2.1",
		"code line",
	} {
		assert.Contains(t, doc.FullText, want)
	}
	assert.NotContains(t, doc.FullText, "#")
	assert.NotContains(t, doc.FullText, "|---|")
}

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	router := NewDefaultRouter("pdftotext")

	assert.True(t, router.Supports("x.PDF"))
	assert.True(t, router.Supports("x.md"))
	assert.False(t, router.Supports("x.docx"))

	doc, err := router.Extract(context.Background(), writeFile(t, dir, "a.TXT", "hello", 0o644))
	require.NoError(t, err)
	assert.Equal(t, "hello", doc.FullText)

	_, err = router.Extract(context.Background(), writeFile(t, dir, "a.docx", "zip", 0o644))
	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.True(t, errors.Is(err, ErrUnsupported))
}
