package extract

import (
	"context"
	"os"
	"unicode/utf8"
)

// PlainText reads UTF-8 text files. Form feeds, if present, separate pages.
type PlainText struct{}

func (PlainText) Extract(_ context.Context, path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, &ExtractionError{Path: path, Err: err}
	}
	if !utf8.Valid(data) {
		return Document{}, &ExtractionError{Path: path, Err: ErrUnsupported}
	}
	return newDocument(splitPages(string(data))), nil
}
