package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"research-rag/internal/document"
)

// ScannedFile represents a candidate document found in the inbox.
type ScannedFile struct {
	AbsPath string        // Absolute file path
	RelPath string        // Relative path from the inbox root (e.g., "si/sorbent.pdf")
	Folder  string        // Folder path except filename, empty at the root
	Type    document.Type // Declared type taken from the top-level folder name
}

var tempSuffixes = []string{"~", ".tmp", ".part", ".crdownload", ".swp", ".download"}

// Ignored reports whether a file name is hidden or looks like an in-progress write.
func Ignored(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return true
	}
	lower := strings.ToLower(name)
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Scan walks root and returns the files accept admits, skipping hidden
// directories and ignored names.
func Scan(ctx context.Context, root string, accept func(path string) bool) ([]ScannedFile, error) {
	var files []ScannedFile

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if Ignored(d.Name()) || (accept != nil && !accept(path)) {
			return nil
		}

		f, err := describe(root, path)
		if err != nil {
			return err
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("failed to scan inbox %s: %w", root, err)
	}

	return files, nil
}

func describe(root, path string) (ScannedFile, error) {
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return ScannedFile{}, fmt.Errorf("failed to compute relative path for %s: %w", path, err)
	}
	relPath = filepath.ToSlash(relPath)

	folder := filepath.ToSlash(filepath.Dir(relPath))
	if folder == "." {
		folder = ""
	}

	f := ScannedFile{AbsPath: path, RelPath: relPath, Folder: folder, Type: document.TypeUnknown}
	if folder != "" {
		top, _, _ := strings.Cut(folder, "/")
		if t, err := document.Parse(top); err == nil {
			f.Type = t
		}
	}
	return f, nil
}
