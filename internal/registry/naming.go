package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Managed filenames look like 007_Some_Title_PAPER.pdf.
var managedName = regexp.MustCompile(`^(\d{3,})_(.+)_([A-Z]+)(\.[A-Za-z0-9]+)?$`)

// FormatTracingNumber zero-pads to width 3; wider numbers keep all digits.
func FormatTracingNumber(n int) string {
	return fmt.Sprintf("%03d", n)
}

// ManagedName builds {tracing_number}_{title}_{TYPE}{ext}.
func ManagedName(n int, title, typeToken, ext string) string {
	return FormatTracingNumber(n) + "_" + title + "_" + typeToken + strings.ToLower(ext)
}

// ManagedFile is a file in the store whose name follows the naming convention.
type ManagedFile struct {
	TracingNumber int
	Title         string
	TypeToken     string
	Ext           string
	Name          string
	Path          string
}

// ParseManagedName splits a managed filename into its parts.
func ParseManagedName(name string) (ManagedFile, bool) {
	m := managedName.FindStringSubmatch(name)
	if m == nil {
		return ManagedFile{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return ManagedFile{}, false
	}
	return ManagedFile{
		TracingNumber: n,
		Title:         m[2],
		TypeToken:     m[3],
		Ext:           m[4],
		Name:          name,
	}, true
}

// ScanDirectory lists managed files in dir ordered by tracing number.
// Hidden files, temp files and names outside the convention are ignored.
func ScanDirectory(dir string) ([]ManagedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}

	var files []ManagedFile
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		mf, ok := ParseManagedName(name)
		if !ok {
			continue
		}
		mf.Path = filepath.Join(dir, name)
		files = append(files, mf)
	}
	slices.SortFunc(files, func(a, b ManagedFile) int { return a.TracingNumber - b.TracingNumber })
	return files, nil
}

// Fingerprint returns the hex SHA256 of everything read from r.
func Fingerprint(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintFile hashes the file at path.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()
	return Fingerprint(f)
}
