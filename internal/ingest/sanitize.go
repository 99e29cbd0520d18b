package ingest

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultTitleMaxLen bounds sanitized titles when no limit is configured.
const DefaultTitleMaxLen = 100

const untitled = "untitled"

const separatorCutset = "_-"

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	disallowed    = regexp.MustCompile(`[^A-Za-z0-9 _-]+`)
	spaces        = regexp.MustCompile(` +`)
	underscoreRun = regexp.MustCompile(`[_-]*_[_-]*`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
	stripMarks    = runes.Remove(runes.In(unicode.Mn))
)

// SanitizeTitle turns an arbitrary title into the filename-safe snippet used in
// managed filenames. The output contains only [A-Za-z0-9_-], has no doubled or
// edge separators, is at most maxLen bytes and is stable under re-sanitization.
func SanitizeTitle(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultTitleMaxLen
	}

	s = html.UnescapeString(s)
	s = tagPattern.ReplaceAllString(s, " ")
	if folded, _, err := transform.String(transform.Chain(norm.NFKD, stripMarks), s); err == nil {
		s = folded
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
	s = disallowed.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = spaces.ReplaceAllString(s, "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	s = hyphenRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, separatorCutset)

	if len(s) > maxLen {
		s = strings.Trim(s[:maxLen], separatorCutset)
	}
	if s == "" {
		s = untitled
		if len(s) > maxLen {
			s = s[:maxLen]
		}
	}
	return s
}
