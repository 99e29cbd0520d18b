package classify

import (
	"context"
	"regexp"
	"strings"

	"research-rag/internal/document"
)

// doiPattern matches modern Crossref DOIs, e.g. 10.1021/acs.iecr.5b01234.
var doiPattern = regexp.MustCompile(`(?i)\b10\.\d{4,9}/[-._;()/:a-z0-9]+[a-z0-9]`)

// DOIRule classifies any text carrying a DOI as a paper. It leaves the title empty.
type DOIRule struct{}

func (DOIRule) Name() string { return string(SourceRuleMatch) }

func (DOIRule) Classify(_ context.Context, in Input) (Result, bool) {
	if FindDOI(in.FirstPage) == "" && FindDOI(in.FullText) == "" {
		return Result{}, false
	}
	return Result{Type: document.TypePaper, Source: SourceRuleMatch}, true
}

// FindDOI returns the first DOI in text, or "".
func FindDOI(text string) string {
	return strings.TrimRight(doiPattern.FindString(text), ".,;)")
}
