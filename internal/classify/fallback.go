package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"research-rag/internal/contextutil"
	"research-rag/internal/document"
	"research-rag/internal/llm"
)

const (
	defaultExcerptChars = 3000
	fallbackAttempts    = 2
	maxTitleRunes       = 300
)

const fallbackSystem = `You classify scientific documents.
Reply with a single JSON object and nothing else:
{"type": "<paper|supporting_info|unknown>", "title": "<document title or empty string>"}
Use "paper" for a main research article, "supporting_info" for supplementary or supporting information, and "unknown" otherwise.`

var errMalformed = errors.New("malformed classifier output")

// ModelFallback asks a language model to classify a bounded excerpt.
// Malformed replies are retried once; upstream failures give no opinion.
type ModelFallback struct {
	llm          llm.Completer
	excerptChars int
	timeout      time.Duration
}

// NewModelFallback creates the fallback. excerptChars caps both the first page
// and the full-text prefix; timeout bounds each model call.
func NewModelFallback(completer llm.Completer, excerptChars int, timeout time.Duration) *ModelFallback {
	if excerptChars <= 0 {
		excerptChars = defaultExcerptChars
	}
	return &ModelFallback{llm: completer, excerptChars: excerptChars, timeout: timeout}
}

func (m *ModelFallback) Name() string { return string(SourceModelFallback) }

func (m *ModelFallback) Classify(ctx context.Context, in Input) (Result, bool) {
	logger := contextutil.LoggerFromContext(ctx)
	prompt := m.buildPrompt(in)

	for attempt := 1; attempt <= fallbackAttempts; attempt++ {
		reply, err := m.complete(ctx, prompt)
		if err != nil {
			logger.WarnContext(ctx, "classifier model unavailable", "attempt", attempt, "error", err)
			return Result{}, false
		}

		result, err := parseReply(reply)
		if err == nil {
			result.Source = SourceModelFallback
			return result, true
		}
		logger.WarnContext(ctx, "classifier reply rejected",
			"attempt", attempt,
			"error", err,
			"reply_len", len(reply),
		)
	}
	return Result{}, false
}

func (m *ModelFallback) complete(ctx context.Context, prompt string) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.llm.Complete(ctx, fallbackSystem, prompt)
}

func (m *ModelFallback) buildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("FIRST PAGE:\n")
	b.WriteString(truncateRunes(in.FirstPage, m.excerptChars))
	b.WriteString("\n\nTEXT EXCERPT:\n")
	b.WriteString(truncateRunes(in.FullText, m.excerptChars))
	b.WriteString("\n")
	return b.String()
}

// parseReply extracts and validates the JSON object from a model reply.
func parseReply(reply string) (Result, error) {
	raw := strings.TrimSpace(reply)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return Result{}, fmt.Errorf("%w: no JSON object", errMalformed)
	}

	var parsed struct {
		Type  *string `json:"type"`
		Title *string `json:"title"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return Result{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if parsed.Type == nil {
		return Result{}, fmt.Errorf("%w: missing type", errMalformed)
	}

	typ := document.Type(strings.ToLower(strings.TrimSpace(*parsed.Type)))
	switch typ {
	case document.TypePaper, document.TypeSupportingInfo, document.TypeUnknown:
	default:
		return Result{}, fmt.Errorf("%w: type %q not allowed", errMalformed, *parsed.Type)
	}

	title := ""
	if parsed.Title != nil {
		title = truncateRunes(strings.Join(strings.Fields(*parsed.Title), " "), maxTitleRunes)
	}
	return Result{Type: typ, Title: title}, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
