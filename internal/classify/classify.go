// Package classify determines a document's type and title with an ordered list
// of strategies: a deterministic rule first, a model fallback second.
package classify

import (
	"context"

	"research-rag/internal/contextutil"
	"research-rag/internal/document"
	"research-rag/internal/metrics"
)

// Source names the strategy that produced a Result.
type Source string

const (
	SourceRuleMatch     Source = "rule_match"
	SourceModelFallback Source = "model_fallback"
	SourceUnknown       Source = "unknown"
)

// Result is a classification outcome.
type Result struct {
	Type   document.Type `json:"type"`
	Title  string        `json:"title"`
	Source Source        `json:"source"`
}

// Unknown is returned when no strategy is confident.
var Unknown = Result{Type: document.TypeUnknown, Title: "", Source: SourceUnknown}

// Input is the extracted text a strategy may inspect.
type Input struct {
	FirstPage string
	FullText  string
}

// Strategy returns a confident Result, or false for "no opinion".
type Strategy interface {
	Name() string
	Classify(ctx context.Context, in Input) (Result, bool)
}

// Classifier runs strategies in order and stops at the first confident one.
type Classifier struct {
	strategies []Strategy
}

// New creates a Classifier over the given strategies, tried in order.
func New(strategies ...Strategy) *Classifier {
	return &Classifier{strategies: strategies}
}

// Classify never fails; without a confident strategy the result is Unknown.
func (c *Classifier) Classify(ctx context.Context, in Input) Result {
	logger := contextutil.LoggerFromContext(ctx)

	result := Unknown
	for _, s := range c.strategies {
		if r, ok := s.Classify(ctx, in); ok {
			result = r
			break
		}
		logger.DebugContext(ctx, "classifier strategy had no opinion", "strategy", s.Name())
	}

	metrics.ClassificationsTotal.WithLabelValues(string(result.Source), string(result.Type)).Inc()
	logger.InfoContext(ctx, "document classified",
		"type", result.Type,
		"source", result.Source,
		"title_len", len(result.Title),
	)
	return result
}
