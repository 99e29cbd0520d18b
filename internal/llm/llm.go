// Package llm wraps the upstream language-model and embedding providers behind
// small interfaces with shared pacing, timeouts and retries.
package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm.go -package=mocks research-rag/internal/llm Completer,Embedder

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"research-rag/internal/metrics"
	"research-rag/internal/resilience"
)

// Completer returns the model's text reply for a system instruction and prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Options controls how a client calls its upstream.
type Options struct {
	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
	// Retry is applied to transient failures.
	Retry resilience.RetryConfig
	// RateLimit is requests per second across the client. Zero disables pacing.
	RateLimit float64
}

// DefaultOptions returns a 60s timeout with two retries and no pacing.
func DefaultOptions() Options {
	return Options{
		Timeout: 60 * time.Second,
		Retry:   resilience.DefaultRetryConfig().WithRetries(2),
	}
}

// caller applies pacing, per-attempt timeouts, retries and metrics to one provider.
type caller struct {
	provider string
	opts     Options
	limiter  *rate.Limiter
}

func newCaller(provider string, opts Options) caller {
	c := caller{provider: provider, opts: opts}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	if c.opts.Retry.OnRetry == nil {
		c.opts.Retry.OnRetry = resilience.RetryLogger(provider, "request")
	}
	return c
}

func run[T any](ctx context.Context, c caller, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	val, err := resilience.DoVal(ctx, c.opts.Retry, func(ctx context.Context) (T, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				var zero T
				return zero, fmt.Errorf("rate limiter: %w", err)
			}
		}
		if c.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
		}
		return fn(ctx)
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.LLMRequestsTotal.WithLabelValues(c.provider, operation, status).Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.provider, operation).Observe(time.Since(start).Seconds())
	return val, err
}
