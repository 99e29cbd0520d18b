package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoVal(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		failWith  error
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{name: "first attempt succeeds", failures: 0, attempts: 3, wantCalls: 1},
		{name: "succeeds after transient failures", failures: 2, failWith: NewTransientError(errors.New("503"), 503), attempts: 3, wantCalls: 3},
		{name: "exhausts retries", failures: 5, failWith: NewTransientError(errors.New("503"), 503), attempts: 3, wantCalls: 3, wantErr: true},
		{name: "non-transient fails fast", failures: 5, failWith: errors.New("bad request"), attempts: 3, wantCalls: 1, wantErr: true},
		{name: "single attempt", failures: 1, failWith: NewTransientError(errors.New("429"), 429), attempts: 1, wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := DoVal(context.Background(), fastConfig(tt.attempts), func(context.Context) (string, error) {
				calls++
				if calls <= tt.failures {
					return "", tt.failWith
				}
				return "ok", nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", got)
		})
	}
}

func TestDoVal_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := fastConfig(5)
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour
	cfg.OnRetry = func(context.Context, int, error) { cancel() }

	_, err := DoVal(ctx, cfg, func(context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("timeout"), 504)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_OnRetryAttempts(t *testing.T) {
	var seen []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(_ context.Context, attempt int, _ error) { seen = append(seen, attempt) }

	_, _ = DoVal(context.Background(), cfg, func(context.Context) (string, error) {
		return "", NewTransientError(errors.New("busy"), 503)
	})
	assert.Equal(t, []int{1, 2}, seen)
}

func TestWithRetries(t *testing.T) {
	assert.Equal(t, 3, DefaultRetryConfig().WithRetries(2).MaxAttempts)
	assert.Equal(t, 1, DefaultRetryConfig().WithRetries(-1).MaxAttempts)
}

func TestComputeBackoff_Capped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{InitialBackoff: time.Second, MaxBackoff: 2 * time.Second, Multiplier: 10})
	assert.Equal(t, time.Second, computeBackoff(0, cfg))
	assert.Equal(t, 2*time.Second, computeBackoff(3, cfg))
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "deadline" }
func (timeoutErr) Timeout() bool { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "explicit transient", err: fmt.Errorf("wrapped: %w", NewTransientError(errors.New("x"), 429)), want: true},
		{name: "net timeout", err: timeoutErr{}, want: true},
		{name: "connection refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), want: true},
		{name: "reset message", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "plain error", err: errors.New("invalid model"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	base := errors.New("upstream")
	assert.True(t, IsTransient(ClassifyStatus(base, 503)))
	assert.False(t, IsTransient(ClassifyStatus(base, 400)))
	assert.NoError(t, ClassifyStatus(nil, 503))
}
