package agent

import (
	"context"
	"fmt"
	"time"

	"testassist/internal/telemetry"
)

// DefaultMaxRetries is used when a Config leaves MaxRetries at zero.
const DefaultMaxRetries = 3

// BaseClient carries the retry and telemetry behaviour shared by providers.
type BaseClient struct {
	Provider   string
	MaxRetries int
	// BackoffFn returns the wait before retry i (1-based). Nil means 1s, 2s, 4s...
	BackoffFn func(int) time.Duration
}

// NewBaseClient creates a BaseClient for the named provider.
func NewBaseClient(provider string, maxRetries int) BaseClient {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return BaseClient{Provider: provider, MaxRetries: maxRetries}
}

func (c *BaseClient) backoff(i int) time.Duration {
	if c.BackoffFn != nil {
		return c.BackoffFn(i)
	}
	return time.Duration(1<<uint(i-1)) * time.Second
}

// SendWithRetry calls send until it succeeds, returns a fatal error, the
// context ends, or MaxRetries retries have been spent.
func (c *BaseClient) SendWithRetry(ctx context.Context, prompt string, send func(context.Context, string) (string, error)) (string, error) {
	telemetry.TrackAgentRequest(c.Provider)
	start := time.Now()
	defer func() {
		telemetry.ObserveAgentLatency(c.Provider, time.Since(start).Seconds())
	}()

	var lastErr error
	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			wait := c.backoff(i)
			telemetry.LogInfo("Retrying agent call", "provider", c.Provider, "retry", i, "wait", wait, "error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		result, err := send(ctx, prompt)
		if err == nil {
			return result, nil
		}
		if IsFatal(err) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}

	return "", fmt.Errorf("failed after %d retries: %w", c.MaxRetries, lastErr)
}

// SendStreamWithRetry is SendWithRetry for streaming calls. A retry after
// partial output re-streams from the start.
func (c *BaseClient) SendStreamWithRetry(ctx context.Context, prompt string, send func(context.Context, string, func(string)) (string, error), onChunk func(string)) (string, error) {
	return c.SendWithRetry(ctx, prompt, func(ctx context.Context, p string) (string, error) {
		return send(ctx, p, onChunk)
	})
}
