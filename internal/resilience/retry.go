package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	MaxAttempts   int           `json:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	JitterEnabled bool          `json:"jitter_enabled"`
}

// DefaultRetryConfig performs a single attempt
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   1,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

type retryingDoer struct {
	next   Doer
	config RetryConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry decorates next with bounded retries. Only transport errors and
// 408, 429 and 5xx statuses are retried. With MaxAttempts <= 1 next is returned unchanged.
func WithRetry(next Doer, config RetryConfig) Doer {
	if config.MaxAttempts <= 1 {
		return next
	}
	return &retryingDoer{next: next, config: config, sleep: sleepContext}
}

func (r *retryingDoer) Do(ctx context.Context, req Request) (*Response, error) {
	var lastResp *Response
	var lastErr error

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := r.next.Do(ctx, req)
		switch {
		case err == nil && !isRetryableHTTPStatus(resp.StatusCode):
			return resp, nil
		case err != nil && !isRetryableError(err):
			return nil, err
		}

		lastResp, lastErr = resp, err

		if attempt == r.config.MaxAttempts-1 {
			break
		}

		if err := r.sleep(ctx, calculateDelay(r.config, attempt)); err != nil {
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// calculateDelay computes initial_delay * backoff_factor^attempt, capped, plus up to 10% jitter
func calculateDelay(config RetryConfig, attempt int) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt)))

	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if config.JitterEnabled && delay >= 10 {
		delay += time.Duration(rand.Int63n(int64(delay / 10)))
	}

	return delay
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429:
		return true
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func isRetryableError(err error) bool {
	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
