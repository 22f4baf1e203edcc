// Package retry provides bounded retries with exponential or linear backoff.
// The LLM provider uses it for transport errors; the orchestration loop uses the
// linear variant between THINK attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

// Strategy selects how the wait grows between attempts.
type Strategy int

const (
	// Exponential waits initial * 2^attempt.
	Exponential Strategy = iota
	// Linear waits initial * (attempt+1).
	Linear
)

// Config represents retry configuration.
type Config struct {
	MaxAttempts    int           // Maximum number of attempts (default: 3)
	InitialBackoff time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 10s)
	Strategy       Strategy

	// Retryable overrides IsRetryable when set.
	Retryable func(error) bool
}

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialDelay
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxDelay
	}
	if c.Retryable == nil {
		c.Retryable = IsRetryable
	}
	return c
}

// Do executes fn until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done. Context cancellation is checked between attempts.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.Retryable(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		if err := Sleep(ctx, Backoff(cfg.Strategy, attempt, cfg.InitialBackoff, cfg.MaxBackoff)); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, cfg.MaxAttempts, lastErr)
}

// DoWithRetry is the string-returning form kept for call sites that only need text.
func DoWithRetry(ctx context.Context, fn func() (string, error), cfg Config) (string, error) {
	return Do(ctx, cfg, func(context.Context) (string, error) { return fn() })
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetryable checks if an error is retryable based on its message.
// Returns true for timeout, network, rate limit, temporary and 5xx errors.
// Returns false for authentication, authorization, not found and cancellation.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errLower := strings.ToLower(err.Error())

	nonRetryablePatterns := []string{
		"401",
		"403",
		"400",
		"404",
		"context canceled",
	}
	for _, pattern := range nonRetryablePatterns {
		if strings.Contains(errLower, pattern) {
			return false
		}
	}

	retryablePatterns := []string{
		"deadline exceeded",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"eof",
		"429",
		"too many requests",
		"rate limit",
		"500",
		"502",
		"503",
		"504",
		"empty response",
		"connection",
		"network",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errLower, pattern) {
			return true
		}
	}

	return false
}

// Backoff returns the wait before attempt+1, capped at max.
func Backoff(strategy Strategy, attempt int, initial, max time.Duration) time.Duration {
	var backoff time.Duration
	switch strategy {
	case Linear:
		backoff = time.Duration(attempt+1) * initial
	default:
		backoff = time.Duration(1<<uint(attempt)) * initial
	}
	if backoff > max {
		return max
	}
	return backoff
}
