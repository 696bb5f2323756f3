package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff.
type Config struct {
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	Multiplier       float64
	JitterFactor     float64 // 0.0-1.0, +/- jitter applied to each delay
	MaxSameErrorType int     // After N consecutive same-type errors, treat as permanent (0 disables)
}

// DefaultConfig returns defaults for sample fetches against a document store:
// 3 retries starting at 200ms, capped at 10s, doubling, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialDelay:     200 * time.Millisecond,
		MaxDelay:         10 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

// WithMaxRetries returns DefaultConfig with a different retry count.
// Negative values are treated as zero.
func WithMaxRetries(n int) *Config {
	cfg := DefaultConfig()
	if n < 0 {
		n = 0
	}
	cfg.MaxRetries = n
	return cfg
}

func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// backoff waits for the current delay and returns the next one.
func backoff(ctx context.Context, cfg *Config, delay time.Duration) (time.Duration, error) {
	select {
	case <-time.After(applyJitter(delay, cfg.JitterFactor)):
		next := time.Duration(float64(delay) * cfg.Multiplier)
		if next > cfg.MaxDelay {
			next = cfg.MaxDelay
		}
		return next, nil
	case <-ctx.Done():
		return delay, ctx.Err()
	}
}

// Do executes fn with exponential backoff, retrying every error.
// Returns nil on success, or the last error after all retries are exhausted.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult executes fn with exponential backoff and returns its result.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	return doWithResult(ctx, cfg, false, fn)
}

// DoIfRetryable retries only transient errors. Permanent errors (auth
// failures, bad queries, missing collections) return immediately. After
// MaxSameErrorType consecutive failures of the same type the error is
// treated as permanent.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := doWithResult(ctx, cfg, true, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResultIfRetryable is DoIfRetryable for functions returning a value.
func DoWithResultIfRetryable[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	return doWithResult(ctx, cfg, true, fn)
}

func doWithResult[T any](ctx context.Context, cfg *Config, onlyTransient bool, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var result T
	var lastErr error
	delay := cfg.InitialDelay
	sameErrorCount := 0
	var lastErrorType string

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result, lastErr = r, err

		if onlyTransient {
			if !IsRetryable(err) {
				return result, err
			}
			errorType := classifyErrorType(err)
			if errorType == lastErrorType {
				sameErrorCount++
				if cfg.MaxSameErrorType > 0 && sameErrorCount >= cfg.MaxSameErrorType {
					return result, fmt.Errorf("repeated error (%d times, type=%s): %w", sameErrorCount, errorType, err)
				}
			} else {
				sameErrorCount = 1
				lastErrorType = errorType
			}
		}

		if attempt < cfg.MaxRetries {
			var waitErr error
			if delay, waitErr = backoff(ctx, cfg, delay); waitErr != nil {
				return result, waitErr
			}
		}
	}

	return result, lastErr
}

// RetryableError is implemented by errors that declare their own retryability.
type RetryableError interface {
	error
	IsRetryable() bool
}

var retryablePatterns = []string{
	// Connection errors
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"network is unreachable",
	"server selection error",
	"connection pool",
	"socket was unexpectedly closed",
	// Throughput limits (Cosmos DB returns 16500 / 429 when RU/s are exhausted)
	"16500",
	"429",
	"request rate is large",
	"too many requests",
	"rate limit",
	// Server side
	"503",
	"service unavailable",
	"not primary",
	"node is recovering",
}

// IsRetryable determines if an error is transient and worth retrying.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// classifyErrorType extracts a coarse category used to detect repeated
// failures of the same kind.
func classifyErrorType(err error) string {
	if err == nil {
		return "nil"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "16500"), strings.Contains(errStr, "429"),
		strings.Contains(errStr, "request rate is large"), strings.Contains(errStr, "too many requests"),
		strings.Contains(errStr, "rate limit"):
		return "throttled"
	case strings.Contains(errStr, "503"), strings.Contains(errStr, "service unavailable"):
		return "unavailable"
	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "connection reset"),
		strings.Contains(errStr, "server selection error"):
		return "connection"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "timed out"):
		return "timeout"
	case strings.Contains(errStr, "broken pipe"):
		return "broken_pipe"
	default:
		return "unknown"
	}
}
