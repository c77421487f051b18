package errors

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/flanksource/commons/logger"
)

// RetryConfig controls how WithRetry and WithFallback re-attempt an
// operation. MaxRetries counts re-attempts after the first try, so the
// default of 3 yields at most 4 attempts.
type RetryConfig struct {
	MaxRetries         int
	RetryDelay         time.Duration
	ExponentialBackoff bool
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	JitterFactor       float64
}

// DefaultRetryConfig returns the defaults used across the engine.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:         3,
		RetryDelay:         time.Second,
		ExponentialBackoff: true,
		BaseDelay:          100 * time.Millisecond,
		MaxDelay:           30 * time.Second,
		JitterFactor:       0.1,
	}
}

// Delay returns the sleep before attempt n (1-based re-attempt count).
func (c RetryConfig) Delay(attempt int) time.Duration {
	if !c.ExponentialBackoff {
		return c.RetryDelay
	}
	base := c.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	if c.JitterFactor > 0 {
		jitter := time.Duration(rand.Float64() * c.JitterFactor * float64(delay))
		delay += jitter
	}
	return delay
}

// Operation is a unit of work subject to retry.
type Operation func() error

// WithRetry runs op, re-attempting retryable failures up to
// cfg.MaxRetries additional times. Non-retryable errors and context
// cancellation end the loop immediately. The last error is returned on
// exhaustion.
func WithRetry(ctx context.Context, cfg RetryConfig, op Operation) error {
	var last error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(cfg.Delay(attempt)):
			case <-ctx.Done():
				return Wrap(ctx.Err(), External, "retry cancelled",
					WithOperation("retry"))
			}
		}
		last = op()
		if last == nil {
			return nil
		}
		if !IsRetryable(last) {
			return last
		}
		logger.Debugf("attempt %d/%d failed, retrying: %v", attempt+1, cfg.MaxRetries+1, last)
	}
	return last
}

// Fallback receives the error the primary operation exhausted its retries
// with and attempts an alternative.
type Fallback func(err error) error

// WithFallback runs primary under WithRetry; when it still fails, fallback
// is invoked with the final error.
func WithFallback(ctx context.Context, cfg RetryConfig, primary Operation, fallback Fallback) error {
	err := WithRetry(ctx, cfg, primary)
	if err == nil {
		return nil
	}
	return fallback(err)
}

// Recovery applies the severity policy to observed errors.
type Recovery struct {
	Retry RetryConfig
}

// NewRecovery returns a Recovery using the default retry configuration.
func NewRecovery() *Recovery {
	return &Recovery{Retry: DefaultRetryConfig()}
}

// Handle applies the severity policy: Low and Medium severities are logged
// and swallowed, High is retried when retryable, Fatal and unresolved
// failures surface to the caller.
func (r *Recovery) Handle(ctx context.Context, err error, op Operation) error {
	if err == nil {
		return nil
	}
	switch SeverityOf(err) {
	case Low:
		logger.Debugf("recovered from %v", err)
		return nil
	case Medium:
		logger.Warnf("recovered from %v (operation may be retried by the caller)", err)
		return nil
	case High:
		if IsRetryable(err) && op != nil {
			return WithRetry(ctx, r.Retry, op)
		}
		return err
	default:
		return err
	}
}
