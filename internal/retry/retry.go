package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/agregador/internal/model"
)

// RetryCollector retries transient collection failures with exponential
// backoff and jitter before giving up on a source.
type RetryCollector struct {
	inner      model.Collector
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryCollector wraps a Collector with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is doubled on each subsequent retry.
func NewRetryCollector(inner model.Collector, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryCollector {
	return &RetryCollector{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Collect implements model.Collector.
func (c *RetryCollector) Collect(ctx context.Context, src model.Source) ([]model.RawListing, error) {
	listings, err := c.inner.Collect(ctx, src)
	if err == nil || !isRetryable(err) {
		return listings, err
	}

	lastErr := err
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		delay := c.backoffDelay(attempt, lastErr)

		c.logger.Warn("retrying source after transient error",
			"source", src.Name,
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, &model.CollectionError{SourceID: src.ID, Err: fmt.Errorf("retry cancelled: %w", ctx.Err())}
		case <-time.After(delay):
		}

		listings, err = c.inner.Collect(ctx, src)
		if err == nil || !isRetryable(err) {
			return listings, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After from a 429 takes precedence.
func (c *RetryCollector) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := c.baseDelay << (attempt - 1)

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable reports whether err is a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Bad config fails the same way every time.
	if errors.Is(err, model.ErrInvalidSourceConfig) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	// Network, DNS and parse errors.
	return true
}
