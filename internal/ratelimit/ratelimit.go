package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/agregador/internal/model"
)

// HostRateLimiter spaces requests to the same host by at least minDelay.
type HostRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
}

// NewHostRateLimiter creates a limiter allowing one request per minDelay per
// host. A zero minDelay disables limiting.
func NewHostRateLimiter(minDelay time.Duration) *HostRateLimiter {
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	return &HostRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

func (r *HostRateLimiter) limiter(host string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[host]
	if !ok {
		l = rate.NewLimiter(r.limit, 1)
		r.limiters[host] = l
	}
	return l
}

// Wait blocks until a request to host is allowed or ctx is done.
func (r *HostRateLimiter) Wait(ctx context.Context, host string) error {
	if err := r.limiter(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", host, err)
	}
	return nil
}

// RateLimitedCollector waits on the shared limiter for the source's host
// before delegating to the wrapped Collector.
type RateLimitedCollector struct {
	inner   model.Collector
	limiter *HostRateLimiter
}

func NewRateLimitedCollector(inner model.Collector, limiter *HostRateLimiter) *RateLimitedCollector {
	return &RateLimitedCollector{inner: inner, limiter: limiter}
}

// Collect implements model.Collector.
func (c *RateLimitedCollector) Collect(ctx context.Context, src model.Source) ([]model.RawListing, error) {
	if err := c.limiter.Wait(ctx, hostOf(src.URL)); err != nil {
		return nil, &model.CollectionError{SourceID: src.ID, Err: err}
	}
	return c.inner.Collect(ctx, src)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Hostname()
}
