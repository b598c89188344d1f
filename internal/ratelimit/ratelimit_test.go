package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amishk599/agregador/internal/model"
)

func TestWait_SameHost_EnforcesMinDelay(t *testing.T) {
	limiter := NewHostRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "jobartis.ao"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "jobartis.ao"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Allow 80ms for timer jitter.
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentHosts_NoCrossBlocking(t *testing.T) {
	limiter := NewHostRateLimiter(200 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "jobartis.ao"); err != nil {
		t.Fatalf("first host: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "emprego.co.ao"); err != nil {
		t.Fatalf("second host: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected second host to be near-instant, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewHostRateLimiter(5 * time.Second)

	if err := limiter.Wait(context.Background(), "jobartis.ao"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, "jobartis.ao"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

func TestWait_ZeroDelayNeverBlocks(t *testing.T) {
	limiter := NewHostRateLimiter(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(context.Background(), "jobartis.ao"); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected no blocking, got %v", elapsed)
	}
}

type recordingCollector struct {
	called bool
}

func (c *recordingCollector) Collect(_ context.Context, _ model.Source) ([]model.RawListing, error) {
	c.called = true
	return nil, nil
}

func TestRateLimitedCollector_WaitsPerHost(t *testing.T) {
	limiter := NewHostRateLimiter(100 * time.Millisecond)
	inner := &recordingCollector{}
	c := NewRateLimitedCollector(inner, limiter)
	ctx := context.Background()

	feed := model.Source{ID: "a", URL: "https://jobartis.ao/feed"}
	page := model.Source{ID: "b", URL: "https://jobartis.ao/vagas?page=1"}

	if _, err := c.Collect(ctx, feed); err != nil {
		t.Fatalf("first collect: %v", err)
	}
	if !inner.called {
		t.Fatal("inner collector was not called")
	}

	start := time.Now()
	if _, err := c.Collect(ctx, page); err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("same host should be spaced, got %v", elapsed)
	}
}

func TestRateLimitedCollector_CancelledIsCollectionError(t *testing.T) {
	limiter := NewHostRateLimiter(time.Hour)
	c := NewRateLimitedCollector(&recordingCollector{}, limiter)
	src := model.Source{ID: "a", URL: "https://jobartis.ao/feed"}

	if _, err := c.Collect(context.Background(), src); err != nil {
		t.Fatalf("first collect: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Collect(ctx, src)
	var collErr *model.CollectionError
	if !errors.As(err, &collErr) || collErr.SourceID != "a" {
		t.Fatalf("expected CollectionError for a, got %v", err)
	}
}

func TestHostOf(t *testing.T) {
	if got := hostOf("https://jobartis.ao:8443/vagas"); got != "jobartis.ao" {
		t.Errorf("hostOf = %q", got)
	}
	if got := hostOf("not a url"); got != "not a url" {
		t.Errorf("hostOf fallback = %q", got)
	}
}
