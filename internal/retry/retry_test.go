package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/agregador/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCollector calls a function on each invocation, tracking call count.
type mockCollector struct {
	calls int
	fn    func(attempt int) ([]model.RawListing, error)
}

func (m *mockCollector) Collect(_ context.Context, _ model.Source) ([]model.RawListing, error) {
	m.calls++
	return m.fn(m.calls)
}

var testSource = model.Source{ID: "src-1", Name: "Portal"}

func collectionErr(err error) error {
	return &model.CollectionError{SourceID: "src-1", Err: err}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	listings := []model.RawListing{{Title: "Contador"}}
	mock := &mockCollector{fn: func(_ int) ([]model.RawListing, error) {
		return listings, nil
	}}

	rc := NewRetryCollector(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rc.Collect(context.Background(), testSource)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Contador" {
		t.Fatalf("unexpected listings: %v", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockCollector{fn: func(attempt int) ([]model.RawListing, error) {
		if attempt == 1 {
			return nil, collectionErr(&model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")})
		}
		return []model.RawListing{{Title: "Motorista"}}, nil
	}}

	rc := NewRetryCollector(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rc.Collect(context.Background(), testSource)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(got))
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryOn4xx(t *testing.T) {
	mock := &mockCollector{fn: func(_ int) ([]model.RawListing, error) {
		return nil, collectionErr(&model.HTTPError{StatusCode: 404, Err: errors.New("not found")})
	}}

	rc := NewRetryCollector(mock, 2, 10*time.Millisecond, discardLogger())
	_, err := rc.Collect(context.Background(), testSource)
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Fatalf("expected HTTPError with status 404, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryConfigErrors(t *testing.T) {
	mock := &mockCollector{fn: func(_ int) ([]model.RawListing, error) {
		return nil, collectionErr(fmt.Errorf("missing selector: %w", model.ErrInvalidSourceConfig))
	}}

	rc := NewRetryCollector(mock, 3, 10*time.Millisecond, discardLogger())
	_, err := rc.Collect(context.Background(), testSource)
	if !errors.Is(err, model.ErrInvalidSourceConfig) {
		t.Fatalf("expected ErrInvalidSourceConfig, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockCollector{fn: func(_ int) ([]model.RawListing, error) {
		return nil, collectionErr(&model.HTTPError{StatusCode: 500, Err: errors.New("internal error")})
	}}

	rc := NewRetryCollector(mock, 2, 10*time.Millisecond, discardLogger())
	_, err := rc.Collect(context.Background(), testSource)
	var collErr *model.CollectionError
	if !errors.As(err, &collErr) {
		t.Fatalf("expected CollectionError after max retries, got %v", err)
	}
	// 1 initial + 2 retries = 3
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_HonorsRetryAfter(t *testing.T) {
	mock := &mockCollector{fn: func(attempt int) ([]model.RawListing, error) {
		if attempt == 1 {
			return nil, collectionErr(&model.HTTPError{StatusCode: 429, RetryAfter: 50 * time.Millisecond})
		}
		return nil, nil
	}}

	rc := NewRetryCollector(mock, 1, time.Hour, discardLogger())
	start := time.Now()
	if _, err := rc.Collect(context.Background(), testSource); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Errorf("expected Retry-After to replace the 1h base delay, waited %v", elapsed)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockCollector{fn: func(_ int) ([]model.RawListing, error) {
		return nil, collectionErr(errors.New("connection reset"))
	}}

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel immediately so the backoff sleep is interrupted.
	cancel()

	rc := NewRetryCollector(mock, 2, time.Second, discardLogger())
	_, err := rc.Collect(ctx, testSource)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}

func TestBackoffDelay_Jitter(t *testing.T) {
	rc := NewRetryCollector(nil, 3, 100*time.Millisecond, discardLogger())
	for attempt := 1; attempt <= 3; attempt++ {
		base := 100 * time.Millisecond << (attempt - 1)
		for i := 0; i < 50; i++ {
			d := rc.backoffDelay(attempt, errors.New("x"))
			if d < base*7/10 || d > base*13/10 {
				t.Fatalf("attempt %d: delay %v outside ±30%% of %v", attempt, d, base)
			}
		}
	}
}
