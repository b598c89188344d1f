package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/agregador/internal/model"
	"github.com/amishk599/agregador/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insert(t *testing.T, s *store.SQLiteStore, id string, expires *time.Time) {
	t.Helper()
	err := s.InsertListing(context.Background(), model.Listing{
		ID:           id,
		Title:        "Vaga " + id,
		Company:      "ABC Lda",
		Location:     "Luanda",
		ProvinceID:   "luanda",
		ContractType: model.ContractFullTime,
		Currency:     "AOA",
		CollectedAt:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:    expires,
		Active:       true,
		Fingerprint:  "fp-" + id,
	})
	if err != nil {
		t.Fatalf("InsertListing %s: %v", id, err)
	}
}

func date(y int, m time.Month, d int) *time.Time {
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func TestSweep_DateOnlyComparison(t *testing.T) {
	s := newTestStore(t)
	insert(t, s, "yesterday", date(2024, 3, 9))
	insert(t, s, "today", date(2024, 3, 10))
	insert(t, s, "tomorrow", date(2024, 3, 11))
	insert(t, s, "undated", nil)

	sw := New(s, time.UTC, discardLogger())
	// Late in the day: a listing expiring today is still current.
	now := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)

	expired, err := sw.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "yesterday" {
		t.Fatalf("expected only 'yesterday' deactivated, got %+v", expired)
	}

	again, err := sw.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second sweep should be a no-op, got %d", len(again))
	}
}

func TestSweep_UsesConfiguredTimezone(t *testing.T) {
	s := newTestStore(t)
	insert(t, s, "mar10", date(2024, 3, 10))

	luanda := time.FixedZone("WAT", 3600)
	sw := New(s, luanda, discardLogger())

	// 23:30 UTC on Mar 10 is already Mar 11 in Luanda.
	now := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	expired, err := sw.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("expected mar10 to expire on Luanda's Mar 11, got %d", len(expired))
	}
}

type failingStore struct {
	model.ListingStore
}

func (failingStore) DeactivateExpired(context.Context, time.Time) ([]model.Listing, error) {
	return nil, errors.New("db down")
}

func TestSweep_StoreError(t *testing.T) {
	sw := New(failingStore{}, nil, discardLogger())
	if _, err := sw.Sweep(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	got := Today(time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC), loc)
	if got.Format(time.DateOnly) != "2024-03-11" || got.Hour() != 0 {
		t.Errorf("Today = %v", got)
	}
}
