package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/agregador/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testListing(id, fingerprint string) model.Listing {
	return model.Listing{
		ID:           id,
		Title:        "Engenheiro de Software",
		Company:      "Unitel",
		Location:     "Luanda",
		ProvinceID:   "luanda",
		Requirements: []string{"Go", "SQL"},
		ContractType: model.ContractFullTime,
		Currency:     "AOA",
		CollectedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Active:       true,
		Fingerprint:  fingerprint,
	}
}

func seedSource(t *testing.T, s *SQLiteStore, id string) {
	t.Helper()
	err := s.CreateSource(context.Background(), model.Source{
		ID:              id,
		Name:            "Fonte " + id,
		Type:            model.SourceRSS,
		URL:             "https://example.ao/feed",
		PollingInterval: time.Hour,
		Active:          true,
	})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
}

func TestProvincesSeeded(t *testing.T) {
	s := newTestStore(t)

	provinces, err := s.ListProvinces(context.Background())
	if err != nil {
		t.Fatalf("ListProvinces: %v", err)
	}
	if len(provinces) != 18 {
		t.Fatalf("expected 18 provinces, got %d", len(provinces))
	}
}

func TestReopenDoesNotDuplicateProvinces(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		s, err := NewSQLiteStore(dbPath)
		if err != nil {
			t.Fatalf("NewSQLiteStore #%d: %v", i, err)
		}
		provinces, err := s.ListProvinces(context.Background())
		if err != nil {
			t.Fatalf("ListProvinces: %v", err)
		}
		if len(provinces) != 18 {
			t.Errorf("open #%d: expected 18 provinces, got %d", i, len(provinces))
		}
		s.Close()
	}
}

func TestSourceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.CreateSource(ctx, model.Source{
		ID:              "src-1",
		Name:            "Jobartis",
		Type:            model.SourceScraper,
		URL:             "https://jobartis.ao/vagas",
		PollingInterval: 90 * time.Minute,
		Active:          true,
		Config:          json.RawMessage(`{"seletores":{"item":".job"}}`),
	})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}

	got, err := s.GetSource(ctx, "src-1")
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.Type != model.SourceScraper || got.PollingInterval != 90*time.Minute || !got.Active {
		t.Errorf("unexpected source: %+v", got)
	}
	if got.LastCollectedAt != nil || got.NextDueAt != nil {
		t.Errorf("expected never-collected source, got last=%v next=%v", got.LastCollectedAt, got.NextDueAt)
	}
	if string(got.Config) != `{"seletores":{"item":".job"}}` {
		t.Errorf("config = %s", got.Config)
	}
}

func TestGetSourceUnknown(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSource(context.Background(), "missing")
	if !errors.Is(err, model.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestUpdateSourceSchedule(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "src-1")

	last := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	next := last.Add(time.Hour)
	if err := s.UpdateSourceSchedule(ctx, "src-1", last, next); err != nil {
		t.Fatalf("UpdateSourceSchedule: %v", err)
	}

	got, err := s.GetSource(ctx, "src-1")
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.LastCollectedAt == nil || !got.LastCollectedAt.Equal(last) {
		t.Errorf("last = %v, want %v", got.LastCollectedAt, last)
	}
	if got.NextDueAt == nil || !got.NextDueAt.Equal(next) {
		t.Errorf("next = %v, want %v", got.NextDueAt, next)
	}

	if err := s.UpdateSourceSchedule(ctx, "missing", last, next); !errors.Is(err, model.ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound for unknown source, got %v", err)
	}
}

func TestInsertAndFindByFingerprint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	salary := 150000.0
	l := testListing("vaga-1", "fp-1")
	l.SalaryMin = &salary
	exp := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	l.ExpiresAt = &exp

	if err := s.InsertListing(ctx, l); err != nil {
		t.Fatalf("InsertListing: %v", err)
	}

	got, err := s.FindByFingerprint(ctx, "fp-1")
	if err != nil {
		t.Fatalf("FindByFingerprint: %v", err)
	}
	if got == nil {
		t.Fatal("expected listing, got nil")
	}
	if got.ID != "vaga-1" || got.ProvinceID != "luanda" || len(got.Requirements) != 2 {
		t.Errorf("unexpected listing: %+v", got)
	}
	if got.SalaryMin == nil || *got.SalaryMin != salary || got.SalaryMax != nil {
		t.Errorf("salary = %v/%v", got.SalaryMin, got.SalaryMax)
	}
	if got.ExpiresAt == nil || got.ExpiresAt.Format(time.DateOnly) != "2024-03-31" {
		t.Errorf("expires = %v", got.ExpiresAt)
	}
	if !got.CollectedAt.Equal(l.CollectedAt) {
		t.Errorf("collected = %v, want %v", got.CollectedAt, l.CollectedAt)
	}
}

func TestFindByFingerprintAbsent(t *testing.T) {
	s := newTestStore(t)

	got, err := s.FindByFingerprint(context.Background(), "nope")
	if err != nil {
		t.Fatalf("FindByFingerprint: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestInsertDuplicateFingerprint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertListing(ctx, testListing("vaga-1", "fp-1")); err != nil {
		t.Fatalf("first InsertListing: %v", err)
	}
	err := s.InsertListing(ctx, testListing("vaga-2", "fp-1"))
	if !errors.Is(err, model.ErrDuplicateFingerprint) {
		t.Fatalf("expected ErrDuplicateFingerprint, got %v", err)
	}
}

func TestLinkSourceIsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSource(t, s, "src-1")
	seedSource(t, s, "src-2")

	if err := s.InsertListing(ctx, testListing("vaga-1", "fp-1")); err != nil {
		t.Fatalf("InsertListing: %v", err)
	}

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, link := range []model.SourceListingLink{
		{SourceID: "src-1", ListingID: "vaga-1", CollectedAt: at},
		{SourceID: "src-1", ListingID: "vaga-1", CollectedAt: at.Add(time.Hour)},
		{SourceID: "src-2", ListingID: "vaga-1", CollectedAt: at},
	} {
		if err := s.LinkSource(ctx, link); err != nil {
			t.Fatalf("LinkSource: %v", err)
		}
	}

	n, err := s.CountLinks(ctx, "vaga-1")
	if err != nil {
		t.Fatalf("CountLinks: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 links, got %d", n)
	}
}

func TestUpdateListingDescription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertListing(ctx, testListing("vaga-1", "fp-1")); err != nil {
		t.Fatalf("InsertListing: %v", err)
	}
	if err := s.UpdateListingDescription(ctx, "vaga-1", "Desenvolver APIs"); err != nil {
		t.Fatalf("UpdateListingDescription: %v", err)
	}

	got, err := s.FindByFingerprint(ctx, "fp-1")
	if err != nil {
		t.Fatalf("FindByFingerprint: %v", err)
	}
	if got.Description != "Desenvolver APIs" {
		t.Errorf("description = %q", got.Description)
	}
}

func TestDeactivateExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	day := func(d int) *time.Time {
		v := time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	expired := testListing("vaga-old", "fp-old")
	expired.ExpiresAt = day(9)
	today := testListing("vaga-today", "fp-today")
	today.ExpiresAt = day(10)
	undated := testListing("vaga-undated", "fp-undated")
	inactive := testListing("vaga-inactive", "fp-inactive")
	inactive.ExpiresAt = day(1)
	inactive.Active = false

	for _, l := range []model.Listing{expired, today, undated, inactive} {
		if err := s.InsertListing(ctx, l); err != nil {
			t.Fatalf("InsertListing %s: %v", l.ID, err)
		}
	}

	cutoff := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	got, err := s.DeactivateExpired(ctx, cutoff)
	if err != nil {
		t.Fatalf("DeactivateExpired: %v", err)
	}
	if len(got) != 1 || got[0].ID != "vaga-old" {
		t.Fatalf("expected only vaga-old deactivated, got %+v", got)
	}
	if got[0].Active {
		t.Error("returned listing should be inactive")
	}

	again, err := s.DeactivateExpired(ctx, cutoff)
	if err != nil {
		t.Fatalf("second DeactivateExpired: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected no-op second sweep, got %d", len(again))
	}
}

func TestRecordAndListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := model.CollectionRun{
		SourceID:  "src-1",
		Status:    model.RunPartial,
		New:       3,
		Duplicate: 1,
		Elapsed:   1500 * time.Millisecond,
		Metadata:  model.RunMetadata{Errors: []string{"vaga sem título"}, Collected: 5},
		StartedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := s.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID == "" {
		t.Error("expected generated run ID")
	}
	if got.Status != model.RunPartial || got.New != 3 || got.Elapsed != 1500*time.Millisecond {
		t.Errorf("unexpected run: %+v", got)
	}
	if len(got.Metadata.Errors) != 1 || got.Metadata.Collected != 5 {
		t.Errorf("metadata = %+v", got.Metadata)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"earlier", "later"} {
		started := base
		if id == "later" {
			started = base.Add(500 * time.Millisecond)
		}
		run := model.CollectionRun{ID: id, SourceID: "src-1", Status: model.RunSuccess, StartedAt: started}
		if err := s.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "later" || runs[1].ID != "earlier" {
		t.Fatalf("expected later run first, got %+v", runs)
	}
	if !runs[0].StartedAt.Equal(base.Add(500 * time.Millisecond)) {
		t.Errorf("started_at = %v", runs[0].StartedAt)
	}
}

func TestListListingsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := testListing("older", "fp-older")
	older.CollectedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	newer := testListing("newer", "fp-newer")
	newer.CollectedAt = older.CollectedAt.Add(250 * time.Millisecond)
	for _, l := range []model.Listing{older, newer} {
		if err := s.InsertListing(ctx, l); err != nil {
			t.Fatalf("InsertListing %s: %v", l.ID, err)
		}
	}

	got, err := s.ListListings(ctx, 10)
	if err != nil {
		t.Fatalf("ListListings: %v", err)
	}
	if len(got) != 2 || got[0].ID != "newer" {
		t.Fatalf("expected newer listing first, got %d listings", len(got))
	}
}

func TestInsertNotification(t *testing.T) {
	s := newTestStore(t)

	err := s.InsertNotification(context.Background(), model.Notification{
		UserID:    "user-1",
		Type:      "nova_vaga",
		Title:     "Nova vaga",
		Message:   "Há uma nova vaga",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertNotification: %v", err)
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM notificacoes WHERE user_id = ?", "user-1").Scan(&n); err != nil {
		t.Fatalf("counting: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 notification, got %d", n)
	}
}

func TestPgxMigrateURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@db:5432/agregador", "pgx5://u:p@db:5432/agregador"},
		{"postgresql://db/agregador?sslmode=disable", "pgx5://db/agregador?sslmode=disable"},
		{"pgx5://db/agregador", "pgx5://db/agregador"},
	}
	for _, tt := range tests {
		if got := pgxMigrateURL(tt.in); got != tt.want {
			t.Errorf("pgxMigrateURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
