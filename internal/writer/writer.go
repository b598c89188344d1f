// Package writer persists collected listings: province resolution,
// deduplication, insert or link, and counters for the run log.
package writer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/agregador/internal/dedup"
	"github.com/amishk599/agregador/internal/model"
	"github.com/amishk599/agregador/internal/normalize"
)

// DefaultListingTTL is the lifetime of a listing without an explicit
// expiration date, counted from its publication or collection time.
const DefaultListingTTL = 30 * 24 * time.Hour

// DefaultCurrency applies when a raw listing carries none.
const DefaultCurrency = "AOA"

// Result counts what one Write call did. Errors holds per-listing failures.
type Result struct {
	New       int
	Duplicate int
	Updated   int
	Errors    []error
}

// Writer stores raw listings from a single source sequentially.
type Writer struct {
	store    model.ListingStore
	dedup    *dedup.Deduplicator
	resolver *normalize.ProvinceResolver
	ttl      time.Duration
	loc      *time.Location
	logger   *slog.Logger
}

// New creates a Writer. A zero ttl falls back to DefaultListingTTL and a nil
// loc to UTC; loc decides the calendar date of computed expirations.
func New(store model.ListingStore, resolver *normalize.ProvinceResolver, ttl time.Duration, loc *time.Location, logger *slog.Logger) *Writer {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Writer{
		store:    store,
		dedup:    dedup.New(store),
		resolver: resolver,
		ttl:      ttl,
		loc:      loc,
		logger:   logger,
	}
}

// Write processes raws in order. It never aborts on a listing-level failure;
// those are appended to Result.Errors.
func (w *Writer) Write(ctx context.Context, src model.Source, raws []model.RawListing, collectedAt time.Time) Result {
	var res Result
	for _, raw := range raws {
		if err := w.writeOne(ctx, src, raw, collectedAt, &res); err != nil {
			w.logger.Debug("listing skipped", "source", src.Name, "title", raw.Title, "error", err)
			res.Errors = append(res.Errors, err)
		}
	}
	return res
}

func (w *Writer) writeOne(ctx context.Context, src model.Source, raw model.RawListing, collectedAt time.Time, res *Result) error {
	province, err := w.resolver.Resolve(raw.Location)
	if err != nil {
		return err
	}

	fingerprint := dedup.Fingerprint(raw.Title, raw.Company, raw.Location)

	existing, err := w.dedup.IsDuplicate(ctx, fingerprint)
	if err != nil {
		return &model.WriteError{Title: raw.Title, Err: err}
	}
	if existing != nil {
		return w.linkDuplicate(ctx, src, *existing, raw, collectedAt, res)
	}

	listing := w.buildListing(raw, province, fingerprint, collectedAt)
	err = w.store.InsertListing(ctx, listing)
	if errors.Is(err, model.ErrDuplicateFingerprint) {
		// Another writer inserted the same fingerprint after our lookup.
		existing, lookupErr := w.dedup.IsDuplicate(ctx, fingerprint)
		if lookupErr != nil {
			return &model.WriteError{Title: raw.Title, Err: lookupErr}
		}
		if existing == nil {
			return &model.WriteError{Title: raw.Title, Err: err}
		}
		return w.linkDuplicate(ctx, src, *existing, raw, collectedAt, res)
	}
	if err != nil {
		return &model.WriteError{Title: raw.Title, Err: err}
	}

	if err := w.store.LinkSource(ctx, model.SourceListingLink{
		SourceID:    src.ID,
		ListingID:   listing.ID,
		CollectedAt: collectedAt,
	}); err != nil {
		return &model.WriteError{Title: raw.Title, Err: err}
	}
	res.New++
	return nil
}

func (w *Writer) linkDuplicate(ctx context.Context, src model.Source, existing model.Listing, raw model.RawListing, collectedAt time.Time, res *Result) error {
	if err := w.store.LinkSource(ctx, model.SourceListingLink{
		SourceID:    src.ID,
		ListingID:   existing.ID,
		CollectedAt: collectedAt,
	}); err != nil {
		return &model.WriteError{Title: raw.Title, Err: err}
	}
	res.Duplicate++

	desc := strings.TrimSpace(raw.Description)
	if strings.TrimSpace(existing.Description) == "" && desc != "" {
		if err := w.store.UpdateListingDescription(ctx, existing.ID, desc); err != nil {
			return &model.WriteError{Title: raw.Title, Err: err}
		}
		res.Updated++
	}
	return nil
}

func (w *Writer) buildListing(raw model.RawListing, province model.Province, fingerprint string, collectedAt time.Time) model.Listing {
	currency := strings.TrimSpace(raw.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}
	return model.Listing{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(raw.Title),
		Company:      strings.TrimSpace(raw.Company),
		Location:     strings.TrimSpace(raw.Location),
		ProvinceID:   province.ID,
		Description:  strings.TrimSpace(raw.Description),
		Requirements: raw.Requirements,
		ContractType: normalize.ContractType(raw.ContractType),
		SalaryMin:    raw.SalaryMin,
		SalaryMax:    raw.SalaryMax,
		Currency:     currency,
		SourceURL:    raw.SourceURL,
		ContactEmail: raw.ContactEmail,
		CollectedAt:  collectedAt,
		PublishedAt:  raw.PublishedAt,
		ExpiresAt:    w.expiration(raw, collectedAt),
		Active:       true,
		Fingerprint:  fingerprint,
	}
}

// expiration returns the calendar date (in the writer's location) on which
// the listing stops being current.
func (w *Writer) expiration(raw model.RawListing, collectedAt time.Time) *time.Time {
	var t time.Time
	switch {
	case raw.ExpiresAt != nil:
		// Already a calendar date as published; keep its day.
		t = *raw.ExpiresAt
	case raw.PublishedAt != nil:
		t = raw.PublishedAt.Add(w.ttl).In(w.loc)
	default:
		t = collectedAt.Add(w.ttl).In(w.loc)
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, w.loc)
	return &d
}
