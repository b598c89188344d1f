// Package sweeper deactivates listings whose expiration date has passed.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/agregador/internal/model"
)

// Sweeper compares expiration dates against the calendar date in loc.
type Sweeper struct {
	store  model.ListingStore
	loc    *time.Location
	logger *slog.Logger
}

// New returns a Sweeper. A nil loc means UTC.
func New(store model.ListingStore, loc *time.Location, logger *slog.Logger) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	return &Sweeper{store: store, loc: loc, logger: logger}
}

// Sweep deactivates active listings expiring strictly before now's date and
// returns them. Running it again without new expirations is a no-op.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) ([]model.Listing, error) {
	today := Today(now, s.loc)
	expired, err := s.store.DeactivateExpired(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("sweeping expired listings: %w", err)
	}

	for _, l := range expired {
		s.logger.Debug("listing expired", "id", l.ID, "title", l.Title, "expires", l.ExpiresAt)
	}
	s.logger.Info("sweep complete", "date", today.Format(time.DateOnly), "deactivated", len(expired))
	return expired, nil
}

// Today returns midnight of now's calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	t := now.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
