package model

import (
	"context"
	"time"
)

// SourceStore persists the source registry.
type SourceStore interface {
	ListSources(ctx context.Context) ([]Source, error)
	GetSource(ctx context.Context, id string) (Source, error)
	CreateSource(ctx context.Context, src Source) error
	UpdateSourceSchedule(ctx context.Context, id string, lastCollected, nextDue time.Time) error
}

// ListingStore persists canonical listings and their source links.
type ListingStore interface {
	// FindByFingerprint returns nil, nil when no listing has the fingerprint.
	FindByFingerprint(ctx context.Context, fingerprint string) (*Listing, error)
	// InsertListing returns ErrDuplicateFingerprint when the uniqueness
	// constraint on the fingerprint rejects the row.
	InsertListing(ctx context.Context, l Listing) error
	UpdateListingDescription(ctx context.Context, id, description string) error
	// LinkSource is an upsert keyed on (source, listing).
	LinkSource(ctx context.Context, link SourceListingLink) error
	// DeactivateExpired flips ativa=false for active rows expiring before cutoff
	// (a date) and returns the affected rows.
	DeactivateExpired(ctx context.Context, cutoff time.Time) ([]Listing, error)
	ListListings(ctx context.Context, limit int) ([]Listing, error)
}

// RunLog records collection runs.
type RunLog interface {
	RecordRun(ctx context.Context, run CollectionRun) error
	ListRuns(ctx context.Context, limit int) ([]CollectionRun, error)
}

// ProvinceStore reads the province reference table.
type ProvinceStore interface {
	ListProvinces(ctx context.Context) ([]Province, error)
}

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n Notification) error
}

// Store is the full storage handle implemented by the sqlite and postgres
// backends. Components take the narrow interfaces above.
type Store interface {
	SourceStore
	ListingStore
	RunLog
	ProvinceStore
	NotificationStore
	Close() error
}
