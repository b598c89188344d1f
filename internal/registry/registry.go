// Package registry decides which sources are due and advances their schedule.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/agregador/internal/model"
)

// Registry wraps the source store with scheduling rules.
type Registry struct {
	store           model.SourceStore
	defaultInterval time.Duration
}

// New returns a Registry. defaultInterval applies to sources stored with a
// zero polling interval.
func New(store model.SourceStore, defaultInterval time.Duration) *Registry {
	return &Registry{store: store, defaultInterval: defaultInterval}
}

// DueSources returns the active sources due at now, ordered by name. When
// sourceID is set, only that source is returned, whether due or not; unknown
// and inactive sources yield model.ErrSourceNotFound.
func (r *Registry) DueSources(ctx context.Context, now time.Time, sourceID string) ([]model.Source, error) {
	if sourceID != "" {
		src, err := r.store.GetSource(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		if !src.Active {
			return nil, fmt.Errorf("source %s is inactive: %w", sourceID, model.ErrSourceNotFound)
		}
		return []model.Source{src}, nil
	}

	all, err := r.store.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading source registry: %w", err)
	}
	var due []model.Source
	for _, src := range all {
		if src.IsDue(now) {
			due = append(due, src)
		}
	}
	return due, nil
}

// Advance records a run at runAt and schedules the next one.
func (r *Registry) Advance(ctx context.Context, src model.Source, runAt time.Time) error {
	interval := src.PollingInterval
	if interval <= 0 {
		interval = r.defaultInterval
	}
	return r.store.UpdateSourceSchedule(ctx, src.ID, runAt, runAt.Add(interval))
}

// Create validates and stores a new source, returning it with its ID set.
func (r *Registry) Create(ctx context.Context, src model.Source) (model.Source, error) {
	src.Name = strings.TrimSpace(src.Name)
	if src.Name == "" {
		return model.Source{}, errors.New("source name is required")
	}
	if _, err := model.ParseSourceType(string(src.Type)); err != nil {
		return model.Source{}, err
	}
	u, err := url.Parse(src.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.Source{}, fmt.Errorf("source url %q must be an absolute http(s) url", src.URL)
	}
	if len(src.Config) > 0 && !json.Valid(src.Config) {
		return model.Source{}, fmt.Errorf("source config: %w", model.ErrInvalidSourceConfig)
	}
	if src.PollingInterval <= 0 {
		src.PollingInterval = r.defaultInterval
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}

	if err := r.store.CreateSource(ctx, src); err != nil {
		return model.Source{}, err
	}
	return src, nil
}

// List returns every source, active or not.
func (r *Registry) List(ctx context.Context) ([]model.Source, error) {
	return r.store.ListSources(ctx)
}

// Sync creates each seed whose name is not yet registered and returns the
// created sources. Existing sources are left untouched.
func (r *Registry) Sync(ctx context.Context, seeds []model.Source) ([]model.Source, error) {
	existing, err := r.store.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading source registry: %w", err)
	}
	names := make(map[string]bool, len(existing))
	for _, src := range existing {
		names[strings.ToLower(src.Name)] = true
	}

	var created []model.Source
	for _, seed := range seeds {
		key := strings.ToLower(strings.TrimSpace(seed.Name))
		if names[key] {
			continue
		}
		src, err := r.Create(ctx, seed)
		if err != nil {
			return created, fmt.Errorf("source %q: %w", seed.Name, err)
		}
		names[key] = true
		created = append(created, src)
	}
	return created, nil
}
