// Package collector turns configured sources into raw listings. One strategy
// exists per source type; Registry dispatches on Source.Type.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/amishk599/agregador/internal/model"
)

var (
	_ model.Collector = (*Registry)(nil)
	_ model.Collector = (*RSSCollector)(nil)
	_ model.Collector = (*APICollector)(nil)
	_ model.Collector = (*ScraperCollector)(nil)
)

// Registry routes each source to the strategy registered for its type.
type Registry struct {
	strategies map[model.SourceType]model.Collector
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[model.SourceType]model.Collector)}
}

// Register binds a strategy to a source type, replacing any previous one.
func (r *Registry) Register(t model.SourceType, c model.Collector) {
	r.strategies[t] = c
}

// Collect implements model.Collector.
func (r *Registry) Collect(ctx context.Context, src model.Source) ([]model.RawListing, error) {
	c, ok := r.strategies[src.Type]
	if !ok {
		return nil, &model.CollectionError{
			SourceID: src.ID,
			Err:      fmt.Errorf("no collector for type %q: %w", src.Type, model.ErrInvalidSourceConfig),
		}
	}
	return c.Collect(ctx, src)
}

// NewDefaultRegistry wires the three built-in strategies around one client.
func NewDefaultRegistry(client *http.Client, userAgent string, opts ...ScraperOption) *Registry {
	r := NewRegistry()
	r.Register(model.SourceRSS, NewRSSCollector(client, userAgent))
	r.Register(model.SourceAPI, NewAPICollector(client, userAgent))
	r.Register(model.SourceScraper, NewScraperCollector(client, userAgent, opts...))
	return r
}

// decodeConfig unmarshals a source's free-form config into dst. An empty
// config leaves dst at its zero value.
func decodeConfig(src model.Source, dst any) error {
	if len(src.Config) == 0 {
		return nil
	}
	if err := json.Unmarshal(src.Config, dst); err != nil {
		return configError(src, "decoding config: %v", err)
	}
	return nil
}

func configError(src model.Source, format string, args ...any) error {
	return &model.CollectionError{
		SourceID: src.ID,
		Err:      fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), model.ErrInvalidSourceConfig),
	}
}

func collectionError(src model.Source, err error) error {
	return &model.CollectionError{SourceID: src.ID, Err: err}
}

func userAgentHeader(userAgent string) http.Header {
	h := make(http.Header)
	if userAgent != "" {
		h.Set("User-Agent", userAgent)
	}
	return h
}
