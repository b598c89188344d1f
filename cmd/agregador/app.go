package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/agregador/internal/collector"
	"github.com/amishk599/agregador/internal/config"
	"github.com/amishk599/agregador/internal/model"
	"github.com/amishk599/agregador/internal/normalize"
	"github.com/amishk599/agregador/internal/notifier"
	"github.com/amishk599/agregador/internal/pipeline"
	"github.com/amishk599/agregador/internal/ratelimit"
	"github.com/amishk599/agregador/internal/registry"
	"github.com/amishk599/agregador/internal/retry"
	"github.com/amishk599/agregador/internal/store"
	"github.com/amishk599/agregador/internal/sweeper"
	"github.com/amishk599/agregador/internal/writer"
)

// app is the fully wired service shared by the subcommands.
type app struct {
	store      model.Store
	registry   *registry.Registry
	aggregator *pipeline.Aggregator
	sweeper    *sweeper.Sweeper
	dispatcher *notifier.Dispatcher
}

func openStore(ctx context.Context, cfg *config.Config) (model.Store, error) {
	if cfg.Storage.Driver == "postgres" {
		if err := store.MigrateUp(cfg.Storage.DatabaseURL); err != nil {
			return nil, err
		}
	}
	s, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provinces, err := st.ListProvinces(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load provinces: %w", err)
	}
	resolver, err := normalize.NewProvinceResolver(provinces, cfg.Pipeline.DefaultProvince)
	if err != nil {
		st.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Collector.Timeout}
	// Shared host-level limiter: sources and scraper detail pages on the same
	// host share one budget.
	limiter := ratelimit.NewHostRateLimiter(cfg.Collector.MinDelay)
	var c model.Collector = collector.NewDefaultRegistry(httpClient, cfg.Pipeline.UserAgent,
		collector.WithScraperLogger(logger), collector.WithScraperLimiter(limiter))
	c = ratelimit.NewRateLimitedCollector(c, limiter)
	c = retry.NewRetryCollector(c, cfg.Collector.MaxRetries, cfg.Collector.BaseDelay, logger)

	loc := cfg.Pipeline.Location
	reg := registry.New(st, cfg.Pipeline.DefaultInterval)
	w := writer.New(st, resolver, cfg.Pipeline.ListingTTL, loc, logger)

	mailer := setupMailer(cfg, &http.Client{Timeout: 30 * time.Second}, logger)

	return &app{
		store:      st,
		registry:   reg,
		aggregator: pipeline.NewAggregator(reg, c, w, st, logger),
		sweeper:    sweeper.New(st, loc, logger),
		dispatcher: notifier.NewDispatcher(mailer, st, logger),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
