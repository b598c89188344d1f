package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/agregador/internal/api"
	"github.com/amishk599/agregador/internal/lock"
	"github.com/amishk599/agregador/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP API and the collection schedule",
	Long:  "Serves the HTTP endpoints and runs aggregation and expiry on their cron schedules; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"storage", cfg.Storage.Driver,
		"addr", cfg.HTTP.Addr,
		"aggregate", cfg.Schedule.Aggregate,
		"sweep", cfg.Schedule.Sweep,
		"timezone", cfg.Pipeline.Timezone,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if len(cfg.Sources) > 0 {
		seeds, err := seedSources(cfg.Sources)
		if err != nil {
			logger.Error("invalid source seeds", "error", err)
			os.Exit(1)
		}
		created, err := a.registry.Sync(ctx, seeds)
		if err != nil {
			logger.Error("seeding sources failed", "error", err)
			return err
		}
		logger.Info("sources seeded", "declared", len(seeds), "created", len(created))
	}

	var locker lock.Locker = lock.NopLocker{}
	if cfg.Lock.RedisURL != "" {
		client, err := lock.Dial(ctx, cfg.Lock.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			return err
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, cfg.Lock.TTL, logger)
		logger.Info("using redis run lock")
	}

	sched := scheduler.New(locker, cfg.Pipeline.Location, cfg.Schedule.RunOnStart, logger)
	if err := sched.Add("agregar-vagas", cfg.Schedule.Aggregate, func(ctx context.Context) error {
		_, err := a.aggregator.Run(ctx, "")
		return err
	}); err != nil {
		return err
	}
	if err := sched.Add("desativar-vagas-expiradas", cfg.Schedule.Sweep, func(ctx context.Context) error {
		_, err := a.sweeper.Sweep(ctx, time.Now())
		return err
	}); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.NewServer(a.aggregator, a.sweeper, a.dispatcher, version, logger).Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	schedCtx, cancelSched := context.WithCancel(ctx)
	defer cancelSched()
	schedDone := make(chan error, 1)
	go func() { schedDone <- sched.Run(schedCtx) }()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server failed", "error", err)
		}
	}

	cancelSched()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := <-schedDone; err != nil {
		logger.Error("scheduler error", "error", err)
	}

	logger.Info("goodbye")
	return nil
}
