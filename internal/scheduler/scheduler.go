package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/agregador/internal/lock"
)

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

// Scheduler fires named jobs on cron specs. Each firing takes the job's lock
// first, so replicas sharing a Redis run it once; overlapping firings of the
// same job on one process are skipped.
type Scheduler struct {
	cron       *cron.Cron
	locker     lock.Locker
	logger     *slog.Logger
	jobs       []job
	runOnStart bool
}

// New creates a scheduler evaluating specs in loc.
func New(locker lock.Locker, loc *time.Location, runOnStart bool, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		locker:     locker,
		logger:     logger,
		runOnStart: runOnStart,
	}
}

// Add registers fn under name. The spec is validated immediately.
func (s *Scheduler) Add(name, spec string, fn func(ctx context.Context) error) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("schedule for %s: %w", name, err)
	}
	s.jobs = append(s.jobs, job{name: name, spec: spec, run: fn})
	return nil
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits for
// running jobs to finish. It returns nil on graceful shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, j := range s.jobs {
		if _, err := s.cron.AddFunc(j.spec, func() { s.fire(ctx, j) }); err != nil {
			return fmt.Errorf("registering %s: %w", j.name, err)
		}
	}

	s.logger.Info("starting scheduler", "jobs", len(s.jobs))

	if s.runOnStart {
		for _, j := range s.jobs {
			if ctx.Err() != nil {
				break
			}
			s.fire(ctx, j)
		}
	}

	s.cron.Start()
	<-ctx.Done()

	s.logger.Info("shutting down scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// fire runs j once under its lock.
func (s *Scheduler) fire(ctx context.Context, j job) {
	release, ok, err := s.locker.TryAcquire(ctx, j.name)
	if err != nil {
		s.logger.Error("lock unavailable, skipping run", "job", j.name, "error", err)
		return
	}
	if !ok {
		s.logger.Info("job held by another instance, skipping", "job", j.name)
		return
	}
	defer release()

	start := time.Now()
	if err := j.run(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", j.name, "error", err, "elapsed", time.Since(start))
		return
	}
	s.logger.Debug("scheduled job done", "job", j.name, "elapsed", time.Since(start))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
