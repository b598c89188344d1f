// Package pipeline runs one aggregation pass: for each due source, collect,
// write, record the run and advance its schedule.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/agregador/internal/model"
	"github.com/amishk599/agregador/internal/registry"
	"github.com/amishk599/agregador/internal/writer"
)

// SourceResult is the outcome for one source in a pass.
type SourceResult struct {
	SourceID   string
	SourceName string
	Status     model.RunStatus
	New        int
	Duplicate  int
	Updated    int
	Elapsed    time.Duration
	Errors     []string
}

// Report summarizes a pass over all due sources.
type Report struct {
	Elapsed   time.Duration
	Sources   int
	New       int
	Duplicate int
	Results   []SourceResult
}

// Aggregator owns the per-source pipeline.
type Aggregator struct {
	registry  *registry.Registry
	collector model.Collector
	writer    *writer.Writer
	runs      model.RunLog
	logger    *slog.Logger
	now       func() time.Time
}

// NewAggregator wires an Aggregator from its collaborators.
func NewAggregator(
	reg *registry.Registry,
	collector model.Collector,
	w *writer.Writer,
	runs model.RunLog,
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		registry:  reg,
		collector: collector,
		writer:    w,
		runs:      runs,
		logger:    logger,
		now:       time.Now,
	}
}

// Run processes the due sources, or only sourceID when set. The returned
// error is non-nil only when the registry could not be read, or when ctx was
// cancelled between sources; per-source failures land in the Report.
func (a *Aggregator) Run(ctx context.Context, sourceID string) (Report, error) {
	start := a.now()

	sources, err := a.registry.DueSources(ctx, start, sourceID)
	if err != nil {
		return Report{}, err
	}

	report := Report{Results: make([]SourceResult, 0, len(sources))}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			report.Elapsed = a.now().Sub(start)
			return report, fmt.Errorf("aggregation interrupted: %w", err)
		}

		res := a.runSource(ctx, src)
		report.Results = append(report.Results, res)
		report.Sources++
		report.New += res.New
		report.Duplicate += res.Duplicate
	}
	report.Elapsed = a.now().Sub(start)

	a.logger.Info("aggregation complete",
		"sources", report.Sources,
		"new", report.New,
		"duplicate", report.Duplicate,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

func (a *Aggregator) runSource(ctx context.Context, src model.Source) SourceResult {
	runAt := a.now()
	res := SourceResult{SourceID: src.ID, SourceName: src.Name, Status: model.RunSuccess}

	raws, err := a.collector.Collect(ctx, src)
	if err != nil {
		res.Status = model.RunError
		res.Errors = []string{err.Error()}
		a.logger.Error("collection failed", "source", src.Name, "source_id", src.ID, "error", err)
	} else {
		wr := a.writer.Write(ctx, src, raws, runAt)
		res.New, res.Duplicate, res.Updated = wr.New, wr.Duplicate, wr.Updated
		for _, e := range wr.Errors {
			res.Errors = append(res.Errors, e.Error())
		}
		if len(wr.Errors) > 0 {
			res.Status = model.RunPartial
		}
	}
	res.Elapsed = a.now().Sub(runAt)

	run := model.CollectionRun{
		SourceID:  src.ID,
		Status:    res.Status,
		New:       res.New,
		Duplicate: res.Duplicate,
		Updated:   res.Updated,
		Elapsed:   res.Elapsed,
		Error:     firstError(res.Errors),
		Metadata: model.RunMetadata{
			Errors:    res.Errors,
			Collected: len(raws),
			Source:    src.Name,
		},
		StartedAt: runAt,
	}
	if err := a.runs.RecordRun(ctx, run); err != nil {
		a.logger.Error("recording run failed", "source", src.Name, "error", err)
	}

	// Failed sources advance too, so a broken source waits a full interval.
	if err := a.registry.Advance(ctx, src, runAt); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("advancing source failed", "source", src.Name, "error", err)
	}

	a.logger.Info("source processed",
		"source", src.Name,
		"status", res.Status,
		"new", res.New,
		"duplicate", res.Duplicate,
		"updated", res.Updated,
		"errors", len(res.Errors),
		"elapsed", res.Elapsed,
	)
	return res
}

func firstError(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	return errs[0]
}
