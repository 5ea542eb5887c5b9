// Package aggregation runs every enabled slide source and gathers their
// slides into one set, isolating each source's failures from the rest.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/UoMCS/bigscreen/logger"
	"github.com/UoMCS/bigscreen/models"
	"github.com/UoMCS/bigscreen/sources"
	"github.com/UoMCS/bigscreen/telemetry"
)

const (
	defaultFetchTimeout   = 15 * time.Second
	defaultMaxConcurrency = 4
)

// SourceStore is the registry of configured sources.
type SourceStore interface {
	ListEnabledSources(ctx context.Context) ([]models.SlideSource, error)
	MarkChecked(ctx context.Context, sourceID int64, at time.Time) error
}

// ModuleResolver maps a module name to its implementation.
type ModuleResolver interface {
	Resolve(name string) (sources.Module, error)
}

type Options struct {
	// FetchTimeout bounds each source individually.
	FetchTimeout   time.Duration
	MaxConcurrency int
	Now            func() time.Time
}

type Aggregator struct {
	store   SourceStore
	modules ModuleResolver
	opts    Options
}

func New(store SourceStore, modules ModuleResolver, opts Options) *Aggregator {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{store: store, modules: modules, opts: opts}
}

type fetchResult struct {
	slides   []models.CandidateSlide
	err      error
	duration time.Duration
}

// Aggregate invokes every enabled source once. A source that fails, times out
// or panics contributes no slides and is reported. Failing to list the sources
// and the caller's ctx ending before the run completes are returned as errors.
func (a *Aggregator) Aggregate(ctx context.Context) (*models.AggregatedSlideSet, error) {
	runID := uuid.NewString()
	ctx = logger.WithLogFields(ctx, logger.LogFields{RunID: &runID, Component: "bigscreen.aggregation"})

	ctx, span := telemetry.Tracer().Start(ctx, "aggregation.Aggregate")
	defer span.End()

	configured, err := a.store.ListEnabledSources(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing sources failed")
		return nil, fmt.Errorf("failed to list enabled sources: %w", err)
	}

	results := make([]fetchResult, len(configured))
	p := pool.New().WithMaxGoroutines(a.opts.MaxConcurrency)
	for i := range configured {
		p.Go(func() {
			results[i] = a.fetch(ctx, configured[i])
		})
	}
	p.Wait()

	// A run cut short by the caller is not a partial result.
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation cancelled")
		return nil, fmt.Errorf("aggregation cancelled: %w", err)
	}

	set := &models.AggregatedSlideSet{
		RunID:   runID,
		Slides:  []models.CandidateSlide{},
		Reports: make([]models.SourceReport, 0, len(configured)),
	}
	failed := 0
	for i, src := range configured {
		res := results[i]
		report := models.SourceReport{
			SourceID:   src.ID,
			Name:       src.Name,
			ModuleName: src.ModuleName,
			Duration:   res.duration,
		}
		srcCtx := logger.WithLogFields(ctx, logger.LogFields{SourceID: &src.ID, ModuleName: &src.ModuleName})

		if res.err != nil {
			failed++
			report.Error = res.err.Error()
			slog.WarnContext(srcCtx, "Source failed, skipping its slides", "error", res.err, "duration", res.duration)
			set.Reports = append(set.Reports, report)
			continue
		}

		for _, slide := range res.slides {
			slide.SourceID = src.ID
			set.Slides = append(set.Slides, slide)
		}
		report.SlideCount = len(res.slides)
		set.Reports = append(set.Reports, report)

		if err := a.store.MarkChecked(srcCtx, src.ID, a.opts.Now()); err != nil {
			slog.WarnContext(srcCtx, "Failed to record source check time", "error", err)
		}
	}

	set.Seed = DeriveSeed(set.Slides)

	span.SetAttributes(
		attribute.String("aggregation.run_id", runID),
		attribute.Int("aggregation.sources", len(configured)),
		attribute.Int("aggregation.failed_sources", failed),
		attribute.Int("aggregation.slides", len(set.Slides)),
	)
	slog.InfoContext(ctx, "Aggregation finished",
		"sources", len(configured),
		"failed", failed,
		"slides", len(set.Slides),
		"seed", set.Seed,
	)
	return set, nil
}

// fetch runs one source under its own timeout. The module call happens on a
// separate goroutine so that a module ignoring its context still cannot hold
// up the run past the timeout.
func (a *Aggregator) fetch(ctx context.Context, src models.SlideSource) fetchResult {
	ctx, span := telemetry.Tracer().Start(ctx, "aggregation.fetch_source")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("source.id", src.ID),
		attribute.String("source.module", src.ModuleName),
	)

	started := time.Now()
	slides, err := a.invoke(ctx, src)
	res := fetchResult{slides: slides, duration: time.Since(started)}
	if err != nil {
		res.err = &sources.FetchError{SourceID: src.ID, ModuleName: src.ModuleName, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, "source failed")
		return res
	}
	span.SetAttributes(attribute.Int("source.slides", len(slides)))
	return res
}

func (a *Aggregator) invoke(ctx context.Context, src models.SlideSource) ([]models.CandidateSlide, error) {
	module, err := a.modules.Resolve(src.ModuleName)
	if err != nil {
		return nil, err
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, a.opts.FetchTimeout)
	defer cancel()

	type outcome struct {
		slides []models.CandidateSlide
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("module panicked: %v", r)}
			}
		}()
		slides, err := module.GenerateSlides(ctx, src.Arguments)
		done <- outcome{slides: slides, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() != nil {
			return nil, a.stopReason(parent, ctx)
		}
		return out.slides, out.err
	case <-ctx.Done():
		return nil, a.stopReason(parent, ctx)
	}
}

// stopReason tells the caller's cancellation apart from the source's own
// fetch timeout.
func (a *Aggregator) stopReason(parent, fetchCtx context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s", a.opts.FetchTimeout)
	}
	return fetchCtx.Err()
}
