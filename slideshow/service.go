// Package slideshow turns an aggregation run into the placement plan shown
// on screens, optionally reusing a recently built plan.
package slideshow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/UoMCS/bigscreen/models"
)

// defaultBuildTimeout bounds a shared build, which no single request owns.
const defaultBuildTimeout = time.Minute

// ErrUnavailable marks a rebuild whose aggregation pass failed as a whole.
var ErrUnavailable = errors.New("slideshow unavailable")

type Aggregator interface {
	Aggregate(ctx context.Context) (*models.AggregatedSlideSet, error)
}

type Placer interface {
	Place(slides []models.CandidateSlide, seed int64) ([]string, error)
}

// Service builds placement plans. It is safe for concurrent use; concurrent
// cache misses share a single build.
type Service struct {
	aggregator Aggregator
	placer     Placer
	cache      PlanCache
	now        func() time.Time
	group      singleflight.Group

	buildTimeout time.Duration
}

func NewService(aggregator Aggregator, placer Placer, cache PlanCache) *Service {
	if cache == nil {
		cache = NoCache{}
	}
	return &Service{
		aggregator:   aggregator,
		placer:       placer,
		cache:        cache,
		now:          time.Now,
		buildTimeout: defaultBuildTimeout,
	}
}

// Current returns the cached plan when there is a fresh one and builds a new
// plan otherwise. Cache failures are logged and treated as a miss.
func (s *Service) Current(ctx context.Context) (*models.PlacementPlan, error) {
	plan, err := s.cache.Get(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Plan cache read failed, rebuilding", "error", err)
	}
	if plan != nil {
		return plan, nil
	}

	// The build outlives any one waiting request.
	buildCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("current", func() (any, error) {
		ctx, cancel := context.WithTimeout(buildCtx, s.buildTimeout)
		defer cancel()
		return s.Rebuild(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.PlacementPlan), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Rebuild always aggregates and places afresh, then replaces the cached plan.
func (s *Service) Rebuild(ctx context.Context) (*models.PlacementPlan, error) {
	set, err := s.aggregator.Aggregate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to aggregate slides: %w", ErrUnavailable, err)
	}

	bodies, err := s.placer.Place(set.Slides, set.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to place %d slides: %w", len(set.Slides), err)
	}

	plan := &models.PlacementPlan{
		Seed:        set.Seed,
		Slides:      bodies,
		GeneratedAt: s.now().UTC(),
		Reports:     set.Reports,
	}
	if err := s.cache.Set(ctx, plan); err != nil {
		slog.WarnContext(ctx, "Plan cache write failed", "error", err)
	}
	return plan, nil
}

func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}
