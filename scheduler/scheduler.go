package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/UoMCS/bigscreen/models"
)

// PlanBuilder rebuilds the shared placement plan.
type PlanBuilder interface {
	Rebuild(ctx context.Context) (*models.PlacementPlan, error)
}

// Scheduler refreshes the cached slideshow on an external trigger, so screens
// pick up new content without waiting for the cache to expire.
type Scheduler struct {
	builder PlanBuilder
}

func New(builder PlanBuilder) *Scheduler {
	return &Scheduler{builder: builder}
}

// HandleTick is an HTTP handler that triggers a scheduler tick.
// Used by cron jobs or manual curl requests.
func (s *Scheduler) HandleTick(w http.ResponseWriter, r *http.Request) {
	slog.InfoContext(r.Context(), "Scheduler tick triggered via HTTP")

	plan, err := s.Tick(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Scheduler tick failed", "error", err)
		http.Error(w, "scheduler tick failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK: rebuilt slideshow with %d slides from %d sources", len(plan.Slides), len(plan.Reports))
}

// Tick runs a single refresh cycle.
func (s *Scheduler) Tick(ctx context.Context) (*models.PlacementPlan, error) {
	plan, err := s.builder.Rebuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild slideshow: %w", err)
	}

	failed := 0
	for _, report := range plan.Reports {
		if !report.Succeeded() {
			failed++
		}
	}
	slog.InfoContext(ctx, "Scheduler tick complete",
		"slides", len(plan.Slides),
		"sources", len(plan.Reports),
		"failed_sources", failed,
	)
	return plan, nil
}
