package models

import "time"

// CandidateSlide is one unit of content produced by a source module.
// Body is opaque rendered markup; the aggregation core only moves it around.
type CandidateSlide struct {
	Body string `json:"body"`
	// DuplicateWeight w asks for the slide to appear roughly n/w times in a
	// rotation of n slides. 1 (or anything lower) means exactly once.
	DuplicateWeight int   `json:"duplicate_weight"`
	SourceID        int64 `json:"source_id"`
}

// EffectiveWeight floors non-positive weights to 1.
func (s CandidateSlide) EffectiveWeight() int {
	if s.DuplicateWeight < 1 {
		return 1
	}
	return s.DuplicateWeight
}

// SourceReport records the outcome of invoking one source during a run.
type SourceReport struct {
	SourceID   int64         `json:"source_id"`
	Name       string        `json:"name"`
	ModuleName string        `json:"module"`
	SlideCount int           `json:"slides"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
}

// Succeeded reports whether the source produced a usable result.
func (r SourceReport) Succeeded() bool {
	return r.Error == ""
}

// AggregatedSlideSet is everything one aggregation pass collected, in source
// iteration order, plus the content-derived seed used for placement.
type AggregatedSlideSet struct {
	RunID   string           `json:"run_id"`
	Slides  []CandidateSlide `json:"slides"`
	Seed    int64            `json:"seed"`
	Reports []SourceReport   `json:"sources"`
}

// PlacementPlan is the final ordered sequence of rendered slide bodies.
// Plans may be shared between requests through the plan cache and must be
// treated as read-only once built.
type PlacementPlan struct {
	Seed        int64          `json:"seed"`
	Slides      []string       `json:"slides"`
	GeneratedAt time.Time      `json:"generated_at"`
	Reports     []SourceReport `json:"sources"`
}
