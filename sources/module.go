// Package sources holds the slide producers and the static registry that
// maps a source's module name to its implementation.
package sources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/UoMCS/bigscreen/models"
)

// ErrUnknownModule is returned when a source names a module that was never
// registered.
var ErrUnknownModule = errors.New("unknown source module")

// Module is the adapter interface for slide producers.
// Implement this to add a new kind of source (feed, timeline, static, etc.).
type Module interface {
	// Name is the module name sources refer to (e.g. "feed").
	Name() string
	// GenerateSlides returns the slides this source wants shown right now.
	GenerateSlides(ctx context.Context, args models.Arguments) ([]models.CandidateSlide, error)
}

// FetchError wraps whatever went wrong while one source produced its slides.
type FetchError struct {
	SourceID   int64
	ModuleName string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("source %d (%s): %v", e.SourceID, e.ModuleName, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Registry is the fixed set of modules known to the process. It is built
// once at startup and only read afterwards.
type Registry struct {
	modules map[string]Module
}

// NewRegistry panics when two modules share a name.
func NewRegistry(modules ...Module) *Registry {
	byName := make(map[string]Module, len(modules))
	for _, m := range modules {
		if _, exists := byName[m.Name()]; exists {
			panic(fmt.Sprintf("sources: module %q registered twice", m.Name()))
		}
		byName[m.Name()] = m
	}
	return &Registry{modules: byName}
}

func (r *Registry) Resolve(name string) (Module, error) {
	m, ok := r.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	return m, nil
}

// Names lists the registered module names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// commonOptions are the arguments every producer understands.
type commonOptions struct {
	weight   int
	maxAge   time.Duration
	maxItems int
}

func parseCommonOptions(args models.Arguments) (commonOptions, error) {
	var (
		opts commonOptions
		err  error
	)
	if opts.weight, err = args.Int("weight", 1); err != nil {
		return opts, err
	}
	if opts.maxAge, err = args.Duration("max_age", 0); err != nil {
		return opts, err
	}
	if opts.maxItems, err = args.Int("max_items", 0); err != nil {
		return opts, err
	}
	if opts.maxItems < 0 {
		return opts, fmt.Errorf("argument max_items=%d must not be negative", opts.maxItems)
	}
	return opts, nil
}

// tooOld reports whether a dated item falls outside the max_age cutoff.
// Undated items are always kept.
func (o commonOptions) tooOld(published *time.Time, now time.Time) bool {
	if o.maxAge <= 0 || published == nil {
		return false
	}
	return now.Sub(*published) > o.maxAge
}

// full reports whether max_items slides have already been produced.
func (o commonOptions) full(count int) bool {
	return o.maxItems > 0 && count >= o.maxItems
}

func (o commonOptions) slide(body string) models.CandidateSlide {
	return models.CandidateSlide{Body: body, DuplicateWeight: o.weight}
}
