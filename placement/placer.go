// Package placement arranges aggregated slides into the final rotation,
// repeating heavily weighted slides at evenly spaced positions.
package placement

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/UoMCS/bigscreen/models"
)

// randomAttemptsPerSlot bounds the seeded random probing inside a window,
// as a multiple of the window size, before falling back to a linear scan.
const randomAttemptsPerSlot = 4

// ErrPlacementInvariant is matched by every InternalError.
var ErrPlacementInvariant = errors.New("placement invariant violated")

// InternalError reports broken duplication-window arithmetic: a window with
// no free slot, or a slot left empty after placement. It is never a
// user-facing condition.
type InternalError struct {
	Slot   int
	Reason string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("placement invariant violated at slot %d: %s", e.Slot, e.Reason)
}

func (e *InternalError) Is(target error) bool {
	return target == ErrPlacementInvariant
}

// Placer builds placement plans. It holds no state between calls.
type Placer struct{}

func New() *Placer {
	return &Placer{}
}

// Copies is how many times a slide of the given weight appears in a rotation
// built from n candidate slides. It is never below one.
func Copies(weight, n int) int {
	if weight <= 1 {
		return 1
	}
	copies := n / weight
	if copies < 1 {
		return 1
	}
	return copies
}

// TotalLength is the number of output slots needed for the given slides:
// one per slide plus the extra copies of every duplicated slide.
func TotalLength(slides []models.CandidateSlide) int {
	n := len(slides)
	total := n
	for _, s := range slides {
		total += Copies(s.EffectiveWeight(), n) - 1
	}
	return total
}

// Place returns the rendered bodies of slides in rotation order. The same
// slides and seed always produce the same sequence.
func (p *Placer) Place(slides []models.CandidateSlide, seed int64) ([]string, error) {
	n := len(slides)
	total := TotalLength(slides)
	if total == 0 {
		return []string{}, nil
	}

	rng := rand.New(rand.NewSource(seed))

	// Canonical order first, so the plan depends only on the slides themselves
	// and not on which source produced them.
	shuffled := make([]models.CandidateSlide, n)
	copy(shuffled, slides)
	sort.SliceStable(shuffled, func(i, j int) bool {
		if shuffled[i].Body != shuffled[j].Body {
			return shuffled[i].Body < shuffled[j].Body
		}
		return shuffled[i].EffectiveWeight() < shuffled[j].EffectiveWeight()
	})
	rng.Shuffle(n, func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	layout := newBoard(total)
	placed := make([]bool, n)

	// Slides with the most copies have the tightest windows; place them first.
	duplicated := make([]int, 0, n)
	for i := range shuffled {
		if Copies(shuffled[i].EffectiveWeight(), n) > 1 {
			duplicated = append(duplicated, i)
		}
	}
	sort.SliceStable(duplicated, func(a, b int) bool {
		return Copies(shuffled[duplicated[a]].EffectiveWeight(), n) > Copies(shuffled[duplicated[b]].EffectiveWeight(), n)
	})

	for _, i := range duplicated {
		copies := Copies(shuffled[i].EffectiveWeight(), n)
		for k := 0; k < copies; k++ {
			start, end := Window(total, copies, k)
			if err := layout.place(&shuffled[i], window{start: start, end: end}, rng); err != nil {
				return nil, err
			}
		}
		placed[i] = true
	}
	slots := layout.slots

	next := 0
	for slot := range slots {
		if slots[slot] != nil {
			continue
		}
		for next < n && placed[next] {
			next++
		}
		if next == n {
			return nil, &InternalError{Slot: slot, Reason: "ran out of slides to fill remaining slots"}
		}
		slots[slot] = &shuffled[next]
		placed[next] = true
	}

	bodies := make([]string, total)
	for slot, s := range slots {
		if s == nil {
			return nil, &InternalError{Slot: slot, Reason: "slot left empty"}
		}
		bodies[slot] = s.Body
	}
	return bodies, nil
}

// Window returns the bounds of window k when total slots are split into
// copies windows. Window sizes differ by at most one slot and the last
// window ends exactly at total.
func Window(total, copies, k int) (start, end int) {
	return k * total / copies, (k + 1) * total / copies
}

type window struct {
	start, end int
}

// board tracks which duplicate copy holds each slot and the window that copy
// is confined to.
type board struct {
	slots   []*models.CandidateSlide
	owners  []window
	visited []bool
}

func newBoard(total int) *board {
	return &board{
		slots:   make([]*models.CandidateSlide, total),
		owners:  make([]window, total),
		visited: make([]bool, total),
	}
}

// place puts one copy of slide inside w. When w is already full, copies
// placed earlier are moved to other free slots of their own windows to make
// room. Every copy stays inside its window.
func (b *board) place(slide *models.CandidateSlide, w window, rng *rand.Rand) error {
	if w.start < 0 || w.end > len(b.slots) || w.end <= w.start {
		return &InternalError{Slot: w.start, Reason: fmt.Sprintf("empty window [%d, %d)", w.start, w.end)}
	}
	if slot, ok := freeSlot(b.slots, w.start, w.end, rng); ok {
		b.put(slot, slide, w)
		return nil
	}

	for i := range b.visited {
		b.visited[i] = false
	}
	if b.relocate(slide, w) {
		return nil
	}
	return &InternalError{Slot: w.start, Reason: fmt.Sprintf("no free slot left for window [%d, %d)", w.start, w.end)}
}

// relocate finds a slot in w for slide, recursively moving the copy that
// holds it. Each slot is tried at most once per search.
func (b *board) relocate(slide *models.CandidateSlide, w window) bool {
	for slot := w.start; slot < w.end; slot++ {
		if b.visited[slot] {
			continue
		}
		b.visited[slot] = true
		if b.slots[slot] == nil || b.relocate(b.slots[slot], b.owners[slot]) {
			b.put(slot, slide, w)
			return true
		}
	}
	return false
}

func (b *board) put(slot int, slide *models.CandidateSlide, w window) {
	b.slots[slot] = slide
	b.owners[slot] = w
}

// freeSlot picks an empty slot in [start, end) at random, falling back to the
// first empty slot once the bounded random attempts are used up. It reports
// false when the window is full.
func freeSlot(slots []*models.CandidateSlide, start, end int, rng *rand.Rand) (int, bool) {
	size := end - start
	if size <= 0 {
		return 0, false
	}
	for attempt := 0; attempt < randomAttemptsPerSlot*size; attempt++ {
		slot := start + rng.Intn(size)
		if slots[slot] == nil {
			return slot, true
		}
	}
	for slot := start; slot < end; slot++ {
		if slots[slot] == nil {
			return slot, true
		}
	}
	return 0, false
}
