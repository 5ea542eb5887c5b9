package aggregation

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/UoMCS/bigscreen/models"
	"github.com/UoMCS/bigscreen/sources"
)

type waitingModule struct{}

func (waitingModule) Name() string { return "waiting" }

func (waitingModule) GenerateSlides(ctx context.Context, _ models.Arguments) ([]models.CandidateSlide, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var _ = Describe("invoke", func() {
	var (
		agg *Aggregator
		src models.SlideSource
	)

	BeforeEach(func() {
		agg = New(nil, sources.NewRegistry(waitingModule{}), Options{FetchTimeout: 50 * time.Millisecond})
		src = models.SlideSource{ID: 1, Name: "waiting", ModuleName: "waiting", Enabled: true}
	})

	It("reports its own fetch timeout", func() {
		_, err := agg.invoke(context.Background(), src)
		Expect(err).To(MatchError("timed out after 50ms"))
	})

	It("reports the caller's deadline as it is", func() {
		agg.opts.FetchTimeout = time.Second
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		started := time.Now()
		_, err := agg.invoke(ctx, src)
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		Expect(err.Error()).NotTo(ContainSubstring("timed out after"))
		Expect(time.Since(started)).To(BeNumerically("<", time.Second))
	})

	It("reports the caller's cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := agg.invoke(ctx, src)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
})
