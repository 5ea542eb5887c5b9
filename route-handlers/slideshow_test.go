package routehandlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/UoMCS/bigscreen/models"
	"github.com/UoMCS/bigscreen/placement"
	rh "github.com/UoMCS/bigscreen/route-handlers"
	"github.com/UoMCS/bigscreen/slideshow"
	"github.com/UoMCS/bigscreen/webutil"
)

type stubService struct {
	plan     *models.PlacementPlan
	err      error
	rebuilds int
}

func (s *stubService) Current(context.Context) (*models.PlacementPlan, error) {
	return s.plan, s.err
}

func (s *stubService) Rebuild(context.Context) (*models.PlacementPlan, error) {
	s.rebuilds++
	return s.plan, s.err
}

type moduleNames []string

func (m moduleNames) Names() []string { return m }

var _ = Describe("SlideshowHandler", func() {
	var (
		service *stubService
		router  http.Handler
	)

	BeforeEach(func() {
		service = &stubService{plan: &models.PlacementPlan{
			Seed:        42,
			Slides:      []string{"<p>a</p>", "<p>b</p>", "<p>a</p>"},
			GeneratedAt: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
			Reports: []models.SourceReport{
				{SourceID: 1, Name: "News", ModuleName: "feed", SlideCount: 2},
				{SourceID: 2, Name: "Broken", ModuleName: "feed", Error: "timed out after 15s"},
			},
		}}
		h := rh.NewSlideshowHandler(service, moduleNames{"feed", "static"})

		r := chi.NewRouter()
		r.Get("/slideshow", webutil.MakeHandler(h.HandleGetSlideshow))
		r.Post("/slideshow/refresh", webutil.MakeHandler(h.HandleRefreshSlideshow))
		r.Get("/modules", webutil.MakeHandler(h.HandleGetModules))
		router = r
	})

	It("serves the current rotation with per-source reports", func() {
		rec := serve(router, http.MethodGet, "/slideshow", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var body struct {
			Seed    int64                 `json:"seed"`
			Count   int                   `json:"count"`
			Slides  []string              `json:"slides"`
			Sources []models.SourceReport `json:"sources"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Seed).To(Equal(int64(42)))
		Expect(body.Count).To(Equal(3))
		Expect(body.Slides).To(Equal([]string{"<p>a</p>", "<p>b</p>", "<p>a</p>"}))
		Expect(body.Sources).To(HaveLen(2))
		Expect(body.Sources[1].Error).To(Equal("timed out after 15s"))
	})

	It("renders an empty rotation as empty lists", func() {
		service.plan = &models.PlacementPlan{}
		rec := serve(router, http.MethodGet, "/slideshow", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"slides":[]`))
		Expect(rec.Body.String()).To(ContainSubstring(`"sources":[]`))
	})

	It("rebuilds on refresh", func() {
		rec := serve(router, http.MethodPost, "/slideshow/refresh", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(service.rebuilds).To(Equal(1))
	})

	It("hides placement failures behind a generic message", func() {
		service.err = fmt.Errorf("failed to place 3 slides: %w", &placement.InternalError{Slot: 2, Reason: "slot left empty"})
		rec := serve(router, http.MethodGet, "/slideshow", "")
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(errorMessage(rec)).To(Equal("unable to build slideshow"))
	})

	It("reports a failed aggregation run as an unavailable slideshow", func() {
		service.err = fmt.Errorf("%w: failed to aggregate slides: %w", slideshow.ErrUnavailable, errors.New("registry offline"))
		rec := serve(router, http.MethodGet, "/slideshow", "")
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(errorMessage(rec)).To(Equal("unable to build slideshow"))
	})

	It("lists the registered modules", func() {
		rec := serve(router, http.MethodGet, "/modules", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"modules":["feed","static"]}`))
	})
})
