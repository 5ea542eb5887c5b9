package routehandlers

import (
	"context"
	"net/http"
	"time"

	"github.com/UoMCS/bigscreen/models"
	"github.com/UoMCS/bigscreen/webutil"
)

type SlideshowService interface {
	Current(ctx context.Context) (*models.PlacementPlan, error)
	Rebuild(ctx context.Context) (*models.PlacementPlan, error)
}

type ModuleLister interface {
	Names() []string
}

type SlideshowHandler struct {
	Service SlideshowService
	Modules ModuleLister
}

func NewSlideshowHandler(service SlideshowService, modules ModuleLister) *SlideshowHandler {
	return &SlideshowHandler{Service: service, Modules: modules}
}

type slideshowResponse struct {
	Seed        int64                 `json:"seed"`
	GeneratedAt time.Time             `json:"generated_at"`
	Count       int                   `json:"count"`
	Slides      []string              `json:"slides"`
	Sources     []models.SourceReport `json:"sources"`
}

func newSlideshowResponse(plan *models.PlacementPlan) slideshowResponse {
	slides := plan.Slides
	if slides == nil {
		slides = []string{}
	}
	reports := plan.Reports
	if reports == nil {
		reports = []models.SourceReport{}
	}
	return slideshowResponse{
		Seed:        plan.Seed,
		GeneratedAt: plan.GeneratedAt,
		Count:       len(slides),
		Slides:      slides,
		Sources:     reports,
	}
}

// HandleGetSlideshow serves the current rotation. Errors that reach here are
// systemic; individual source failures only show up in the sources list.
func (h *SlideshowHandler) HandleGetSlideshow(w http.ResponseWriter, r *http.Request) error {
	plan, err := h.Service.Current(r.Context())
	if err != nil {
		return err
	}
	webutil.RespondWithJSON(w, http.StatusOK, newSlideshowResponse(plan))
	return nil
}

func (h *SlideshowHandler) HandleRefreshSlideshow(w http.ResponseWriter, r *http.Request) error {
	plan, err := h.Service.Rebuild(r.Context())
	if err != nil {
		return err
	}
	webutil.RespondWithJSON(w, http.StatusOK, newSlideshowResponse(plan))
	return nil
}

func (h *SlideshowHandler) HandleGetModules(w http.ResponseWriter, r *http.Request) error {
	webutil.RespondWithJSON(w, http.StatusOK, map[string][]string{"modules": h.Modules.Names()})
	return nil
}
