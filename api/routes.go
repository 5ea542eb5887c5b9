package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rh "github.com/UoMCS/bigscreen/route-handlers"
	"github.com/UoMCS/bigscreen/webutil"
)

const (
	apiBasePath       = "/api"
	sourcesBasePath   = "/sources"
	slideshowBasePath = "/slideshow"
	modulesBasePath   = "/modules"
	schedulerTickPath = "/scheduler/tick"
)

const (
	refreshSubPath = "/refresh"
)

const (
	paramID = "id" // General parameter name for resource IDs
)

const requestTimeout = 60 * time.Second

func SetupRoutes(
	sourceHandler *rh.SourceHandler,
	slideshowHandler *rh.SlideshowHandler,
	tick http.HandlerFunc,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Log every request
	r.Use(middleware.Recoverer) // Recover from panics
	r.Use(Traced)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(SetHeader(webutil.HeaderContentType, webutil.ContentTypeJSONUTF8)) // Default Content-Type

	r.Route(apiBasePath, func(r chi.Router) {
		configureSourceRoutes(r, sourceHandler)
		configureSlideshowRoutes(r, slideshowHandler)
	})

	// Triggered by an external cron
	r.Post(schedulerTickPath, tick)

	// Health check endpoint
	r.Get("/healthz", handleHealthCheck)

	return r
}

// Helper for constructing paths with a parameter
func pathWithParam(basePath string, paramName string) string {
	if basePath == "" {
		return "/{" + paramName + "}"
	}
	return basePath + "/{" + paramName + "}"
}

// --- Slide Source Routes ---
func configureSourceRoutes(r chi.Router, handler *rh.SourceHandler) {
	specificSourcePath := pathWithParam("", paramID) // e.g., "/{id}"

	r.Route(sourcesBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetSources))
		r.Post("/", webutil.MakeHandler(handler.HandleCreateSource))
		r.Route(specificSourcePath, func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(handler.HandleGetSourceByID))
			r.Put("/", webutil.MakeHandler(handler.HandleUpdateSource))
			r.Delete("/", webutil.MakeHandler(handler.HandleDeleteSource))
		})
	})
}

// --- Slideshow Routes ---
func configureSlideshowRoutes(r chi.Router, handler *rh.SlideshowHandler) {
	r.Route(slideshowBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetSlideshow))
		r.Post(refreshSubPath, webutil.MakeHandler(handler.HandleRefreshSlideshow)) // POST /slideshow/refresh
	})
	r.Get(modulesBasePath, webutil.MakeHandler(handler.HandleGetModules))
}

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
