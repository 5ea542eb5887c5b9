package webutil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/UoMCS/bigscreen/datastore"
	"github.com/UoMCS/bigscreen/placement"
	"github.com/UoMCS/bigscreen/slideshow"
)

const msgSlideshowUnavailable = "unable to build slideshow"

// AppHandler is a handler that returns its error instead of writing it.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts an AppHandler to http.HandlerFunc, logging any returned
// error and turning it into a JSON error response.
func MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracked := &headerTracker{ResponseWriter: w}
		err := handler(tracked, r)
		if err == nil {
			return
		}

		var httpErr *HTTPError
		var publicMessage string
		var statusCode int

		switch {
		case errors.As(err, &httpErr):
			statusCode = httpErr.Code
			publicMessage = httpErr.Message
			logLevel := slog.LevelWarn
			if statusCode >= 500 {
				logLevel = slog.LevelError
			}
			attrs := []any{"code", httpErr.Code, "msg", httpErr.Message, "path", r.URL.Path, "method", r.Method}
			if cause := errors.Unwrap(httpErr); cause != nil && cause.Error() != publicMessage {
				attrs = append(attrs, "cause", cause)
			}
			slog.Log(r.Context(), logLevel, "Client error response", attrs...)

		case errors.Is(err, datastore.ErrSourceNotFound):
			statusCode = http.StatusNotFound
			publicMessage = msgNotFound
			slog.InfoContext(r.Context(), "Resource not found", "path", r.URL.Path, "method", r.Method, "error", err)

		case errors.Is(err, datastore.ErrReadOnly):
			statusCode = http.StatusMethodNotAllowed
			publicMessage = datastore.ErrReadOnly.Error()
			slog.InfoContext(r.Context(), "Write to read-only source registry", "path", r.URL.Path, "method", r.Method)

		case errors.Is(err, placement.ErrPlacementInvariant):
			statusCode = http.StatusInternalServerError
			publicMessage = msgSlideshowUnavailable
			slog.ErrorContext(r.Context(), "Placement invariant violated", "path", r.URL.Path, "method", r.Method, "error", err)

		case errors.Is(err, slideshow.ErrUnavailable):
			statusCode = http.StatusInternalServerError
			publicMessage = msgSlideshowUnavailable
			slog.ErrorContext(r.Context(), "Slideshow could not be built", "path", r.URL.Path, "method", r.Method, "error", err)

		default:
			statusCode = http.StatusInternalServerError
			publicMessage = msgInternalServer
			slog.ErrorContext(r.Context(), "Unhandled internal error", "path", r.URL.Path, "method", r.Method, "error", err)
		}

		if tracked.wroteHeader {
			slog.WarnContext(r.Context(), "Handler returned error after writing response header",
				"path", r.URL.Path,
				"method", r.Method,
				"error", err,
			)
			return
		}

		RespondWithError(w, statusCode, publicMessage)
	}
}
