package routehandlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/UoMCS/bigscreen/models"
	"github.com/UoMCS/bigscreen/sources"
	"github.com/UoMCS/bigscreen/webutil"
)

// SourceStore is the admin view of the source registry. The YAML file
// registry answers every write with datastore.ErrReadOnly.
type SourceStore interface {
	GetSources(ctx context.Context) ([]models.SlideSource, error)
	GetSourceByID(ctx context.Context, sourceID int64) (*models.SlideSource, error)
	CreateSource(ctx context.Context, source *models.SlideSource) error
	UpdateSource(ctx context.Context, source *models.SlideSource) error
	DeleteSource(ctx context.Context, sourceID int64) error
}

type ModuleResolver interface {
	Resolve(name string) (sources.Module, error)
}

type SourceHandler struct {
	Repo    SourceStore
	Modules ModuleResolver
	NewID   func() int64
}

func NewSourceHandler(repo SourceStore, modules ModuleResolver, newID func() int64) *SourceHandler {
	return &SourceHandler{Repo: repo, Modules: modules, NewID: newID}
}

type sourceRequest struct {
	Name       string `json:"name"`
	ModuleName string `json:"module_name"`
	Arguments  string `json:"arguments"` // key=value;key=value
	Enabled    *bool  `json:"enabled"`
}

// validate checks the request and returns the parsed arguments.
func (h *SourceHandler) validate(req sourceRequest) (models.Arguments, error) {
	if req.Name == "" || req.ModuleName == "" {
		return nil, webutil.ErrBadRequest("Missing required fields (name, module_name)")
	}
	if _, err := h.Modules.Resolve(req.ModuleName); err != nil {
		if errors.Is(err, sources.ErrUnknownModule) {
			return nil, webutil.ErrBadRequest("Unknown module " + strconv.Quote(req.ModuleName))
		}
		return nil, err
	}
	args, err := models.ParseArguments(req.Arguments)
	if err != nil {
		return nil, webutil.ErrBadRequestWrap("Invalid arguments: "+err.Error(), err)
	}
	return args, nil
}

func decodeSourceRequest(r *http.Request) (sourceRequest, error) {
	var req sourceRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return req, webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	return req, nil
}

func sourceIDParam(r *http.Request) (int64, error) {
	sourceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || sourceID <= 0 {
		return 0, webutil.ErrBadRequest("Invalid source ID format")
	}
	return sourceID, nil
}

func (h *SourceHandler) HandleCreateSource(w http.ResponseWriter, r *http.Request) error {
	defer r.Body.Close()
	req, err := decodeSourceRequest(r)
	if err != nil {
		return err
	}
	args, err := h.validate(req)
	if err != nil {
		return err
	}

	newSource := models.SlideSource{
		ID:         h.NewID(),
		Name:       req.Name,
		ModuleName: req.ModuleName,
		Arguments:  args,
		Enabled:    req.Enabled == nil || *req.Enabled,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Repo.CreateSource(r.Context(), &newSource); err != nil {
		return err
	}

	slog.InfoContext(r.Context(), "Slide source created", "source_id", newSource.ID, "name", newSource.Name, "module", newSource.ModuleName)
	webutil.RespondWithJSON(w, http.StatusCreated, newSource)
	return nil
}

func (h *SourceHandler) HandleGetSources(w http.ResponseWriter, r *http.Request) error {
	all, err := h.Repo.GetSources(r.Context())
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to retrieve slide sources", err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, all)
	return nil
}

func (h *SourceHandler) HandleGetSourceByID(w http.ResponseWriter, r *http.Request) error {
	sourceID, err := sourceIDParam(r)
	if err != nil {
		return err
	}
	source, err := h.Repo.GetSourceByID(r.Context(), sourceID)
	if err != nil {
		return err
	}
	webutil.RespondWithJSON(w, http.StatusOK, source)
	return nil
}

// HandleUpdateSource replaces name, module and arguments. Enabled is kept
// unless the request sets it.
func (h *SourceHandler) HandleUpdateSource(w http.ResponseWriter, r *http.Request) error {
	defer r.Body.Close()
	sourceID, err := sourceIDParam(r)
	if err != nil {
		return err
	}
	req, err := decodeSourceRequest(r)
	if err != nil {
		return err
	}
	args, err := h.validate(req)
	if err != nil {
		return err
	}

	source, err := h.Repo.GetSourceByID(r.Context(), sourceID)
	if err != nil {
		return err
	}
	source.Name = req.Name
	source.ModuleName = req.ModuleName
	source.Arguments = args
	if req.Enabled != nil {
		source.Enabled = *req.Enabled
	}
	if err := h.Repo.UpdateSource(r.Context(), source); err != nil {
		return err
	}

	slog.InfoContext(r.Context(), "Slide source updated", "source_id", source.ID)
	webutil.RespondWithJSON(w, http.StatusOK, source)
	return nil
}

func (h *SourceHandler) HandleDeleteSource(w http.ResponseWriter, r *http.Request) error {
	sourceID, err := sourceIDParam(r)
	if err != nil {
		return err
	}
	if err := h.Repo.DeleteSource(r.Context(), sourceID); err != nil {
		return err
	}

	slog.InfoContext(r.Context(), "Slide source deleted", "source_id", sourceID)
	w.WriteHeader(http.StatusNoContent)
	return nil
}
