// Package httpapi exposes the daemon's JSON API: provider status and
// lifecycle, sync control, search, browse and library access.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/logger"
	"github.com/medleyd/medley/internal/music"
	"github.com/medleyd/medley/internal/provider"
)

type Handler struct {
	Music    *music.Controller
	Registry *provider.Registry
	Logger   *logger.Logger
}

func NewHandler(mc *music.Controller, reg *provider.Registry, log *logger.Logger) *Handler {
	return &Handler{
		Music:    mc,
		Registry: reg,
		Logger:   log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/providers", h.GetProviders)
		r.Get("/providers/available", h.GetAvailableProviders)
		r.Post("/providers/{instance_id}/unload", h.UnloadProvider)
		r.Post("/providers/{instance_id}/cleanup", h.CleanupProvider)

		r.Post("/sync", h.StartSync)
		r.Get("/sync/tasks", h.GetSyncTasks)

		r.Get("/search", h.Search)
		r.Get("/browse", h.Browse)

		r.Get("/items", h.GetItemByURI)
		r.Get("/items/{media_type}/{item_id}", h.GetItem)
		r.Post("/items/{media_type}/{item_id}/refresh", h.RefreshItem)

		r.Get("/library/{media_type}", h.ListLibrary)
		r.Put("/library/{media_type}/{item_id}", h.AddToLibrary)
		r.Delete("/library/{media_type}/{item_id}", h.RemoveFromLibrary)

		r.Get("/tracks/{item_id}/loudness", h.GetLoudness)
		r.Post("/tracks/{item_id}/loudness", h.ReportLoudness)
		r.Post("/tracks/{item_id}/played", h.MarkPlayed)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrMediaNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrProviderUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSetupFailed):
		status = http.StatusBadRequest
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func mediaTypeParam(r *http.Request) (domain.MediaType, bool) {
	mt := domain.MediaType(chi.URLParam(r, "media_type"))
	return mt, mt.Valid()
}

func itemIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "item_id"), 10, 64)
	return id, err == nil
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseMediaTypes parses a comma-separated media_types query value. Empty
// means all types; an invalid entry fails the whole parse.
func parseMediaTypes(value string) ([]domain.MediaType, bool) {
	if value == "" {
		return nil, true
	}
	var out []domain.MediaType
	for _, part := range strings.Split(value, ",") {
		mt := domain.MediaType(strings.TrimSpace(part))
		if !mt.Valid() {
			return nil, false
		}
		out = append(out, mt)
	}
	return out, true
}
