package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/medleyd/medley/internal/provider"
)

// GetProviders reports every registered provider instance, including
// instances whose setup failed.
func (h *Handler) GetProviders(w http.ResponseWriter, r *http.Request) {
	providers := h.Registry.Providers()
	infos := make([]provider.Info, 0, len(providers))
	for _, p := range providers {
		infos = append(infos, provider.InfoOf(p))
	}
	h.writeJSON(w, http.StatusOK, infos)
}

// GetAvailableProviders lists the parsed manifests, loaded or not.
func (h *Handler) GetAvailableProviders(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Registry.Manifests())
}

func (h *Handler) UnloadProvider(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instance_id")
	if err := h.Registry.Unload(r.Context(), instanceID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "unloaded"})
}

// CleanupProvider removes all library traces of a (typically unloaded)
// provider instance.
func (h *Handler) CleanupProvider(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instance_id")
	if err := h.Music.CleanupProvider(instanceID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleaned"})
}

// StartSync launches sync jobs. Optional query params: media_types
// (comma-separated) and providers (comma-separated instance ids).
func (h *Handler) StartSync(w http.ResponseWriter, r *http.Request) {
	mediaTypes, ok := parseMediaTypes(r.URL.Query().Get("media_types"))
	if !ok {
		http.Error(w, "invalid media_types", http.StatusBadRequest)
		return
	}
	var instances []string
	if v := r.URL.Query().Get("providers"); v != "" {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				instances = append(instances, part)
			}
		}
	}
	h.Music.StartSync(mediaTypes, instances)
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) GetSyncTasks(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Music.SyncTasks())
}

// Search fans a query out across all providers. Query params: q,
// media_types, limit.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	mediaTypes, ok := parseMediaTypes(r.URL.Query().Get("media_types"))
	if !ok {
		http.Error(w, "invalid media_types", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.Music.Search(r.Context(), query, mediaTypes, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	folder, err := h.Music.Browse(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, folder)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	mt, ok := mediaTypeParam(r)
	if !ok {
		http.Error(w, "invalid media type", http.StatusBadRequest)
		return
	}
	itemID, ok := itemIDParam(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	item, err := h.Music.GetItem(mt, itemID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) GetItemByURI(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		http.Error(w, "uri is required", http.StatusBadRequest)
		return
	}
	item, err := h.Music.GetItemByURI(uri)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) RefreshItem(w http.ResponseWriter, r *http.Request) {
	mt, ok := mediaTypeParam(r)
	if !ok {
		http.Error(w, "invalid media type", http.StatusBadRequest)
		return
	}
	itemID, ok := itemIDParam(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	item, err := h.Music.RefreshItem(r.Context(), mt, itemID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// ListLibrary pages through in-library items of one type. Query params:
// limit, offset.
func (h *Handler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	mt, ok := mediaTypeParam(r)
	if !ok {
		http.Error(w, "invalid media type", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 100
	}

	store := h.Music.Store()
	var (
		items any
		err   error
	)
	switch mt {
	case "artist":
		items, err = store.ListArtists(true, limit, offset)
	case "album":
		items, err = store.ListAlbums(true, limit, offset)
	case "track":
		items, err = store.ListTracks(true, limit, offset)
	case "playlist":
		items, err = store.ListPlaylists(true, limit, offset)
	case "radio":
		items, err = store.ListRadios(true, limit, offset)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) AddToLibrary(w http.ResponseWriter, r *http.Request) {
	mt, ok := mediaTypeParam(r)
	if !ok {
		http.Error(w, "invalid media type", http.StatusBadRequest)
		return
	}
	itemID, ok := itemIDParam(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	if err := h.Music.AddToLibrary(mt, itemID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

func (h *Handler) RemoveFromLibrary(w http.ResponseWriter, r *http.Request) {
	mt, ok := mediaTypeParam(r)
	if !ok {
		http.Error(w, "invalid media type", http.StatusBadRequest)
		return
	}
	itemID, ok := itemIDParam(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	if err := h.Music.RemoveFromLibrary(mt, itemID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// GetLoudness returns the stored (or provider-average) loudness for a
// track. Query param: provider.
func (h *Handler) GetLoudness(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	prov := r.URL.Query().Get("provider")
	if prov == "" {
		http.Error(w, "provider is required", http.StatusBadRequest)
		return
	}
	loudness, found, err := h.Music.TrackLoudness(itemID, prov)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"loudness": loudness,
		"measured": found,
	})
}

// ReportLoudness stores a loudness measurement. Body:
// {"provider": "...", "loudness": -9.2}.
func (h *Handler) ReportLoudness(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	var body struct {
		Provider string  `json:"provider"`
		Loudness float64 `json:"loudness"`
	}
	if err := decodeBody(r, &body); err != nil || body.Provider == "" {
		http.Error(w, "provider and loudness are required", http.StatusBadRequest)
		return
	}
	if err := h.Music.ReportLoudness(itemID, body.Provider, body.Loudness); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}

// MarkPlayed records a play. Body: {"provider": "..."}.
func (h *Handler) MarkPlayed(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	var body struct {
		Provider string `json:"provider"`
	}
	if err := decodeBody(r, &body); err != nil || body.Provider == "" {
		http.Error(w, "provider is required", http.StatusBadRequest)
		return
	}
	if err := h.Music.MarkPlayed(itemID, body.Provider); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "logged"})
}
