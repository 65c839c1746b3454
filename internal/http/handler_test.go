package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/events"
	"github.com/medleyd/medley/internal/library"
	"github.com/medleyd/medley/internal/logger"
	"github.com/medleyd/medley/internal/music"
	"github.com/medleyd/medley/internal/provider"
	"github.com/medleyd/medley/internal/tasks"
)

func setupAPI(t *testing.T) (http.Handler, *library.DB) {
	t.Helper()

	bus := events.NewBus()
	store, err := library.Open(filepath.Join(t.TempDir(), "test.db"), bus, logger.Default())
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	tracker := tasks.NewTracker(logger.Default())
	registry := provider.NewRegistry(bus, provider.Deps{Store: store, Log: logger.Default()}, logger.Default())
	mc := music.NewController(store, registry, bus, tracker, logger.Default())

	r := chi.NewRouter()
	NewHandler(mc, registry, logger.Default()).RegisterRoutes(r)

	t.Cleanup(func() {
		tracker.Shutdown()
		if err := store.Close(); err != nil {
			t.Logf("failed to close test db: %v", err)
		}
	})
	return r, store
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seedTrack(t *testing.T, store *library.DB, name string, inLibrary bool) *domain.Track {
	t.Helper()
	track, err := store.UpsertTrack(&domain.Track{
		Name:      name,
		InLibrary: inLibrary,
		ProviderMappings: domain.MappingSet{{
			ItemID:           "track/" + name,
			ProviderDomain:   "filesystem",
			ProviderInstance: "fs1",
		}},
	}, false)
	if err != nil {
		t.Fatalf("failed to seed track: %v", err)
	}
	return track
}

func TestGetProvidersEmpty(t *testing.T) {
	h, _ := setupAPI(t)

	rec := do(t, h, http.MethodGet, "/api/providers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var infos []provider.Info
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("expected empty list, got %v", infos)
	}
}

func TestGetItem(t *testing.T) {
	h, store := setupAPI(t)
	track := seedTrack(t, store, "Song", true)

	rec := do(t, h, http.MethodGet, fmt.Sprintf("/api/items/track/%d", track.ItemID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got domain.Track
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if got.Name != "Song" {
		t.Errorf("name = %q", got.Name)
	}

	rec = do(t, h, http.MethodGet, "/api/items/track/9999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing item status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/items/bogus/1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid media type status = %d", rec.Code)
	}
}

func TestGetItemByURI(t *testing.T) {
	h, store := setupAPI(t)
	track := seedTrack(t, store, "Song", true)

	uri := fmt.Sprintf("/api/items?uri=library://track/%d", track.ItemID)
	rec := do(t, h, http.MethodGet, uri, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/items", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing uri status = %d", rec.Code)
	}
}

func TestListLibraryFiltersFlag(t *testing.T) {
	h, store := setupAPI(t)
	seedTrack(t, store, "In", true)
	seedTrack(t, store, "Out", false)

	rec := do(t, h, http.MethodGet, "/api/library/track", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var tracks []domain.Track
	if err := json.Unmarshal(rec.Body.Bytes(), &tracks); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Name != "In" {
		t.Errorf("library listing = %+v", tracks)
	}
}

func TestAddRemoveLibrary(t *testing.T) {
	h, store := setupAPI(t)
	track := seedTrack(t, store, "Song", false)

	rec := do(t, h, http.MethodPut, fmt.Sprintf("/api/library/track/%d", track.ItemID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d", rec.Code)
	}
	got, err := store.GetTrack(track.ItemID)
	if err != nil {
		t.Fatalf("failed to load track: %v", err)
	}
	if !got.InLibrary {
		t.Error("track not flagged in_library")
	}

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/api/library/track/%d", track.ItemID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}
	got, err = store.GetTrack(track.ItemID)
	if err != nil {
		t.Fatalf("failed to load track: %v", err)
	}
	if got.InLibrary {
		t.Error("track still flagged in_library")
	}

	rec = do(t, h, http.MethodPut, "/api/library/track/9999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing item status = %d", rec.Code)
	}
}

func TestLoudnessEndpoints(t *testing.T) {
	h, store := setupAPI(t)
	track := seedTrack(t, store, "Song", true)

	body := []byte(`{"provider": "fs1", "loudness": -9.5}`)
	rec := do(t, h, http.MethodPost, fmt.Sprintf("/api/tracks/%d/loudness", track.ItemID), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet,
		fmt.Sprintf("/api/tracks/%d/loudness?provider=fs1", track.ItemID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got struct {
		Loudness float64 `json:"loudness"`
		Measured bool    `json:"measured"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if !got.Measured || got.Loudness != -9.5 {
		t.Errorf("loudness = %+v", got)
	}

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/api/tracks/%d/loudness", track.ItemID), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing provider status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost,
		fmt.Sprintf("/api/tracks/%d/loudness", track.ItemID), []byte(`{}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d", rec.Code)
	}
}

func TestMarkPlayed(t *testing.T) {
	h, store := setupAPI(t)
	track := seedTrack(t, store, "Song", true)

	rec := do(t, h, http.MethodPost,
		fmt.Sprintf("/api/tracks/%d/played", track.ItemID), []byte(`{"provider": "fs1"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var count int
	if err := store.Get(&count,
		"SELECT COUNT(*) FROM play_log WHERE item_id = ? AND provider = 'fs1'",
		track.ItemID); err != nil {
		t.Fatalf("failed to count plays: %v", err)
	}
	if count != 1 {
		t.Errorf("play_log rows = %d", count)
	}
}

func TestStartSyncValidation(t *testing.T) {
	h, _ := setupAPI(t)

	rec := do(t, h, http.MethodPost, "/api/sync?media_types=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid media_types status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/sync?media_types=track,album", nil)
	if rec.Code != http.StatusAccepted {
		t.Errorf("valid sync status = %d", rec.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	h, _ := setupAPI(t)

	rec := do(t, h, http.MethodGet, "/api/search", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d", rec.Code)
	}
}

func TestGetSyncTasksEmpty(t *testing.T) {
	h, _ := setupAPI(t)

	rec := do(t, h, http.MethodGet, "/api/sync/tasks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []music.SyncTask
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no tasks, got %v", list)
	}
}
