package music

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/medleyd/medley/internal/config"
	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/events"
	"github.com/medleyd/medley/internal/library"
	"github.com/medleyd/medley/internal/logger"
	"github.com/medleyd/medley/internal/provider"
	"github.com/medleyd/medley/internal/tasks"
)

type fakeMusic struct {
	provider.Base
	features []domain.Feature

	// closed to release a blocked LibraryTracks call
	block chan struct{}

	mu     sync.Mutex
	tracks []domain.Track

	trackCalls  atomic.Int32
	searchCalls atomic.Int32
	result      *domain.SearchResult
}

func (f *fakeMusic) SupportedFeatures() []domain.Feature { return f.features }
func (f *fakeMusic) Setup(ctx context.Context) error     { return nil }

func (f *fakeMusic) LibraryArtists(ctx context.Context) ([]domain.Artist, error)     { return nil, nil }
func (f *fakeMusic) LibraryAlbums(ctx context.Context) ([]domain.Album, error)       { return nil, nil }
func (f *fakeMusic) LibraryPlaylists(ctx context.Context) ([]domain.Playlist, error) { return nil, nil }
func (f *fakeMusic) LibraryRadios(ctx context.Context) ([]domain.Radio, error)       { return nil, nil }

func (f *fakeMusic) LibraryTracks(ctx context.Context) ([]domain.Track, error) {
	f.trackCalls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracks, nil
}

func (f *fakeMusic) setTracks(tracks []domain.Track) {
	f.mu.Lock()
	f.tracks = tracks
	f.mu.Unlock()
}

func (f *fakeMusic) Search(ctx context.Context, query string,
	mediaTypes []domain.MediaType, limit int) (*domain.SearchResult, error) {
	f.searchCalls.Add(1)
	return f.result, nil
}

func (f *fakeMusic) Browse(ctx context.Context, path string) (*domain.BrowseFolder, error) {
	return &domain.BrowseFolder{ItemID: path, Path: path, Name: path}, nil
}

type fixture struct {
	controller *Controller
	store      *library.DB
	bus        *events.Bus
	prov       *fakeMusic
}

func setupController(t *testing.T, features []domain.Feature) *fixture {
	t.Helper()

	bus := events.NewBus()
	store, err := library.Open(filepath.Join(t.TempDir(), "test.db"), bus, logger.Default())
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	tracker := tasks.NewTracker(logger.Default())

	registry := provider.NewRegistry(bus, provider.Deps{Store: store, Log: logger.Default()}, logger.Default())
	fsys := fstest.MapFS{
		"fake/manifest.json": {Data: []byte(`{"type": "music", "domain": "fake", "name": "Fake"}`)},
	}
	if err := registry.LoadManifests(fsys); err != nil {
		t.Fatalf("failed to load manifests: %v", err)
	}

	var fake *fakeMusic
	registry.RegisterFactory("fake", func(m *provider.Manifest, cfg config.ProviderConfig,
		deps provider.Deps) (provider.Provider, error) {
		fake = &fakeMusic{Base: provider.NewBase(m, cfg, logger.Default()), features: features}
		return fake, nil
	})
	if _, err := registry.Instantiate(context.Background(),
		config.ProviderConfig{Domain: "fake", Enabled: true}); err != nil {
		t.Fatalf("failed to instantiate provider: %v", err)
	}

	c := NewController(store, registry, bus, tracker, logger.Default())
	t.Cleanup(func() {
		tracker.Shutdown()
		if err := store.Close(); err != nil {
			t.Logf("failed to close test db: %v", err)
		}
	})
	return &fixture{controller: c, store: store, bus: bus, prov: fake}
}

func waitForIdle(t *testing.T, c *Controller) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(c.SyncTasks()) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("sync tasks never drained")
}

func TestStartSyncDeduplicatesInFlightJobs(t *testing.T) {
	f := setupController(t, []domain.Feature{domain.FeatureLibraryTracks})
	f.prov.block = make(chan struct{})

	f.controller.StartSync([]domain.MediaType{domain.MediaTypeTrack}, nil)
	// the first job is still blocked inside the provider
	f.controller.StartSync([]domain.MediaType{domain.MediaTypeTrack}, nil)

	if n := len(f.controller.SyncTasks()); n != 1 {
		t.Errorf("expected 1 in-flight sync task, got %d", n)
	}

	close(f.prov.block)
	waitForIdle(t, f.controller)

	if calls := f.prov.trackCalls.Load(); calls != 1 {
		t.Errorf("provider listed %d times, want 1", calls)
	}
}

func TestStartSyncSkipsUnsupportedTypes(t *testing.T) {
	f := setupController(t, []domain.Feature{domain.FeatureLibraryArtists})

	f.controller.StartSync([]domain.MediaType{domain.MediaTypeTrack}, nil)
	waitForIdle(t, f.controller)

	if calls := f.prov.trackCalls.Load(); calls != 0 {
		t.Errorf("provider must not be asked for tracks it does not declare, got %d calls", calls)
	}
}

func TestSyncUpsertsAndRemovesStale(t *testing.T) {
	f := setupController(t, []domain.Feature{domain.FeatureLibraryTracks})

	trackFor := func(id, name string) domain.Track {
		return domain.Track{
			Name: name,
			ProviderMappings: domain.MappingSet{{
				ItemID:           id,
				ProviderDomain:   "fake",
				ProviderInstance: "fake",
				Available:        true,
			}},
		}
	}

	f.prov.setTracks([]domain.Track{trackFor("t1", "First"), trackFor("t2", "Second")})
	f.controller.StartSync([]domain.MediaType{domain.MediaTypeTrack}, nil)
	waitForIdle(t, f.controller)

	firstID, err := f.store.ItemIDByProviderID(domain.MediaTypeTrack, "t1", "fake")
	if err != nil {
		t.Fatalf("first track not synced: %v", err)
	}
	stored, err := f.store.GetTrack(firstID)
	if err != nil {
		t.Fatalf("failed to load synced track: %v", err)
	}
	if !stored.InLibrary {
		t.Error("synced track should be flagged in_library")
	}

	// the provider stops reporting t1
	f.prov.setTracks([]domain.Track{trackFor("t2", "Second")})
	f.controller.StartSync([]domain.MediaType{domain.MediaTypeTrack}, nil)
	waitForIdle(t, f.controller)

	if _, err := f.store.ItemIDByProviderID(domain.MediaTypeTrack, "t1", "fake"); err == nil {
		t.Error("stale mapping should be removed")
	}
	if _, err := f.store.ItemIDByProviderID(domain.MediaTypeTrack, "t2", "fake"); err != nil {
		t.Errorf("surviving track lost: %v", err)
	}
}

func TestSyncTasksEventsOnLaunchAndCompletion(t *testing.T) {
	f := setupController(t, []domain.Feature{domain.FeatureLibraryTracks})

	var mu sync.Mutex
	var updates int
	f.bus.Subscribe(func(events.Event) {
		mu.Lock()
		updates++
		mu.Unlock()
	}, []events.Type{events.SyncTasksUpdated}, nil)

	f.controller.StartSync([]domain.MediaType{domain.MediaTypeTrack}, nil)
	waitForIdle(t, f.controller)

	mu.Lock()
	defer mu.Unlock()
	if updates < 2 {
		t.Errorf("expected launch and completion events, got %d", updates)
	}
}

func TestCancelProviderSyncs(t *testing.T) {
	f := setupController(t, []domain.Feature{domain.FeatureLibraryTracks})
	f.prov.block = make(chan struct{})

	f.controller.StartSync([]domain.MediaType{domain.MediaTypeTrack}, nil)
	if n := len(f.controller.SyncTasks()); n != 1 {
		t.Fatalf("expected 1 in-flight task, got %d", n)
	}

	f.controller.CancelProviderSyncs("fake")
	waitForIdle(t, f.controller)
}

func TestSearchProviderServesFromCache(t *testing.T) {
	f := setupController(t, []domain.Feature{domain.FeatureSearch})
	f.prov.result = &domain.SearchResult{Artists: []domain.Artist{{Name: "Hit"}}}

	ctx := context.Background()
	mediaTypes := []domain.MediaType{domain.MediaTypeArtist}

	first, err := f.controller.SearchProvider(ctx, f.prov, "hit", mediaTypes, 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if first.Count() != 1 {
		t.Fatalf("unexpected result count %d", first.Count())
	}

	// the cache write happens in the background
	key := searchCacheKey("fake", "hit", mediaTypes, 5)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if data, err := f.store.GetCache(key); err == nil && data != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("search result never cached")
		}
		time.Sleep(10 * time.Millisecond)
	}

	second, err := f.controller.SearchProvider(ctx, f.prov, "hit", mediaTypes, 5)
	if err != nil {
		t.Fatalf("cached search failed: %v", err)
	}
	if second.Count() != 1 || second.Artists[0].Name != "Hit" {
		t.Errorf("cached result differs: %+v", second)
	}
	if calls := f.prov.searchCalls.Load(); calls != 1 {
		t.Errorf("provider searched %d times, want 1", calls)
	}
}

func TestSearchCacheKeyShape(t *testing.T) {
	key := searchCacheKey("fs1", "the q", []domain.MediaType{
		domain.MediaTypeArtist, domain.MediaTypeTrack}, 25)
	if key != "fs1.search.the q.25artisttrack" {
		t.Errorf("unexpected cache key %q", key)
	}
}

func TestCleanupProvider(t *testing.T) {
	f := setupController(t, nil)

	shared, err := f.store.UpsertArtist(&domain.Artist{
		Name: "Shared",
		ProviderMappings: domain.MappingSet{
			{ItemID: "artist/Shared", ProviderDomain: "fake", ProviderInstance: "fake"},
			{ItemID: "artist/Shared", ProviderDomain: "other", ProviderInstance: "other"},
		},
	}, false)
	if err != nil {
		t.Fatalf("failed to upsert artist: %v", err)
	}
	exclusive, err := f.store.UpsertTrack(&domain.Track{
		Name: "Only Here",
		ProviderMappings: domain.MappingSet{
			{ItemID: "track/only.mp3", ProviderDomain: "fake", ProviderInstance: "fake"},
		},
	}, false)
	if err != nil {
		t.Fatalf("failed to upsert track: %v", err)
	}
	if err := f.store.SetCache("fake.search.q", []byte("x"), 0); err != nil {
		t.Fatalf("failed to set cache: %v", err)
	}
	if err := f.store.SetCache("other.search.q", []byte("y"), 0); err != nil {
		t.Fatalf("failed to set cache: %v", err)
	}

	if err := f.controller.CleanupProvider("fake"); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	if _, err := f.store.GetTrack(exclusive.ItemID); err == nil {
		t.Error("orphaned track should be deleted")
	}
	got, err := f.store.GetArtist(shared.ItemID)
	if err != nil {
		t.Fatalf("shared artist deleted: %v", err)
	}
	if len(got.ProviderMappings) != 1 || got.ProviderMappings[0].ProviderInstance != "other" {
		t.Errorf("shared artist mappings = %+v", got.ProviderMappings)
	}
	if data, _ := f.store.GetCache("fake.search.q"); data != nil {
		t.Error("provider cache entries should be cleared")
	}
	if data, _ := f.store.GetCache("other.search.q"); data == nil {
		t.Error("other provider's cache entries should survive")
	}
}

func TestBrowse(t *testing.T) {
	f := setupController(t, []domain.Feature{domain.FeatureBrowse})

	root, err := f.controller.Browse(context.Background(), "")
	if err != nil {
		t.Fatalf("root browse failed: %v", err)
	}
	if len(root.Folders) != 1 || root.Folders[0].Path != "fake://" {
		t.Errorf("unexpected root folders %+v", root.Folders)
	}

	sub, err := f.controller.Browse(context.Background(), "fake://Music/Rock")
	if err != nil {
		t.Fatalf("sub browse failed: %v", err)
	}
	if sub.Path != "Music/Rock" {
		t.Errorf("browse path not forwarded, got %q", sub.Path)
	}

	if _, err := f.controller.Browse(context.Background(), "ghost://x"); err == nil {
		t.Error("browse of unknown provider should fail")
	}
}
