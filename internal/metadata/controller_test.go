package metadata

import (
	"context"
	"path/filepath"
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

type fakeMeta struct {
	provider.Base

	mbidCalls atomic.Int32
	metaCalls atomic.Int32
}

func (f *fakeMeta) SupportedFeatures() []domain.Feature {
	return []domain.Feature{
		domain.FeatureGetArtistMBID,
		domain.FeatureArtistMetadata,
		domain.FeatureAlbumMetadata,
	}
}

func (f *fakeMeta) Setup(ctx context.Context) error { return nil }

func (f *fakeMeta) GetArtistMBID(ctx context.Context, artist *domain.Artist) (string, error) {
	f.mbidCalls.Add(1)
	return "b10bbbfc-cf9e-42e0-be17-e2c3e1d2600d", nil
}

func (f *fakeMeta) ArtistMetadata(ctx context.Context, artist *domain.Artist) (*domain.Metadata, error) {
	f.metaCalls.Add(1)
	return &domain.Metadata{
		Description: "rock band",
		Genres:      domain.StringSlice{"rock"},
	}, nil
}

func (f *fakeMeta) AlbumMetadata(ctx context.Context, album *domain.Album) (*domain.Metadata, error) {
	return &domain.Metadata{Genres: domain.StringSlice{"grunge"}}, nil
}

func setupScanner(t *testing.T) (*Controller, *library.DB, *tasks.Tracker, *fakeMeta) {
	t.Helper()

	bus := events.NewBus()
	store, err := library.Open(filepath.Join(t.TempDir(), "test.db"), bus, logger.Default())
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	tracker := tasks.NewTracker(logger.Default())

	registry := provider.NewRegistry(bus, provider.Deps{Store: store, Log: logger.Default()}, logger.Default())
	fsys := fstest.MapFS{
		"meta/manifest.json": {Data: []byte(`{"type": "metadata", "domain": "meta", "name": "Meta"}`)},
	}
	if err := registry.LoadManifests(fsys); err != nil {
		t.Fatalf("failed to load manifests: %v", err)
	}
	var fake *fakeMeta
	registry.RegisterFactory("meta", func(m *provider.Manifest, cfg config.ProviderConfig,
		deps provider.Deps) (provider.Provider, error) {
		fake = &fakeMeta{Base: provider.NewBase(m, cfg, logger.Default())}
		return fake, nil
	})
	if _, err := registry.Instantiate(context.Background(),
		config.ProviderConfig{Domain: "meta", Enabled: true}); err != nil {
		t.Fatalf("failed to instantiate provider: %v", err)
	}

	c := NewController(store, registry, tracker, logger.Default())
	t.Cleanup(func() {
		tracker.Shutdown()
		if err := store.Close(); err != nil {
			t.Logf("failed to close test db: %v", err)
		}
	})
	return c, store, tracker, fake
}

func waitForScan(t *testing.T, tracker *tasks.Tracker) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if tracker.Running() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("metadata scan never finished")
}

func TestScanEnrichesArtistsAndAlbums(t *testing.T) {
	c, store, tracker, fake := setupScanner(t)

	artist, err := store.UpsertArtist(&domain.Artist{
		Name:      "Nirvana",
		InLibrary: true,
		ProviderMappings: domain.MappingSet{
			{ItemID: "artist/Nirvana", ProviderDomain: "fs", ProviderInstance: "fs1"},
		},
	}, false)
	if err != nil {
		t.Fatalf("failed to upsert artist: %v", err)
	}
	album, err := store.UpsertAlbum(&domain.Album{
		Name:      "Nevermind",
		InLibrary: true,
		ProviderMappings: domain.MappingSet{
			{ItemID: "album/Nirvana/Nevermind", ProviderDomain: "fs", ProviderInstance: "fs1"},
		},
	}, false)
	if err != nil {
		t.Fatalf("failed to upsert album: %v", err)
	}

	c.StartScan()
	waitForScan(t, tracker)

	got, err := store.GetArtist(artist.ItemID)
	if err != nil {
		t.Fatalf("failed to load artist: %v", err)
	}
	if got.MusicBrainzID == "" {
		t.Error("artist mbid not filled")
	}
	if len(got.Metadata.Genres) != 1 || got.Metadata.Genres[0] != "rock" {
		t.Errorf("artist genres = %v", got.Metadata.Genres)
	}
	if got.Metadata.Description != "rock band" {
		t.Errorf("artist description = %q", got.Metadata.Description)
	}

	gotAlbum, err := store.GetAlbum(album.ItemID)
	if err != nil {
		t.Fatalf("failed to load album: %v", err)
	}
	if len(gotAlbum.Metadata.Genres) != 1 || gotAlbum.Metadata.Genres[0] != "grunge" {
		t.Errorf("album genres = %v", gotAlbum.Metadata.Genres)
	}

	// the lookup result lands in the cache for later scans
	key := "meta.metadata.artist." + domain.SearchQuery("Nirvana")
	if data, err := store.GetCache(key); err != nil || data == nil {
		t.Errorf("artist metadata not cached: %v", err)
	}

	// a second scan finds nothing left to do
	c.StartScan()
	waitForScan(t, tracker)
	if calls := fake.mbidCalls.Load(); calls != 1 {
		t.Errorf("mbid looked up %d times, want 1", calls)
	}
	if calls := fake.metaCalls.Load(); calls != 1 {
		t.Errorf("artist metadata fetched %d times, want 1", calls)
	}
}

func TestMergeMetadataFillsBlanksOnly(t *testing.T) {
	dst := domain.MetadataJSON{Description: "keep", Genres: domain.StringSlice{"jazz"}}
	mergeMetadata(&dst, &domain.Metadata{
		Description: "replace",
		Genres:      domain.StringSlice{"rock"},
		Lyrics:      "la la",
	})

	if dst.Description != "keep" {
		t.Errorf("description clobbered: %q", dst.Description)
	}
	if len(dst.Genres) != 1 || dst.Genres[0] != "jazz" {
		t.Errorf("genres clobbered: %v", dst.Genres)
	}
	if dst.Lyrics != "la la" {
		t.Errorf("blank not filled: %q", dst.Lyrics)
	}
}

func TestNeedsArtistMetadata(t *testing.T) {
	if !needsArtistMetadata(&domain.Artist{}) {
		t.Error("empty metadata should need enrichment")
	}
	full := &domain.Artist{Metadata: domain.MetadataJSON{
		Description: "d", Genres: domain.StringSlice{"g"},
	}}
	if needsArtistMetadata(full) {
		t.Error("complete metadata should not need enrichment")
	}
}
