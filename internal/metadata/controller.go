// Package metadata runs the enrichment pass that fills gaps in library
// items (MusicBrainz ids, genres, descriptions, images) from metadata
// providers.
package metadata

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/medleyd/medley/internal/constants"
	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/library"
	"github.com/medleyd/medley/internal/logger"
	"github.com/medleyd/medley/internal/provider"
	"github.com/medleyd/medley/internal/tasks"
)

// Controller owns the metadata-enrichment scan.
type Controller struct {
	log      *logger.Logger
	store    *library.DB
	registry *provider.Registry
	tracker  *tasks.Tracker

	scanning atomic.Bool
}

func NewController(store *library.DB, registry *provider.Registry,
	tracker *tasks.Tracker, log *logger.Logger) *Controller {
	return &Controller{
		log:      log.WithComponent("metadata"),
		store:    store,
		registry: registry,
		tracker:  tracker,
	}
}

// StartScan triggers an enrichment pass in the background. A scan that is
// already running is not duplicated.
func (c *Controller) StartScan() {
	if !c.scanning.CompareAndSwap(false, true) {
		return
	}
	c.tracker.Spawn("metadata scan", func(ctx context.Context) error {
		defer c.scanning.Store(false)
		return c.runScan(ctx)
	})
}

func (c *Controller) runScan(ctx context.Context) error {
	providers := c.registry.MetadataProviders()
	if len(providers) == 0 {
		return nil
	}

	artists, err := c.store.ListArtists(true, 0, 0)
	if err != nil {
		return err
	}
	for i := range artists {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.enrichArtist(ctx, &artists[i], providers); err != nil {
			c.log.Debug("artist enrichment failed",
				"artist", artists[i].Name, "error", err)
		}
	}

	albums, err := c.store.ListAlbums(true, 0, 0)
	if err != nil {
		return err
	}
	for i := range albums {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.enrichAlbum(ctx, &albums[i], providers); err != nil {
			c.log.Debug("album enrichment failed",
				"album", albums[i].Name, "error", err)
		}
	}
	return nil
}

// enrichArtist fills a missing MusicBrainz id and merges in metadata from
// the first provider that has any. Lookups are cached per provider.
func (c *Controller) enrichArtist(ctx context.Context, artist *domain.Artist,
	providers []provider.MetadataProvider) error {
	changed := false

	for _, prov := range providers {
		if artist.MusicBrainzID == "" &&
			domain.HasFeature(prov.SupportedFeatures(), domain.FeatureGetArtistMBID) {
			mbid, err := prov.GetArtistMBID(ctx, artist)
			if err != nil {
				c.log.Debug("mbid lookup failed",
					"instance_id", prov.InstanceID(), "artist", artist.Name, "error", err)
			} else if mbid != "" {
				artist.MusicBrainzID = mbid
				changed = true
			}
		}

		if needsArtistMetadata(artist) &&
			domain.HasFeature(prov.SupportedFeatures(), domain.FeatureArtistMetadata) {
			meta, err := c.cachedArtistMetadata(ctx, prov, artist)
			if err != nil {
				c.log.Debug("artist metadata lookup failed",
					"instance_id", prov.InstanceID(), "artist", artist.Name, "error", err)
			} else if meta != nil {
				mergeMetadata(&artist.Metadata, meta)
				changed = true
			}
		}
	}

	if !changed {
		return nil
	}
	_, err := c.store.UpsertArtist(artist, false)
	return err
}

func (c *Controller) enrichAlbum(ctx context.Context, album *domain.Album,
	providers []provider.MetadataProvider) error {
	if !needsAlbumMetadata(album) {
		return nil
	}
	changed := false
	for _, prov := range providers {
		if !domain.HasFeature(prov.SupportedFeatures(), domain.FeatureAlbumMetadata) {
			continue
		}
		meta, err := prov.AlbumMetadata(ctx, album)
		if err != nil {
			c.log.Debug("album metadata lookup failed",
				"instance_id", prov.InstanceID(), "album", album.Name, "error", err)
			continue
		}
		if meta != nil {
			mergeMetadata(&album.Metadata, meta)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	_, err := c.store.UpsertAlbum(album, false)
	return err
}

// cachedArtistMetadata serves repeated lookups from the cache table with a
// thirty-day expiration.
func (c *Controller) cachedArtistMetadata(ctx context.Context,
	prov provider.MetadataProvider, artist *domain.Artist) (*domain.Metadata, error) {
	key := prov.InstanceID() + ".metadata.artist." + domain.SearchQuery(artist.Name)

	if data, err := c.store.GetCache(key); err == nil && data != nil {
		var cached domain.Metadata
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	meta, err := prov.ArtistMetadata(ctx, artist)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		if data, err := json.Marshal(meta); err == nil {
			_ = c.store.SetCache(key, data, constants.MetadataCacheTTL)
		}
	}
	return meta, nil
}

func needsArtistMetadata(a *domain.Artist) bool {
	return len(a.Metadata.Genres) == 0 || a.Metadata.Description == ""
}

func needsAlbumMetadata(a *domain.Album) bool {
	return len(a.Metadata.Genres) == 0 || a.Metadata.Description == ""
}

// mergeMetadata fills blanks in dst from src without clobbering existing
// values.
func mergeMetadata(dst *domain.MetadataJSON, src *domain.Metadata) {
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if len(dst.Genres) == 0 {
		dst.Genres = src.Genres
	}
	if len(dst.Images) == 0 {
		dst.Images = src.Images
	}
	if dst.Lyrics == "" {
		dst.Lyrics = src.Lyrics
	}
	if dst.Copyright == "" {
		dst.Copyright = src.Copyright
	}
}
