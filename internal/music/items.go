package music

import (
	"context"
	"fmt"
	"strconv"

	"github.com/medleyd/medley/internal/domain"
)

// GetItem loads a library item by type and id.
func (c *Controller) GetItem(mt domain.MediaType, itemID int64) (any, error) {
	switch mt {
	case domain.MediaTypeArtist:
		return c.store.GetArtist(itemID)
	case domain.MediaTypeAlbum:
		return c.store.GetAlbum(itemID)
	case domain.MediaTypeTrack:
		return c.store.GetTrack(itemID)
	case domain.MediaTypePlaylist:
		return c.store.GetPlaylist(itemID)
	case domain.MediaTypeRadio:
		return c.store.GetRadio(itemID)
	}
	return nil, fmt.Errorf("unknown media type %q", mt)
}

// GetItemByURI resolves a media uri to a library item. library:// uris
// resolve directly by id; provider uris resolve through the mapping table.
func (c *Controller) GetItemByURI(uri string) (any, error) {
	providerDomain, mt, idPart, err := domain.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if providerDomain == "library" {
		itemID, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid library item id in uri %q", uri)
		}
		return c.GetItem(mt, itemID)
	}
	itemID, err := c.store.ItemIDByProviderID(mt, idPart, providerDomain)
	if err != nil {
		return nil, err
	}
	return c.GetItem(mt, itemID)
}

// RefreshItem re-fetches an item from its providers through search and
// merges the results back in. Used when stored data is suspected stale.
func (c *Controller) RefreshItem(ctx context.Context, mt domain.MediaType, itemID int64) (any, error) {
	var name string
	switch mt {
	case domain.MediaTypeArtist:
		a, err := c.store.GetArtist(itemID)
		if err != nil {
			return nil, err
		}
		name = a.Name
	case domain.MediaTypeAlbum:
		a, err := c.store.GetAlbum(itemID)
		if err != nil {
			return nil, err
		}
		name = a.Name
	case domain.MediaTypeTrack:
		t, err := c.store.GetTrack(itemID)
		if err != nil {
			return nil, err
		}
		name = t.Name
	default:
		return c.GetItem(mt, itemID)
	}

	result, err := c.Search(ctx, name, []domain.MediaType{mt}, 10)
	if err != nil {
		return nil, err
	}
	for i := range result.Artists {
		if _, err := c.store.UpsertArtist(&result.Artists[i], false); err != nil {
			c.log.Debug("refresh upsert failed", "error", err)
		}
	}
	for i := range result.Albums {
		if _, err := c.store.UpsertAlbum(&result.Albums[i], false); err != nil {
			c.log.Debug("refresh upsert failed", "error", err)
		}
	}
	for i := range result.Tracks {
		if _, err := c.store.UpsertTrack(&result.Tracks[i], false); err != nil {
			c.log.Debug("refresh upsert failed", "error", err)
		}
	}
	return c.GetItem(mt, itemID)
}

// AddToLibrary marks an item as part of the user's library.
func (c *Controller) AddToLibrary(mt domain.MediaType, itemID int64) error {
	return c.store.SetInLibrary(mt, itemID, true)
}

// RemoveFromLibrary clears the library flag; the item and its mappings are
// retained.
func (c *Controller) RemoveFromLibrary(mt domain.MediaType, itemID int64) error {
	return c.store.SetInLibrary(mt, itemID, false)
}

// ReportLoudness stores a loudness measurement for a track.
func (c *Controller) ReportLoudness(itemID int64, prov string, loudness float64) error {
	return c.store.SetTrackLoudness(itemID, prov, loudness)
}

// TrackLoudness returns the stored loudness for a track, falling back to
// the provider average when the track itself was never measured.
func (c *Controller) TrackLoudness(itemID int64, prov string) (float64, bool, error) {
	loudness, ok, err := c.store.GetTrackLoudness(itemID, prov)
	if err != nil || ok {
		return loudness, ok, err
	}
	return c.store.GetProviderLoudness(prov)
}

// MarkPlayed records a play of the item on the given provider.
func (c *Controller) MarkPlayed(itemID int64, prov string) error {
	return c.store.MarkItemPlayed(itemID, prov)
}
