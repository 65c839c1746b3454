// Package filesystem implements the local-directory music provider: a
// checksum-based incremental sync over a directory tree of audio files and
// playlists, with store-backed search and browse.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/medleyd/medley/internal/config"
	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/library"
	"github.com/medleyd/medley/internal/provider"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".wav":  true,
}

var playlistExtensions = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
}

// Provider is one configured filesystem instance rooted at a directory.
type Provider struct {
	provider.Base

	store *library.DB
	root  string
}

// New constructs a filesystem provider from its config. Registered as the
// factory for the "filesystem" domain.
func New(manifest *provider.Manifest, cfg config.ProviderConfig, deps provider.Deps) (provider.Provider, error) {
	p := &Provider{
		Base:  provider.NewBase(manifest, cfg, deps.Log),
		store: deps.Store,
	}
	p.root = filepath.Clean(p.ConfigValue("path"))
	return p, nil
}

func (p *Provider) SupportedFeatures() []domain.Feature {
	return []domain.Feature{
		domain.FeatureLibraryArtists,
		domain.FeatureLibraryAlbums,
		domain.FeatureLibraryTracks,
		domain.FeatureLibraryPlaylists,
		domain.FeatureSearch,
		domain.FeatureBrowse,
		domain.FeaturePlaylistCreate,
		domain.FeaturePlaylistTracksEdit,
	}
}

// Setup verifies the configured directory exists.
func (p *Provider) Setup(ctx context.Context) error {
	if p.root == "" || p.root == "." {
		return fmt.Errorf("no path configured")
	}
	info, err := os.Stat(p.root)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", p.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", p.root)
	}
	return nil
}

// abs resolves a provider item id (relative path) inside the root,
// rejecting escapes.
func (p *Provider) abs(rel string) (string, error) {
	full := filepath.Join(p.root, filepath.FromSlash(rel))
	if full != p.root && !strings.HasPrefix(full, p.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the provider root", rel)
	}
	return full, nil
}

func (p *Provider) rel(full string) string {
	rel, err := filepath.Rel(p.root, full)
	if err != nil {
		return full
	}
	return filepath.ToSlash(rel)
}

// Library listings are served from the store: the sync walk is the single
// writer and the store is the canonical catalog for this provider.

func (p *Provider) LibraryArtists(ctx context.Context) ([]domain.Artist, error) {
	return p.store.QueryArtists(`
		SELECT * FROM artists WHERE item_id IN
		(SELECT item_id FROM provider_mappings WHERE media_type = 'artist' AND provider_instance = ?)
		ORDER BY sort_name
	`, p.InstanceID())
}

func (p *Provider) LibraryAlbums(ctx context.Context) ([]domain.Album, error) {
	return p.store.QueryAlbums(`
		SELECT * FROM albums WHERE item_id IN
		(SELECT item_id FROM provider_mappings WHERE media_type = 'album' AND provider_instance = ?)
		ORDER BY sort_name
	`, p.InstanceID())
}

func (p *Provider) LibraryTracks(ctx context.Context) ([]domain.Track, error) {
	return p.store.QueryTracks(`
		SELECT * FROM tracks WHERE item_id IN
		(SELECT item_id FROM provider_mappings WHERE media_type = 'track' AND provider_instance = ?)
		ORDER BY sort_name
	`, p.InstanceID())
}

func (p *Provider) LibraryPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	return p.store.QueryPlaylists(`
		SELECT * FROM playlists WHERE item_id IN
		(SELECT item_id FROM provider_mappings WHERE media_type = 'playlist' AND provider_instance = ?)
		ORDER BY sort_name
	`, p.InstanceID())
}

func (p *Provider) LibraryRadios(ctx context.Context) ([]domain.Radio, error) {
	return nil, nil
}

// Search matches the provider's synced items by name.
func (p *Provider) Search(ctx context.Context, query string,
	mediaTypes []domain.MediaType, limit int) (*domain.SearchResult, error) {
	var result domain.SearchResult
	for _, mt := range mediaTypes {
		switch mt {
		case domain.MediaTypeArtist:
			items, err := p.store.SearchArtists(query, p.InstanceID(), limit)
			if err != nil {
				return nil, err
			}
			result.Artists = items
		case domain.MediaTypeAlbum:
			items, err := p.store.SearchAlbums(query, p.InstanceID(), limit)
			if err != nil {
				return nil, err
			}
			result.Albums = items
		case domain.MediaTypeTrack:
			items, err := p.store.SearchTracks(query, p.InstanceID(), limit)
			if err != nil {
				return nil, err
			}
			result.Tracks = items
		case domain.MediaTypePlaylist:
			items, err := p.store.SearchPlaylists(query, p.InstanceID(), limit)
			if err != nil {
				return nil, err
			}
			result.Playlists = items
		}
	}
	return &result, nil
}

// Browse returns one directory level: subdirectories as folders, audio
// files as tracks (resolved through the store when already synced).
func (p *Provider) Browse(ctx context.Context, sub string) (*domain.BrowseFolder, error) {
	full, err := p.abs(sub)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMediaNotFound, sub)
	}

	folder := &domain.BrowseFolder{
		ItemID:   p.InstanceID() + "://" + sub,
		Provider: p.Domain(),
		Path:     sub,
		Name:     filepath.Base(full),
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		rel := p.rel(filepath.Join(full, entry.Name()))
		if entry.IsDir() {
			folder.Folders = append(folder.Folders, domain.BrowseFolder{
				ItemID:   p.InstanceID() + "://" + rel,
				Provider: p.Domain(),
				Path:     rel,
				Name:     entry.Name(),
			})
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch {
		case audioExtensions[ext]:
			track, err := p.trackForPath(rel)
			if err != nil {
				p.Logger().Debug("skipping unreadable file", "path", rel, "error", err)
				continue
			}
			folder.Tracks = append(folder.Tracks, *track)
		case playlistExtensions[ext]:
			if itemID, err := p.store.ItemIDByProviderID(
				domain.MediaTypePlaylist, rel, p.InstanceID()); err == nil {
				if pl, err := p.store.GetPlaylist(itemID); err == nil {
					folder.Playlists = append(folder.Playlists, *pl)
				}
			}
		}
	}
	return folder, nil
}

// trackForPath serves a track from the store when synced, parsing the file
// directly otherwise.
func (p *Provider) trackForPath(rel string) (*domain.Track, error) {
	if itemID, err := p.store.ItemIDByProviderID(
		domain.MediaTypeTrack, rel, p.InstanceID()); err == nil {
		return p.store.GetTrack(itemID)
	}
	full, err := p.abs(rel)
	if err != nil {
		return nil, err
	}
	return p.transientTrack(rel, parseTags(full)), nil
}
