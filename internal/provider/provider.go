package provider

import (
	"context"
	"sync"

	"github.com/medleyd/medley/internal/config"
	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/logger"
)

// Provider is the contract every provider instance fulfils. Setup failures
// do not remove an instance from the registry; the instance stays inspectable
// with Available false and LastError set.
type Provider interface {
	Manifest() *Manifest
	Config() config.ProviderConfig
	InstanceID() string
	Domain() string
	Name() string
	Type() domain.ProviderType
	SupportedFeatures() []domain.Feature
	Available() bool
	LastError() string

	Setup(ctx context.Context) error
	Close(ctx context.Context) error
}

// MusicProvider is a provider that exposes a music catalog. Operations must
// only be called when the corresponding feature is declared.
type MusicProvider interface {
	Provider

	LibraryArtists(ctx context.Context) ([]domain.Artist, error)
	LibraryAlbums(ctx context.Context) ([]domain.Album, error)
	LibraryTracks(ctx context.Context) ([]domain.Track, error)
	LibraryPlaylists(ctx context.Context) ([]domain.Playlist, error)
	LibraryRadios(ctx context.Context) ([]domain.Radio, error)
	Search(ctx context.Context, query string, mediaTypes []domain.MediaType, limit int) (*domain.SearchResult, error)
	Browse(ctx context.Context, path string) (*domain.BrowseFolder, error)
}

// MetadataProvider enriches library items with metadata from an external
// source.
type MetadataProvider interface {
	Provider

	ArtistMetadata(ctx context.Context, artist *domain.Artist) (*domain.Metadata, error)
	AlbumMetadata(ctx context.Context, album *domain.Album) (*domain.Metadata, error)
	GetArtistMBID(ctx context.Context, artist *domain.Artist) (string, error)
}

// PlaylistEditor is implemented by music providers whose playlists can be
// modified.
type PlaylistEditor interface {
	CreatePlaylist(ctx context.Context, name string) (*domain.Playlist, error)
	AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error
	RemovePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// Base carries the state shared by all provider implementations. Embed it
// and implement the type-specific operations on top.
type Base struct {
	manifest *Manifest
	cfg      config.ProviderConfig
	log      *logger.Logger

	mu        sync.Mutex
	available bool
	lastError string
}

func NewBase(manifest *Manifest, cfg config.ProviderConfig, log *logger.Logger) Base {
	if cfg.InstanceID == "" {
		cfg.InstanceID = manifest.Domain
	}
	return Base{
		manifest: manifest,
		cfg:      cfg,
		log:      log.WithProvider(manifest.Domain, cfg.InstanceID),
	}
}

func (b *Base) Manifest() *Manifest            { return b.manifest }
func (b *Base) Config() config.ProviderConfig  { return b.cfg }
func (b *Base) InstanceID() string             { return b.cfg.InstanceID }
func (b *Base) Domain() string                 { return b.manifest.Domain }
func (b *Base) Type() domain.ProviderType      { return b.manifest.Type }
func (b *Base) Logger() *logger.Logger         { return b.log }

// Name returns the user-assigned instance name, falling back to the
// manifest name.
func (b *Base) Name() string {
	if b.cfg.Name != "" {
		return b.cfg.Name
	}
	return b.manifest.Name
}

// ConfigValue returns a user-supplied config value for key.
func (b *Base) ConfigValue(key string) string {
	return b.cfg.Values[key]
}

func (b *Base) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

func (b *Base) LastError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastError
}

// MarkAvailable records a successful setup.
func (b *Base) MarkAvailable() {
	b.mu.Lock()
	b.available = true
	b.lastError = ""
	b.mu.Unlock()
}

// MarkFailed records a setup or runtime failure.
func (b *Base) MarkFailed(err error) {
	b.mu.Lock()
	b.available = false
	if err != nil {
		b.lastError = err.Error()
	}
	b.mu.Unlock()
}

// Close is a no-op by default.
func (b *Base) Close(ctx context.Context) error { return nil }

// Info is the serialized status of a provider instance.
type Info struct {
	Type              domain.ProviderType `json:"type"`
	Domain            string              `json:"domain"`
	Name              string              `json:"name"`
	InstanceID        string              `json:"instance_id"`
	SupportedFeatures []domain.Feature    `json:"supported_features"`
	Available         bool                `json:"available"`
	LastError         string              `json:"last_error,omitempty"`
}

// InfoOf snapshots a provider's status for reporting.
func InfoOf(p Provider) Info {
	return Info{
		Type:              p.Type(),
		Domain:            p.Domain(),
		Name:              p.Name(),
		InstanceID:        p.InstanceID(),
		SupportedFeatures: p.SupportedFeatures(),
		Available:         p.Available(),
		LastError:         p.LastError(),
	}
}
