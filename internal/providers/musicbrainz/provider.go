package musicbrainz

import (
	"context"
	"strings"

	"github.com/medleyd/medley/internal/config"
	"github.com/medleyd/medley/internal/constants"
	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/provider"
)

// scores below this are treated as no match
const minMatchScore = 90

// Provider is the MusicBrainz metadata provider.
type Provider struct {
	provider.Base

	client *Client
}

// New constructs the provider. Registered as the factory for the
// "musicbrainz" domain.
func New(manifest *provider.Manifest, cfg config.ProviderConfig, deps provider.Deps) (provider.Provider, error) {
	baseURL := cfg.Values["base_url"]
	if baseURL == "" {
		baseURL = constants.MusicBrainzBaseURL
	}
	return &Provider{
		Base:   provider.NewBase(manifest, cfg, deps.Log),
		client: NewClient(baseURL),
	}, nil
}

func (p *Provider) SupportedFeatures() []domain.Feature {
	return []domain.Feature{
		domain.FeatureArtistMetadata,
		domain.FeatureAlbumMetadata,
		domain.FeatureGetArtistMBID,
	}
}

func (p *Provider) Setup(ctx context.Context) error { return nil }

// GetArtistMBID resolves an artist name to a MusicBrainz id. Only a
// confident match is returned; anything ambiguous yields an empty id.
func (p *Provider) GetArtistMBID(ctx context.Context, artist *domain.Artist) (string, error) {
	if artist.MusicBrainzID != "" {
		return artist.MusicBrainzID, nil
	}
	matches, err := p.client.SearchArtists(ctx, artist.Name)
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if m.Score >= minMatchScore && strings.EqualFold(m.Name, artist.Name) {
			return m.ID, nil
		}
	}
	return "", nil
}

// ArtistMetadata fetches genre tags for an artist. The MusicBrainz id is
// resolved first when missing.
func (p *Provider) ArtistMetadata(ctx context.Context, artist *domain.Artist) (*domain.Metadata, error) {
	mbid := artist.MusicBrainzID
	if mbid == "" {
		var err error
		if mbid, err = p.GetArtistMBID(ctx, artist); err != nil {
			return nil, err
		}
		if mbid == "" {
			return nil, nil
		}
	}

	mb, err := p.client.GetArtist(ctx, mbid)
	if err != nil {
		return nil, err
	}
	genres := topTags(mb.Tags, 5)
	if len(genres) == 0 {
		return nil, nil
	}
	return &domain.Metadata{Genres: genres}, nil
}

// AlbumMetadata fetches genre tags for an album through a release-group
// search.
func (p *Provider) AlbumMetadata(ctx context.Context, album *domain.Album) (*domain.Metadata, error) {
	artistName := ""
	if len(album.Artists) > 0 {
		artistName = album.Artists[0].Name
	}
	groups, err := p.client.SearchReleaseGroups(ctx, album.Name, artistName)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.Score < minMatchScore || !strings.EqualFold(g.Title, album.Name) {
			continue
		}
		genres := topTags(g.Tags, 5)
		if len(genres) == 0 {
			return nil, nil
		}
		return &domain.Metadata{Genres: genres}, nil
	}
	return nil, nil
}
