package domain

// MediaType identifies one of the five media item kinds the library stores.
type MediaType string

const (
	MediaTypeArtist   MediaType = "artist"
	MediaTypeAlbum    MediaType = "album"
	MediaTypeTrack    MediaType = "track"
	MediaTypePlaylist MediaType = "playlist"
	MediaTypeRadio    MediaType = "radio"
)

// AllMediaTypes returns every syncable media type.
func AllMediaTypes() []MediaType {
	return []MediaType{
		MediaTypeArtist,
		MediaTypeAlbum,
		MediaTypeTrack,
		MediaTypePlaylist,
		MediaTypeRadio,
	}
}

// Valid reports whether mt is one of the known media types.
func (mt MediaType) Valid() bool {
	switch mt {
	case MediaTypeArtist, MediaTypeAlbum, MediaTypeTrack, MediaTypePlaylist, MediaTypeRadio:
		return true
	}
	return false
}

// ProviderType classifies a provider implementation.
type ProviderType string

const (
	ProviderTypeMusic    ProviderType = "music"
	ProviderTypeMetadata ProviderType = "metadata"
	ProviderTypePlayer   ProviderType = "player"
	ProviderTypePlugin   ProviderType = "plugin"
)

// Feature is a capability a provider declares. The core checks the declared
// set before invoking the corresponding operation.
type Feature string

const (
	FeatureLibraryArtists     Feature = "library_artists"
	FeatureLibraryAlbums      Feature = "library_albums"
	FeatureLibraryTracks      Feature = "library_tracks"
	FeatureLibraryPlaylists   Feature = "library_playlists"
	FeatureLibraryRadios      Feature = "library_radios"
	FeatureSearch             Feature = "search"
	FeatureBrowse             Feature = "browse"
	FeaturePlaylistCreate     Feature = "playlist_create"
	FeaturePlaylistTracksEdit Feature = "playlist_tracks_edit"
	FeatureArtistMetadata     Feature = "artist_metadata"
	FeatureAlbumMetadata      Feature = "album_metadata"
	FeatureGetArtistMBID      Feature = "get_artist_mbid"
)

// HasFeature reports whether the given feature set contains f.
func HasFeature(features []Feature, f Feature) bool {
	for _, x := range features {
		if x == f {
			return true
		}
	}
	return false
}
