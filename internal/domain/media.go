package domain

// ProviderMapping is one source-provider's view of a logical media item.
// Uniqueness is (media_type, item_id, provider_instance, provider_item_id).
type ProviderMapping struct {
	ItemID           string `json:"item_id"`
	ProviderDomain   string `json:"provider_domain"`
	ProviderInstance string `json:"provider_instance"`
	ContentType      string `json:"content_type,omitempty"`
	SampleRate       int    `json:"sample_rate,omitempty"`
	BitDepth         int    `json:"bit_depth,omitempty"`
	BitRate          int    `json:"bit_rate,omitempty"`
	URL              string `json:"url,omitempty"`
	Available        bool   `json:"available"`
}

// Image is a reference to artwork for a media item.
type Image struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Metadata holds the free-form metadata blob attached to every media item.
type Metadata struct {
	Description string      `json:"description,omitempty"`
	Genres      StringSlice `json:"genres,omitempty"`
	Images      []Image     `json:"images,omitempty"`
	Checksum    string      `json:"checksum,omitempty"`
	Lyrics      string      `json:"lyrics,omitempty"`
	Copyright   string      `json:"copyright,omitempty"`
}

// ItemRef is a lightweight reference from one media item to another
// (track -> album, track/album -> artist).
type ItemRef struct {
	ItemID int64  `json:"item_id"`
	Name   string `json:"name"`
}

// Artist is a library artist.
type Artist struct {
	ItemID           int64       `db:"item_id" json:"item_id"`
	Name             string      `db:"name" json:"name"`
	SortName         string      `db:"sort_name" json:"sort_name"`
	MusicBrainzID    string      `db:"musicbrainz_id" json:"musicbrainz_id,omitempty"`
	InLibrary        bool        `db:"in_library" json:"in_library"`
	Metadata         MetadataJSON `db:"metadata" json:"metadata"`
	ProviderMappings MappingSet  `db:"provider_mappings" json:"provider_mappings"`
	Timestamp        int64       `db:"timestamp" json:"timestamp"`
}

// Album is a library album.
type Album struct {
	ItemID           int64       `db:"item_id" json:"item_id"`
	Name             string      `db:"name" json:"name"`
	SortName         string      `db:"sort_name" json:"sort_name"`
	SortArtist       string      `db:"sort_artist" json:"sort_artist,omitempty"`
	AlbumType        string      `db:"album_type" json:"album_type,omitempty"`
	Year             int         `db:"year" json:"year,omitempty"`
	Version          string      `db:"version" json:"version,omitempty"`
	InLibrary        bool        `db:"in_library" json:"in_library"`
	UPC              string      `db:"upc" json:"upc,omitempty"`
	MusicBrainzID    string      `db:"musicbrainz_id" json:"musicbrainz_id,omitempty"`
	Artists          ItemRefs    `db:"artists" json:"artists"`
	Metadata         MetadataJSON `db:"metadata" json:"metadata"`
	ProviderMappings MappingSet  `db:"provider_mappings" json:"provider_mappings"`
	Timestamp        int64       `db:"timestamp" json:"timestamp"`
}

// Track is a library track.
type Track struct {
	ItemID           int64       `db:"item_id" json:"item_id"`
	Name             string      `db:"name" json:"name"`
	SortName         string      `db:"sort_name" json:"sort_name"`
	SortArtist       string      `db:"sort_artist" json:"sort_artist,omitempty"`
	SortAlbum        string      `db:"sort_album" json:"sort_album,omitempty"`
	Version          string      `db:"version" json:"version,omitempty"`
	Duration         int         `db:"duration" json:"duration"`
	InLibrary        bool        `db:"in_library" json:"in_library"`
	ISRC             string      `db:"isrc" json:"isrc,omitempty"`
	MusicBrainzID    string      `db:"musicbrainz_id" json:"musicbrainz_id,omitempty"`
	DiscNumber       int         `db:"disc_number" json:"disc_number,omitempty"`
	TrackNumber      int         `db:"track_number" json:"track_number,omitempty"`
	Artists          ItemRefs    `db:"artists" json:"artists"`
	Albums           ItemRefs    `db:"albums" json:"albums"`
	Metadata         MetadataJSON `db:"metadata" json:"metadata"`
	ProviderMappings MappingSet  `db:"provider_mappings" json:"provider_mappings"`
	Timestamp        int64       `db:"timestamp" json:"timestamp"`
}

// Playlist is a library playlist.
type Playlist struct {
	ItemID           int64       `db:"item_id" json:"item_id"`
	Name             string      `db:"name" json:"name"`
	SortName         string      `db:"sort_name" json:"sort_name"`
	Owner            string      `db:"owner" json:"owner"`
	IsEditable       bool        `db:"is_editable" json:"is_editable"`
	InLibrary        bool        `db:"in_library" json:"in_library"`
	Metadata         MetadataJSON `db:"metadata" json:"metadata"`
	ProviderMappings MappingSet  `db:"provider_mappings" json:"provider_mappings"`
	Timestamp        int64       `db:"timestamp" json:"timestamp"`
}

// Radio is a library radio station.
type Radio struct {
	ItemID           int64       `db:"item_id" json:"item_id"`
	Name             string      `db:"name" json:"name"`
	SortName         string      `db:"sort_name" json:"sort_name"`
	InLibrary        bool        `db:"in_library" json:"in_library"`
	Metadata         MetadataJSON `db:"metadata" json:"metadata"`
	ProviderMappings MappingSet  `db:"provider_mappings" json:"provider_mappings"`
	Timestamp        int64       `db:"timestamp" json:"timestamp"`
}

// SearchResult groups search hits per media type. Results from multiple
// providers are merged as-is; de-duplication is left to consumers.
type SearchResult struct {
	Artists   []Artist   `json:"artists,omitempty"`
	Albums    []Album    `json:"albums,omitempty"`
	Tracks    []Track    `json:"tracks,omitempty"`
	Playlists []Playlist `json:"playlists,omitempty"`
	Radios    []Radio    `json:"radios,omitempty"`
}

// Merge appends all entries from other into r.
func (r *SearchResult) Merge(other *SearchResult) {
	if other == nil {
		return
	}
	r.Artists = append(r.Artists, other.Artists...)
	r.Albums = append(r.Albums, other.Albums...)
	r.Tracks = append(r.Tracks, other.Tracks...)
	r.Playlists = append(r.Playlists, other.Playlists...)
	r.Radios = append(r.Radios, other.Radios...)
}

// Count returns the total number of items across all types.
func (r *SearchResult) Count() int {
	return len(r.Artists) + len(r.Albums) + len(r.Tracks) + len(r.Playlists) + len(r.Radios)
}

// BrowseFolder is a single level of a provider's browse tree.
type BrowseFolder struct {
	ItemID string         `json:"item_id"`
	Provider string       `json:"provider"`
	Path   string         `json:"path"`
	Name   string         `json:"name"`
	Folders []BrowseFolder `json:"folders,omitempty"`
	Tracks  []Track        `json:"tracks,omitempty"`
	Playlists []Playlist   `json:"playlists,omitempty"`
}

// MappingFor returns the mapping for the given provider instance, if any.
func (m MappingSet) MappingFor(instanceID string) (ProviderMapping, bool) {
	for _, pm := range m {
		if pm.ProviderInstance == instanceID {
			return pm, true
		}
	}
	return ProviderMapping{}, false
}

// Add inserts pm unless an equal (instance, item id) mapping already exists.
func (m MappingSet) Add(pm ProviderMapping) MappingSet {
	for i, existing := range m {
		if existing.ProviderInstance == pm.ProviderInstance && existing.ItemID == pm.ItemID {
			m[i] = pm
			return m
		}
	}
	return append(m, pm)
}

// Remove drops every mapping belonging to the given provider instance and
// returns the remaining set.
func (m MappingSet) Remove(instanceID string) MappingSet {
	out := m[:0]
	for _, pm := range m {
		if pm.ProviderInstance != instanceID {
			out = append(out, pm)
		}
	}
	return out
}
