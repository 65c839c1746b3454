package library

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/events"
)

func tableFor(mt domain.MediaType) string {
	return itemTables[string(mt)]
}

func libraryURI(mt domain.MediaType, itemID int64) string {
	return fmt.Sprintf("library://%s/%d", mt, itemID)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrMediaNotFound
	}
	return err
}

// ---- typed lookups

func (db *DB) GetArtist(itemID int64) (*domain.Artist, error) {
	var a domain.Artist
	if err := db.Get(&a, "SELECT * FROM artists WHERE item_id = ?", itemID); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (db *DB) GetAlbum(itemID int64) (*domain.Album, error) {
	var a domain.Album
	if err := db.Get(&a, "SELECT * FROM albums WHERE item_id = ?", itemID); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (db *DB) GetTrack(itemID int64) (*domain.Track, error) {
	var t domain.Track
	if err := db.Get(&t, "SELECT * FROM tracks WHERE item_id = ?", itemID); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (db *DB) GetPlaylist(itemID int64) (*domain.Playlist, error) {
	var p domain.Playlist
	if err := db.Get(&p, "SELECT * FROM playlists WHERE item_id = ?", itemID); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (db *DB) GetRadio(itemID int64) (*domain.Radio, error) {
	var r domain.Radio
	if err := db.Get(&r, "SELECT * FROM radios WHERE item_id = ?", itemID); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// ---- free-form queries

func (db *DB) QueryArtists(query string, args ...any) ([]domain.Artist, error) {
	var out []domain.Artist
	return out, db.Select(&out, query, args...)
}

func (db *DB) QueryAlbums(query string, args ...any) ([]domain.Album, error) {
	var out []domain.Album
	return out, db.Select(&out, query, args...)
}

func (db *DB) QueryTracks(query string, args ...any) ([]domain.Track, error) {
	var out []domain.Track
	return out, db.Select(&out, query, args...)
}

func (db *DB) QueryPlaylists(query string, args ...any) ([]domain.Playlist, error) {
	var out []domain.Playlist
	return out, db.Select(&out, query, args...)
}

func (db *DB) QueryRadios(query string, args ...any) ([]domain.Radio, error) {
	var out []domain.Radio
	return out, db.Select(&out, query, args...)
}

// ---- provider mapping lookups

// ItemIDByProviderID resolves a provider's item id to the library item id.
// provider may be an instance id or a domain.
func (db *DB) ItemIDByProviderID(mt domain.MediaType, provItemID, provider string) (int64, error) {
	var itemID int64
	err := db.Get(&itemID, `
		SELECT item_id FROM provider_mappings
		WHERE media_type = ? AND provider_item_id = ?
		AND (provider_instance = ? OR provider_domain = ?)
		LIMIT 1
	`, mt, provItemID, provider, provider)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrMediaNotFound
	}
	return itemID, err
}

// ItemIDsByProvider returns every library item of the given type that has a
// mapping to the given provider instance.
func (db *DB) ItemIDsByProvider(mt domain.MediaType, instanceID string) ([]int64, error) {
	var ids []int64
	err := db.Select(&ids, `
		SELECT DISTINCT item_id FROM provider_mappings
		WHERE media_type = ? AND provider_instance = ?
	`, mt, instanceID)
	return ids, err
}

// MappingRow is one provider-mapping side-table row.
type MappingRow struct {
	ItemID         int64  `db:"item_id"`
	ProviderItemID string `db:"provider_item_id"`
}

// MappingsByProvider returns every (library item, provider item) pair of the
// given type mapped to the given provider instance.
func (db *DB) MappingsByProvider(mt domain.MediaType, instanceID string) ([]MappingRow, error) {
	var rows []MappingRow
	err := db.Select(&rows, `
		SELECT item_id, provider_item_id FROM provider_mappings
		WHERE media_type = ? AND provider_instance = ?
	`, mt, instanceID)
	return rows, err
}

func (db *DB) syncMappings(mt domain.MediaType, itemID int64, mappings domain.MappingSet) error {
	if _, err := db.Exec(
		"DELETE FROM provider_mappings WHERE media_type = ? AND item_id = ?", mt, itemID); err != nil {
		return err
	}
	for _, m := range mappings {
		if _, err := db.Exec(`
			INSERT OR REPLACE INTO provider_mappings
			(media_type, item_id, provider_domain, provider_instance, provider_item_id)
			VALUES (?, ?, ?, ?, ?)
		`, mt, itemID, m.ProviderDomain, m.ProviderInstance, m.ItemID); err != nil {
			return err
		}
	}
	return nil
}

// findExisting matches an incoming item to a stored one: first through any
// of its provider mappings, then through the MusicBrainz id hint.
func (db *DB) findExisting(mt domain.MediaType, mappings domain.MappingSet, mbid string) (int64, bool, error) {
	for _, m := range mappings {
		id, err := db.ItemIDByProviderID(mt, m.ItemID, m.ProviderInstance)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, domain.ErrMediaNotFound) {
			return 0, false, err
		}
	}
	if mbid != "" {
		var id int64
		err := db.Get(&id,
			"SELECT item_id FROM "+tableFor(mt)+" WHERE musicbrainz_id = ? LIMIT 1", mbid)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, false, err
		}
	}
	return 0, false, nil
}

func (db *DB) insertReturningID(query string, arg any) (int64, error) {
	rows, err := db.NamedQuery(query, arg)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var id int64
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
	} else if err := rows.Err(); err != nil {
		return 0, err
	}
	return id, nil
}

// merge helpers: with overwrite the incoming value wins when set, otherwise
// blanks are filled from the incoming item
func pickStr(overwrite bool, existing, incoming string) string {
	if overwrite && incoming != "" {
		return incoming
	}
	if existing == "" {
		return incoming
	}
	return existing
}

func pickInt(overwrite bool, existing, incoming int) int {
	if overwrite && incoming != 0 {
		return incoming
	}
	if existing == 0 {
		return incoming
	}
	return existing
}

func pickMetadata(overwrite bool, existing, incoming domain.MetadataJSON) domain.MetadataJSON {
	if overwrite {
		return incoming
	}
	out := existing
	out.Description = pickStr(false, existing.Description, incoming.Description)
	out.Checksum = pickStr(true, existing.Checksum, incoming.Checksum)
	out.Lyrics = pickStr(false, existing.Lyrics, incoming.Lyrics)
	out.Copyright = pickStr(false, existing.Copyright, incoming.Copyright)
	if len(existing.Genres) == 0 {
		out.Genres = incoming.Genres
	}
	if len(existing.Images) == 0 {
		out.Images = incoming.Images
	}
	return out
}

func pickRefs(overwrite bool, existing, incoming domain.ItemRefs) domain.ItemRefs {
	if overwrite && len(incoming) > 0 {
		return incoming
	}
	if len(existing) == 0 {
		return incoming
	}
	return existing
}

func normalizeSortNames(name string, sortName *string) {
	if *sortName == "" {
		*sortName = domain.SortName(name)
	}
}

// ---- upserts

// UpsertArtist inserts the artist or merges it into the matching stored
// item. With overwrite the incoming fields replace the stored ones (a local
// edit); provider mappings are always unioned.
func (db *DB) UpsertArtist(a *domain.Artist, overwrite bool) (*domain.Artist, error) {
	normalizeSortNames(a.Name, &a.SortName)
	a.Timestamp = time.Now().Unix()

	id, found, err := db.findExisting(domain.MediaTypeArtist, a.ProviderMappings, a.MusicBrainzID)
	if err != nil {
		return nil, err
	}

	if !found {
		newID, err := db.insertReturningID(`
			INSERT INTO artists (name, sort_name, musicbrainz_id, in_library, metadata, provider_mappings, timestamp)
			VALUES (:name, :sort_name, :musicbrainz_id, :in_library, :metadata, :provider_mappings, :timestamp)
			RETURNING item_id
		`, a)
		if err != nil {
			return nil, fmt.Errorf("failed to insert artist: %w", err)
		}
		if err := db.syncMappings(domain.MediaTypeArtist, newID, a.ProviderMappings); err != nil {
			return nil, err
		}
		db.publish(events.MediaItemAdded, libraryURI(domain.MediaTypeArtist, newID), nil)
		return db.GetArtist(newID)
	}

	existing, err := db.GetArtist(id)
	if err != nil {
		return nil, err
	}
	merged := domain.Artist{
		ItemID:        id,
		Name:          pickStr(overwrite, existing.Name, a.Name),
		SortName:      pickStr(overwrite, existing.SortName, a.SortName),
		MusicBrainzID: pickStr(false, existing.MusicBrainzID, a.MusicBrainzID),
		InLibrary:     existing.InLibrary || a.InLibrary,
		Metadata:      pickMetadata(overwrite, existing.Metadata, a.Metadata),
		Timestamp:     a.Timestamp,
	}
	merged.ProviderMappings = existing.ProviderMappings
	for _, m := range a.ProviderMappings {
		merged.ProviderMappings = merged.ProviderMappings.Add(m)
	}

	if _, err := db.NamedExec(`
		UPDATE artists SET name = :name, sort_name = :sort_name, musicbrainz_id = :musicbrainz_id,
			in_library = :in_library, metadata = :metadata, provider_mappings = :provider_mappings,
			timestamp = :timestamp
		WHERE item_id = :item_id
	`, &merged); err != nil {
		return nil, fmt.Errorf("failed to update artist: %w", err)
	}
	if err := db.syncMappings(domain.MediaTypeArtist, id, merged.ProviderMappings); err != nil {
		return nil, err
	}
	db.publish(events.MediaItemUpdated, libraryURI(domain.MediaTypeArtist, id), nil)
	return db.GetArtist(id)
}

// UpsertAlbum inserts or merges an album, matching like UpsertArtist.
func (db *DB) UpsertAlbum(a *domain.Album, overwrite bool) (*domain.Album, error) {
	normalizeSortNames(a.Name, &a.SortName)
	a.Timestamp = time.Now().Unix()

	id, found, err := db.findExisting(domain.MediaTypeAlbum, a.ProviderMappings, a.MusicBrainzID)
	if err != nil {
		return nil, err
	}

	if !found {
		newID, err := db.insertReturningID(`
			INSERT INTO albums (name, sort_name, sort_artist, album_type, year, version, in_library,
				upc, musicbrainz_id, artists, metadata, provider_mappings, timestamp)
			VALUES (:name, :sort_name, :sort_artist, :album_type, :year, :version, :in_library,
				:upc, :musicbrainz_id, :artists, :metadata, :provider_mappings, :timestamp)
			RETURNING item_id
		`, a)
		if err != nil {
			return nil, fmt.Errorf("failed to insert album: %w", err)
		}
		if err := db.syncMappings(domain.MediaTypeAlbum, newID, a.ProviderMappings); err != nil {
			return nil, err
		}
		db.publish(events.MediaItemAdded, libraryURI(domain.MediaTypeAlbum, newID), nil)
		return db.GetAlbum(newID)
	}

	existing, err := db.GetAlbum(id)
	if err != nil {
		return nil, err
	}
	merged := domain.Album{
		ItemID:        id,
		Name:          pickStr(overwrite, existing.Name, a.Name),
		SortName:      pickStr(overwrite, existing.SortName, a.SortName),
		SortArtist:    pickStr(overwrite, existing.SortArtist, a.SortArtist),
		AlbumType:     pickStr(overwrite, existing.AlbumType, a.AlbumType),
		Year:          pickInt(overwrite, existing.Year, a.Year),
		Version:       pickStr(overwrite, existing.Version, a.Version),
		InLibrary:     existing.InLibrary || a.InLibrary,
		UPC:           pickStr(false, existing.UPC, a.UPC),
		MusicBrainzID: pickStr(false, existing.MusicBrainzID, a.MusicBrainzID),
		Artists:       pickRefs(overwrite, existing.Artists, a.Artists),
		Metadata:      pickMetadata(overwrite, existing.Metadata, a.Metadata),
		Timestamp:     a.Timestamp,
	}
	merged.ProviderMappings = existing.ProviderMappings
	for _, m := range a.ProviderMappings {
		merged.ProviderMappings = merged.ProviderMappings.Add(m)
	}

	if _, err := db.NamedExec(`
		UPDATE albums SET name = :name, sort_name = :sort_name, sort_artist = :sort_artist,
			album_type = :album_type, year = :year, version = :version, in_library = :in_library,
			upc = :upc, musicbrainz_id = :musicbrainz_id, artists = :artists, metadata = :metadata,
			provider_mappings = :provider_mappings, timestamp = :timestamp
		WHERE item_id = :item_id
	`, &merged); err != nil {
		return nil, fmt.Errorf("failed to update album: %w", err)
	}
	if err := db.syncMappings(domain.MediaTypeAlbum, id, merged.ProviderMappings); err != nil {
		return nil, err
	}
	db.publish(events.MediaItemUpdated, libraryURI(domain.MediaTypeAlbum, id), nil)
	return db.GetAlbum(id)
}

// UpsertTrack inserts or merges a track, matching like UpsertArtist.
func (db *DB) UpsertTrack(t *domain.Track, overwrite bool) (*domain.Track, error) {
	normalizeSortNames(t.Name, &t.SortName)
	t.Timestamp = time.Now().Unix()

	id, found, err := db.findExisting(domain.MediaTypeTrack, t.ProviderMappings, t.MusicBrainzID)
	if err != nil {
		return nil, err
	}

	if !found {
		newID, err := db.insertReturningID(`
			INSERT INTO tracks (name, sort_name, sort_artist, sort_album, version, duration,
				in_library, isrc, musicbrainz_id, disc_number, track_number, artists, albums,
				metadata, provider_mappings, timestamp)
			VALUES (:name, :sort_name, :sort_artist, :sort_album, :version, :duration,
				:in_library, :isrc, :musicbrainz_id, :disc_number, :track_number, :artists, :albums,
				:metadata, :provider_mappings, :timestamp)
			RETURNING item_id
		`, t)
		if err != nil {
			return nil, fmt.Errorf("failed to insert track: %w", err)
		}
		if err := db.syncMappings(domain.MediaTypeTrack, newID, t.ProviderMappings); err != nil {
			return nil, err
		}
		db.publish(events.MediaItemAdded, libraryURI(domain.MediaTypeTrack, newID), nil)
		return db.GetTrack(newID)
	}

	existing, err := db.GetTrack(id)
	if err != nil {
		return nil, err
	}
	merged := domain.Track{
		ItemID:        id,
		Name:          pickStr(overwrite, existing.Name, t.Name),
		SortName:      pickStr(overwrite, existing.SortName, t.SortName),
		SortArtist:    pickStr(overwrite, existing.SortArtist, t.SortArtist),
		SortAlbum:     pickStr(overwrite, existing.SortAlbum, t.SortAlbum),
		Version:       pickStr(overwrite, existing.Version, t.Version),
		Duration:      pickInt(overwrite, existing.Duration, t.Duration),
		InLibrary:     existing.InLibrary || t.InLibrary,
		ISRC:          pickStr(false, existing.ISRC, t.ISRC),
		MusicBrainzID: pickStr(false, existing.MusicBrainzID, t.MusicBrainzID),
		DiscNumber:    pickInt(overwrite, existing.DiscNumber, t.DiscNumber),
		TrackNumber:   pickInt(overwrite, existing.TrackNumber, t.TrackNumber),
		Artists:       pickRefs(overwrite, existing.Artists, t.Artists),
		Albums:        pickRefs(overwrite, existing.Albums, t.Albums),
		Metadata:      pickMetadata(overwrite, existing.Metadata, t.Metadata),
		Timestamp:     t.Timestamp,
	}
	merged.ProviderMappings = existing.ProviderMappings
	for _, m := range t.ProviderMappings {
		merged.ProviderMappings = merged.ProviderMappings.Add(m)
	}

	if _, err := db.NamedExec(`
		UPDATE tracks SET name = :name, sort_name = :sort_name, sort_artist = :sort_artist,
			sort_album = :sort_album, version = :version, duration = :duration,
			in_library = :in_library, isrc = :isrc, musicbrainz_id = :musicbrainz_id,
			disc_number = :disc_number, track_number = :track_number, artists = :artists,
			albums = :albums, metadata = :metadata, provider_mappings = :provider_mappings,
			timestamp = :timestamp
		WHERE item_id = :item_id
	`, &merged); err != nil {
		return nil, fmt.Errorf("failed to update track: %w", err)
	}
	if err := db.syncMappings(domain.MediaTypeTrack, id, merged.ProviderMappings); err != nil {
		return nil, err
	}
	db.publish(events.MediaItemUpdated, libraryURI(domain.MediaTypeTrack, id), nil)
	return db.GetTrack(id)
}

// UpsertPlaylist inserts or merges a playlist.
func (db *DB) UpsertPlaylist(p *domain.Playlist, overwrite bool) (*domain.Playlist, error) {
	normalizeSortNames(p.Name, &p.SortName)
	p.Timestamp = time.Now().Unix()

	id, found, err := db.findExisting(domain.MediaTypePlaylist, p.ProviderMappings, "")
	if err != nil {
		return nil, err
	}

	if !found {
		newID, err := db.insertReturningID(`
			INSERT INTO playlists (name, sort_name, owner, is_editable, in_library, metadata, provider_mappings, timestamp)
			VALUES (:name, :sort_name, :owner, :is_editable, :in_library, :metadata, :provider_mappings, :timestamp)
			RETURNING item_id
		`, p)
		if err != nil {
			return nil, fmt.Errorf("failed to insert playlist: %w", err)
		}
		if err := db.syncMappings(domain.MediaTypePlaylist, newID, p.ProviderMappings); err != nil {
			return nil, err
		}
		db.publish(events.MediaItemAdded, libraryURI(domain.MediaTypePlaylist, newID), nil)
		return db.GetPlaylist(newID)
	}

	existing, err := db.GetPlaylist(id)
	if err != nil {
		return nil, err
	}
	merged := domain.Playlist{
		ItemID:     id,
		Name:       pickStr(overwrite, existing.Name, p.Name),
		SortName:   pickStr(overwrite, existing.SortName, p.SortName),
		Owner:      pickStr(overwrite, existing.Owner, p.Owner),
		IsEditable: p.IsEditable,
		InLibrary:  existing.InLibrary || p.InLibrary,
		Metadata:   pickMetadata(overwrite, existing.Metadata, p.Metadata),
		Timestamp:  p.Timestamp,
	}
	merged.ProviderMappings = existing.ProviderMappings
	for _, m := range p.ProviderMappings {
		merged.ProviderMappings = merged.ProviderMappings.Add(m)
	}

	if _, err := db.NamedExec(`
		UPDATE playlists SET name = :name, sort_name = :sort_name, owner = :owner,
			is_editable = :is_editable, in_library = :in_library, metadata = :metadata,
			provider_mappings = :provider_mappings, timestamp = :timestamp
		WHERE item_id = :item_id
	`, &merged); err != nil {
		return nil, fmt.Errorf("failed to update playlist: %w", err)
	}
	if err := db.syncMappings(domain.MediaTypePlaylist, id, merged.ProviderMappings); err != nil {
		return nil, err
	}
	db.publish(events.MediaItemUpdated, libraryURI(domain.MediaTypePlaylist, id), nil)
	return db.GetPlaylist(id)
}

// UpsertRadio inserts or merges a radio station.
func (db *DB) UpsertRadio(r *domain.Radio, overwrite bool) (*domain.Radio, error) {
	normalizeSortNames(r.Name, &r.SortName)
	r.Timestamp = time.Now().Unix()

	id, found, err := db.findExisting(domain.MediaTypeRadio, r.ProviderMappings, "")
	if err != nil {
		return nil, err
	}

	if !found {
		newID, err := db.insertReturningID(`
			INSERT INTO radios (name, sort_name, in_library, metadata, provider_mappings, timestamp)
			VALUES (:name, :sort_name, :in_library, :metadata, :provider_mappings, :timestamp)
			RETURNING item_id
		`, r)
		if err != nil {
			return nil, fmt.Errorf("failed to insert radio: %w", err)
		}
		if err := db.syncMappings(domain.MediaTypeRadio, newID, r.ProviderMappings); err != nil {
			return nil, err
		}
		db.publish(events.MediaItemAdded, libraryURI(domain.MediaTypeRadio, newID), nil)
		return db.GetRadio(newID)
	}

	existing, err := db.GetRadio(id)
	if err != nil {
		return nil, err
	}
	merged := domain.Radio{
		ItemID:    id,
		Name:      pickStr(overwrite, existing.Name, r.Name),
		SortName:  pickStr(overwrite, existing.SortName, r.SortName),
		InLibrary: existing.InLibrary || r.InLibrary,
		Metadata:  pickMetadata(overwrite, existing.Metadata, r.Metadata),
		Timestamp: r.Timestamp,
	}
	merged.ProviderMappings = existing.ProviderMappings
	for _, m := range r.ProviderMappings {
		merged.ProviderMappings = merged.ProviderMappings.Add(m)
	}

	if _, err := db.NamedExec(`
		UPDATE radios SET name = :name, sort_name = :sort_name, in_library = :in_library,
			metadata = :metadata, provider_mappings = :provider_mappings, timestamp = :timestamp
		WHERE item_id = :item_id
	`, &merged); err != nil {
		return nil, fmt.Errorf("failed to update radio: %w", err)
	}
	if err := db.syncMappings(domain.MediaTypeRadio, id, merged.ProviderMappings); err != nil {
		return nil, err
	}
	db.publish(events.MediaItemUpdated, libraryURI(domain.MediaTypeRadio, id), nil)
	return db.GetRadio(id)
}

// ---- library flag, deletion, mapping cleanup

// SetInLibrary flips the in_library flag on an item.
func (db *DB) SetInLibrary(mt domain.MediaType, itemID int64, inLibrary bool) error {
	res, err := db.Exec(
		"UPDATE "+tableFor(mt)+" SET in_library = ? WHERE item_id = ?", inLibrary, itemID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMediaNotFound
	}
	db.publish(events.MediaItemUpdated, libraryURI(mt, itemID), nil)
	return nil
}

// DeleteItem removes an item and its mapping rows.
func (db *DB) DeleteItem(mt domain.MediaType, itemID int64) error {
	if _, err := db.Exec("DELETE FROM "+tableFor(mt)+" WHERE item_id = ?", itemID); err != nil {
		return err
	}
	if _, err := db.Exec(
		"DELETE FROM provider_mappings WHERE media_type = ? AND item_id = ?", mt, itemID); err != nil {
		return err
	}
	db.publish(events.MediaItemDeleted, libraryURI(mt, itemID), nil)
	return nil
}

// RemoveProviderMapping drops every mapping the given provider instance has
// on the item. An item left with zero mappings is orphaned and deleted.
func (db *DB) RemoveProviderMapping(mt domain.MediaType, itemID int64, instanceID string) error {
	var mappings domain.MappingSet
	err := db.Get(&mappings,
		"SELECT provider_mappings FROM "+tableFor(mt)+" WHERE item_id = ?", itemID)
	if err != nil {
		return notFound(err)
	}

	remaining := mappings.Remove(instanceID)
	if len(remaining) == 0 {
		return db.DeleteItem(mt, itemID)
	}

	if _, err := db.Exec(
		"UPDATE "+tableFor(mt)+" SET provider_mappings = ? WHERE item_id = ?",
		remaining, itemID); err != nil {
		return err
	}
	if _, err := db.Exec(`
		DELETE FROM provider_mappings
		WHERE media_type = ? AND item_id = ? AND provider_instance = ?
	`, mt, itemID, instanceID); err != nil {
		return err
	}
	db.publish(events.MediaItemUpdated, libraryURI(mt, itemID), nil)
	return nil
}
