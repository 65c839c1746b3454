package library

import (
	"github.com/medleyd/medley/internal/domain"
)

// Listing helpers used by the HTTP layer and the metadata scanner. All
// listings are ordered by sort name; limit 0 means no limit.

func limitClause(limit, offset int) (string, []any) {
	if limit <= 0 {
		return "", nil
	}
	return " LIMIT ? OFFSET ?", []any{limit, offset}
}

func (db *DB) ListArtists(inLibraryOnly bool, limit, offset int) ([]domain.Artist, error) {
	query := "SELECT * FROM artists"
	if inLibraryOnly {
		query += " WHERE in_library = 1"
	}
	query += " ORDER BY sort_name"
	clause, args := limitClause(limit, offset)
	return db.QueryArtists(query+clause, args...)
}

func (db *DB) ListAlbums(inLibraryOnly bool, limit, offset int) ([]domain.Album, error) {
	query := "SELECT * FROM albums"
	if inLibraryOnly {
		query += " WHERE in_library = 1"
	}
	query += " ORDER BY sort_name"
	clause, args := limitClause(limit, offset)
	return db.QueryAlbums(query+clause, args...)
}

func (db *DB) ListTracks(inLibraryOnly bool, limit, offset int) ([]domain.Track, error) {
	query := "SELECT * FROM tracks"
	if inLibraryOnly {
		query += " WHERE in_library = 1"
	}
	query += " ORDER BY sort_name"
	clause, args := limitClause(limit, offset)
	return db.QueryTracks(query+clause, args...)
}

func (db *DB) ListPlaylists(inLibraryOnly bool, limit, offset int) ([]domain.Playlist, error) {
	query := "SELECT * FROM playlists"
	if inLibraryOnly {
		query += " WHERE in_library = 1"
	}
	query += " ORDER BY sort_name"
	clause, args := limitClause(limit, offset)
	return db.QueryPlaylists(query+clause, args...)
}

func (db *DB) ListRadios(inLibraryOnly bool, limit, offset int) ([]domain.Radio, error) {
	query := "SELECT * FROM radios"
	if inLibraryOnly {
		query += " WHERE in_library = 1"
	}
	query += " ORDER BY sort_name"
	clause, args := limitClause(limit, offset)
	return db.QueryRadios(query+clause, args...)
}

// Search helpers match stored items of one type against a normalized search
// term, optionally restricted to items mapped to a provider instance.

func (db *DB) SearchArtists(term, instanceID string, limit int) ([]domain.Artist, error) {
	pattern := "%" + domain.SearchQuery(term) + "%"
	if instanceID == "" {
		return db.QueryArtists(
			"SELECT * FROM artists WHERE (name LIKE ? OR sort_name LIKE ?) ORDER BY sort_name LIMIT ?",
			pattern, pattern, limit)
	}
	return db.QueryArtists(`
		SELECT * FROM artists WHERE (name LIKE ? OR sort_name LIKE ?)
		AND item_id IN (SELECT item_id FROM provider_mappings WHERE media_type = 'artist' AND provider_instance = ?)
		ORDER BY sort_name LIMIT ?
	`, pattern, pattern, instanceID, limit)
}

func (db *DB) SearchAlbums(term, instanceID string, limit int) ([]domain.Album, error) {
	pattern := "%" + domain.SearchQuery(term) + "%"
	if instanceID == "" {
		return db.QueryAlbums(
			"SELECT * FROM albums WHERE (name LIKE ? OR sort_name LIKE ?) ORDER BY sort_name LIMIT ?",
			pattern, pattern, limit)
	}
	return db.QueryAlbums(`
		SELECT * FROM albums WHERE (name LIKE ? OR sort_name LIKE ?)
		AND item_id IN (SELECT item_id FROM provider_mappings WHERE media_type = 'album' AND provider_instance = ?)
		ORDER BY sort_name LIMIT ?
	`, pattern, pattern, instanceID, limit)
}

func (db *DB) SearchTracks(term, instanceID string, limit int) ([]domain.Track, error) {
	pattern := "%" + domain.SearchQuery(term) + "%"
	if instanceID == "" {
		return db.QueryTracks(
			"SELECT * FROM tracks WHERE (name LIKE ? OR sort_name LIKE ?) ORDER BY sort_name LIMIT ?",
			pattern, pattern, limit)
	}
	return db.QueryTracks(`
		SELECT * FROM tracks WHERE (name LIKE ? OR sort_name LIKE ?)
		AND item_id IN (SELECT item_id FROM provider_mappings WHERE media_type = 'track' AND provider_instance = ?)
		ORDER BY sort_name LIMIT ?
	`, pattern, pattern, instanceID, limit)
}

func (db *DB) SearchPlaylists(term, instanceID string, limit int) ([]domain.Playlist, error) {
	pattern := "%" + domain.SearchQuery(term) + "%"
	if instanceID == "" {
		return db.QueryPlaylists(
			"SELECT * FROM playlists WHERE (name LIKE ? OR sort_name LIKE ?) ORDER BY sort_name LIMIT ?",
			pattern, pattern, limit)
	}
	return db.QueryPlaylists(`
		SELECT * FROM playlists WHERE (name LIKE ? OR sort_name LIKE ?)
		AND item_id IN (SELECT item_id FROM provider_mappings WHERE media_type = 'playlist' AND provider_instance = ?)
		ORDER BY sort_name LIMIT ?
	`, pattern, pattern, instanceID, limit)
}

func (db *DB) SearchRadios(term, instanceID string, limit int) ([]domain.Radio, error) {
	pattern := "%" + domain.SearchQuery(term) + "%"
	if instanceID == "" {
		return db.QueryRadios(
			"SELECT * FROM radios WHERE (name LIKE ? OR sort_name LIKE ?) ORDER BY sort_name LIMIT ?",
			pattern, pattern, limit)
	}
	return db.QueryRadios(`
		SELECT * FROM radios WHERE (name LIKE ? OR sort_name LIKE ?)
		AND item_id IN (SELECT item_id FROM provider_mappings WHERE media_type = 'radio' AND provider_instance = ?)
		ORDER BY sort_name LIMIT ?
	`, pattern, pattern, instanceID, limit)
}
