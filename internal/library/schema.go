package library

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// SchemaVersion is the compiled-in library schema version. A stored version
// that differs (and is nonzero) triggers the destructive migration below.
const SchemaVersion = 26

const versionKey = "version"

var itemTables = map[string]string{
	"artist":   "artists",
	"album":    "albums",
	"track":    "tracks",
	"playlist": "playlists",
	"radio":    "radios",
}

const createSchema = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	type TEXT
);

CREATE TABLE IF NOT EXISTS track_loudness (
	item_id INTEGER NOT NULL,
	provider TEXT NOT NULL,
	loudness REAL,
	UNIQUE(item_id, provider)
);

CREATE TABLE IF NOT EXISTS play_log (
	item_id INTEGER NOT NULL,
	provider TEXT NOT NULL,
	timestamp INTEGER DEFAULT 0,
	UNIQUE(item_id, provider)
);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	data BLOB,
	expires_at INTEGER
);

CREATE TABLE IF NOT EXISTS artists (
	item_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	sort_name TEXT NOT NULL,
	musicbrainz_id TEXT,
	in_library BOOLEAN DEFAULT 0,
	metadata json,
	provider_mappings json,
	timestamp INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS albums (
	item_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	sort_name TEXT NOT NULL,
	sort_artist TEXT,
	album_type TEXT,
	year INTEGER,
	version TEXT,
	in_library BOOLEAN DEFAULT 0,
	upc TEXT,
	musicbrainz_id TEXT,
	artists json,
	metadata json,
	provider_mappings json,
	timestamp INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tracks (
	item_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	sort_name TEXT NOT NULL,
	sort_artist TEXT,
	sort_album TEXT,
	version TEXT,
	duration INTEGER,
	in_library BOOLEAN DEFAULT 0,
	isrc TEXT,
	musicbrainz_id TEXT,
	disc_number INTEGER,
	track_number INTEGER,
	artists json,
	albums json,
	metadata json,
	provider_mappings json,
	timestamp INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS playlists (
	item_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	sort_name TEXT NOT NULL,
	owner TEXT NOT NULL,
	is_editable BOOLEAN NOT NULL,
	in_library BOOLEAN DEFAULT 0,
	metadata json,
	provider_mappings json,
	timestamp INTEGER DEFAULT 0,
	UNIQUE(name, owner)
);

CREATE TABLE IF NOT EXISTS radios (
	item_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	sort_name TEXT NOT NULL,
	in_library BOOLEAN DEFAULT 0,
	metadata json,
	provider_mappings json,
	timestamp INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS provider_mappings (
	media_type TEXT NOT NULL,
	item_id INTEGER NOT NULL,
	provider_domain TEXT NOT NULL,
	provider_instance TEXT NOT NULL,
	provider_item_id TEXT NOT NULL,
	UNIQUE(media_type, item_id, provider_instance, provider_item_id)
);

CREATE INDEX IF NOT EXISTS artists_in_library_idx ON artists(in_library);
CREATE INDEX IF NOT EXISTS albums_in_library_idx ON albums(in_library);
CREATE INDEX IF NOT EXISTS tracks_in_library_idx ON tracks(in_library);
CREATE INDEX IF NOT EXISTS playlists_in_library_idx ON playlists(in_library);
CREATE INDEX IF NOT EXISTS radios_in_library_idx ON radios(in_library);
CREATE INDEX IF NOT EXISTS artists_sort_name_idx ON artists(sort_name);
CREATE INDEX IF NOT EXISTS albums_sort_name_idx ON albums(sort_name);
CREATE INDEX IF NOT EXISTS tracks_sort_name_idx ON tracks(sort_name);
CREATE INDEX IF NOT EXISTS artists_musicbrainz_id_idx ON artists(musicbrainz_id);
CREATE INDEX IF NOT EXISTS albums_musicbrainz_id_idx ON albums(musicbrainz_id);
CREATE INDEX IF NOT EXISTS tracks_musicbrainz_id_idx ON tracks(musicbrainz_id);
CREATE INDEX IF NOT EXISTS tracks_isrc_idx ON tracks(isrc);
CREATE INDEX IF NOT EXISTS albums_upc_idx ON albums(upc);
CREATE INDEX IF NOT EXISTS provider_mappings_item_idx ON provider_mappings(media_type, provider_instance, provider_item_id);
`

// migrate creates missing tables and, when the stored schema version is
// nonzero and differs from SchemaVersion, drops and recreates the five
// item tables plus their mapping rows. Settings, loudness, play-log and
// cache survive a migration.
func (db *DB) migrate() error {
	if _, err := db.Exec(createSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	prevVersion := 0
	var stored string
	err := db.Get(&stored, "SELECT value FROM settings WHERE key = ?", versionKey)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil {
		if v, convErr := strconv.Atoi(stored); convErr == nil {
			prevVersion = v
		}
	}

	if prevVersion != 0 && prevVersion != SchemaVersion {
		db.log.Info("performing database migration",
			"from", prevVersion, "to", SchemaVersion)

		for _, table := range itemTables {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return fmt.Errorf("failed to drop %s: %w", table, err)
			}
		}
		// mapping rows reference the dropped items
		if _, err := db.Exec("DROP TABLE IF EXISTS provider_mappings"); err != nil {
			return fmt.Errorf("failed to drop provider_mappings: %w", err)
		}
		if _, err := db.Exec(createSchema); err != nil {
			return fmt.Errorf("failed to recreate schema: %w", err)
		}
	}

	if _, err := db.Exec(`
		INSERT INTO settings (key, value, type) VALUES (?, ?, 'str')
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, versionKey, strconv.Itoa(SchemaVersion)); err != nil {
		return err
	}

	if _, err := db.Exec("VACUUM"); err != nil {
		return err
	}
	return nil
}
