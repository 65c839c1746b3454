package library

import (
	"database/sql"
	"errors"
	"time"
)

// SetTrackLoudness stores the measured loudness of a track as reported by a
// provider. Repeated measurements replace the previous value.
func (db *DB) SetTrackLoudness(itemID int64, provider string, loudness float64) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO track_loudness (item_id, provider, loudness)
		VALUES (?, ?, ?)
	`, itemID, provider, loudness)
	return err
}

// GetTrackLoudness returns the stored loudness for a track, with ok false
// when no measurement exists.
func (db *DB) GetTrackLoudness(itemID int64, provider string) (float64, bool, error) {
	var loudness float64
	err := db.Get(&loudness,
		"SELECT loudness FROM track_loudness WHERE item_id = ? AND provider = ?",
		itemID, provider)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return loudness, true, nil
}

// GetProviderLoudness returns the average loudness across all measured
// tracks of a provider, used as a fallback for unmeasured tracks.
func (db *DB) GetProviderLoudness(provider string) (float64, bool, error) {
	var avg sql.NullFloat64
	err := db.Get(&avg,
		"SELECT AVG(loudness) FROM track_loudness WHERE provider = ?", provider)
	if err != nil {
		return 0, false, err
	}
	return avg.Float64, avg.Valid, nil
}

// MarkItemPlayed records a play of the item on the given provider.
func (db *DB) MarkItemPlayed(itemID int64, provider string) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO play_log (item_id, provider, timestamp)
		VALUES (?, ?, ?)
	`, itemID, provider, time.Now().Unix())
	return err
}
