package library

import (
	"database/sql"
	"errors"
	"time"
)

// GetCache returns the cached blob for key, or nil when missing/expired.
func (db *DB) GetCache(key string) ([]byte, error) {
	type cacheRow struct {
		Data      []byte        `db:"data"`
		ExpiresAt sql.NullInt64 `db:"expires_at"`
	}

	var row cacheRow
	err := db.Get(&row, "SELECT data, expires_at FROM cache WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if row.ExpiresAt.Valid && time.Now().Unix() > row.ExpiresAt.Int64 {
		_, _ = db.Exec("DELETE FROM cache WHERE key = ?", key)
		return nil, nil
	}

	return row.Data, nil
}

// SetCache stores data under key. A zero ttl means no expiration.
func (db *DB) SetCache(key string, data []byte, ttl time.Duration) error {
	var expiresAt *int64
	if ttl > 0 {
		t := time.Now().Add(ttl).Unix()
		expiresAt = &t
	}

	_, err := db.Exec(`
		INSERT INTO cache (key, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at
	`, key, data, expiresAt)
	return err
}

// ClearCachePrefix removes every cache entry whose key starts with prefix.
// An empty prefix clears the whole cache.
func (db *DB) ClearCachePrefix(prefix string) error {
	_, err := db.Exec("DELETE FROM cache WHERE key LIKE ?", prefix+"%")
	return err
}
