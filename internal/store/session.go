package store

import (
	"database/sql"
	"time"
)

// SetSessionValue stores a preference value, overwriting any previous one.
func (db *DB) SetSessionValue(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO session (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// SessionValue returns a stored preference, or nil if the key was never set.
func (db *DB) SessionValue(key string) (*SessionFlag, error) {
	var f SessionFlag
	err := db.QueryRow(`SELECT key, value, updated_at FROM session WHERE key = ?`, key).
		Scan(&f.Key, &f.Value, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
