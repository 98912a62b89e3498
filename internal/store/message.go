package store

import (
	"fmt"
	"time"
)

// UpsertMessage inserts or updates a message keyed by id.
func (db *DB) UpsertMessage(m *Message) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, body, listing_id, read, sync_status, created_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			read = excluded.read,
			sync_status = excluded.sync_status`,
		m.ID, m.ConversationID, m.SenderID, m.ReceiverID, m.Body, nullable(m.ListingID), m.Read, syncStatusOrDefault(m.SyncStatus), m.CreatedAt, now)
	return err
}

// SaveMessages upserts a batch of messages in one transaction. A record
// missing its id or conversation id is skipped rather than failing the
// batch; the skipped count is returned so the caller can log it.
func (db *DB) SaveMessages(msgs []Message) (saved, skipped int, err error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for i := range msgs {
		m := &msgs[i]
		if m.ID == "" || m.ConversationID == "" {
			skipped++
			continue
		}
		if _, err := tx.Exec(`
			INSERT INTO messages (id, conversation_id, sender_id, receiver_id, body, listing_id, read, sync_status, created_at, stored_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				body = excluded.body,
				read = excluded.read,
				sync_status = excluded.sync_status`,
			m.ID, m.ConversationID, m.SenderID, m.ReceiverID, m.Body, nullable(m.ListingID), m.Read, syncStatusOrDefault(m.SyncStatus), m.CreatedAt, now); err != nil {
			return 0, 0, fmt.Errorf("upsert message %q: %w", m.ID, err)
		}
		saved++
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit batch: %w", err)
	}
	return saved, skipped, nil
}

// ConversationMessages returns all known messages for a conversation sorted
// ascending by creation timestamp. An unknown conversation yields an empty
// slice, not an error.
func (db *DB) ConversationMessages(conversationID string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, sender_id, receiver_id, body, COALESCE(listing_id, ''), read, sync_status, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// AllMessages returns every mirrored message, for diagnostics and export.
func (db *DB) AllMessages() ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, sender_id, receiver_id, body, COALESCE(listing_id, ''), read, sync_status, created_at
		FROM messages
		ORDER BY conversation_id ASC, created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// MarkConversationRead flips the read flag for every message in a
// conversation. Returns the number of messages updated.
func (db *DB) MarkConversationRead(conversationID string) (int64, error) {
	result, err := db.Exec(`UPDATE messages SET read = 1 WHERE conversation_id = ? AND read = 0`, conversationID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SetMessageSyncStatus moves a mirrored message to a new sync state.
func (db *DB) SetMessageSyncStatus(id, status string) error {
	_, err := db.Exec(`UPDATE messages SET sync_status = ? WHERE id = ?`, status, id)
	return err
}

// MessageCount returns the total number of mirrored messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMessages(rows rowScanner) ([]Message, error) {
	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Body, &m.ListingID, &m.Read, &m.SyncStatus, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func syncStatusOrDefault(s string) string {
	if s == "" {
		return SyncStatusSynced
	}
	return s
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
