package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EnqueueWrite durably appends a write descriptor at the tail of the queue
// and fills in its assigned sequence number. Existing entries are never
// touched; order is the order of enqueue.
func (db *DB) EnqueueWrite(w *QueuedWrite) error {
	headers, err := json.Marshal(headersOrEmpty(w.Headers))
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}
	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO write_queue (endpoint, method, headers, body, idempotency_key, status, retry_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'pending', 0, ?, ?)`,
		w.Endpoint, w.Method, string(headers), w.Body, w.IdempotencyKey, now, now)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = id
	w.Status = WriteStatusPending
	w.CreatedAt = now
	return nil
}

// QueuedWrites returns every entry in the queue in strict FIFO order by
// sequence number, regardless of status.
func (db *DB) QueuedWrites() ([]QueuedWrite, error) {
	rows, err := db.Query(`
		SELECT id, endpoint, method, headers, body, idempotency_key, status, retry_count, error_message, created_at
		FROM write_queue
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := []QueuedWrite{}
	for rows.Next() {
		var (
			w       QueuedWrite
			headers string
			body    []byte
		)
		if err := rows.Scan(&w.ID, &w.Endpoint, &w.Method, &headers, &body, &w.IdempotencyKey, &w.Status, &w.RetryCount, &w.ErrorMessage, &w.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(headers), &w.Headers); err != nil {
			// A corrupt header blob should not hide the entry; replay it
			// with no extra headers.
			w.Headers = map[string]string{}
		}
		w.Body = body
		entries = append(entries, w)
	}
	return entries, rows.Err()
}

// GetQueuedWrite returns one entry by sequence number, or nil if absent.
func (db *DB) GetQueuedWrite(id int64) (*QueuedWrite, error) {
	var (
		w       QueuedWrite
		headers string
	)
	err := db.QueryRow(`
		SELECT id, endpoint, method, headers, body, idempotency_key, status, retry_count, error_message, created_at
		FROM write_queue WHERE id = ?`, id).
		Scan(&w.ID, &w.Endpoint, &w.Method, &headers, &w.Body, &w.IdempotencyKey, &w.Status, &w.RetryCount, &w.ErrorMessage, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(headers), &w.Headers); err != nil {
		w.Headers = map[string]string{}
	}
	return &w, nil
}

// MarkWriteSyncing moves an entry to 'syncing' for the duration of a replay
// attempt.
func (db *DB) MarkWriteSyncing(id int64) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE write_queue SET status = 'syncing', updated_at = ? WHERE id = ?`, now, id)
	return err
}

// MarkWriteFailed records a failed replay attempt: the entry stays in the
// queue with status 'failed' and an incremented retry count so a later
// trigger can try again.
func (db *DB) MarkWriteFailed(id int64, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE write_queue
		SET status = 'failed', retry_count = retry_count + 1, error_message = ?, updated_at = ?
		WHERE id = ?`, errMsg, now, id)
	return err
}

// RemoveWrite deletes one entry by sequence number. Called only after a
// confirmed successful replay.
func (db *DB) RemoveWrite(id int64) error {
	_, err := db.Exec(`DELETE FROM write_queue WHERE id = ?`, id)
	return err
}

// ClearQueue drops every entry. Only for explicit user-initiated reset.
func (db *DB) ClearQueue() (int64, error) {
	result, err := db.Exec(`DELETE FROM write_queue`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// QueuedCount returns the number of entries waiting in the queue.
func (db *DB) QueuedCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM write_queue`).Scan(&count)
	return count, err
}

func headersOrEmpty(h map[string]string) map[string]string {
	if h == nil {
		return map[string]string{}
	}
	return h
}
