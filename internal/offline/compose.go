package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ESmeer90/snapup/internal/store"
)

// ErrRateLimited is returned when a user composes messages faster than the
// configured per-user rate.
var ErrRateLimited = errors.New("compose rate exceeded")

// messagePayload is the wire body for a deferred message send.
type messagePayload struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	ReceiverID     string `json:"receiver_id"`
	Body           string `json:"body"`
	ListingID      string `json:"listing_id,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

// ComposeMessage records a message written while offline: it is mirrored
// locally with a generated id and sync status pending, and the matching
// POST is appended to the write queue for replay. The moderation screen and
// the per-user rate limit gate the compose before anything is persisted.
func (l *Layer) ComposeMessage(conversationID, senderID, receiverID, body, listingID string) (*store.Message, error) {
	if l.screen != nil {
		if err := l.screen(body); err != nil {
			return nil, fmt.Errorf("message rejected: %w", err)
		}
	}
	if l.limits != nil && !l.limits.Allow(senderID) {
		return nil, ErrRateLimited
	}
	if l.db == nil {
		return nil, ErrStorageUnavailable
	}

	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Body:           body,
		ListingID:      listingID,
		Read:           true, // own messages are read
		SyncStatus:     store.SyncStatusPending,
		CreatedAt:      time.Now().UnixMilli(),
	}
	if err := l.db.UpsertMessage(msg); err != nil {
		return nil, fmt.Errorf("mirror composed message: %w", err)
	}

	payload, err := json.Marshal(messagePayload{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Body:           msg.Body,
		ListingID:      msg.ListingID,
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode message payload: %w", err)
	}

	w := &store.QueuedWrite{
		Endpoint:       "/messages",
		Method:         "POST",
		Headers:        map[string]string{"Content-Type": "application/json"},
		Body:           payload,
		IdempotencyKey: msg.ID,
	}
	if err := l.db.EnqueueWrite(w); err != nil {
		// The mirror copy stays pending; a later manual retry can re-queue.
		l.logger.Warn("composed message not queued", zap.Error(err), zap.String("message", msg.ID))
		return msg, err
	}

	l.publish("queue.enqueued", w.ID)
	return msg, nil
}
