package offline

import (
	"go.uber.org/zap"

	"github.com/ESmeer90/snapup/internal/store"
)

// SaveMessages mirrors a batch of server-confirmed messages. Malformed
// records are skipped and logged; the batch never fails as a whole. Returns
// the number of messages actually saved.
func (l *Layer) SaveMessages(msgs []store.Message) int {
	if l.db == nil {
		l.logger.Warn("save messages skipped, storage unavailable", zap.Int("count", len(msgs)))
		return 0
	}
	saved, skipped, err := l.db.SaveMessages(msgs)
	if err != nil {
		l.logger.Warn("save messages failed", zap.Error(err), zap.Int("count", len(msgs)))
		return 0
	}
	if skipped > 0 {
		l.logger.Warn("malformed messages skipped", zap.Int("skipped", skipped))
	}
	if saved > 0 {
		l.publish("message.saved", saved)
	}
	return saved
}

// ConversationMessages returns the locally known messages for a
// conversation in ascending creation order. Degrades to an empty slice.
func (l *Layer) ConversationMessages(conversationID string) []store.Message {
	if l.db == nil {
		return []store.Message{}
	}
	msgs, err := l.db.ConversationMessages(conversationID)
	if err != nil {
		l.logger.Warn("read conversation failed", zap.Error(err), zap.String("conversation", conversationID))
		return []store.Message{}
	}
	return msgs
}

// AllMessages returns the full mirror, for diagnostics and export.
func (l *Layer) AllMessages() []store.Message {
	if l.db == nil {
		return []store.Message{}
	}
	msgs, err := l.db.AllMessages()
	if err != nil {
		l.logger.Warn("message export read failed", zap.Error(err))
		return []store.Message{}
	}
	return msgs
}

// MarkConversationRead flips read flags locally. Best-effort.
func (l *Layer) MarkConversationRead(conversationID string) {
	if l.db == nil {
		return
	}
	if _, err := l.db.MarkConversationRead(conversationID); err != nil {
		l.logger.Warn("mark conversation read failed", zap.Error(err), zap.String("conversation", conversationID))
	}
}
