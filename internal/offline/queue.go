package offline

import (
	"go.uber.org/zap"

	"github.com/ESmeer90/snapup/internal/store"
)

// QueueWrite durably records a failed or deferred network write for later
// replay. Returns ErrStorageUnavailable in degraded mode so the caller can
// surface an advisory, nothing more.
func (l *Layer) QueueWrite(w *store.QueuedWrite) error {
	if l.db == nil {
		l.logger.Warn("write not queued, storage unavailable", zap.String("endpoint", w.Endpoint))
		return ErrStorageUnavailable
	}
	if err := l.db.EnqueueWrite(w); err != nil {
		l.logger.Warn("enqueue write failed", zap.Error(err), zap.String("endpoint", w.Endpoint))
		return err
	}
	l.publish("queue.enqueued", w.ID)
	return nil
}

// QueuedWrites returns the queue in FIFO order. Degrades to empty.
func (l *Layer) QueuedWrites() []store.QueuedWrite {
	if l.db == nil {
		return []store.QueuedWrite{}
	}
	entries, err := l.db.QueuedWrites()
	if err != nil {
		l.logger.Warn("read queue failed", zap.Error(err))
		return []store.QueuedWrite{}
	}
	return entries
}

// QueuedCount is the advisory unsynced-item count for the UI banner.
func (l *Layer) QueuedCount() int64 {
	if l.db == nil {
		return 0
	}
	count, err := l.db.QueuedCount()
	if err != nil {
		l.logger.Warn("count queue failed", zap.Error(err))
		return 0
	}
	return count
}

// RemoveFromQueue deletes one entry after a confirmed successful replay.
func (l *Layer) RemoveFromQueue(id int64) error {
	if l.db == nil {
		return ErrStorageUnavailable
	}
	return l.db.RemoveWrite(id)
}

// ClearQueue drops every queued write. Only for explicit user reset.
func (l *Layer) ClearQueue() (int64, error) {
	if l.db == nil {
		return 0, ErrStorageUnavailable
	}
	dropped, err := l.db.ClearQueue()
	if err != nil {
		l.logger.Warn("clear queue failed", zap.Error(err))
		return 0, err
	}
	l.logger.Info("queue cleared", zap.Int64("dropped", dropped))
	return dropped, nil
}
