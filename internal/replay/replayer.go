// Package replay drains the outbound write queue against the remote API.
// Replay is strictly FIFO, continues past broken entries, and delivers
// at-least-once: the server deduplicates via idempotency keys.
package replay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ESmeer90/snapup/internal/bus"
	"github.com/ESmeer90/snapup/internal/store"
)

// After this many failed attempts a mirrored pending message is marked
// failed; the queue entry itself stays eligible for manual retry.
const messageRetryCap = 5

// Result aggregates one replay pass.
type Result struct {
	Synced int
	Failed int
}

// Replayer replays queued writes when triggered. Triggers come from the
// connectivity machine's online transition, from a periodic tick, or from
// an explicit Sync call; concurrent triggers serialize on an internal
// mutex so a pass never races itself.
type Replayer struct {
	db        *store.DB
	transport Transport
	bus       *bus.Bus
	logger    *zap.Logger
	period    time.Duration
	syncMu    sync.Mutex
	cancel    context.CancelFunc
}

// NewReplayer creates a replayer. period is the idle re-check interval.
func NewReplayer(db *store.DB, transport Transport, b *bus.Bus, logger *zap.Logger, period time.Duration) *Replayer {
	return &Replayer{
		db:        db,
		transport: transport,
		bus:       b,
		logger:    logger,
		period:    period,
	}
}

// Start listens for online transitions and ticks. Each trigger runs one
// full Sync pass.
func (r *Replayer) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	ch, unsub := r.bus.Subscribe("network.online", 16)

	go func() {
		defer unsub()
		ticker := time.NewTicker(r.period)
		defer ticker.Stop()
		for {
			select {
			case <-ch:
				r.logger.Info("connectivity regained, replaying queue")
				r.Sync(ctx)
			case <-ticker.C:
				r.Sync(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the trigger loop. A pass already in flight finishes.
func (r *Replayer) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Sync replays the queue strictly in sequence order. A failing entry is
// retained with an incremented retry count and the pass continues with the
// next entry, so one permanently broken write never blocks the rest.
// Safe to call repeatedly and from multiple goroutines.
func (r *Replayer) Sync(ctx context.Context) Result {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	var res Result
	if r.db == nil {
		return res
	}

	entries, err := r.db.QueuedWrites()
	if err != nil {
		r.logger.Warn("read queue failed", zap.Error(err))
		return res
	}
	if len(entries) == 0 {
		return res
	}

	for i := range entries {
		entry := &entries[i]
		if ctx.Err() != nil {
			break
		}
		if err := r.db.MarkWriteSyncing(entry.ID); err != nil {
			r.logger.Warn("mark syncing failed", zap.Error(err), zap.Int64("id", entry.ID))
			res.Failed++
			continue
		}

		if err := r.transport.Do(ctx, entry); err != nil {
			r.logger.Warn("replay failed",
				zap.Error(err),
				zap.Int64("id", entry.ID),
				zap.String("endpoint", entry.Endpoint),
				zap.Int("retries", entry.RetryCount+1))
			_ = r.db.MarkWriteFailed(entry.ID, err.Error())
			if entry.IdempotencyKey != "" && entry.RetryCount+1 >= messageRetryCap {
				_ = r.db.SetMessageSyncStatus(entry.IdempotencyKey, store.SyncStatusFailed)
			}
			res.Failed++
			continue
		}

		if err := r.db.RemoveWrite(entry.ID); err != nil {
			// The write succeeded but the entry remains; the server will
			// deduplicate the inevitable re-send via the idempotency key.
			r.logger.Warn("remove replayed entry failed", zap.Error(err), zap.Int64("id", entry.ID))
		}
		if entry.IdempotencyKey != "" {
			if err := r.db.SetMessageSyncStatus(entry.IdempotencyKey, store.SyncStatusSynced); err != nil {
				r.logger.Warn("mark message synced failed", zap.Error(err), zap.String("message", entry.IdempotencyKey))
			} else {
				r.publish("message.synced", entry.IdempotencyKey)
			}
		}
		res.Synced++
	}

	r.logger.Info("replay pass finished", zap.Int("synced", res.Synced), zap.Int("failed", res.Failed))
	r.publish("queue.replayed", res)
	return res
}

func (r *Replayer) publish(kind string, payload any) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
