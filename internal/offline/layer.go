// Package offline is the surface the view and network layers call. It wraps
// the durable store behind a best-effort policy: when local storage could
// not be opened every operation degrades to an empty result or a reported
// failure, and nothing here ever blocks the app's networked path.
package offline

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ESmeer90/snapup/internal/bus"
	"github.com/ESmeer90/snapup/internal/ratelimit"
	"github.com/ESmeer90/snapup/internal/store"
)

// ErrStorageUnavailable is returned by write operations when the durable
// store could not be opened. Callers treat persistence as best-effort and
// must not surface this as a blocking error.
var ErrStorageUnavailable = errors.New("offline storage unavailable")

// Screen is the content-moderation hook: a pure function owned elsewhere.
// A non-nil error rejects the text.
type Screen func(text string) error

// Layer is the offline persistence facade. A Layer with a nil store handle
// is valid and degrades every operation.
type Layer struct {
	db       *store.DB
	bus      *bus.Bus
	logger   *zap.Logger
	capacity int
	screen   Screen
	limits   *ratelimit.Registry
}

// Options tunes a Layer.
type Options struct {
	ListingCapacity int                 // 0 means store.DefaultListingCapacity
	Screen          Screen              // nil disables moderation
	Limits          *ratelimit.Registry // nil disables compose rate limiting
}

// NewLayer creates the facade. db may be nil when storage is unavailable;
// the Layer then degrades instead of failing construction.
func NewLayer(db *store.DB, b *bus.Bus, logger *zap.Logger, opts Options) *Layer {
	capacity := opts.ListingCapacity
	if capacity <= 0 {
		capacity = store.DefaultListingCapacity
	}
	if db == nil {
		logger.Warn("offline storage unavailable, operating in degraded mode")
	}
	return &Layer{
		db:       db,
		bus:      b,
		logger:   logger,
		capacity: capacity,
		screen:   opts.Screen,
		limits:   opts.Limits,
	}
}

// Available reports whether the durable store is usable.
func (l *Layer) Available() bool {
	return l.db != nil
}

func (l *Layer) publish(kind string, payload any) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
