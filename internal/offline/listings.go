package offline

import (
	"go.uber.org/zap"

	"github.com/ESmeer90/snapup/internal/store"
)

// CacheListing records a viewed listing snapshot and evicts beyond the
// configured capacity. Best-effort; the detail view already has the data.
func (l *Layer) CacheListing(snapshot *store.ListingSnapshot) {
	if l.db == nil {
		return
	}
	if err := l.db.CacheListing(snapshot, l.capacity); err != nil {
		l.logger.Warn("cache listing failed", zap.Error(err), zap.String("listing", snapshot.ID))
		return
	}
	l.publish("listing.cached", snapshot.ID)
}

// CachedListings returns cached snapshots, most recently viewed first.
func (l *Layer) CachedListings() []store.ListingSnapshot {
	if l.db == nil {
		return []store.ListingSnapshot{}
	}
	listings, err := l.db.CachedListings()
	if err != nil {
		l.logger.Warn("read listings cache failed", zap.Error(err))
		return []store.ListingSnapshot{}
	}
	return listings
}

// CachedListing returns one snapshot, or nil when not cached (or degraded).
func (l *Layer) CachedListing(id string) *store.ListingSnapshot {
	if l.db == nil {
		return nil
	}
	snapshot, err := l.db.CachedListing(id)
	if err != nil {
		l.logger.Warn("read cached listing failed", zap.Error(err), zap.String("listing", id))
		return nil
	}
	return snapshot
}
