package bus

import "time"

// Event represents a domain event published on the bus.
//
// Kinds used across the offline layer:
//
//	message.saved        batch mirrored into the store
//	message.synced       pending message confirmed by replay
//	queue.enqueued       write descriptor appended
//	queue.replayed       replay pass finished (payload replay.Result)
//	listing.cached       listing snapshot recorded
//	network.online       connectivity regained
//	network.offline      connectivity lost
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
