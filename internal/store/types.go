package store

// Message sync states.
const (
	SyncStatusSynced  = "synced"
	SyncStatusPending = "pending"
	SyncStatusFailed  = "failed"
)

// Queued write states.
const (
	WriteStatusPending = "pending"
	WriteStatusSyncing = "syncing"
	WriteStatusFailed  = "failed"
)

// Message is a locally mirrored chat message. ID is the server-assigned
// message id, or a locally generated one for messages composed offline.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	ReceiverID     string
	Body           string
	ListingID      string // optional listing reference, empty if none
	Read           bool
	SyncStatus     string // synced, pending, failed
	CreatedAt      int64  // unix millis
}

// QueuedWrite is a deferred network operation recorded while offline or
// after a failed send. ID is the auto-incrementing sequence number that
// defines replay order.
type QueuedWrite struct {
	ID             int64
	Endpoint       string
	Method         string
	Headers        map[string]string
	Body           []byte
	IdempotencyKey string
	Status         string // pending, syncing, failed
	RetryCount     int
	ErrorMessage   string
	CreatedAt      int64
}

// ListingSnapshot is a denormalized copy of a listing detail page, kept
// so the listing can still be rendered offline. ViewedAt orders eviction.
type ListingSnapshot struct {
	ID         string
	Title      string
	Price      float64
	Currency   string
	Images     []string
	Location   string
	Category   string
	SellerName string
	Condition  string
	ViewedAt   int64 // unix millis
}

// SessionFlag is a small persisted preference.
type SessionFlag struct {
	Key       string
	Value     string
	UpdatedAt int64
}
