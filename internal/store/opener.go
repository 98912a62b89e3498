package store

import (
	"sync"
)

// Opener hands out store handles keyed by database path. Open is idempotent:
// concurrent callers asking for the same path share one handle, and the
// one-time migration step runs exactly once per path even under concurrent
// opens. An Opener is created per process lifecycle and closed on shutdown,
// never held as package state.
type Opener struct {
	mu      sync.Mutex
	handles map[string]*DB
}

// NewOpener creates an empty Opener.
func NewOpener() *Opener {
	return &Opener{handles: make(map[string]*DB)}
}

// Open returns the shared handle for path, opening and migrating the
// database on first use. Subsequent calls for the same path return the
// same handle without touching the schema again.
func (o *Opener) Open(path string) (*DB, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if db, ok := o.handles[path]; ok {
		return db, nil
	}

	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	o.handles[path] = db
	return db, nil
}

// Close closes every handle the Opener has opened. Safe to call more than
// once; later Open calls after Close reopen from scratch.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var first error
	for path, db := range o.handles {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
		delete(o.handles, path)
	}
	return first
}
