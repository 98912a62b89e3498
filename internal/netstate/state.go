package netstate

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ESmeer90/snapup/internal/bus"
)

// State represents the device connectivity state as seen by the offline
// layer.
type State string

const (
	Starting State = "STARTING"
	Online   State = "ONLINE"
	Offline  State = "OFFLINE"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Starting: {Online, Offline},
	Online:   {Offline},
	Offline:  {Online},
}

// Machine tracks connectivity transitions and announces them on the bus.
// The transition to Online is what triggers queue replay downstream.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Starting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Starting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns an error if the
// transition is invalid; staying in the same state is a silent no-op so
// repeated probe results don't flood the bus.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if to == m.current {
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		kind := "network.offline"
		if to == Online {
			kind = "network.online"
		}
		m.bus.Publish(bus.Event{
			Kind:      kind,
			Timestamp: time.Now(),
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for connectivity change events.
type StatusChange struct {
	From State
	To   State
}
