package netstate

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Monitor periodically probes a well-known endpoint and drives the
// connectivity state machine. It is the process-level stand-in for a
// platform online/offline notifier.
type Monitor struct {
	machine  *Machine
	probeURL string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// NewMonitor creates a monitor probing probeURL every interval.
func NewMonitor(machine *Machine, probeURL string, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		machine:  machine,
		probeURL: probeURL,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

// Start begins probing. The first probe runs immediately so the machine
// leaves Starting without waiting a full interval.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	go m.loop(ctx)
}

// Stop stops the probe loop.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		m.logger.Error("bad probe url", zap.Error(err), zap.String("url", m.probeURL))
		return
	}

	resp, err := m.client.Do(req)
	if err != nil {
		if terr := m.machine.Transition(Offline); terr != nil {
			m.logger.Warn("connectivity transition rejected", zap.Error(terr))
		}
		return
	}
	_ = resp.Body.Close()

	to := Online
	if resp.StatusCode >= 500 {
		to = Offline
	}
	if terr := m.machine.Transition(to); terr != nil {
		m.logger.Warn("connectivity transition rejected", zap.Error(terr))
	}
}
