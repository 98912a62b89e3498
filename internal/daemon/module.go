// Package daemon wires the offline agent: the profile's durable store,
// the offline facade, the write-queue replayer, and the connectivity
// monitor that triggers replay on reconnect.
package daemon

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ESmeer90/snapup/internal/bus"
	"github.com/ESmeer90/snapup/internal/config"
	"github.com/ESmeer90/snapup/internal/lock"
	"github.com/ESmeer90/snapup/internal/logging"
	"github.com/ESmeer90/snapup/internal/netstate"
	"github.com/ESmeer90/snapup/internal/offline"
	"github.com/ESmeer90/snapup/internal/profile"
	"github.com/ESmeer90/snapup/internal/ratelimit"
	"github.com/ESmeer90/snapup/internal/replay"
	"github.com/ESmeer90/snapup/internal/store"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	DataDir     string // optional override for testing; empty = use default layout
}

func (p Params) dir() string {
	if p.DataDir != "" {
		return p.DataDir
	}
	return profile.Dir(p.ProfileName)
}

func (p Params) dbPath() string {
	if p.DataDir != "" {
		return filepath.Join(p.DataDir, "snapup.db")
	}
	return profile.DBPath(p.ProfileName)
}

func (p Params) logPath() string {
	if p.DataDir != "" {
		return filepath.Join(p.DataDir, "logs", "snapupd.log")
	}
	return profile.LogPath(p.ProfileName)
}

// Module returns the fx module for the agent, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("agent",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideMachine,
			provideLock,
			provideOpener,
			provideStore,
			provideLimits,
			provideLayer,
			provideTransport,
			provideReplayer,
			provideMonitor,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(logger *zap.Logger) *config.Config {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		logger.Info("no config file, using defaults", zap.Error(err))
		return config.Default()
	}
	return cfg
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(p.logPath(), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideMachine(b *bus.Bus) *netstate.Machine {
	return netstate.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if p.DataDir == "" {
		if err := profile.EnsureDir(p.ProfileName); err != nil {
			return nil, err
		}
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(p.dir())
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideOpener() *store.Opener {
	return store.NewOpener()
}

// provideStore opens the profile database. An unusable store is not fatal:
// the agent keeps running degraded, since the networked path stays the
// source of truth.
func provideStore(p Params, o *store.Opener, logger *zap.Logger) *store.DB {
	dbPath := p.dbPath()
	db, err := o.Open(dbPath)
	if err != nil {
		logger.Warn("store unavailable, running degraded", zap.Error(err), zap.String("path", dbPath))
		return nil
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db
}

func provideLimits(cfg *config.Config) *ratelimit.Registry {
	return ratelimit.New(cfg.ComposePerMinute)
}

func provideLayer(db *store.DB, b *bus.Bus, cfg *config.Config, limits *ratelimit.Registry, logger *zap.Logger) *offline.Layer {
	return offline.NewLayer(db, b, logger, offline.Options{
		ListingCapacity: cfg.ListingCapacity,
		Limits:          limits,
	})
}

func provideTransport(cfg *config.Config) replay.Transport {
	return replay.NewHTTPTransport(cfg.APIBaseURL)
}

func provideReplayer(db *store.DB, t replay.Transport, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *replay.Replayer {
	return replay.NewReplayer(db, t, b, logger, time.Duration(cfg.ReplayPeriodSec)*time.Second)
}

func provideMonitor(m *netstate.Machine, cfg *config.Config, logger *zap.Logger) *netstate.Monitor {
	probeURL := cfg.APIBaseURL + cfg.ProbePath
	return netstate.NewMonitor(m, probeURL, time.Duration(cfg.ProbeIntervalSec)*time.Second, logger)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, o *store.Opener, layer *offline.Layer, r *replay.Replayer, mon *netstate.Monitor, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Replayer first so the monitor's initial online transition
			// already has a listener.
			r.Start(context.Background())
			mon.Start(context.Background())
			if queued := layer.QueuedCount(); queued > 0 {
				logger.Info("unsynced writes pending", zap.Int64("queued", queued))
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			mon.Stop()
			r.Stop()
			if err := o.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("agent stopped")
			return nil
		},
	})
}
