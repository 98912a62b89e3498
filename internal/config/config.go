package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults applied where the config file is silent.
const (
	DefaultAPIBaseURL       = "https://api.snapup.app"
	DefaultProbePath        = "/healthz"
	DefaultProbeIntervalSec = 15
	DefaultReplayPeriodSec  = 30
	DefaultListingCapacity  = 20
	DefaultComposePerMinute = 20
)

// Config represents the global ~/.snapup/config.toml.
type Config struct {
	DefaultProfile   string `toml:"default_profile"`
	APIBaseURL       string `toml:"api_base_url"`
	ProbePath        string `toml:"probe_path"`
	ProbeIntervalSec int    `toml:"probe_interval_sec"`
	ReplayPeriodSec  int    `toml:"replay_period_sec"`
	ListingCapacity  int    `toml:"listing_capacity"`
	ComposePerMinute int    `toml:"compose_per_minute"`
}

// Load reads config from the given path and fills unset fields with
// defaults. Returns an error if the file is missing or malformed.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config with every field at its default value.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.ProbePath == "" {
		c.ProbePath = DefaultProbePath
	}
	if c.ProbeIntervalSec <= 0 {
		c.ProbeIntervalSec = DefaultProbeIntervalSec
	}
	if c.ReplayPeriodSec <= 0 {
		c.ReplayPeriodSec = DefaultReplayPeriodSec
	}
	if c.ListingCapacity <= 0 {
		c.ListingCapacity = DefaultListingCapacity
	}
	if c.ComposePerMinute <= 0 {
		c.ComposePerMinute = DefaultComposePerMinute
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
