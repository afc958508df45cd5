package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // editor config (hcl)
	LayoutPath string // layout script file or directory (hcl), optional

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// Offline runs against an in-memory backend instead of the configured
	// server, seeded from SeedPath when set.
	Offline  bool
	SeedPath string
	// Save persists the automatic canvas after the layout is replayed.
	Save bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.SeedPath != "" && !cfg.Offline {
		return nil, errors.New("a seed file is only used with -offline")
	}
	return &cfg, nil
}
