// Package config loads the daemon configuration: a YAML file with
// environment-variable overrides. Every field has a working default, so a
// fresh install runs with no config at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// ListenAddr is loopback-only by default: the API exists for the local
	// UI shell, not the network.
	ListenAddr string `yaml:"listen_addr"`

	// DataDir overrides the per-user data root.
	DataDir string `yaml:"data_dir"`

	// RecheckInterval is how often the scheduler revalidates the cached
	// license.
	RecheckInterval time.Duration `yaml:"recheck_interval"`
}

func Default() Config {
	return Config{
		ListenAddr:      "127.0.0.1:7311",
		RecheckInterval: time.Hour,
	}
}

// Load reads path (missing file is fine), then applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if v := os.Getenv("POS_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("POS_DATA_ROOT"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("POS_RECHECK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: POS_RECHECK_INTERVAL: %w", err)
		}
		cfg.RecheckInterval = d
	}

	if cfg.RecheckInterval <= 0 {
		cfg.RecheckInterval = time.Hour
	}
	return cfg, nil
}
