package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config captures the host-side settings for the entitlement service: where
// snapshots are persisted, an optional seed allocation file imported on first
// start, and logging options.
type Config struct {
	DataDir     string `toml:"DataDir"`
	SeedFile    string `toml:"SeedFile"`
	ServiceName string `toml:"ServiceName"`
	Environment string `toml:"Environment"`
	LogFile     string `toml:"LogFile"`
	LogMaxSize  int    `toml:"LogMaxSizeMB"`
	LogBackups  int    `toml:"LogMaxBackups"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown keys: %v", path, undecoded)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// SnapshotDBPath returns the LevelDB directory for the snapshot store.
func (c *Config) SnapshotDBPath() string {
	return filepath.Join(c.DataDir, "snapshots")
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "arcadeledger"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if cfg.LogMaxSize <= 0 {
		cfg.LogMaxSize = 100
	}
	if cfg.LogBackups < 0 {
		cfg.LogBackups = 0
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, fmt.Errorf("write default config %s: %w", path, err)
	}
	return cfg, nil
}
