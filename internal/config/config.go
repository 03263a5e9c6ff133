// Package config provides configuration management for the LCP
// validation tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir returns the default config directory (~/.lcpcheck).
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".lcpcheck"), nil
}

// DefaultConfigPath returns the default config file path
// (~/.lcpcheck/config.yml).
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}

// Config holds the lcpcheck CLI's configuration.
type Config struct {
	StoreDir        string `yaml:"store_dir,omitempty"`
	CrlURL          string `yaml:"crl_url,omitempty"`
	CrlCacheTTL     int64  `yaml:"crl_cache_ttl_seconds,omitempty"`
	PassphraseCache int    `yaml:"passphrase_cache_size,omitempty"`
	RedisAddr       string `yaml:"redis_addr,omitempty"`
}

// Validate checks that the configuration has required fields for
// operation.
func (c *Config) Validate() error {
	if c.StoreDir == "" {
		return errors.New("store_dir is required")
	}
	return nil
}

// LoadDefault reads the config from DefaultConfigPath, returning a
// zero-value Config with sane defaults if the file does not exist.
func LoadDefault() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load reads a Config from path, falling back to defaults if the file
// is absent.
func Load(path string) (*Config, error) {
	cfg := &Config{
		PassphraseCache: 256,
		CrlCacheTTL:     3600,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		dir, derr := DefaultConfigDir()
		if derr == nil {
			cfg.StoreDir = filepath.Join(dir, "store")
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as
// needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
