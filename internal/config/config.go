// Package config loads and validates the process configuration. Loading
// happens exactly once at startup; any missing or malformed value is a
// fatal error rather than a per-request condition.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// recordsEnv, when set, overrides the YAML host record list with a JSON
// array of {"rr": ..., "ll": ...} objects.
const recordsEnv = "DDNS_RECORDS"

// HostRecord pairs a relative record name with the link-local address
// whose last 64 bits identify that host.
type HostRecord struct {
	RR string `yaml:"rr" json:"rr"`
	LL string `yaml:"ll" json:"ll"`
}

// Config is the full, validated process configuration.
type Config struct {
	Provider string            `yaml:"provider"`
	Settings map[string]string `yaml:"settings"`
	Domain   string            `yaml:"domain"`
	TTL      int               `yaml:"ttl"`
	Listen   string            `yaml:"listen"`
	APIToken string            `yaml:"api_token"`
	Records  []HostRecord      `yaml:"records"`
}

// Load reads the configuration from the path in the PD_DDNS_CONFIG
// environment variable, defaulting to "configs/pd-ddns.yaml".
func Load() (*Config, error) {
	path := os.Getenv("PD_DDNS_CONFIG")
	if path == "" {
		path = "configs/pd-ddns.yaml"
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from the given file path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand ${ENV_VAR} references so secrets stay out of the file.
	for k, v := range cfg.Settings {
		cfg.Settings[k] = os.ExpandEnv(v)
	}
	cfg.APIToken = os.ExpandEnv(cfg.APIToken)
	cfg.Domain = os.ExpandEnv(cfg.Domain)

	if raw := os.Getenv(recordsEnv); raw != "" {
		var records []HostRecord
		if err := json.Unmarshal([]byte(raw), &records); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", recordsEnv, err)
		}
		cfg.Records = records
	}

	if cfg.TTL == 0 {
		cfg.TTL = 600
	}
	if cfg.Listen == "" {
		cfg.Listen = ":3000"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Provider == "" {
		return fmt.Errorf("config: missing required field 'provider'")
	}
	if c.Domain == "" {
		return fmt.Errorf("config: missing required field 'domain'")
	}
	if c.APIToken == "" {
		return fmt.Errorf("config: missing required field 'api_token'")
	}
	if c.TTL < 0 {
		return fmt.Errorf("config: ttl must not be negative, got %d", c.TTL)
	}
	if len(c.Records) == 0 {
		return fmt.Errorf("config: at least one host record is required")
	}
	for i, r := range c.Records {
		if r.RR == "" {
			return fmt.Errorf("config: record %d: missing required field 'rr'", i)
		}
		if r.LL == "" {
			return fmt.Errorf("config: record %d (%s): missing required field 'll'", i, r.RR)
		}
		// The ll value is deliberately not parsed here: a link-local
		// string that goes bad between deploys must surface as that
		// host's per-request error, not take the whole process down.
	}
	return nil
}
