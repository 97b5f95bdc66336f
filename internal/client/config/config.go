// Package config handles configuration for the secdrive CLI: defaults, an
// optional JSON file and command-line flags, applied in that order.
package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the secdrive CLI.
//
// Fields:
//   - ServerURL: base URL of the secdrive HTTP API.
//   - UserID: the user every request acts for.
//   - Token: optional HS256 bearer token, sent when the server binds identity.
//   - RequestTimeout: deadline for each API and object transfer call.
//   - OnlineCheckInterval: how often the client checks server liveness.
//   - DownloadDir: where decrypted downloads are written.
type Config struct {
	ServerURL           string
	UserID              string
	Token               string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
	DownloadDir         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 30 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.DownloadDir = "downloads"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server url is required")
	}
	return cfg, nil
}
