package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/secdrive/internal/flagx"
	"github.com/dmitrijs2005/secdrive/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Keys missing
// from the file keep their current value.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	UserID              string         `json:"user_id"`
	Token               string         `json:"token"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	DownloadDir         string         `json:"download_dir"`
}

// parseJson overlays cfg with the file named by -c/-config or
// $SECDRIVE_CONFIG. No file means no change.
func parseJson(cfg *Config) error {
	path := flagx.ConfigFile()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	jc := JsonConfig{
		ServerURL:           cfg.ServerURL,
		UserID:              cfg.UserID,
		Token:               cfg.Token,
		RequestTimeout:      timex.Duration{Duration: cfg.RequestTimeout},
		OnlineCheckInterval: timex.Duration{Duration: cfg.OnlineCheckInterval},
		DownloadDir:         cfg.DownloadDir,
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ServerURL = jc.ServerURL
	cfg.UserID = jc.UserID
	cfg.Token = jc.Token
	cfg.RequestTimeout = jc.RequestTimeout.Duration
	cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	cfg.DownloadDir = jc.DownloadDir
	return nil
}
