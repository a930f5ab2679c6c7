// Package config loads the optional JSONC config file layered beneath
// command-line flags (§10.2), following calvinalkan-agent-task/config.go's
// precedence pattern: built-in defaults, then a config file, then explicit
// flags, with flags always winning.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config is the server's tunable surface.
type Config struct {
	Addr      string `json:"addr"`
	DBPath    string `json:"db"`
	PageSize  int    `json:"pageSize"`
	ReadSize  int    `json:"readFrames"`
	LRUK      int    `json:"lruK"`
}

// Default returns the zero-flag, zero-config-file configuration: the
// server must be runnable with none of this (§6 CLI surface).
func Default() Config {
	return Config{
		Addr:     ":4444",
		DBPath:   "main.db",
		PageSize: 4096,
		ReadSize: 64,
		LRUK:     2,
	}
}

// LoadFile reads a JSON-with-comments config file (hujson: // and /* */
// comments, trailing commas) and overlays it on top of base.
func LoadFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: reading %s: %w", path, err)
	}
	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return base, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg := base
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return base, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return cfg, nil
}
