// Package config loads the autodiff configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the autodiff configuration. Command line flags take precedence.
type Config struct {
	FindMoves bool   `toml:"find_moves"`
	Format    string `toml:"format"` // lines, json or yaml; empty selects by file extension
	Key       string `toml:"key"`    // identity field of json and yaml records
	Lang      string `toml:"lang"`   // highlighting language of reloaded items

	Server Server `toml:"server"`
	Log    Log    `toml:"log"`
}

type Server struct {
	Addr    string `toml:"addr"`
	History int    `toml:"history"` // number of batches kept for the Atom feed
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// Default returns the configuration used if there is no configuration file.
func Default() *Config {
	return &Config{
		FindMoves: true,
		Server: Server{
			Addr:    "localhost:8080",
			History: 20,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads the configuration from path. Settings missing from the file keep their
// defaults, a missing file yields the default configuration.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

var ErrInvalid = errors.New("invalid setting")

func (c *Config) validate() error {
	switch c.Format {
	case "", "lines", "json", "yaml":
	default:
		return fmt.Errorf("format %q: %w", c.Format, ErrInvalid)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: %w", c.Log.Format, ErrInvalid)
	}
	if c.Server.History < 1 {
		return fmt.Errorf("server.history %d: %w", c.Server.History, ErrInvalid)
	}
	return nil
}
