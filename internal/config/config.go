// Package config loads the TOML file that boots a core instance:
// the Icecast SOURCE endpoint to stream to, the station metadata sent in
// the SOURCE handshake, and the path to the fallback Ogg/Vorbis track.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Metadata is the station information sent as Icecast "ice-*" headers
// during the SOURCE handshake.
type Metadata struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	URL         string `toml:"url"`
	Genre       string `toml:"genre"`
}

// Config is the root of the TOML configuration file.
type Config struct {
	IcecastURL    string   `toml:"icecast_url"`
	ListenAddr    string   `toml:"listen_addr"`
	SampleRate    uint32   `toml:"sample_rate"`
	FallbackTrack string   `toml:"fallback_track"`
	Metadata      Metadata `toml:"metadata"`
	LogLevel      string   `toml:"log_level"`
}

const (
	defaultListenAddr = "0.0.0.0:3001"
	defaultSampleRate = 48000
)

// Load reads and validates the TOML file at path, filling in defaults
// for any field the file leaves unset.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.SampleRate == 0 {
		c.SampleRate = defaultSampleRate
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.IcecastURL == "" {
		return fmt.Errorf("config: icecast_url is required")
	}
	if c.FallbackTrack == "" {
		return fmt.Errorf("config: fallback_track is required")
	}
	return nil
}
