// Package config loads the client configuration from a YAML file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Reconnect bounds the transport's reconnection loop. Backoff grows
// exponentially from Initial to Max; after MaxAttempts failures the adapter
// reports the offline status and stops retrying.
type Reconnect struct {
	MaxAttempts      int `yaml:"max_attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms"`
	MaxBackoffMS     int `yaml:"max_backoff_ms"`
}

// Config is the full client configuration.
type Config struct {
	// ServerURL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	ServerURL string `yaml:"server_url"`

	// LobbyURL is the HTTP room-listing endpoint consumed by presentation.
	LobbyURL string `yaml:"lobby_url"`

	// DisplayName is the name announced on join_room.
	DisplayName string `yaml:"display_name"`

	// SessionDB is the path of the session-resumption token database.
	SessionDB string `yaml:"session_db"`

	Reconnect Reconnect `yaml:"reconnect"`

	// NotifyRatePerSecond caps subscriber notifications for throttled
	// consumers. Critical subscribers are never throttled.
	NotifyRatePerSecond int `yaml:"notify_rate_per_second"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ServerURL:   "ws://localhost:8080/ws",
		LobbyURL:    "http://localhost:8080/rooms",
		DisplayName: "anonymous",
		SessionDB:   "fodinha-session.db",
		Reconnect: Reconnect{
			MaxAttempts:      8,
			InitialBackoffMS: 250,
			MaxBackoffMS:     8000,
		},
		NotifyRatePerSecond: 30,
	}
}

// Load reads a YAML config file and fills missing fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults restores zero-valued fields an explicit file may have blanked.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Reconnect.MaxAttempts <= 0 {
		c.Reconnect.MaxAttempts = def.Reconnect.MaxAttempts
	}
	if c.Reconnect.InitialBackoffMS <= 0 {
		c.Reconnect.InitialBackoffMS = def.Reconnect.InitialBackoffMS
	}
	if c.Reconnect.MaxBackoffMS <= 0 {
		c.Reconnect.MaxBackoffMS = def.Reconnect.MaxBackoffMS
	}
	if c.NotifyRatePerSecond <= 0 {
		c.NotifyRatePerSecond = def.NotifyRatePerSecond
	}
	if c.SessionDB == "" {
		c.SessionDB = def.SessionDB
	}
}

// Validate rejects configurations the transport cannot work with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server_url %q: %w", c.ServerURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid server_url %q: scheme must be ws or wss", c.ServerURL)
	}
	if c.Reconnect.MaxBackoffMS < c.Reconnect.InitialBackoffMS {
		return fmt.Errorf("reconnect max_backoff_ms (%d) below initial_backoff_ms (%d)",
			c.Reconnect.MaxBackoffMS, c.Reconnect.InitialBackoffMS)
	}
	return nil
}

// InitialBackoff returns the reconnect starting delay.
func (r Reconnect) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff returns the reconnect delay ceiling.
func (r Reconnect) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMS) * time.Millisecond
}

// NotifyInterval converts the notification rate cap to a minimum interval.
func (c *Config) NotifyInterval() time.Duration {
	return time.Second / time.Duration(c.NotifyRatePerSecond)
}
