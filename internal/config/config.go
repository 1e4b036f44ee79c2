// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

// Package config loads and validates the service configuration using
// koanf with layered sources: struct defaults, an optional YAML file,
// and MOODTAPE_-prefixed environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the moodtape server.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Store   StoreConfig   `koanf:"store"`
	Session SessionConfig `koanf:"session"`
	Index   IndexConfig   `koanf:"index"`
	Mood    MoodConfig    `koanf:"mood"`
	Engine  EngineConfig  `koanf:"engine"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Timeout bounds request read/write; also used as the graceful
	// shutdown window.
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed origins. Empty means allow all, which
	// is acceptable because the API carries no credentials.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimit is requests per minute per client IP for API routes.
	RateLimit int `koanf:"rate_limit"`
}

// LoggingConfig configures the zerolog pipeline.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StoreConfig configures the song feature store.
type StoreConfig struct {
	// Driver selects the backing store: "mongo" or "memory".
	Driver string `koanf:"driver"`

	// URI is the MongoDB connection string (mongo driver only).
	URI string `koanf:"uri"`

	// Database and Collection name the songs collection.
	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`

	// CatalogPath seeds the memory driver from a JSON catalog file.
	CatalogPath string `koanf:"catalog_path"`

	// Timeout bounds each store call. Expiry is treated as the store
	// being unavailable and routed to the degraded-response path.
	Timeout time.Duration `koanf:"timeout"`

	// Breaker configures the circuit breaker wrapped around the store.
	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the gobreaker circuit breaker.
type BreakerConfig struct {
	Enabled bool `koanf:"enabled"`

	// MaxFailures consecutive failures trip the breaker open.
	MaxFailures int `koanf:"max_failures"`

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration `koanf:"open_timeout"`
}

// SessionConfig configures the per-session anti-repeat tracker.
type SessionConfig struct {
	// MaxHistory bounds recently-served IDs per session; oldest drop
	// first.
	MaxHistory int `koanf:"max_history"`

	// IdleTTL is the inactivity window after which a session is
	// eligible for removal.
	IdleTTL time.Duration `koanf:"idle_ttl"`

	// Shards is the number of lock shards in the session map. Must be
	// a power of two.
	Shards int `koanf:"shards"`

	// SweepInterval is how often the janitor removes idle sessions.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// IndexConfig configures the similarity index.
type IndexConfig struct {
	// Schema is the ordered list of feature attribute names shared by
	// the standardizer, the index, and the scorers. Order is part of
	// the model; changing it requires a rebuild.
	Schema []string `koanf:"schema"`

	// RebuildInterval is the cadence of the scheduled full rebuild.
	// Zero disables scheduled rebuilds (manual trigger only).
	RebuildInterval time.Duration `koanf:"rebuild_interval"`
}

// MoodConfig configures the mood scorer.
type MoodConfig struct {
	// Strategy selects the scorer: "classifier" or "heuristic". The
	// classifier falls back to the heuristic when its artifact cannot
	// be loaded.
	Strategy string `koanf:"strategy"`

	// ModelPath locates the fitted classifier artifact (JSON).
	ModelPath string `koanf:"model_path"`

	// JitterEpsilon bounds the neutral-mood tie-break jitter. Jitter
	// must never reorder scores that differ by more than this.
	JitterEpsilon float64 `koanf:"jitter_epsilon"`
}

// EngineConfig configures the recommendation selector.
type EngineConfig struct {
	// DefaultCount is the number of songs returned when the request
	// does not specify one.
	DefaultCount int `koanf:"default_count"`

	// MaxCount caps the requested count.
	MaxCount int `koanf:"max_count"`

	// AnchorNeighbors is k for anchor-song similarity queries before
	// novelty filtering.
	AnchorNeighbors int `koanf:"anchor_neighbors"`
}

// Default returns a Config with production defaults. Defaults are
// applied first, then overridden by the config file and environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			Timeout:   30 * time.Second,
			RateLimit: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Driver:     "mongo",
			URI:        "mongodb://localhost:27017",
			Database:   "musicdb",
			Collection: "songs",
			Timeout:    3 * time.Second,
			Breaker: BreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		Session: SessionConfig{
			MaxHistory:    20,
			IdleTTL:       30 * time.Minute,
			Shards:        32,
			SweepInterval: time.Minute,
		},
		Index: IndexConfig{
			Schema: []string{
				"tempo", "energy", "danceability", "acousticness",
				"instrumentalness", "liveness", "valence",
			},
			RebuildInterval: 6 * time.Hour,
		},
		Mood: MoodConfig{
			Strategy:      "heuristic",
			JitterEpsilon: 0.02,
		},
		Engine: EngineConfig{
			DefaultCount:    5,
			MaxCount:        50,
			AnchorNeighbors: 50,
		},
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}

	switch c.Store.Driver {
	case "mongo":
		if c.Store.URI == "" {
			return fmt.Errorf("store.uri is required for the mongo driver")
		}
	case "memory":
		// CatalogPath may be empty; an empty memory store is legal and
		// exercises the degraded path.
	default:
		return fmt.Errorf("store.driver must be mongo or memory, got %q", c.Store.Driver)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be positive, got %v", c.Store.Timeout)
	}

	if c.Session.MaxHistory < 1 {
		return fmt.Errorf("session.max_history must be positive, got %d", c.Session.MaxHistory)
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session.idle_ttl must be positive, got %v", c.Session.IdleTTL)
	}
	if c.Session.Shards < 1 || c.Session.Shards&(c.Session.Shards-1) != 0 {
		return fmt.Errorf("session.shards must be a power of two, got %d", c.Session.Shards)
	}

	if len(c.Index.Schema) == 0 {
		return fmt.Errorf("index.schema must name at least one attribute")
	}
	seen := make(map[string]struct{}, len(c.Index.Schema))
	for _, attr := range c.Index.Schema {
		if _, dup := seen[attr]; dup {
			return fmt.Errorf("index.schema has duplicate attribute %q", attr)
		}
		seen[attr] = struct{}{}
	}

	switch c.Mood.Strategy {
	case "classifier", "heuristic":
	default:
		return fmt.Errorf("mood.strategy must be classifier or heuristic, got %q", c.Mood.Strategy)
	}
	if c.Mood.JitterEpsilon < 0 || c.Mood.JitterEpsilon > 0.5 {
		return fmt.Errorf("mood.jitter_epsilon must be in [0, 0.5], got %f", c.Mood.JitterEpsilon)
	}

	if c.Engine.DefaultCount < 1 {
		return fmt.Errorf("engine.default_count must be positive, got %d", c.Engine.DefaultCount)
	}
	if c.Engine.MaxCount < c.Engine.DefaultCount {
		return fmt.Errorf("engine.max_count must be >= engine.default_count, got %d < %d",
			c.Engine.MaxCount, c.Engine.DefaultCount)
	}

	return nil
}
