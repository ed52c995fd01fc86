// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

// Package config loads and validates the service configuration from
// layered sources: struct defaults, an optional YAML file, and
// environment variables, in ascending priority.
package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/viator/internal/recommend"
	"github.com/tomtom215/viator/internal/store"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Elastic   ElasticConfig    `koanf:"elastic"`
	Redis     RedisConfig      `koanf:"redis"`
	Dynamo    DynamoConfig     `koanf:"dynamo"`
	Recommend recommend.Config `koanf:"recommend"`
	Refresh   RefreshConfig    `koanf:"refresh"`
	Logging   LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RecommendTimeout is the overall deadline for one interactive
	// recommendation request.
	RecommendTimeout time.Duration `koanf:"recommend_timeout"`

	// CORSOrigins lists allowed origins. Empty disables CORS headers.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimit is requests per client IP per RateLimitWindow. Zero
	// disables rate limiting.
	RateLimit       int           `koanf:"rate_limit"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// ElasticConfig holds search index settings.
type ElasticConfig struct {
	Addresses []string `koanf:"addresses"`
	Username  string   `koanf:"username"`
	Password  string   `koanf:"password"`
	Index     string   `koanf:"index"`

	// RatePerSecond caps outgoing index calls; zero disables limiting.
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`

	// BreakerTimeout is how long the index circuit stays open after
	// tripping.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// RedisConfig holds recommendation cache settings.
type RedisConfig struct {
	Addr string `koanf:"addr"`
	DB   int    `koanf:"db"`

	// TTL bounds how stale a cached recommendation set can get.
	TTL time.Duration `koanf:"ttl"`
}

// DynamoConfig holds primary store settings.
type DynamoConfig struct {
	Region string `koanf:"region"`

	// Endpoint overrides the resolved endpoint, for DynamoDB Local.
	Endpoint string       `koanf:"endpoint"`
	Tables   store.Tables `koanf:"tables"`
}

// RefreshConfig holds batch-refresh scheduler settings.
type RefreshConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`

	// OnStart triggers one refresh immediately at startup instead of
	// waiting a full interval.
	OnStart bool `koanf:"on_start"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the configuration with all defaults applied.
// These are layered first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      60 * time.Second,
			ShutdownTimeout:  15 * time.Second,
			RecommendTimeout: 10 * time.Second,
			RateLimit:        100,
			RateLimitWindow:  time.Minute,
		},
		Elastic: ElasticConfig{
			Addresses:      []string{"http://localhost:9200"},
			Index:          "attractions",
			RatePerSecond:  50,
			Burst:          10,
			BreakerTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  15 * time.Second,
		},
		Dynamo: DynamoConfig{
			Region: "us-east-1",
			Tables: store.Tables{
				Attractions: "attractions",
				Profiles:    "users",
				PageHistory: "page-history",
			},
		},
		Recommend: *recommend.DefaultConfig(),
		Refresh: RefreshConfig{
			Enabled:  true,
			Interval: 12 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server port %d out of range", c.Server.Port)
	}
	if len(c.Elastic.Addresses) == 0 {
		return fmt.Errorf("config: at least one elastic address required")
	}
	if c.Elastic.Index == "" {
		return fmt.Errorf("config: elastic index required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis addr required")
	}
	if c.Redis.TTL <= 0 {
		return fmt.Errorf("config: redis ttl must be positive, got %s", c.Redis.TTL)
	}
	if err := c.Dynamo.Tables.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Refresh.Enabled && c.Refresh.Interval <= 0 {
		return fmt.Errorf("config: refresh interval must be positive when enabled, got %s", c.Refresh.Interval)
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
