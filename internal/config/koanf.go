// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/viator/config.yaml",
	"/etc/viator/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// sections maps an env var's leading segment to a config section. Only
// prefixed variables are loaded; everything else in the environment is
// ignored.
var sections = map[string]string{
	"SERVER":    "server",
	"ELASTIC":   "elastic",
	"REDIS":     "redis",
	"DYNAMO":    "dynamo",
	"RECOMMEND": "recommend",
	"REFRESH":   "refresh",
	"LOGGING":   "logging",
}

// sliceKeys lists config paths whose env values are comma-separated
// lists.
var sliceKeys = []string{
	"server.cors_origins",
	"elastic.addresses",
}

// Load builds the configuration: struct defaults, then an optional YAML
// file, then environment variables, each layer overriding the previous.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// ELASTIC_INDEX -> elastic.index, DYNAMO_TABLES_PROFILES ->
	// dynamo.tables.profiles, and so on.
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or empty.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps environment variable names to koanf paths. Variables
// outside the known sections map to the empty string and are dropped.
func envTransform(key string) string {
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return ""
	}
	prefix, known := sections[section]
	if !known {
		return ""
	}
	rest = strings.ToLower(rest)

	// The dynamo tables live one level deeper than the rest.
	if prefix == "dynamo" {
		if table, ok := strings.CutPrefix(rest, "tables_"); ok {
			return "dynamo.tables." + table
		}
	}
	return prefix + "." + rest
}

// splitSliceFields converts comma-separated env strings into slices for
// the list-valued keys.
func splitSliceFields(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		raw, ok := k.Get(key).(string)
		if !ok || raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				values = append(values, trimmed)
			}
		}
		if err := k.Set(key, values); err != nil {
			return fmt.Errorf("split %s: %w", key, err)
		}
	}
	return nil
}
