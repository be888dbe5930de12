// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config.go
// Summary: JSON configuration store for ledwand.
// Usage: System() loads <UserConfigDir>/ledwand/ledwand.json once, writing
//   the embedded defaults on first run. LEDWAND_CONFIG overrides the path.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/framegrace/ledwand/defaults"
)

const (
	systemConfigName = "ledwand.json"
	pathEnv          = "LEDWAND_CONFIG"
)

// Config stores configuration sections as JSON-compatible data.
type Config map[string]interface{}

// Section stores key/value pairs for a configuration section.
type Section map[string]interface{}

var (
	mu      sync.RWMutex
	once    sync.Once
	system  Config
	loadErr error
)

// Path returns the location of the config file.
func Path() (string, error) {
	if p := os.Getenv(pathEnv); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: locate config dir: %w", err)
	}
	return filepath.Join(dir, "ledwand", systemConfigName), nil
}

// Err returns the most recent load error.
func Err() error {
	once.Do(initStore)
	mu.RLock()
	defer mu.RUnlock()
	return loadErr
}

// System returns the loaded configuration.
func System() Config {
	once.Do(initStore)
	mu.RLock()
	defer mu.RUnlock()
	return system
}

// Reload re-reads the config file.
func Reload() error {
	once.Do(initStore)
	mu.Lock()
	defer mu.Unlock()
	loadErr = loadLocked()
	return loadErr
}

// Save persists the in-memory config.
func Save() error {
	once.Do(initStore)
	mu.Lock()
	defer mu.Unlock()
	path, err := Path()
	if err != nil {
		return err
	}
	return writeConfig(path, system)
}

// Set replaces the in-memory config; missing defaults are filled in.
func Set(cfg Config) {
	once.Do(initStore)
	mu.Lock()
	defer mu.Unlock()
	system = Clone(cfg)
	if system == nil {
		system = make(Config)
	}
	applyDefaults(system)
}

func initStore() {
	mu.Lock()
	defer mu.Unlock()
	loadErr = loadLocked()
}

func loadLocked() error {
	path, err := Path()
	if err != nil {
		log.Warn().Err(err).Msg("Config: Failed to resolve config path")
		system = make(Config)
		applyDefaults(system)
		return err
	}

	cfg, exists, readErr := readConfig(path)
	if readErr != nil {
		log.Warn().Err(readErr).Str("path", path).Msg("Config: Failed to read config")
		cfg = make(Config)
	}
	if !exists {
		cfg = embeddedDefaults()
		if err := writeConfig(path, cfg); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Config: Failed to write default config")
		}
	}
	applyDefaults(cfg)

	system = cfg
	if readErr == nil && exists {
		log.Debug().Str("path", path).Msg("Config: Loaded config")
	}
	return readErr
}

func embeddedDefaults() Config {
	var cfg Config
	if err := json.Unmarshal(defaults.SystemConfig(), &cfg); err != nil || cfg == nil {
		return make(Config)
	}
	return cfg
}

func readConfig(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, true, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg == nil {
		cfg = make(Config)
	}
	return cfg, true, nil
}

func writeConfig(path string, cfg Config) error {
	if cfg == nil {
		cfg = make(Config)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Clone returns a copy of the config and its sections.
func Clone(cfg Config) Config {
	if cfg == nil {
		return nil
	}
	clone := make(Config, len(cfg))
	for name, section := range cfg {
		if s := asSection(section); s != nil {
			out := make(Section, len(s))
			for key, value := range s {
				out[key] = value
			}
			clone[name] = out
			continue
		}
		clone[name] = section
	}
	return clone
}
