// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/settings.go
// Summary: Flattened, typed view of the configuration used by the commands.

package config

import "time"

// Settings are the effective runtime options before command-line overrides.
type Settings struct {
	Port          int
	AckTimeout    time.Duration
	Colored       bool
	Shell         string
	Diff          bool
	BlinkInterval time.Duration
	FlushInterval time.Duration
	Debug         bool
	LogFile       string
	Journal       string

	// DryRun is never read from the file; it only exists on the command line.
	DryRun bool
}

// Load reads Settings from cfg, falling back to built-in defaults for
// missing or malformed values.
func Load(cfg Config) Settings {
	fps := cfg.GetInt("terminal", "fps", 30)
	if fps <= 0 {
		fps = 30
	}
	port := cfg.GetInt("device", "port", 2342)
	if port <= 0 || port > 0xFFFF {
		port = 2342
	}
	return Settings{
		Port:          port,
		AckTimeout:    cfg.GetMillis("device", "ack_timeout_ms", 3*time.Second),
		Colored:       cfg.GetBool("device", "colored", false),
		Shell:         cfg.GetString("terminal", "shell", ""),
		Diff:          cfg.GetBool("terminal", "diff", false),
		BlinkInterval: cfg.GetMillis("terminal", "blink_ms", 500*time.Millisecond),
		FlushInterval: time.Second / time.Duration(fps),
		Debug:         cfg.GetBool("debug", "enabled", false),
		LogFile:       cfg.GetString("debug", "log_file", "ledwand.log"),
		Journal:       cfg.GetString("debug", "journal", ""),
	}
}
