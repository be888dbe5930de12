// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/defaults.go
// Summary: Default values for every configuration section.

package config

func applyDefaults(cfg Config) {
	if cfg == nil {
		return
	}
	cfg.RegisterDefaults("device", Section{
		"port":           2342,
		"ack_timeout_ms": 3000,
		"colored":        false,
	})
	cfg.RegisterDefaults("terminal", Section{
		"shell":    "",
		"diff":     false,
		"blink_ms": 500,
		"fps":      30,
	})
	cfg.RegisterDefaults("debug", Section{
		"enabled":  false,
		"log_file": "ledwand.log",
		"journal":  "",
	})
}
