// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/ledwand/main.go
// Summary: Runs a local shell and mirrors its terminal onto the LED wall.
// Usage: ledwand HOST [-p PORT] [-y] [-d] [--diff] [--journal PATH]

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
