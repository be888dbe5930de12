// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/ledwand-sim/main.go
// Summary: Terminal stand-in for the LED wall, answering the display protocol on UDP.
// Usage: ledwand-sim [-p PORT] [-c]; then run `ledwand localhost`. Quit with q, Esc or Ctrl-C.

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/framegrace/ledwand/internal/display"
	"github.com/framegrace/ledwand/internal/logging"
	"github.com/framegrace/ledwand/protocol"
	"github.com/framegrace/ledwand/simulator"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port    int
		bind    string
		colored bool
		logFile string
	)
	cmd := &cobra.Command{
		Use:           "ledwand-sim",
		Short:         "Simulate the LED wall in this terminal",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port < 0 || port > 0xFFFF {
				return fmt.Errorf("invalid port %d", port)
			}
			level := logging.LevelWarn
			if logFile != "" {
				level = logging.LevelDebug
			}
			log, closer, err := logging.Configure(logFile, level)
			if err != nil {
				return err
			}
			defer closer.Close()

			srv := simulator.NewServer(net.JoinHostPort(bind, strconv.Itoa(port)),
				simulator.NewDevice(display.Width, display.Height), log)
			if err := srv.Start(); err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = srv.Stop(ctx)
			}()

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("create screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init screen: %w", err)
			}
			defer screen.Fini()
			return loop(screen, srv, colored)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&port, "port", "p", protocol.DefaultPort, "UDP port to listen on")
	f.StringVar(&bind, "bind", "", "address to bind (default all interfaces)")
	f.BoolVarP(&colored, "colored", "c", false, "tint luminance levels")
	f.StringVar(&logFile, "log-file", "", "write a debug log to this file")
	return cmd
}

// loop redraws on every device update until the user quits.
func loop(screen tcell.Screen, srv *simulator.Server, colored bool) error {
	events := make(chan tcell.Event, 8)
	go func() {
		defer close(events)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	draw := func() {
		simulator.Render(screen, srv.Device().Snapshot(), colored)
		status := fmt.Sprintf(" %s  frames %d  dropped %d ",
			srv.Addr(), srv.Stats().Frames.Load(), srv.Stats().Dropped.Load())
		for i, r := range status {
			screen.SetContent(i+1, display.Height+2, r, nil, tcell.StyleDefault.Dim(true))
		}
		screen.Show()
	}
	draw()

	for {
		select {
		case <-srv.Updates():
			draw()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return nil
				}
			case *tcell.EventResize:
				screen.Sync()
				draw()
			}
		}
	}
}
