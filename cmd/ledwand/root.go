// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/ledwand/root.go
// Summary: Root command wiring config, logging, device client, journal and session.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/framegrace/ledwand/client"
	"github.com/framegrace/ledwand/config"
	"github.com/framegrace/ledwand/internal/delta"
	"github.com/framegrace/ledwand/internal/display"
	"github.com/framegrace/ledwand/internal/host"
	"github.com/framegrace/ledwand/internal/journal"
	"github.com/framegrace/ledwand/internal/logging"
	"github.com/framegrace/ledwand/internal/session"
	"github.com/framegrace/ledwand/protocol"
)

type options struct {
	port    int
	colored bool
	debug   bool
	dryRun  bool
	diff    bool
	shell   string
	journal string
	logFile string
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "ledwand HOST",
		Short: "Mirror a shell onto a 56x20 LED wall",
		Long: `Runs your shell on a local pseudo terminal and mirrors its output onto the
LED wall at HOST over UDP. Keyboard input goes to the shell.

Press Ctrl-] followed by a key for local commands:
  c  clear and redraw the wall
  r  reset the wall controller and redraw
  q  quit`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), args[0], settings)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.Flags()
	f.IntVarP(&opts.port, "port", "p", protocol.DefaultPort, "UDP port of the display")
	f.BoolVarP(&opts.colored, "colored", "c", false, "render each ANSI colour at its own luminance")
	f.BoolVarP(&opts.debug, "debug", "d", false, "write a debug log")
	f.BoolVarP(&opts.dryRun, "dry-run", "y", false, "do not contact the display")
	f.StringVarP(&opts.shell, "shell", "s", "", "shell to run (default $SHELL)")
	f.BoolVar(&opts.diff, "diff", false, "send only changed cells instead of full frames")
	f.StringVar(&opts.journal, "journal", "", "record every frame sent into this SQLite file")
	f.StringVar(&opts.logFile, "log-file", "", "debug log path (default from config)")

	cmd.AddCommand(newReplayCmd())
	return cmd
}

// resolveSettings layers explicitly set flags over the config file.
func resolveSettings(cmd *cobra.Command, opts options) (config.Settings, error) {
	s := config.Load(config.System())
	f := cmd.Flags()
	if f.Changed("port") {
		s.Port = opts.port
	}
	if f.Changed("colored") {
		s.Colored = opts.colored
	}
	if f.Changed("debug") {
		s.Debug = opts.debug
	}
	if f.Changed("shell") {
		s.Shell = opts.shell
	}
	if f.Changed("diff") {
		s.Diff = opts.diff
	}
	if f.Changed("journal") {
		s.Journal = opts.journal
	}
	if f.Changed("log-file") {
		s.LogFile = opts.logFile
	}
	if s.Port < 1 || s.Port > 0xFFFF {
		return s, fmt.Errorf("invalid port %d", s.Port)
	}
	s.DryRun = opts.dryRun
	return s, nil
}

func setupLogging(s config.Settings) (zerolog.Logger, io.Closer, error) {
	if s.Debug {
		return logging.Configure(s.LogFile, logging.LevelDebug)
	}
	return logging.Configure("", logging.LevelWarn)
}

func dialDevice(hostname string, s config.Settings, log zerolog.Logger, rec client.FrameRecorder) (*client.Client, error) {
	opts := []client.Option{client.WithAckTimeout(s.AckTimeout), client.WithLogger(log)}
	if rec != nil {
		opts = append(opts, client.WithRecorder(rec))
	}
	if s.DryRun {
		return client.New(client.NewDryRunTransport(), opts...), nil
	}
	return client.Dial(hostname, s.Port, opts...)
}

func run(ctx context.Context, hostname string, s config.Settings) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, closer, err := setupLogging(s)
	if err != nil {
		return err
	}
	defer closer.Close()
	if err := config.Err(); err != nil {
		log.Warn().Err(err).Msg("Config: Using defaults")
	}

	var rec client.FrameRecorder
	if s.Journal != "" {
		jcfg := journal.DefaultConfig(s.Journal)
		jcfg.Host = hostname
		j, err := journal.OpenWithConfig(jcfg, log)
		if err != nil {
			return err
		}
		defer j.Close()
		rec = j
	}

	dev, err := dialDevice(hostname, s, log, rec)
	if err != nil {
		return err
	}
	defer dev.Close()

	shell, err := host.StartShell(s.Shell, display.Width, display.Height)
	if err != nil {
		return err
	}
	defer shell.Close()

	restore, err := host.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		log.Warn().Err(err).Msg("Host: Keyboard stays in cooked mode")
	}
	defer restore()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	mode := delta.ModeFull
	if s.Diff {
		mode = delta.ModeDiff
	}
	log.Info().Str("host", hostname).Int("port", s.Port).Bool("dry_run", s.DryRun).Stringer("mode", mode).Msg("Session: Starting")

	sess := session.New(dev, shell,
		session.WithKeyboard(os.Stdin),
		session.WithInterrupts(interrupts),
		session.WithMode(mode),
		session.WithColorRamp(s.Colored),
		session.WithBlinkInterval(s.BlinkInterval),
		session.WithFlushInterval(s.FlushInterval),
		session.WithLogger(log),
	)
	err = sess.Run(ctx)

	st := dev.Stats()
	ps := sess.ParserStats()
	log.Info().
		Int64("frames", st.Frames.Load()).
		Int64("bytes", st.Bytes.Load()).
		Int64("timeouts", st.Timeouts.Load()).
		Int("sequences", ps.Sequences).
		Int("unhandled", ps.Unhandled).
		Int("overflows", ps.Overflows).
		Msg("Session: Finished")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
