// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/ledwand/replay.go
// Summary: Replays a recorded journal session onto a display.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/framegrace/ledwand/client"
	"github.com/framegrace/ledwand/config"
	"github.com/framegrace/ledwand/internal/journal"
	"github.com/framegrace/ledwand/protocol"
)

type replayOptions struct {
	port    int
	dryRun  bool
	session string
	speed   float64
	list    bool
}

func newReplayCmd() *cobra.Command {
	var opts replayOptions
	cmd := &cobra.Command{
		Use:   "replay JOURNAL [HOST]",
		Short: "Send a recorded session to a display again",
		Long: `Reads frames recorded with --journal and sends them to HOST in their
original order. Without --session the most recent session is replayed.
--list prints the recorded sessions instead.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := journal.OpenReader(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			if opts.list {
				return listSessions(cmd.OutOrStdout(), r)
			}
			if len(args) < 2 && !opts.dryRun {
				return fmt.Errorf("replay needs a HOST unless --dry-run is set")
			}
			if opts.port < 1 || opts.port > 0xFFFF {
				return fmt.Errorf("invalid port %d", opts.port)
			}

			s := config.Load(config.System())
			s.Port = opts.port
			s.DryRun = opts.dryRun
			hostname := ""
			if len(args) == 2 {
				hostname = args[1]
			}
			dev, err := dialDevice(hostname, s, log.Logger, nil)
			if err != nil {
				return err
			}
			defer dev.Close()

			id, err := pickSession(r, opts.session)
			if err != nil {
				return err
			}
			frames, err := r.Frames(id)
			if err != nil {
				return err
			}
			sent, err := replay(cmd.Context(), dev, frames, opts.speed)
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d/%d frames of session %s (%d timeouts)\n",
				sent, len(frames), id, dev.Stats().Timeouts.Load())
			return err
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.port, "port", "p", protocol.DefaultPort, "UDP port of the display")
	f.BoolVarP(&opts.dryRun, "dry-run", "y", false, "do not contact the display")
	f.StringVar(&opts.session, "session", "", "session id to replay (default latest)")
	f.Float64Var(&opts.speed, "speed", 0, "playback speed relative to the recording; 0 sends as fast as acks allow")
	f.BoolVar(&opts.list, "list", false, "list recorded sessions and exit")
	return cmd
}

func listSessions(w io.Writer, r *journal.Reader) error {
	sessions, err := r.Sessions()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %s  %-20s %d frames\n", s.ID, s.Started.Format(time.RFC3339), s.Host, s.Frames)
	}
	return nil
}

func pickSession(r *journal.Reader, raw string) (uuid.UUID, error) {
	if raw == "" {
		latest, err := r.Latest()
		if err != nil {
			return uuid.Nil, err
		}
		return latest.ID, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id %q: %w", raw, err)
	}
	return id, nil
}

// replay sends frames in order. A positive speed reproduces the recorded
// spacing scaled by 1/speed. Timeouts are counted by the client and skipped.
func replay(ctx context.Context, dev *client.Client, frames []journal.Entry, speed float64) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sent := 0
	for i, e := range frames {
		if speed > 0 && i > 0 {
			gap := time.Duration(float64(e.Time.Sub(frames[i-1].Time)) / speed)
			if gap > 0 {
				select {
				case <-ctx.Done():
					return sent, ctx.Err()
				case <-time.After(gap):
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := dev.Send(e.Frame); err != nil && !errors.Is(err, client.ErrTimeout) {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
