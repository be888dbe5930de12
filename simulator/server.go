// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: simulator/server.go
// Summary: UDP endpoint speaking the display protocol on behalf of a Device.
// Notes: Every well-formed request is acknowledged, resets included; the
//   client drains stale replies before each request.

package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/framegrace/ledwand/protocol"
)

// Stats counts server activity.
type Stats struct {
	Frames  atomic.Int64
	Dropped atomic.Int64
}

// Server receives frames, applies them to a Device and sends acknowledgements.
type Server struct {
	addr    string
	dev     *Device
	conn    *net.UDPConn
	updates chan struct{}
	quit    chan struct{}
	wg      sync.WaitGroup
	stats   Stats
	log     zerolog.Logger
}

func NewServer(addr string, dev *Device, log zerolog.Logger) *Server {
	return &Server{
		addr:    addr,
		dev:     dev,
		updates: make(chan struct{}, 1),
		quit:    make(chan struct{}),
		log:     log,
	}
}

func (s *Server) Start() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("simulator: resolve %s: %w", s.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("simulator: listen %s: %w", s.addr, err)
	}
	s.conn = conn
	s.wg.Add(1)
	go s.receiveLoop()
	s.log.Info().Str("addr", conn.LocalAddr().String()).Msg("Simulator: Listening")
	return nil
}

// Addr returns the bound address. Only valid after Start.
func (s *Server) Addr() *net.UDPAddr { return s.conn.LocalAddr().(*net.UDPAddr) }

func (s *Server) Device() *Device { return s.dev }

func (s *Server) Stats() *Stats { return &s.stats }

// Updates signals (coalesced) that the device contents changed.
func (s *Server) Updates() <-chan struct{} { return s.updates }

func (s *Server) receiveLoop() {
	defer s.wg.Done()
	buf := make([]byte, protocol.MaxDatagram)
	for {
		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Debug().Err(err).Msg("Simulator: Receive failed")
			continue
		}
		f, err := protocol.Decode(buf[:n])
		if err != nil {
			s.stats.Dropped.Add(1)
			continue
		}
		s.stats.Frames.Add(1)
		s.dev.Apply(f)
		s.log.Debug().Stringer("frame", f).Msg("Simulator: Applied")

		if _, err := s.conn.WriteToUDP(protocol.Encode(protocol.NewAck(f)), peer); err != nil {
			s.log.Debug().Err(err).Msg("Simulator: Ack failed")
		}
		select {
		case s.updates <- struct{}{}:
		default:
		}
	}
}

func (s *Server) Stop(ctx context.Context) error {
	close(s.quit)
	if s.conn != nil {
		_ = s.conn.Close()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
