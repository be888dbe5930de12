// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: client/transport.go
// Summary: Datagram transports for the device client.
// Usage: UDPTransport talks to real hardware or the simulator; DryRunTransport stands in offline.
// Notes: Receive reports an expired deadline with os.ErrDeadlineExceeded.

package client

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/framegrace/ledwand/protocol"
)

// Transport moves whole datagrams to and from the device.
type Transport interface {
	Send(datagram []byte) error
	// Receive blocks until a datagram arrives or the deadline passes.
	Receive(deadline time.Time) ([]byte, error)
	Close() error
}

// UDPTransport is a connected UDP socket.
type UDPTransport struct {
	conn *net.UDPConn
	buf  []byte
}

// DialUDP resolves host:port and connects a datagram socket to it.
func DialUDP(host string, port int) (*UDPTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("client: resolve %s: %w", host, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &UDPTransport{conn: conn, buf: make([]byte, protocol.MaxDatagram)}, nil
}

// Send writes one datagram. An ICMP port-unreachable from an earlier request
// surfaces here as ECONNREFUSED; the device may simply not be up yet, so it
// is not treated as fatal.
func (t *UDPTransport) Send(datagram []byte) error {
	if _, err := t.conn.Write(datagram); err != nil && !errors.Is(err, syscall.ECONNREFUSED) {
		return err
	}
	return nil
}

func (t *UDPTransport) Receive(deadline time.Time) ([]byte, error) {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	for {
		n, err := t.conn.Read(t.buf)
		if err != nil {
			if errors.Is(err, syscall.ECONNREFUSED) {
				continue
			}
			return nil, err
		}
		out := make([]byte, n)
		copy(out, t.buf[:n])
		return out, nil
	}
}

func (t *UDPTransport) LocalAddr() net.Addr { return t.conn.LocalAddr() }

func (t *UDPTransport) Close() error { return t.conn.Close() }

// DryRunTransport accepts every datagram and acknowledges it itself, so the
// client behaves as if a perfect device were attached.
type DryRunTransport struct {
	mu      sync.Mutex
	pending [][]byte
	sent    int
}

func NewDryRunTransport() *DryRunTransport { return &DryRunTransport{} }

func (t *DryRunTransport) Send(datagram []byte) error {
	f, err := protocol.Decode(datagram)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent++
	if err == nil && f.Opcode.ExpectsReply() {
		t.pending = append(t.pending, protocol.Encode(protocol.NewAck(f)))
	}
	return nil
}

// Receive never blocks.
func (t *DryRunTransport) Receive(time.Time) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return nil, os.ErrDeadlineExceeded
	}
	d := t.pending[0]
	t.pending = t.pending[1:]
	return d, nil
}

// Sent returns the number of datagrams accepted so far.
func (t *DryRunTransport) Sent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent
}

func (t *DryRunTransport) Close() error { return nil }
