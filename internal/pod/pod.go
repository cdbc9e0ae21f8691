// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pod talks to hardware pods over the local network: UDP
// datagrams for discovery and audio, a paired TCP stream for commands,
// and a small publish/subscribe router for sensor fan-out.
package pod

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Well-known pod ports.
const (
	UDPPort          = 3333
	TCPPort          = 54321
	SubscriptionPort = 9090
	AudioPort        = 666
)

// pairTimeout bounds how long Pair waits for an incoming connection
// when the context carries no deadline.
var pairTimeout = 15 * time.Second

// UDPSend sends message to ip:port as a single datagram.
func UDPSend(message, ip string, port int) error {
	conn, err := net.Dial("udp", net.JoinHostPort(ip, fmt.Sprint(port)))
	if err != nil {
		return errors.Wrap(err, "dialing UDP")
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(message)); err != nil {
		return errors.Wrap(err, "sending datagram")
	}
	return nil
}

// AudioBroadcast sends raw payload bytes to ip:port. Audio modules use
// it to stream waveform samples.
func AudioBroadcast(payload []byte, ip string, port int) error {
	conn, err := net.Dial("udp", net.JoinHostPort(ip, fmt.Sprint(port)))
	if err != nil {
		return errors.Wrap(err, "dialing UDP")
	}
	defer conn.Close()
	if _, err := conn.Write(payload); err != nil {
		return errors.Wrap(err, "sending audio payload")
	}
	return nil
}

var (
	broadcastMu   sync.Mutex
	broadcastAddr string
)

// BroadcastAddress returns the local network broadcast address,
// computed by replacing the final octet of the first non-loopback IPv4
// address with 255. The result is cached.
func BroadcastAddress() (string, error) {
	broadcastMu.Lock()
	defer broadcastMu.Unlock()
	if broadcastAddr != "" {
		return broadcastAddr, nil
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", errors.Wrap(err, "listing interface addresses")
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		broadcastAddr = broadcastFor(ip4)
		return broadcastAddr, nil
	}
	return "", errors.New("no IPv4 address found for broadcast computation")
}

func broadcastFor(ip net.IP) string {
	parts := strings.Split(ip.String(), ".")
	parts[3] = "255"
	return strings.Join(parts, ".")
}

// Broadcast sends message to the local broadcast address on port.
func Broadcast(message string, port int) error {
	addr, err := BroadcastAddress()
	if err != nil {
		return err
	}
	return UDPSend(message, addr, port)
}

// Pod holds the paired TCP stream to a hardware pod.
type Pod struct {
	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
	reader   *bufio.Reader
}

// Listen opens the pairing listener on port. Port 0 picks an ephemeral
// port, visible through Addr.
func (p *Pod) Listen(port int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener != nil {
		return errors.New("already listening")
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.Wrapf(err, "listening on port %d", port)
	}
	p.listener = ln
	return nil
}

// Addr returns the pairing listener address, or nil before Listen.
func (p *Pod) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Pair waits for the pod at podIP to connect and establishes the
// command stream. podIP of "0.0.0.0" accepts any peer. The listener is
// closed once pairing finishes, paired or not.
func (p *Pod) Pair(ctx context.Context, podIP string) error {
	p.mu.Lock()
	ln := p.listener
	p.mu.Unlock()
	if ln == nil {
		return errors.New("not listening; call Listen first")
	}
	defer func() {
		ln.Close()
		p.mu.Lock()
		p.listener = nil
		p.mu.Unlock()
	}()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(pairTimeout)
	}
	if tcp, ok := ln.(*net.TCPListener); ok {
		tcp.SetDeadline(deadline)
	}

	conn, err := ln.Accept()
	if err != nil {
		return errors.Wrap(err, "waiting for pod connection")
	}

	remote, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "parsing remote address")
	}
	if podIP != "0.0.0.0" && remote != podIP {
		conn.Close()
		return errors.Errorf("unexpected peer %s, want %s", remote, podIP)
	}

	p.mu.Lock()
	p.conn = conn
	p.reader = bufio.NewReader(conn)
	p.mu.Unlock()
	return nil
}

// Paired reports whether the command stream is established.
func (p *Pod) Paired() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil
}

// Send writes a newline-terminated message over the paired stream. It
// is a quiet no-op when no pod is paired.
func (p *Pod) Send(message string) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return nil
	}
	if _, err := conn.Write([]byte(message + "\n")); err != nil {
		return errors.Wrap(err, "sending to pod")
	}
	return nil
}

// Receive reads one newline-terminated message from the paired stream,
// without the trailing newline.
func (p *Pod) Receive() (string, error) {
	p.mu.Lock()
	reader := p.reader
	p.mu.Unlock()
	if reader == nil {
		return "", errors.New("no pod paired")
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "receiving from pod")
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// Close tears down the paired stream and any open listener.
func (p *Pod) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener != nil {
		p.listener.Close()
		p.listener = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		p.reader = nil
		return err
	}
	return nil
}
