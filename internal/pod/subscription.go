// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pod

import (
	"net"
	"sync"

	"github.com/pkg/errors"
)

// subscribeKeyword is the datagram payload that registers a client.
const subscribeKeyword = "SUBSCRIBE"

// SubscriptionServer is a UDP publish/subscribe router. Clients
// register by sending the literal string "SUBSCRIBE"; every other
// datagram is forwarded to all registered clients.
type SubscriptionServer struct {
	conn *net.UDPConn

	mu          sync.Mutex
	subscribers map[string]*net.UDPAddr
	closed      bool

	done chan struct{}
}

// NewSubscriptionServer binds a UDP socket on port and starts the
// forwarding loop. Port 0 picks an ephemeral port, visible through
// Port.
func NewSubscriptionServer(port int) (*SubscriptionServer, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, errors.Wrapf(err, "binding subscription socket on port %d", port)
	}
	s := &SubscriptionServer{
		conn:        conn,
		subscribers: make(map[string]*net.UDPAddr),
		done:        make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

// Port returns the bound UDP port.
func (s *SubscriptionServer) Port() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

// Subscribers returns the number of registered clients.
func (s *SubscriptionServer) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *SubscriptionServer) loop() {
	defer close(s.done)
	buf := make([]byte, 65535)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if string(buf[:n]) == subscribeKeyword {
			s.mu.Lock()
			s.subscribers[addr.String()] = addr
			s.mu.Unlock()
			continue
		}

		s.mu.Lock()
		targets := make([]*net.UDPAddr, 0, len(s.subscribers))
		for _, sub := range s.subscribers {
			targets = append(targets, sub)
		}
		s.mu.Unlock()

		for _, sub := range targets {
			if _, err := s.conn.WriteToUDP(buf[:n], sub); err != nil {
				s.mu.Lock()
				delete(s.subscribers, sub.String())
				s.mu.Unlock()
			}
		}
	}
}

// Close stops the forwarding loop and releases the socket.
func (s *SubscriptionServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.conn.Close()
	<-s.done
	return err
}
