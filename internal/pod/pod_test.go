// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pod

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenPort extracts the ephemeral port from a listener address.
func listenPort(t *testing.T, addr net.Addr) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(addr.String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func TestUDPSendDeliversDatagram(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	require.NoError(t, UDPSend("hello pod", "127.0.0.1", port))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello pod", string(buf[:n]))
}

func TestAudioBroadcastDeliversPayload(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	payload := []byte{0x01, 0x02, 0x03, 0xff}
	require.NoError(t, AudioBroadcast(payload, "127.0.0.1", port))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])
}

func TestBroadcastAddressComputation(t *testing.T) {
	assert.Equal(t, "192.168.1.255", broadcastFor(net.ParseIP("192.168.1.17").To4()))
	assert.Equal(t, "10.0.0.255", broadcastFor(net.ParseIP("10.0.0.1").To4()))
}

func TestSubscriptionServerForwards(t *testing.T) {
	srv, err := NewSubscriptionServer(0)
	require.NoError(t, err)
	defer srv.Close()

	srvAddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: srv.Port()}

	subscriber, err := net.DialUDP("udp", nil, srvAddr)
	require.NoError(t, err)
	defer subscriber.Close()
	_, err = subscriber.Write([]byte("SUBSCRIBE"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return srv.Subscribers() == 1
	}, 2*time.Second, 10*time.Millisecond)

	publisher, err := net.DialUDP("udp", nil, srvAddr)
	require.NoError(t, err)
	defer publisher.Close()
	_, err = publisher.Write([]byte("sensor reading 42"))
	require.NoError(t, err)

	subscriber.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, err := subscriber.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "sensor reading 42", string(buf[:n]))

	// The publisher never subscribed, so it receives nothing back.
	assert.Equal(t, 1, srv.Subscribers())
}

func TestSubscriptionServerCloseIsIdempotent(t *testing.T) {
	srv, err := NewSubscriptionServer(0)
	require.NoError(t, err)
	require.NoError(t, srv.Close())
	require.NoError(t, srv.Close())
}

func TestPodPairAndExchange(t *testing.T) {
	var p Pod
	require.NoError(t, p.Listen(0))
	defer p.Close()
	port := listenPort(t, p.Addr())

	paired := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		paired <- p.Pair(ctx, "127.0.0.1")
	}()

	client, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, <-paired)
	assert.True(t, p.Paired())

	_, err = client.Write([]byte("ping\n"))
	require.NoError(t, err)
	msg, err := p.Receive()
	require.NoError(t, err)
	assert.Equal(t, "ping", msg)

	require.NoError(t, p.Send("pong"))
	line, err := bufio.NewReader(client).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "pong\n", line)
}

func TestPodPairRejectsUnexpectedPeer(t *testing.T) {
	var p Pod
	require.NoError(t, p.Listen(0))
	defer p.Close()
	port := listenPort(t, p.Addr())

	paired := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		paired <- p.Pair(ctx, "10.9.9.9")
	}()

	client, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer client.Close()

	require.Error(t, <-paired)
	assert.False(t, p.Paired())
}

func TestPodPairWildcardAcceptsAnyPeer(t *testing.T) {
	var p Pod
	require.NoError(t, p.Listen(0))
	defer p.Close()
	port := listenPort(t, p.Addr())

	paired := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		paired <- p.Pair(ctx, "0.0.0.0")
	}()

	client, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, <-paired)
	assert.True(t, p.Paired())
}

func TestPodUnpaired(t *testing.T) {
	var p Pod

	// Sending without a paired pod is a quiet no-op.
	require.NoError(t, p.Send("lost"))

	_, err := p.Receive()
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Error(t, p.Pair(ctx, "127.0.0.1"))
}
