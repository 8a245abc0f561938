package client

import (
	"net"
	"testing"
	"time"
)

func TestRelayTickReportsTimeoutAndRemoves(t *testing.T) {
	c := newTestClient(t)

	peerAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1}
	p := c.peers.AddIfAbsent("bob", peerAddr, time.Now())
	p.LastPong = time.Now().Add(-time.Hour)

	sigSock, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatal(err)
	}
	defer sigSock.Close()
	c.signalingAddr = sigSock.LocalAddr().(*net.UDPAddr)

	c.relayTick()

	if c.peers.Get("bob") != nil {
		t.Fatal("expected timed-out peer to be removed")
	}

	sigSock.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 128)
	n, _, err := sigSock.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("expected PEER_TIMEOUT to be sent: %v", err)
	}
	if string(buf[:n]) != "PEER_TIMEOUT srv lobby bob\n" {
		t.Fatalf("unexpected payload: %q", buf[:n])
	}
}

func TestRelayTickRequestsRelayAfterGrace(t *testing.T) {
	c := newTestClient(t)
	c.cfg.RelayGrace = time.Millisecond

	peerAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1}
	p := c.peers.AddIfAbsent("bob", peerAddr, time.Now().Add(-time.Hour))
	p.LastPong = time.Now()

	sigSock, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatal(err)
	}
	defer sigSock.Close()
	c.signalingAddr = sigSock.LocalAddr().(*net.UDPAddr)

	c.relayTick()

	sigSock.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	total := ""
	for i := 0; i < 2; i++ {
		n, _, err := sigSock.ReadFromUDP(buf)
		if err != nil {
			break
		}
		total += string(buf[:n])
	}
	if total == "" {
		t.Fatal("expected a REQUEST_RELAY datagram at the signaling server")
	}
	if p2 := c.peers.Get("bob"); p2 == nil || !p2.RelayRequested {
		t.Fatal("expected relay_requested to be set after grace period")
	}
}
