package client

import (
	"net"
	"testing"
	"time"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

func TestSendDirectReachesNonServerRelayedPeers(t *testing.T) {
	c := newTestClient(t)

	peerSock, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatal(err)
	}
	defer peerSock.Close()

	c.peers.AddIfAbsent("bob", peerSock.LocalAddr().(*net.UDPAddr), time.Now())
	c.Send("hello")

	peerSock.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 128)
	n, _, err := peerSock.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("expected DATA to reach bob directly: %v", err)
	}
	m, ok := wire.Parse(string(buf[:n]))
	if !ok || m.Verb != wire.VerbData || m.Sender != "alice" || m.Text != "hello" {
		t.Fatalf("unexpected payload: %+v ok=%v", m, ok)
	}
}

func TestSendViaServerSkipsDirectPeers(t *testing.T) {
	c := newTestClient(t)

	sigSock, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatal(err)
	}
	defer sigSock.Close()
	c.signalingAddr = sigSock.LocalAddr().(*net.UDPAddr)

	c.setSendViaServer(true)
	c.Send("hi")

	sigSock.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 128)
	n, _, err := sigSock.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("expected DATA to reach the signaling server: %v", err)
	}
	m, ok := wire.Parse(string(buf[:n]))
	if !ok || m.Verb != wire.VerbData {
		t.Fatalf("unexpected payload: %+v", m)
	}
}
