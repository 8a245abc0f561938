package signaling

import (
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/onlinedi-vision/od-nat-piercer/registry"
	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer("127.0.0.1:0", "127.0.0.1:0", DefaultConfig(), logrus.New())
	if err != nil {
		t.Fatalf("failed to build test server: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func TestSymmetricSenderIsFlaggedNeedsServerRelay(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()

	aAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 20001}
	bAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 20002}

	s.registry.Connect("srv", "lobby", "a", aAddr, wire.NatSymmetric, now)
	s.registry.Connect("srv", "lobby", "b", bAddr, wire.NatCone, now)

	ch := s.registry.FindChannelByAddrName(aAddr, "a")
	if ch == nil {
		t.Fatal("expected channel to be found")
	}
	if !isSenderNeedsServerRelay(ch, "a") {
		t.Fatal("expected symmetric sender to be flagged needs_server_relay")
	}
}

func TestRelayDataUnknownSenderIsDropped(t *testing.T) {
	s := newTestServer(t)
	ghost := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 30001}
	// relayData should not panic for an unregistered sender.
	s.relayData(wire.NewData("ghost", "hi"), ghost)
}

func TestIsSenderNeedsServerRelayFalseForUnflagged(t *testing.T) {
	ch := &registry.Channel{Users: []*registry.User{{Name: "a"}}}
	if isSenderNeedsServerRelay(ch, "a") {
		t.Fatal("expected false for unflagged user")
	}
}
