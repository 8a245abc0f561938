package registry

import (
	"net"
	"testing"
	"time"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

func udp(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}
}

func TestConnectIdempotentForSameAddr(t *testing.T) {
	r := New()
	now := time.Now()
	out1 := r.Connect("srv", "lobby", "alice", udp(1000), wire.NatCone, now)
	if len(out1) == 0 {
		t.Fatal("expected election notifications on first connect")
	}
	out2 := r.Connect("srv", "lobby", "alice", udp(1000), wire.NatCone, now.Add(time.Second))
	if len(out2) != 0 {
		t.Fatalf("expected no notifications on idempotent reconnect, got %+v", out2)
	}
}

func TestConnectTwoUsersElectsAndDirects(t *testing.T) {
	r := New()
	now := time.Now()
	r.Connect("srv", "lobby", "alice", udp(1000), wire.NatCone, now)
	out := r.Connect("srv", "lobby", "bob", udp(1001), wire.NatCone, now)

	foundDirectToAlice, foundDirectToBob := false, false
	for _, o := range out {
		if o.To.Name == "alice" && o.Message.Mode == wire.ModeDirect && o.Message.User == "bob" {
			foundDirectToAlice = true
		}
		if o.To.Name == "bob" && o.Message.Mode == wire.ModeDirect && o.Message.User == "alice" {
			foundDirectToBob = true
		}
	}
	if !foundDirectToAlice || !foundDirectToBob {
		t.Fatalf("expected mutual MODE DIRECT, got %+v", out)
	}
}

func TestDisconnectReElectsAndNotifies(t *testing.T) {
	r := New()
	now := time.Now()
	r.Connect("srv", "lobby", "alice", udp(1000), wire.NatCone, now)
	r.Connect("srv", "lobby", "bob", udp(1001), wire.NatCone, now)
	r.Connect("srv", "lobby", "carol", udp(1002), wire.NatCone, now)

	out := r.Disconnect("srv", "lobby", "alice", udp(1000))

	sawUserLeft, sawModeRelayToBob := false, false
	for _, o := range out {
		if o.Message.Verb == wire.VerbUserLeft && o.Message.User == "alice" {
			sawUserLeft = true
		}
		if o.To.Name == "bob" && o.Message.Mode == wire.ModeRelay {
			sawModeRelayToBob = true
		}
	}
	if !sawUserLeft {
		t.Fatalf("expected USER_LEFT notifications, got %+v", out)
	}
	if !sawModeRelayToBob {
		t.Fatalf("expected bob to be re-elected relay, got %+v", out)
	}
}

func TestDisconnectUnknownUserIsNoop(t *testing.T) {
	r := New()
	out := r.Disconnect("srv", "lobby", "ghost", udp(9999))
	if out != nil {
		t.Fatalf("expected nil for unknown disconnect, got %+v", out)
	}
}

func TestPeerTimeoutRemovesUnconditionally(t *testing.T) {
	r := New()
	now := time.Now()
	r.Connect("srv", "lobby", "alice", udp(1000), wire.NatCone, now)
	r.Connect("srv", "lobby", "bob", udp(1001), wire.NatCone, now)

	out := r.PeerTimeout("srv", "lobby", "bob")
	sawUserLeftDead := false
	for _, o := range out {
		if o.Message.Verb == wire.VerbUserLeft && o.Message.Addr == wire.DeadAddr {
			sawUserLeftDead = true
		}
	}
	if !sawUserLeftDead {
		t.Fatalf("expected USER_LEFT with dead addr sentinel, got %+v", out)
	}
}

func TestRequestRelaySetsFlagAndBroadcasts(t *testing.T) {
	r := New()
	now := time.Now()
	r.Connect("srv", "lobby", "alice", udp(1000), wire.NatCone, now)
	r.Connect("srv", "lobby", "bob", udp(1001), wire.NatCone, now)

	out := r.RequestRelay("srv", "lobby", "bob")
	if len(out) != 2 {
		t.Fatalf("expected broadcast to both members, got %+v", out)
	}
	for _, o := range out {
		if o.Message.Mode != wire.ModeServerRelay || o.Message.User != "bob" {
			t.Fatalf("unexpected message %+v", o.Message)
		}
	}
}

func TestSweepExpiresStaleUsers(t *testing.T) {
	r := New()
	old := time.Now().Add(-time.Hour)
	r.Connect("srv", "lobby", "alice", udp(1000), wire.NatCone, old)
	r.Connect("srv", "lobby", "bob", udp(1001), wire.NatCone, time.Now())

	result := r.Sweep(time.Now().Add(-40 * time.Second))

	sawExpiry := false
	for _, o := range result.Notify {
		if o.Message.Verb == wire.VerbUserLeft && o.Message.User == "alice" {
			sawExpiry = true
		}
	}
	if !sawExpiry {
		t.Fatalf("expected alice to be expired, got %+v", result.Notify)
	}
}

func TestSweepPingsLoneSurvivor(t *testing.T) {
	r := New()
	now := time.Now()
	old := now.Add(-time.Hour)
	r.Connect("srv", "lobby", "alice", udp(1000), wire.NatCone, old)
	r.Connect("srv", "lobby", "bob", udp(1001), wire.NatCone, now)

	result := r.Sweep(now.Add(-40 * time.Second))
	if len(result.Ping) != 1 || result.Ping[0].Name != "bob" {
		t.Fatalf("expected ping to lone survivor bob, got %+v", result.Ping)
	}
}

func TestSweepFlagsEmptyChannelForCleanup(t *testing.T) {
	r := New()
	old := time.Now().Add(-time.Hour)
	r.Connect("srv", "lobby", "alice", udp(1000), wire.NatCone, old)

	result := r.Sweep(time.Now().Add(-40 * time.Second))
	if len(result.ToClean) != 1 {
		t.Fatalf("expected one channel flagged for cleanup, got %+v", result.ToClean)
	}
	r.Cleanup(result.ToClean)

	ch := r.FindByAddrName("srv", udp(1000), "alice")
	if ch != nil {
		t.Fatal("expected channel to be gone after cleanup")
	}
}

func TestPongRefreshesAcrossChannels(t *testing.T) {
	r := New()
	now := time.Now()
	r.Connect("srv", "lobby", "alice", udp(1000), wire.NatCone, now.Add(-time.Hour))
	r.Pong(udp(1000), now)

	result := r.Sweep(now.Add(-40 * time.Second))
	for _, o := range result.Notify {
		if o.Message.User == "alice" {
			t.Fatal("alice should not have expired after PONG refresh")
		}
	}
}
