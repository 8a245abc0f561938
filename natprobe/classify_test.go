package natprobe

import (
	"net"
	"testing"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

func udpAddr(ip string, port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
}

func TestClassifyUnknownOnMissingObservation(t *testing.T) {
	if k := Classify(nil, udpAddr("1.2.3.4", 100)); k != wire.NatUnknown {
		t.Fatalf("expected Unknown, got %v", k)
	}
	if k := Classify(udpAddr("1.2.3.4", 100), nil); k != wire.NatUnknown {
		t.Fatalf("expected Unknown, got %v", k)
	}
}

func TestClassifyConeWhenSamePortSameIP(t *testing.T) {
	k := Classify(udpAddr("1.2.3.4", 5000), udpAddr("1.2.3.4", 5000))
	if k != wire.NatCone {
		t.Fatalf("expected Cone, got %v", k)
	}
}

func TestClassifySymmetricOnDifferentPort(t *testing.T) {
	k := Classify(udpAddr("1.2.3.4", 5000), udpAddr("1.2.3.4", 5001))
	if k != wire.NatSymmetric {
		t.Fatalf("expected Symmetric, got %v", k)
	}
}

func TestClassifySymmetricOnDifferentIP(t *testing.T) {
	k := Classify(udpAddr("1.2.3.4", 5000), udpAddr("5.6.7.8", 5000))
	if k != wire.NatSymmetric {
		t.Fatalf("expected Symmetric, got %v", k)
	}
}

func TestClassifyIsPure(t *testing.T) {
	a, b := udpAddr("1.2.3.4", 5000), udpAddr("1.2.3.4", 5000)
	first := Classify(a, b)
	second := Classify(a, b)
	if first != second {
		t.Fatal("Classify must be deterministic given the same inputs")
	}
}
