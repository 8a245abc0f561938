// Package natprobe implements the two-port NAT classification probe used
// by clients to determine how their NAT maps outbound UDP ports, and the
// server-side responder they probe against.
package natprobe

import (
	"net"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// Classify is a pure function of the (up to two) endpoints the signaling
// server observed the client from on its main and probe ports.
//
// Fewer than two observations means the window closed before both probes
// came back: Unknown. Differing IPs, or matching IPs with differing
// ports, both indicate the NAT rewrites outbound mappings per destination
// and are classified Symmetric. Matching IP and port is a Cone (or full
// Public) mapping.
func Classify(main, probe *net.UDPAddr) wire.NatKind {
	if main == nil || probe == nil {
		return wire.NatUnknown
	}
	if !main.IP.Equal(probe.IP) {
		return wire.NatSymmetric
	}
	if main.Port != probe.Port {
		return wire.NatSymmetric
	}
	return wire.NatCone
}
