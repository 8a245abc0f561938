package client

import (
	"net"

	"github.com/onlinedi-vision/od-nat-piercer/natprobe"
	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// ProbeNat runs the two-port NAT classification probe against the
// signaling server's main port (already known to the client) and the
// given probe port, using this client's own socket. Call it before
// Connect so the classification can be reported in CONNECT.
func (c *Client) ProbeNat(probeAddr string) (wire.NatKind, error) {
	probe, err := net.ResolveUDPAddr("udp", probeAddr)
	if err != nil {
		return wire.NatUnknown, err
	}
	return natprobe.Probe(c.conn, c.signalingAddr, probe), nil
}
