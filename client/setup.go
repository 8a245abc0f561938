package client

import (
	"net"
	"time"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// Connect sends CONNECT and blocks until the first datagram carrying a
// MODE line has been handled, or until cfg.SetupWindow elapses. It
// returns an error only when CONNECT cannot be sent or the socket fails;
// a window that closes with no reply also returns nil. A client that
// misses this window still converges once the receive loop starts, since
// the server re-announces MODE on every membership change and on every
// heartbeat tick.
func (c *Client) Connect() error {
	msg := wire.NewConnect(c.serverID, c.channel, c.user, c.nat).String() + "\n"
	if _, err := c.conn.WriteToUDP([]byte(msg), c.signalingAddr); err != nil {
		return err
	}

	deadline := time.Now().Add(c.cfg.SetupWindow)
	buf := make([]byte, 2048)
	for time.Now().Before(deadline) {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return err
		}
		n, src, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				break
			}
			return err
		}
		c.handleDatagram(buf[:n], src)
		for _, line := range wire.SplitLines(string(buf[:n])) {
			if m, ok := wire.Parse(line); ok && m.Verb == wire.VerbModeRelay {
				return c.conn.SetReadDeadline(time.Time{})
			}
		}
	}
	// restore a conn without a deadline for the steady-state loops.
	return c.conn.SetReadDeadline(time.Time{})
}

// SetNat records the NAT classification to report on the next CONNECT;
// it has no effect once Connect has already been called.
func (c *Client) SetNat(kind wire.NatKind) {
	c.nat = kind
}
