package client

import (
	"net"
	"time"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// handleDatagram demultiplexes one inbound datagram: any packet from a
// known peer's address refreshes that peer's liveness first, then each
// line is dispatched by verb.
func (c *Client) handleDatagram(data []byte, src *net.UDPAddr) {
	now := time.Now()
	c.peers.MarkSeen(src, now)

	for _, line := range wire.SplitLines(string(data)) {
		m, ok := wire.Parse(line)
		if !ok {
			c.log.WithField("line", line).Warn("dropping unparseable line")
			continue
		}
		c.handleMessage(m, src, now)
	}
}

func (c *Client) handleMessage(m wire.Message, src *net.UDPAddr, now time.Time) {
	switch m.Verb {
	case wire.VerbPing:
		if _, err := c.conn.WriteToUDP([]byte(wire.NewPong().String()+"\n"), src); err != nil {
			c.log.WithError(err).Warn("failed to answer PING")
		}

	case wire.VerbPong:
		// already refreshed by MarkSeen above.

	case wire.VerbHolePunch:
		// already refreshed by MarkSeen above; nothing further to do.

	case wire.VerbModeRelay:
		c.handleMode(m)

	case wire.VerbUserLeft:
		c.peers.Remove(m.User)
		c.log.WithField("user", m.User).Info("peer left")

	case wire.VerbData:
		c.handleData(m, src)

	case wire.VerbNatSeen:
		// handled synchronously by natprobe.Probe's own reader during
		// the probe window; if one arrives later it is stale, ignore.

	default:
		c.log.WithField("verb", m.Verb).Warn("unhandled verb at client")
	}
}

func (c *Client) handleMode(m wire.Message) {
	switch m.Mode {
	case wire.ModeRelay:
		c.setRelay(true)
		c.log.Info("now acting as channel relay")

	case wire.ModeDirect:
		if m.User == c.user {
			return
		}
		addr, err := net.ResolveUDPAddr("udp", m.Addr)
		if err != nil {
			c.log.WithError(err).WithField("addr", m.Addr).Warn("bad peer address in MODE DIRECT")
			return
		}
		c.peers.AddIfAbsent(m.User, addr, time.Now())

	case wire.ModeServerRelay:
		if m.User == c.user {
			c.setSendViaServer(true)
			c.log.Info("server is relaying my traffic")
			return
		}
		if c.isRelayNow() {
			c.setChannelHasServerRelays(true)
		}
		c.peers.SetServerRelay(m.User)
	}
}

func (c *Client) handleData(m wire.Message, src *net.UDPAddr) {
	if m.Sender == c.user {
		return
	}
	c.log.WithFields(map[string]interface{}{"from": m.Sender}).Info(m.Text)

	if !c.isRelayNow() {
		return
	}
	// Relay mirrors traffic out to the remaining direct peers, the way
	// the Rust original's is_relay branch in handle_data_message does.
	line := m.String() + "\n"
	for _, p := range c.peers.Snapshot() {
		if p.Name == m.Sender || p.UseServerRelay {
			continue
		}
		if _, err := c.conn.WriteToUDP([]byte(line), p.Addr); err != nil {
			c.log.WithError(err).WithField("peer", p.Name).Warn("failed to mirror DATA")
		}
	}

	// Channel also has server-relayed (symmetric) members who can't be
	// reached directly; mirror one copy to the server so it can fan this
	// out to them, same as Send does for self-originated traffic.
	if _, _, channelHasServerRelays := c.snapshotFlags(); channelHasServerRelays {
		if _, err := c.conn.WriteToUDP([]byte(line), c.signalingAddr); err != nil {
			c.log.WithError(err).Warn("failed to mirror DATA to server for symmetric peers")
		}
	}
}

func (c *Client) receiveLoop() {
	defer c.wg.Done()
	buf := make([]byte, 2048)
	for {
		select {
		case <-c.quit:
			return
		default:
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.RecvPollInterval)); err != nil {
			return
		}
		n, src, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-c.quit:
				return
			default:
				c.log.WithError(err).Warn("receive error")
				return
			}
		}
		c.handleDatagram(buf[:n], src)
	}
}
