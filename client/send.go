package client

import "github.com/onlinedi-vision/od-nat-piercer/wire"

// Send implements C11: transport selection for one line of user input.
// If the server is relaying this client's own traffic, everything goes
// through the signaling endpoint. Otherwise each non-server-relayed peer
// gets a direct copy, and if this client is the elected relay for a
// channel that also has server-relayed members, one extra copy goes to
// the server so it can fan those out.
func (c *Client) Send(text string) {
	msg := wire.NewData(c.user, text).String() + "\n"
	isRelay, sendViaServer, channelHasServerRelays := c.snapshotFlags()

	if sendViaServer {
		if _, err := c.conn.WriteToUDP([]byte(msg), c.signalingAddr); err != nil {
			c.log.WithError(err).Warn("failed to send DATA via server")
		}
		return
	}

	for _, p := range c.peers.Snapshot() {
		if p.UseServerRelay {
			continue
		}
		if _, err := c.conn.WriteToUDP([]byte(msg), p.Addr); err != nil {
			c.log.WithError(err).WithField("peer", p.Name).Warn("failed to send DATA")
		}
	}

	if isRelay && channelHasServerRelays {
		if _, err := c.conn.WriteToUDP([]byte(msg), c.signalingAddr); err != nil {
			c.log.WithError(err).Warn("failed to mirror DATA to server for symmetric peers")
		}
	}
}
