package client

import (
	"time"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// heartbeatLoop sends HB to the signaling server for the lifetime of
// the client, independent of relay status; this is what keeps the
// server's liveness sweep (40s expiry) from reaping a quiet-but-present
// member. Every client runs this, relay or not.
func (c *Client) heartbeatLoop() {
	defer c.wg.Done()

	msg := wire.NewHB(c.serverID, c.channel, c.user).String() + "\n"
	for {
		if _, err := c.conn.WriteToUDP([]byte(msg), c.signalingAddr); err != nil {
			c.log.WithError(err).Warn("failed to send heartbeat")
		}
		select {
		case <-c.quit:
			return
		case <-time.After(c.cfg.HeartbeatEvery):
		}
	}
}
