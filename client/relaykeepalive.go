package client

import (
	"time"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// relayKeepaliveLoop only does work while this client is the elected
// relay; it blocks on relayCond otherwise. Ticks every RelayTick,
// reporting PEER_TIMEOUT for silent peers and PING-ing the rest, and
// asks the server to take over a peer that still hasn't punched through
// after RelayGrace.
func (c *Client) relayKeepaliveLoop() {
	defer c.wg.Done()

	for {
		c.relayCond.L.Lock()
		for !c.isRelayNow() {
			select {
			case <-c.quit:
				c.relayCond.L.Unlock()
				return
			default:
			}
			c.relayCond.Wait()
		}
		c.relayCond.L.Unlock()

		select {
		case <-c.quit:
			return
		case <-time.After(c.cfg.RelayTick):
		}

		if !c.isRelayNow() {
			continue
		}
		c.relayTick()
	}
}

func (c *Client) relayTick() {
	now := time.Now()
	for _, p := range c.peers.Snapshot() {
		if p.UseServerRelay {
			continue
		}

		if now.Sub(p.LastPong) > c.cfg.RelayPeerTimeout {
			c.log.WithField("peer", p.Name).Info("peer timed out, reporting to server")
			msg := wire.NewPeerTimeout(c.serverID, c.channel, p.Name).String() + "\n"
			if _, err := c.conn.WriteToUDP([]byte(msg), c.signalingAddr); err != nil {
				c.log.WithError(err).Warn("failed to report PEER_TIMEOUT")
			}
			c.peers.Remove(p.Name)
			continue
		}

		if _, err := c.conn.WriteToUDP([]byte(wire.NewPing().String()+"\n"), p.Addr); err != nil {
			c.log.WithError(err).WithField("peer", p.Name).Warn("failed to PING peer")
		}

		if !p.Connected && !p.RelayRequested && now.Sub(p.CreatedAt) > c.cfg.RelayGrace {
			c.log.WithField("peer", p.Name).Info("requesting server relay for unresponsive peer")
			msg := wire.NewRequestRelay(c.serverID, c.channel, p.Name).String() + "\n"
			if _, err := c.conn.WriteToUDP([]byte(msg), c.signalingAddr); err != nil {
				c.log.WithError(err).Warn("failed to send REQUEST_RELAY")
			}
			c.peers.SetRelayRequested(p.Name, true)
		}
	}
}
