package client

import (
	"time"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// holePunchLoop sends HOLE_PUNCH to every peer that hasn't answered yet
// and isn't server-relayed, backing off between 150ms and 1.5s. The
// backoff is a single value shared by all peers, not kept per peer: it
// doubles after each round that found an unconnected peer and resets
// once none is left.
// While punchPaused (this client itself is server-relayed) the loop
// blocks on punchCond instead of spinning.
func (c *Client) holePunchLoop() {
	defer c.wg.Done()

	backoff := c.cfg.PunchInitialBackoff
	line := wire.NewPunch().String() + "\n"

	for {
		c.punchCond.L.Lock()
		for c.punchPaused {
			select {
			case <-c.quit:
				c.punchCond.L.Unlock()
				return
			default:
			}
			c.punchCond.Wait()
		}
		c.punchCond.L.Unlock()

		select {
		case <-c.quit:
			return
		default:
		}

		anyUnconnected := false
		for _, p := range c.peers.Snapshot() {
			if p.Connected || p.UseServerRelay {
				continue
			}
			anyUnconnected = true
			if _, err := c.conn.WriteToUDP([]byte(line), p.Addr); err != nil {
				c.log.WithError(err).WithField("peer", p.Name).Warn("failed to send hole punch")
			}
		}

		if anyUnconnected {
			backoff *= 2
			if backoff > c.cfg.PunchMaxBackoff {
				backoff = c.cfg.PunchMaxBackoff
			}
		} else {
			backoff = c.cfg.PunchInitialBackoff
		}

		select {
		case <-c.quit:
			return
		case <-time.After(backoff):
		}
	}
}
