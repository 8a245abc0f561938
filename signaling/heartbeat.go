package signaling

import (
	"net"
	"time"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// sweep runs the 20s liveness pass: expire stale users, re-elect relays,
// ping lone survivors, and drop emptied channels. Mutation happens under
// the registry's lock (inside Sweep); all I/O here happens after it
// returns, mirroring the original's "compute under lock, send outside
// it, then reacquire only to delete" shape.
func (s *Server) sweep() {
	cutoff := time.Now().Add(-s.config.ExpireAfter)
	result := s.registry.Sweep(cutoff)

	for _, ref := range result.Ping {
		addr, err := net.ResolveUDPAddr("udp", ref.Addr)
		if err != nil {
			continue
		}
		if _, err := s.mainConn.WriteToUDP([]byte(wire.NewPing().String()+"\n"), addr); err != nil {
			s.log.WithError(err).WithField("addr", addr.String()).Warn("failed to send heartbeat PING")
		}
	}

	s.send(result.Notify)

	if len(result.ToClean) > 0 {
		s.registry.Cleanup(result.ToClean)
	}
}
