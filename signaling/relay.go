package signaling

import (
	"net"

	"github.com/onlinedi-vision/od-nat-piercer/registry"
	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// relayData implements C7: forward DATA on behalf of symmetric peers.
// DATA carries no server_id, so the channel is found by matching the
// sender's claimed name against the source address across every server.
func (s *Server) relayData(m wire.Message, src *net.UDPAddr) {
	ch := s.registry.FindChannelByAddrName(src, m.Sender)
	if ch == nil {
		s.log.WithField("sender", m.Sender).Warn("DATA from unknown sender, dropping")
		return
	}

	line := m.String() + "\n"

	switch {
	case ch.Relay != "" && ch.Relay == m.Sender:
		// The elected relay is mirroring a symmetric peer's traffic for
		// the server to fan out.
		for _, u := range ch.Users {
			if u.Name != m.Sender && u.NeedsServerRelay {
				s.deliver(line, u.Addr)
			}
		}

	case isSenderNeedsServerRelay(ch, m.Sender):
		for _, u := range ch.Users {
			if !u.Addr.IP.Equal(src.IP) || u.Addr.Port != src.Port {
				s.deliver(line, u.Addr)
			}
		}

	default:
		// Non-relay, non-flagged sender reached the server directly;
		// hand it to the elected relay to fan out.
		for _, u := range ch.Users {
			if u.Name == ch.Relay {
				s.deliver(line, u.Addr)
			}
		}
	}
}

func isSenderNeedsServerRelay(ch *registry.Channel, sender string) bool {
	for _, u := range ch.Users {
		if u.Name == sender {
			return u.NeedsServerRelay
		}
	}
	return false
}

func (s *Server) deliver(line string, addr *net.UDPAddr) {
	if _, err := s.mainConn.WriteToUDP([]byte(line), addr); err != nil {
		s.log.WithError(err).WithField("addr", addr.String()).Warn("failed to relay DATA")
	}
}
