package signaling

import (
	"net"
	"time"

	"github.com/onlinedi-vision/od-nat-piercer/natprobe"
	"github.com/onlinedi-vision/od-nat-piercer/registry"
	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

func (s *Server) dispatchLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case pkt := <-s.packets:
			s.handlePacket(pkt)
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Server) handlePacket(pkt packet) {
	for _, line := range wire.SplitLines(string(pkt.data[:pkt.n])) {
		m, ok := wire.Parse(line)
		if !ok {
			s.log.WithField("line", line).Warn("dropping unparseable line")
			continue
		}
		s.handleMessage(m, pkt.src, pkt.conn)
	}
}

func (s *Server) handleMessage(m wire.Message, src *net.UDPAddr, conn *net.UDPConn) {
	log := s.log.WithField("addr", src.String())

	switch m.Verb {
	case wire.VerbNatProbe:
		natprobe.Respond(conn, src, log)

	case wire.VerbConnect:
		out := s.registry.Connect(m.Server, m.Channel, m.User, src, m.Nat, time.Now())
		s.send(out)
		log.WithFields(map[string]interface{}{
			"server": m.Server, "channel": m.Channel, "user": m.User, "nat": m.Nat.String(),
		}).Info("CONNECT")

	case wire.VerbHB:
		s.registry.Heartbeat(m.Server, m.Channel, m.User, src, time.Now())

	case wire.VerbPong:
		s.registry.Pong(src, time.Now())

	case wire.VerbDisconnect:
		out := s.registry.Disconnect(m.Server, m.Channel, m.User, src)
		s.send(out)
		log.WithField("user", m.User).Info("DISCONNECT")

	case wire.VerbPeerTimeout:
		out := s.registry.PeerTimeout(m.Server, m.Channel, m.User)
		s.send(out)
		log.WithField("user", m.User).Info("PEER_TIMEOUT")

	case wire.VerbRequestRelay:
		out := s.registry.RequestRelay(m.Server, m.Channel, m.User)
		s.send(out)
		log.WithField("user", m.User).Info("REQUEST_RELAY")

	case wire.VerbData:
		s.relayData(m, src)

	default:
		log.WithField("verb", m.Verb).Warn("unhandled verb at signaling server")
	}
}

// send writes every outbound notification on the main socket. Failures
// are logged and ignored: the next heartbeat sweep or re-election
// re-asserts state.
func (s *Server) send(out []registry.Outbound) {
	for _, o := range out {
		addr, err := net.ResolveUDPAddr("udp", o.To.Addr)
		if err != nil {
			s.log.WithError(err).WithField("addr", o.To.Addr).Warn("bad outbound address")
			continue
		}
		line := o.Message.String() + "\n"
		if _, err := s.mainConn.WriteToUDP([]byte(line), addr); err != nil {
			s.log.WithError(err).WithField("addr", addr.String()).Warn("failed to send")
		}
	}
}
