package natprobe

import (
	"net"

	"github.com/sirupsen/logrus"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// Respond answers a NAT_PROBE line received on conn by echoing the
// observed source endpoint back as NAT_SEEN. The signaling server's
// dispatcher calls it for probes arriving on either the main or the probe
// socket, passing the socket the probe arrived on; which socket a probe
// lands on is itself the information the client needs.
func Respond(conn *net.UDPConn, src *net.UDPAddr, log *logrus.Entry) {
	reply := wire.NewNatSeen(src.String()).String() + "\n"
	if _, err := conn.WriteToUDP([]byte(reply), src); err != nil {
		log.WithError(err).WithField("addr", src).Warn("failed to send NAT_SEEN")
	}
}
