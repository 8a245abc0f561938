// Command client joins a channel on a signaling server, punches through
// NATs to its peers, and relays stdin lines to the channel.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/onlinedi-vision/od-nat-piercer/client"
	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

func main() {
	var (
		signalingAddr = flag.String("signaling-addr", "", "signaling server main address, host:port")
		probeAddr     = flag.String("probe-addr", "", "signaling server NAT-probe address, host:port (defaults to signaling port + 1)")
		localPort     = flag.Int("local-port", 0, "local UDP port to bind (0 picks any free port)")
		serverID      = flag.String("server", "", "virtual server id")
		channel       = flag.String("channel", "", "channel name")
		user          = flag.String("user", "", "username")
		natFlag       = flag.String("nat", "auto", "NAT kind: auto, public, cone, symmetric")
		verbose       = flag.Bool("verbose", false, "log at debug level")
	)
	flag.Parse()

	if *signalingAddr == "" || *serverID == "" || *channel == "" || *user == "" {
		fmt.Fprintln(os.Stderr, "usage: client -signaling-addr host:port -server ID -channel NAME -user NAME")
		os.Exit(1)
	}

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	probe := *probeAddr
	if probe == "" {
		probe = bumpPort(*signalingAddr, 1)
	}

	cfg := client.DefaultConfig()
	c, err := client.New(fmt.Sprintf("0.0.0.0:%d", *localPort), *signalingAddr, *serverID, *channel, *user, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to bind local socket")
	}

	nat, err := resolveNat(*natFlag, c, probe)
	if err != nil {
		log.WithError(err).Warn("NAT probe failed, reporting Unknown")
		nat = wire.NatUnknown
	}
	c.SetNat(nat)

	if err := c.Connect(); err != nil {
		log.WithError(err).Fatal("failed to contact signaling server")
	}
	c.Start()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		c.Send(line)
	}

	c.Close()
}

func resolveNat(flagVal string, c *client.Client, probeAddr string) (wire.NatKind, error) {
	switch flagVal {
	case "public":
		return wire.NatPublic, nil
	case "cone":
		return wire.NatCone, nil
	case "symmetric":
		return wire.NatSymmetric, nil
	default:
		return c.ProbeNat(probeAddr)
	}
}

func bumpPort(addr string, delta int) string {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return net.JoinHostPort(host, fmt.Sprintf("%d", port+delta))
}
