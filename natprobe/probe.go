package natprobe

import (
	"context"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// Window is the total time budget the client gives the two probes to
// come back before falling back to whatever was observed (or Unknown).
const Window = 600 * time.Millisecond

// Probe fires NAT_PROBE 1 at mainAddr and NAT_PROBE 2 at probeAddr
// concurrently over conn, waits up to Window for both NAT_SEEN replies,
// and classifies the result. The two round trips target distinct remote
// ports but share one local socket, so a single dispatcher goroutine
// reads every reply and routes it by source address to whichever prober
// is waiting on it; the two probes themselves still fire and wait
// concurrently via errgroup, since neither needs to see the other finish.
func Probe(conn *net.UDPConn, mainAddr, probeAddr *net.UDPAddr) wire.NatKind {
	ctx, cancel := context.WithTimeout(context.Background(), Window)
	defer cancel()

	mainCh := make(chan *net.UDPAddr, 1)
	probeCh := make(chan *net.UDPAddr, 1)

	go dispatchReplies(ctx, conn, mainAddr, probeAddr, mainCh, probeCh)

	var mainSeen, probeSeen *net.UDPAddr

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := send(conn, mainAddr, 1); err != nil {
			return err
		}
		select {
		case mainSeen = <-mainCh:
		case <-ctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		if err := send(conn, probeAddr, 2); err != nil {
			return err
		}
		select {
		case probeSeen = <-probeCh:
		case <-ctx.Done():
		}
		return nil
	})
	_ = g.Wait()

	return Classify(mainSeen, probeSeen)
}

func send(conn *net.UDPConn, dst *net.UDPAddr, n int) error {
	msg := wire.NewNatProbe(n).String() + "\n"
	_, err := conn.WriteToUDP([]byte(msg), dst)
	return err
}

// dispatchReplies reads NAT_SEEN lines until the window closes, routing
// each to the channel whose server endpoint it arrived from.
func dispatchReplies(ctx context.Context, conn *net.UDPConn, mainAddr, probeAddr *net.UDPAddr, mainCh, probeCh chan<- *net.UDPAddr) {
	buf := make([]byte, 512)
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(Window)
	}
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return
		}
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		for _, line := range wire.SplitLines(string(buf[:n])) {
			m, ok := wire.Parse(line)
			if !ok || m.Verb != wire.VerbNatSeen {
				continue
			}
			addr, err := net.ResolveUDPAddr("udp", m.Addr)
			if err != nil {
				continue
			}
			switch {
			case src.IP.Equal(mainAddr.IP) && src.Port == mainAddr.Port:
				select {
				case mainCh <- addr:
				default:
				}
			case src.IP.Equal(probeAddr.IP) && src.Port == probeAddr.Port:
				select {
				case probeCh <- addr:
				default:
				}
			}
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
