// Package signaling implements the central rendezvous: channel
// membership, relay election, the heartbeat liveness sweep, and the
// server-side DATA relay for symmetric peers.
package signaling

import (
	"net"

	"github.com/sirupsen/logrus"

	"github.com/onlinedi-vision/od-nat-piercer/registry"
)

// packet is one datagram read off either socket, tagged with which one
// it came from so NAT_SEEN replies go out the right door. Forwarded DATA
// and control notifications always go out the main socket.
type packet struct {
	data []byte
	n    int
	src  *net.UDPAddr
	conn *net.UDPConn
}

// Server is the signaling rendezvous actor. Mirrors the teacher's Node:
// reader goroutines per socket feed a single channel drained by one
// dispatch loop, so all registry mutation happens on one goroutine.
type Server struct {
	mainConn  *net.UDPConn
	probeConn *net.UDPConn

	registry *registry.Registry
	config   Config
	log      *logrus.Logger

	packets chan packet
	quit    chan struct{}
}

// NewServer binds the main and probe UDP sockets and constructs a
// Server ready to Run.
func NewServer(mainAddr, probeAddr string, cfg Config, log *logrus.Logger) (*Server, error) {
	mainUDP, err := net.ResolveUDPAddr("udp", mainAddr)
	if err != nil {
		return nil, err
	}
	probeUDP, err := net.ResolveUDPAddr("udp", probeAddr)
	if err != nil {
		return nil, err
	}

	mainConn, err := net.ListenUDP("udp", mainUDP)
	if err != nil {
		return nil, err
	}
	probeConn, err := net.ListenUDP("udp", probeUDP)
	if err != nil {
		mainConn.Close()
		return nil, err
	}

	return &Server{
		mainConn:  mainConn,
		probeConn: probeConn,
		registry:  registry.New(),
		config:    cfg,
		log:       log,
		packets:   make(chan packet, 256),
		quit:      make(chan struct{}),
	}, nil
}

// Run starts the reader goroutines and blocks in the dispatch loop
// until Stop is called.
func (s *Server) Run() {
	go s.readLoop(s.mainConn)
	go s.readLoop(s.probeConn)
	s.dispatchLoop()
}

// Stop closes both sockets, unblocking the reader goroutines and the
// dispatch loop.
func (s *Server) Stop() {
	close(s.quit)
	s.mainConn.Close()
	s.probeConn.Close()
}

func (s *Server) readLoop(conn *net.UDPConn) {
	buf := make([]byte, 2048)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.log.WithError(err).Warn("udp read failed")
				return
			}
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		select {
		case s.packets <- packet{data: cp, n: n, src: src, conn: conn}:
		case <-s.quit:
			return
		}
	}
}
