package client

import (
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/onlinedi-vision/od-nat-piercer/peertable"
	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// Client is one channel member. It owns a single UDP socket shared by
// every background loop (heartbeat emitter, hole-punch loop, relay
// keepalive, main receive loop).
type Client struct {
	conn          *net.UDPConn
	signalingAddr *net.UDPAddr

	serverID, channel, user string
	nat                     wire.NatKind

	peers *peertable.Table
	cfg   Config
	log   *logrus.Logger

	quit chan struct{}
	wg   sync.WaitGroup

	flagsMu                sync.Mutex
	isRelay                bool
	sendViaServer          bool
	channelHasServerRelays bool

	// punchPaused gates the hole-punch loop: set whenever this client
	// has been told it is itself server-relayed, since punching is
	// futile behind a symmetric mapping.
	punchMu     sync.Mutex
	punchCond   *sync.Cond
	punchPaused bool

	// relayCond wakes the keepalive loop when this client transitions
	// into (or out of) the relay role.
	relayMu   sync.Mutex
	relayCond *sync.Cond
}

// New builds a Client bound to localAddr, targeting the signaling
// server at signalingAddr.
func New(localAddr, signalingAddr, serverID, channel, user string, cfg Config, log *logrus.Logger) (*Client, error) {
	local, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, err
	}
	sig, err := net.ResolveUDPAddr("udp", signalingAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, err
	}
	if err := conn.SetReadBuffer(1 << 20); err != nil {
		log.WithError(err).Warn("failed to widen socket read buffer")
	}

	c := &Client{
		conn:          conn,
		signalingAddr: sig,
		serverID:      serverID,
		channel:       channel,
		user:          user,
		peers:         peertable.New(),
		cfg:           cfg,
		log:           log,
		quit:          make(chan struct{}),
	}
	c.punchCond = sync.NewCond(&c.punchMu)
	c.relayCond = sync.NewCond(&c.relayMu)
	return c, nil
}

// Close shuts the socket and stops every background loop.
func (c *Client) Close() error {
	close(c.quit)
	c.relayCond.Broadcast()
	c.punchCond.Broadcast()
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

func (c *Client) setRelay(v bool) {
	c.flagsMu.Lock()
	changed := c.isRelay != v
	c.isRelay = v
	c.flagsMu.Unlock()

	if changed {
		c.relayCond.L.Lock()
		c.relayCond.Broadcast()
		c.relayCond.L.Unlock()

		// Punching is pointless once this client itself becomes
		// server-relayed, but becoming the direct relay means punching
		// resumes.
		if v {
			c.resumePunching()
		}
	}
}

func (c *Client) isRelayNow() bool {
	c.flagsMu.Lock()
	defer c.flagsMu.Unlock()
	return c.isRelay
}

func (c *Client) setSendViaServer(v bool) {
	c.flagsMu.Lock()
	c.sendViaServer = v
	c.flagsMu.Unlock()
	if v {
		c.pausePunching()
	}
}

func (c *Client) setChannelHasServerRelays(v bool) {
	c.flagsMu.Lock()
	c.channelHasServerRelays = v
	c.flagsMu.Unlock()
}

func (c *Client) snapshotFlags() (isRelay, sendViaServer, channelHasServerRelays bool) {
	c.flagsMu.Lock()
	defer c.flagsMu.Unlock()
	return c.isRelay, c.sendViaServer, c.channelHasServerRelays
}

func (c *Client) pausePunching() {
	c.punchCond.L.Lock()
	c.punchPaused = true
	c.punchCond.L.Unlock()
}

func (c *Client) resumePunching() {
	c.punchCond.L.Lock()
	c.punchPaused = false
	c.punchCond.L.Unlock()
	c.punchCond.Broadcast()
}

// Start launches every background loop and returns immediately; the
// caller drives its own stdin/user-input loop separately (see
// cmd/client) and calls Close when done.
func (c *Client) Start() {
	c.wg.Add(4)
	go c.heartbeatLoop()
	go c.holePunchLoop()
	go c.relayKeepaliveLoop()
	go c.receiveLoop()
}
