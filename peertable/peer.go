// Package peertable holds the client-side view of the channel's other
// members: the addresses to punch, whether they've answered yet, and
// whether they are routed via the signaling server instead.
package peertable

import (
	"net"
	"time"
)

// Peer is one other channel member as tracked by a client.
type Peer struct {
	Name           string
	Addr           *net.UDPAddr
	LastPong       time.Time
	CreatedAt      time.Time
	Connected      bool
	UseServerRelay bool
	RelayRequested bool
}
