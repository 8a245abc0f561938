// Package registry holds the signaling server's authoritative channel
// membership state and the pure relay-election function run over it.
package registry

import (
	"net"
	"time"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// User is one channel member as tracked by the signaling server.
type User struct {
	Name             string
	Addr             *net.UDPAddr
	LastSeen         time.Time
	Nat              wire.NatKind
	NeedsServerRelay bool
}

func (u *User) sameAddr(addr *net.UDPAddr) bool {
	return u.Addr.IP.Equal(addr.IP) && u.Addr.Port == addr.Port
}
