package registry

import (
	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// Outbound is one notification the dispatcher must send once it has
// released the registry lock.
type Outbound struct {
	To      *UserRef
	Message wire.Message
}

// UserRef is enough to address a send: name for logging, addr for the
// socket write.
type UserRef struct {
	Name string
	Addr string
}

// eligible reports whether u can serve as the client relay: not behind a
// symmetric NAT, and not flagged as needing the server to carry it.
func eligible(u *User) bool {
	return u.Nat != wire.NatSymmetric && !u.NeedsServerRelay
}

// Elect re-derives ch.Relay and produces the MODE notifications implied
// by the current membership, following the five rules in order. It sets
// ch.Relay in place rather than returning a new Channel, and performs no
// I/O: callers send the returned messages themselves, after releasing
// the registry lock.
func Elect(ch *Channel) []Outbound {
	switch len(ch.Users) {
	case 0:
		ch.Relay = ""
		return nil

	case 1:
		u := ch.Users[0]
		if u.Nat != wire.NatSymmetric {
			ch.Relay = u.Name
			return []Outbound{{To: ref(u), Message: wire.NewModeRelay()}}
		}
		ch.Relay = ""
		return []Outbound{{To: ref(u), Message: wire.NewModeServerRelay(u.Name)}}
	}

	var relay *User
	for _, u := range ch.Users {
		if eligible(u) {
			relay = u
			break
		}
	}

	if relay == nil {
		ch.Relay = ""
		var out []Outbound
		for _, u := range ch.Users {
			out = append(out, Outbound{To: ref(u), Message: wire.NewModeServerRelay(u.Name)})
		}
		return out
	}

	ch.Relay = relay.Name
	var out []Outbound
	for _, p := range ch.Users {
		if p == relay {
			continue
		}
		if eligible(p) {
			out = append(out, Outbound{To: ref(p), Message: wire.NewModeDirect(relay.Name, relay.Addr.String())})
			out = append(out, Outbound{To: ref(relay), Message: wire.NewModeDirect(p.Name, p.Addr.String())})
		} else {
			out = append(out, Outbound{To: ref(p), Message: wire.NewModeServerRelay(p.Name)})
			out = append(out, Outbound{To: ref(relay), Message: wire.NewModeServerRelay(p.Name)})
		}
	}
	out = append(out, Outbound{To: ref(relay), Message: wire.NewModeRelay()})
	return out
}

func ref(u *User) *UserRef {
	return &UserRef{Name: u.Name, Addr: u.Addr.String()}
}
