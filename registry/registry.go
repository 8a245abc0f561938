package registry

import (
	"net"
	"sync"
	"time"

	"github.com/onlinedi-vision/od-nat-piercer/wire"
)

// Registry is the server-wide authoritative membership store:
// server_id -> channel_name -> Channel. All access is serialized by mu;
// callers compute mutations and the resulting Outbound list while
// holding the lock, then release it before performing any I/O.
type Registry struct {
	mu      sync.Mutex
	servers map[string]map[string]*Channel
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{servers: make(map[string]map[string]*Channel)}
}

// channelLocked returns the named channel, creating it (and its server
// bucket) if absent. Caller must hold mu.
func (r *Registry) channelLocked(server, name string) *Channel {
	bucket, ok := r.servers[server]
	if !ok {
		bucket = make(map[string]*Channel)
		r.servers[server] = bucket
	}
	ch, ok := bucket[name]
	if !ok {
		ch = newChannel()
		bucket[name] = ch
	}
	return ch
}

// cleanupLocked removes an empty channel, and an empty server bucket.
// Caller must hold mu.
func (r *Registry) cleanupLocked(server, name string) {
	bucket, ok := r.servers[server]
	if !ok {
		return
	}
	if ch, ok := bucket[name]; ok && len(ch.Users) == 0 {
		delete(bucket, name)
	}
	if len(bucket) == 0 {
		delete(r.servers, server)
	}
}

// Connect applies a CONNECT: refreshes an existing (name, addr) row, or
// removes stale rows for the same name before inserting a fresh one, then
// re-elects the channel's relay. Returns the notifications to send after
// the lock is released; an idempotent refresh returns none.
func (r *Registry) Connect(server, channel, name string, addr *net.UDPAddr, nat wire.NatKind, now time.Time) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := r.channelLocked(server, channel)

	if existing := ch.find(name); existing != nil && existing.sameAddr(addr) {
		existing.LastSeen = now
		return nil
	}

	ch.removeByName(name)
	ch.Users = append(ch.Users, &User{
		Name:             name,
		Addr:             addr,
		LastSeen:         now,
		Nat:              nat,
		NeedsServerRelay: nat == wire.NatSymmetric,
	})

	return Elect(ch)
}

// Heartbeat refreshes the (name, addr) row's liveness if present.
func (r *Registry) Heartbeat(server, channel, name string, addr *net.UDPAddr, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.servers[server][channel]
	if !ok {
		return
	}
	if u := ch.find(name); u != nil && u.sameAddr(addr) {
		u.LastSeen = now
	}
}

// Pong refreshes any row across all channels whose address matches src;
// PONG carries no server/channel/user triple.
func (r *Registry) Pong(src *net.UDPAddr, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bucket := range r.servers {
		for _, ch := range bucket {
			for _, u := range ch.Users {
				if u.sameAddr(src) {
					u.LastSeen = now
				}
			}
		}
	}
}

// Disconnect removes the (name, addr) row, re-electing the relay if
// needed, and returns the USER_LEFT plus any re-election notifications.
func (r *Registry) Disconnect(server, channel, name string, addr *net.UDPAddr) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.servers[server][channel]
	if !ok {
		return nil
	}
	u := ch.find(name)
	if u == nil || !u.sameAddr(addr) {
		return nil
	}

	wasRelay := ch.Relay == name
	ch.removeByName(name)

	out := []Outbound{}
	for _, remaining := range ch.Users {
		out = append(out, Outbound{To: ref(remaining), Message: wire.NewUserLeft(name, addr.String())})
	}

	if wasRelay || len(ch.Users) == 1 {
		out = append(out, Elect(ch)...)
	}

	r.cleanupLocked(server, channel)
	return out
}

// PeerTimeout removes a user by name unconditionally (the relay reports
// it dead; the server does not second-guess that) and re-elects.
func (r *Registry) PeerTimeout(server, channel, name string) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.servers[server][channel]
	if !ok {
		return nil
	}
	removed, found := ch.removeByName(name)
	if !found {
		return nil
	}

	wasRelay := ch.Relay == name
	out := []Outbound{}
	for _, remaining := range ch.Users {
		out = append(out, Outbound{To: ref(remaining), Message: wire.NewUserLeft(name, wire.DeadAddr)})
	}
	_ = removed

	if wasRelay || len(ch.Users) == 1 {
		out = append(out, Elect(ch)...)
	}

	r.cleanupLocked(server, channel)
	return out
}

// RequestRelay flags a user as needing server-side relay and broadcasts
// MODE SERVER_RELAY to the whole channel.
func (r *Registry) RequestRelay(server, channel, name string) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.servers[server][channel]
	if !ok {
		return nil
	}
	u := ch.find(name)
	if u == nil {
		return nil
	}
	u.NeedsServerRelay = true

	out := make([]Outbound, 0, len(ch.Users))
	for _, member := range ch.Users {
		out = append(out, Outbound{To: ref(member), Message: wire.NewModeServerRelay(name)})
	}
	return out
}

// FindByAddrName locates the channel containing a user matching both
// addr and name, for DATA routing (C7). Returns nil if not found.
func (r *Registry) FindByAddrName(server string, addr *net.UDPAddr, name string) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.servers[server]
	if !ok {
		return nil
	}
	for _, ch := range bucket {
		if u := ch.find(name); u != nil && u.sameAddr(addr) {
			return cloneChannel(ch)
		}
	}
	return nil
}

// FindChannelByAddrName searches every server's channels for one
// containing a user matching both addr and name. DATA envelopes carry
// no server_id, so the server-side relay (C7) must search globally, the
// way the original implementation does.
func (r *Registry) FindChannelByAddrName(addr *net.UDPAddr, name string) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bucket := range r.servers {
		for _, ch := range bucket {
			if u := ch.find(name); u != nil && u.sameAddr(addr) {
				return cloneChannel(ch)
			}
		}
	}
	return nil
}

func cloneChannel(ch *Channel) *Channel {
	cp := &Channel{Relay: ch.Relay, Users: make([]*User, len(ch.Users))}
	copy(cp.Users, ch.Users)
	return cp
}

// Sweep runs the heartbeat liveness pass: for every channel, expire users
// whose last_seen predates the cutoff, re-elect as needed, re-announce
// the current MODE state of every channel that still has members, queue
// pings for lone non-symmetric users, and report empty channels for
// cleanup.
// The caller performs all I/O (sending pings/notifications) after Sweep
// returns, then calls Cleanup to drop emptied channels/servers.
type SweepResult struct {
	Notify  []Outbound
	Ping    []*UserRef
	ToClean []ChannelKey
}

type ChannelKey struct {
	Server  string
	Channel string
}

func (r *Registry) Sweep(cutoff time.Time) SweepResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result SweepResult

	for server, bucket := range r.servers {
		for name, ch := range bucket {
			elected := false
			i := 0
			for i < len(ch.Users) {
				u := ch.Users[i]
				if u.LastSeen.After(cutoff) {
					i++
					continue
				}

				for _, remaining := range ch.Users {
					if remaining == u {
						continue
					}
					result.Notify = append(result.Notify, Outbound{
						To:      ref(remaining),
						Message: wire.NewUserLeft(u.Name, u.Addr.String()),
					})
				}

				wasRelay := ch.Relay == u.Name
				ch.Users = append(ch.Users[:i:i], ch.Users[i+1:]...)

				if wasRelay || len(ch.Users) == 1 {
					result.Notify = append(result.Notify, Elect(ch)...)
					elected = true
				}
			}

			// Re-assert MODE state every sweep so a lost election message
			// is repaired by the next tick.
			if !elected && len(ch.Users) > 0 {
				result.Notify = append(result.Notify, Elect(ch)...)
			}

			if len(ch.Users) == 1 && ch.Users[0].Nat != wire.NatSymmetric {
				result.Ping = append(result.Ping, ref(ch.Users[0]))
			}

			if len(ch.Users) == 0 {
				result.ToClean = append(result.ToClean, ChannelKey{Server: server, Channel: name})
			}
		}
	}

	return result
}

// Cleanup removes the channels/servers Sweep flagged as empty.
func (r *Registry) Cleanup(keys []ChannelKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		r.cleanupLocked(k.Server, k.Channel)
	}
}
