package peertable

import (
	"net"
	"sync"
	"time"
)

// Table is the mutex-guarded set of peers a client currently knows
// about, keyed by username.
type Table struct {
	mu    sync.Mutex
	peers map[string]*Peer
}

// New returns an empty table.
func New() *Table {
	return &Table{peers: make(map[string]*Peer)}
}

// AddIfAbsent inserts a new Peer for name unless one is already present,
// mirroring the Rust original's "if !guard.iter().any(...)" guard. It
// returns the live Peer (existing or new).
func (t *Table) AddIfAbsent(name string, addr *net.UDPAddr, now time.Time) *Peer {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.peers[name]; ok {
		return p
	}
	p := &Peer{Name: name, Addr: addr, CreatedAt: now, LastPong: now}
	t.peers[name] = p
	return p
}

// Get returns the peer by name, or nil.
func (t *Table) Get(name string) *Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peers[name]
}

// Remove drops a peer by name.
func (t *Table) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, name)
}

// MarkSeen updates last-pong/connected state for whichever peer owns
// addr, returning the peer or nil if addr is unknown.
func (t *Table) MarkSeen(addr *net.UDPAddr, now time.Time) *Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.peers {
		if p.Addr.IP.Equal(addr.IP) && p.Addr.Port == addr.Port {
			p.LastPong = now
			p.Connected = true
			return p
		}
	}
	return nil
}

// SetServerRelay flags a peer as server-relayed and implicitly connected
// (no hole punch is needed once the server is carrying its traffic).
func (t *Table) SetServerRelay(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[name]; ok {
		p.UseServerRelay = true
		p.Connected = true
	}
}

// SetRelayRequested records that this client has already asked the
// server to take over name's traffic, so the keepalive loop doesn't ask
// twice while waiting on a reply.
func (t *Table) SetRelayRequested(name string, v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[name]; ok {
		p.RelayRequested = v
	}
}

// Snapshot returns a clone of the current peers for iteration without
// holding the lock across I/O (sends), following the teacher's "clone,
// then act outside the lock" discipline from group.send. Callers get
// value copies, not the live pointers, so any state they need to mutate
// afterward (e.g. RelayRequested) goes through a dedicated setter above
// instead of writing the returned struct directly.
func (t *Table) Snapshot() []Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Peer, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, *p)
	}
	return out
}

// Len reports the number of tracked peers.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}
