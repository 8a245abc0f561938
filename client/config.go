// Package client implements the peer side: NAT traversal, peer-table
// maintenance, relay keepalive, and the outbound send path.
package client

import "time"

// Config holds the client's tunable durations and backoff bounds.
type Config struct {
	SetupWindow    time.Duration
	HeartbeatEvery time.Duration

	PunchInitialBackoff time.Duration
	PunchMaxBackoff     time.Duration

	RelayTick        time.Duration
	RelayPeerTimeout time.Duration
	RelayGrace       time.Duration

	RecvPollInterval time.Duration
}

// DefaultConfig returns the durations described for the client.
func DefaultConfig() Config {
	return Config{
		SetupWindow:    1500 * time.Millisecond,
		HeartbeatEvery: 20 * time.Second,

		PunchInitialBackoff: 150 * time.Millisecond,
		PunchMaxBackoff:     1500 * time.Millisecond,

		RelayTick:        15 * time.Second,
		RelayPeerTimeout: 60 * time.Second,
		RelayGrace:       12 * time.Second,

		RecvPollInterval: 50 * time.Millisecond,
	}
}
