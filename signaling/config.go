package signaling

import "time"

// Config holds the signaling server's tunable durations. Defaults match
// the cadence described for the heartbeat sweep.
type Config struct {
	HeartbeatInterval time.Duration
	ExpireAfter       time.Duration
}

// DefaultConfig returns the durations used in production.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 20 * time.Second,
		ExpireAfter:       40 * time.Second,
	}
}
