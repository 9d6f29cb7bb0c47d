package server

import (
	"time"

	"tableslate/server/internal/perms"
)

const (
	defaultKeyframeInterval  = 64
	defaultKeyframeCapacity  = 32
	defaultKeyframeMaxAge    = 10 * time.Minute
	defaultHeartbeatInterval = 5 * time.Second
	defaultHeartbeatTimeout  = 30 * time.Second
)

// Config tunes hub behaviour. Zero values fall back to defaults, so a
// literal Config{} is always usable.
type Config struct {
	// KeyframeInterval is the number of approved events between scene
	// keyframes recorded into the journal.
	KeyframeInterval uint64
	// KeyframeCapacity bounds the journal's keyframe ring.
	KeyframeCapacity int
	// KeyframeMaxAge evicts keyframes older than this when a new one is
	// recorded.
	KeyframeMaxAge time.Duration
	// HeartbeatInterval is how often clients are expected to ping.
	HeartbeatInterval time.Duration
	// HeartbeatTimeout is the silence threshold after which a subscriber
	// is considered gone.
	HeartbeatTimeout time.Duration
	// DefaultRole is granted to every joining user. The first user to
	// join is always promoted to owner regardless.
	DefaultRole perms.Role
}

// DefaultConfig returns the tuning the server ships with.
func DefaultConfig() Config {
	return Config{
		KeyframeInterval:  defaultKeyframeInterval,
		KeyframeCapacity:  defaultKeyframeCapacity,
		KeyframeMaxAge:    defaultKeyframeMaxAge,
		HeartbeatInterval: defaultHeartbeatInterval,
		HeartbeatTimeout:  defaultHeartbeatTimeout,
		DefaultRole:       perms.RoleEditor,
	}
}

func (c Config) normalized() Config {
	if c.KeyframeInterval == 0 {
		c.KeyframeInterval = defaultKeyframeInterval
	}
	if c.KeyframeCapacity <= 0 {
		c.KeyframeCapacity = defaultKeyframeCapacity
	}
	if c.KeyframeMaxAge <= 0 {
		c.KeyframeMaxAge = defaultKeyframeMaxAge
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.DefaultRole == "" {
		c.DefaultRole = perms.RoleEditor
	}
	return c
}
