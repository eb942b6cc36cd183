package transport

import (
	"time"

	"github.com/quic-go/quic-go"
)

// Liveness defaults. QUIC keep-alive packets replace application pings.
const (
	// DefaultKeepAlivePeriod is how often an idle connection sends a
	// keep-alive packet.
	DefaultKeepAlivePeriod = 10 * time.Second

	// DefaultIdleTimeout closes a connection that has received nothing for
	// this long.
	DefaultIdleTimeout = 30 * time.Second

	// DefaultHandshakeTimeout bounds the QUIC and TLS handshake.
	DefaultHandshakeTimeout = 10 * time.Second
)

// KeepAliveConfig configures connection liveness.
type KeepAliveConfig struct {
	// KeepAlivePeriod is the interval between keep-alive packets. Zero
	// disables keep-alives.
	KeepAlivePeriod time.Duration

	// IdleTimeout is the maximum silence before the connection is closed.
	IdleTimeout time.Duration

	// HandshakeTimeout bounds connection establishment.
	HandshakeTimeout time.Duration
}

// DefaultKeepAliveConfig returns the default liveness configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		KeepAlivePeriod:  DefaultKeepAlivePeriod,
		IdleTimeout:      DefaultIdleTimeout,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

// DetectionDelay is the longest a dead peer can go unnoticed.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.IdleTimeout
}

// withDefaults fills zero durations. KeepAlivePeriod stays zero if unset.
func (c KeepAliveConfig) withDefaults() KeepAliveConfig {
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	// A keep-alive period at or above the idle timeout would never fire in
	// time.
	if c.KeepAlivePeriod >= c.IdleTimeout {
		c.KeepAlivePeriod = c.IdleTimeout / 2
	}
	return c
}

// quicConfig builds the quic-go configuration for c.
func (c KeepAliveConfig) quicConfig() *quic.Config {
	c = c.withDefaults()
	return &quic.Config{
		MaxIdleTimeout:       c.IdleTimeout,
		KeepAlivePeriod:      c.KeepAlivePeriod,
		HandshakeIdleTimeout: c.HandshakeTimeout,
	}
}
