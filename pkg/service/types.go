package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openscreen/openscreen-go/pkg/cert"
	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/trace"
	"github.com/openscreen/openscreen-go/pkg/transport"
	"github.com/openscreen/openscreen-go/pkg/wire"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrRejected       = errors.New("offer rejected")
	ErrSessionClosed  = errors.New("session closed")
	ErrUnexpected     = errors.New("unexpected message")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateRunning - service is running normally.
	StateRunning

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Defaults.
const (
	// DefaultFriendlyName is advertised when no name is configured.
	DefaultFriendlyName = "Cast Standalone Receiver"

	// DefaultModelName is advertised when no model is configured.
	DefaultModelName = "cast_standalone_receiver"

	// DefaultChunkSize is the media payload per MediaChunk.
	DefaultChunkSize = 16 << 10

	// DefaultAnswerTimeout bounds the wait for an Answer.
	DefaultAnswerTimeout = 10 * time.Second

	// DefaultConnectAttempts is how often a sender dials a receiver.
	DefaultConnectAttempts = 3
)

// ReceiverID derives the receiver id, which is also the certificate name,
// from the interface the receiver serves on.
func ReceiverID(interfaceName string) string {
	return "Standalone Receiver on " + interfaceName
}

// ReceiverConfig configures a ReceiverService.
type ReceiverConfig struct {
	// Endpoint to listen on. Port 0 picks an ephemeral port.
	Endpoint ipaddr.Endpoint

	// Interface names the interface the receiver serves on. It scopes
	// mDNS advertising and derives the default receiver id.
	Interface string

	// ReceiverID is the certificate name senders verify. Default:
	// ReceiverID(Interface).
	ReceiverID string

	// Credentials are presented to senders. Required.
	Credentials cert.Credentials

	// FriendlyName is advertised to senders.
	FriendlyName string

	// ModelName is advertised to senders.
	ModelName string

	// EnableDiscovery advertises the receiver with mDNS.
	EnableDiscovery bool

	// DSCP marks outgoing packets. Zero leaves them unmarked.
	DSCP uint8

	// KeepAlive configures connection liveness.
	KeepAlive transport.KeepAliveConfig

	// SupportedCodecs lists the codecs offers may use.
	SupportedCodecs []wire.VideoCodec

	// MaxBitrate rejects offers above it. Zero accepts any bitrate.
	MaxBitrate int

	// OnSession is called when a session ends.
	OnSession func(SessionStats)

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// Trace receives trace events (optional).
	Trace trace.Logger
}

// DefaultReceiverConfig returns the default receiver configuration.
func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		Endpoint:        ipaddr.Endpoint{Port: transport.DefaultPort},
		FriendlyName:    DefaultFriendlyName,
		ModelName:       DefaultModelName,
		EnableDiscovery: true,
		DSCP:            transport.DSCPAF41,
		KeepAlive:       transport.DefaultKeepAliveConfig(),
		SupportedCodecs: append([]wire.VideoCodec(nil), wire.SupportedCodecs...),
	}
}

// Validate checks the configuration.
func (c *ReceiverConfig) Validate() error {
	if len(c.Credentials.TLS.Certificate) == 0 {
		return fmt.Errorf("%w: credentials are required", ErrInvalidConfig)
	}
	if c.ReceiverID == "" && c.Interface == "" {
		return fmt.Errorf("%w: receiver id or interface is required", ErrInvalidConfig)
	}
	if len(c.SupportedCodecs) == 0 {
		return fmt.Errorf("%w: no supported codecs", ErrInvalidConfig)
	}
	return nil
}

// SenderConfig configures a Sender.
type SenderConfig struct {
	// TLSConfig verifies receivers. Required.
	TLSConfig *transport.TLSConfig

	Codec          wire.VideoCodec
	MaxBitrate     int
	Remoting       bool
	AndroidRTPHack bool

	// Looping restarts the file at its end until the context is done or
	// MaxLoops restarts have happened.
	Looping  bool
	MaxLoops int

	// ChunkSize is the media payload per MediaChunk.
	ChunkSize int

	// Pace throttles sending to MaxBitrate.
	Pace bool

	// AnswerTimeout bounds the wait for the receiver's Answer.
	AnswerTimeout time.Duration

	// ConnectAttempts is how often to dial before giving up, with
	// exponential backoff in between. Values below 1 mean one attempt.
	ConnectAttempts int

	// DSCP marks outgoing packets. Zero leaves them unmarked.
	DSCP uint8

	// KeepAlive configures connection liveness.
	KeepAlive transport.KeepAliveConfig

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// Trace receives trace events (optional).
	Trace trace.Logger
}

// DefaultSenderConfig returns the default sender configuration.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Codec:           wire.CodecVP8,
		MaxBitrate:      wire.DefaultMaxBitrate,
		Looping:         true,
		ChunkSize:       DefaultChunkSize,
		Pace:            true,
		AnswerTimeout:   DefaultAnswerTimeout,
		ConnectAttempts: DefaultConnectAttempts,
		DSCP:            transport.DSCPAF41,
		KeepAlive:       transport.DefaultKeepAliveConfig(),
	}
}

// Validate checks the configuration.
func (c *SenderConfig) Validate() error {
	if c.TLSConfig == nil {
		return fmt.Errorf("%w: TLS config is required", ErrInvalidConfig)
	}
	if !c.Codec.IsValid() {
		return fmt.Errorf("%w: invalid codec %d", ErrInvalidConfig, c.Codec)
	}
	if c.MaxBitrate < wire.MinRequiredBitrate {
		return fmt.Errorf("%w: max bitrate must be at least %d", ErrInvalidConfig, wire.MinRequiredBitrate)
	}
	if c.ChunkSize <= 0 || c.ChunkSize > transport.DefaultMaxMessageSize/2 {
		return fmt.Errorf("%w: chunk size %d out of range", ErrInvalidConfig, c.ChunkSize)
	}
	return nil
}

// SessionStats summarizes one session.
type SessionStats struct {
	SessionID uint32
	Codec     wire.VideoCodec
	FileName  string

	// Remote is the peer's endpoint.
	Remote ipaddr.Endpoint

	Chunks uint64
	Bytes  uint64
	Loops  uint32

	// AckedBytes is the receiver's count, as reported at the end.
	AckedBytes uint64

	Duration time.Duration
}
