package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openscreen/openscreen-go/pkg/discovery"
	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/trace"
	"github.com/openscreen/openscreen-go/pkg/transport"
	"github.com/openscreen/openscreen-go/pkg/wire"
)

// ReceiverService accepts sessions from senders.
type ReceiverService struct {
	config ReceiverConfig

	server    *transport.Server
	publisher *discovery.Publisher

	mu    sync.RWMutex
	state ServiceState

	sessions      atomic.Uint64
	bytesReceived atomic.Uint64
}

// NewReceiverService creates a receiver service.
func NewReceiverService(config ReceiverConfig) (*ReceiverService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ReceiverID == "" {
		config.ReceiverID = ReceiverID(config.Interface)
	}
	if config.FriendlyName == "" {
		config.FriendlyName = DefaultFriendlyName
	}
	if config.ModelName == "" {
		config.ModelName = DefaultModelName
	}
	return &ReceiverService{config: config}, nil
}

// State returns the service state.
func (s *ReceiverService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ReceiverID returns the name in the receiver's certificate.
func (s *ReceiverService) ReceiverID() string { return s.config.ReceiverID }

// UniqueID returns the stable id published in the "id" TXT record.
func (s *ReceiverService) UniqueID() string {
	u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(s.config.ReceiverID))
	return strings.ReplaceAll(u.String(), "-", "")
}

// Endpoint returns the bound endpoint once started.
func (s *ReceiverService) Endpoint() ipaddr.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.server == nil {
		return s.config.Endpoint
	}
	return s.server.Endpoint()
}

// SessionCount returns the number of completed sessions.
func (s *ReceiverService) SessionCount() uint64 { return s.sessions.Load() }

// BytesReceived returns the media bytes received over all sessions.
func (s *ReceiverService) BytesReceived() uint64 { return s.bytesReceived.Load() }

// Start binds the endpoint and, if enabled, starts advertising.
func (s *ReceiverService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return ErrAlreadyStarted
	}

	span := trace.Begin(s.config.Trace, trace.CategoryReceiver, "ReceiverService.Start")

	server, err := transport.NewServer(transport.ServerConfig{
		ListenConfig: transport.ListenConfig{
			TLSConfig: &transport.TLSConfig{Certificate: s.config.Credentials.TLS},
			KeepAlive: s.config.KeepAlive,
			DSCP:      s.config.DSCP,
			Logger:    s.config.Logger,
			Trace:     s.config.Trace,
		},
		Endpoint: s.config.Endpoint,
		OnStream: s.handleStream,
		OnError: func(conn *transport.Conn, err error) {
			s.debugLog("transport error", "error", err)
		},
	})
	if err != nil {
		span.EndErr(err)
		return err
	}
	if err := server.Start(ctx); err != nil {
		span.EndErr(err)
		return err
	}

	if s.config.EnableDiscovery {
		publisher := discovery.NewPublisher(discovery.PublisherConfig{Interface: s.config.Interface})
		info := &discovery.ReceiverInfo{
			ID:           s.UniqueID(),
			FriendlyName: s.config.FriendlyName,
			Model:        s.config.ModelName,
			Port:         server.Endpoint().Port,
		}
		if err := publisher.Publish(info); err != nil {
			server.Stop()
			err = fmt.Errorf("failed to advertise: %w", err)
			span.EndErr(err)
			return err
		}
		s.publisher = publisher
	}

	s.server = server
	s.state = StateRunning
	span.Endpoints(server.Endpoint(), ipaddr.Endpoint{}).End()

	s.debugLog("receiver started", "endpoint", server.Endpoint().String(), "receiver_id", s.config.ReceiverID)
	return nil
}

// Stop withdraws the advertisement and closes all connections.
func (s *ReceiverService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return ErrNotStarted
	}

	if s.publisher != nil {
		s.publisher.Stop()
		s.publisher = nil
	}
	err := s.server.Stop()
	s.state = StateStopped
	return err
}

// handleStream runs one session: Offer, Answer, media, end.
func (s *ReceiverService) handleStream(ctx context.Context, stream *transport.Stream) {
	defer stream.Close()

	conn := stream.Conn()
	span := trace.Begin(s.config.Trace, trace.CategoryReceiver, "Session").
		Connection(conn.ID()).
		Endpoints(conn.LocalEndpoint(), conn.RemoteEndpoint())

	stats, err := s.runSession(ctx, stream)
	stats.Remote = conn.RemoteEndpoint()
	if stats.SessionID != 0 {
		span.Arg("session", strconv.FormatUint(uint64(stats.SessionID), 10)).
			Arg("bytes", strconv.FormatUint(stats.Bytes, 10))
	}
	span.EndErr(err)

	if err != nil {
		s.debugLog("session failed", "remote", conn.RemoteEndpoint().String(), "error", err)
		if errors.Is(err, ErrUnexpected) || errors.Is(err, wire.ErrInvalidMessage) {
			stream.Cancel()
		}
		return
	}

	s.debugLog("session complete",
		"session", stats.SessionID,
		"codec", stats.Codec.String(),
		"chunks", stats.Chunks,
		"bytes", stats.Bytes,
		"duration", stats.Duration)
	if s.config.OnSession != nil {
		s.config.OnSession(stats)
	}
}

func (s *ReceiverService) runSession(ctx context.Context, stream *transport.Stream) (SessionStats, error) {
	var stats SessionStats
	start := time.Now()

	msg, err := stream.ReadMessage()
	if err != nil {
		return stats, fmt.Errorf("read offer: %w", err)
	}
	offer, ok := msg.(*wire.Offer)
	if !ok {
		return stats, fmt.Errorf("%w: %s before offer", ErrUnexpected, msg.Type())
	}
	stats.SessionID = offer.SessionID
	stats.Codec = offer.Codec
	stats.FileName = offer.FileName

	answer := s.answer(offer)
	if err := stream.WriteMessage(answer); err != nil {
		return stats, fmt.Errorf("write answer: %w", err)
	}
	if !answer.Accepted {
		return stats, fmt.Errorf("%w: %s", ErrRejected, answer.Reason)
	}

	var next uint64
	for {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		msg, err := stream.ReadMessage()
		if errors.Is(err, io.EOF) {
			return stats, fmt.Errorf("%w: stream ended without end of stream", ErrSessionClosed)
		}
		if err != nil {
			return stats, err
		}

		switch m := msg.(type) {
		case *wire.MediaChunk:
			if m.SessionID != offer.SessionID {
				return stats, fmt.Errorf("%w: chunk for session %d", ErrUnexpected, m.SessionID)
			}
			if m.Sequence != next {
				return stats, fmt.Errorf("%w: chunk %d, expected %d", ErrUnexpected, m.Sequence, next)
			}
			next++
			stats.Chunks++
			stats.Bytes += uint64(len(m.Data))
			stats.Loops = m.Loop
			s.bytesReceived.Add(uint64(len(m.Data)))

		case *wire.EndOfStream:
			stats.Duration = time.Since(start)
			stats.AckedBytes = stats.Bytes
			s.sessions.Add(1)
			ack := &wire.EndOfStream{SessionID: offer.SessionID, TotalBytes: stats.Bytes, Chunks: stats.Chunks}
			if err := stream.WriteMessage(ack); err != nil {
				return stats, fmt.Errorf("write end of stream: %w", err)
			}
			return stats, nil

		default:
			return stats, fmt.Errorf("%w: %s during session", ErrUnexpected, msg.Type())
		}
	}
}

// answer decides whether to accept an offer.
func (s *ReceiverService) answer(offer *wire.Offer) *wire.Answer {
	a := &wire.Answer{SessionID: offer.SessionID, ReceiverName: s.config.FriendlyName}
	switch {
	case !slices.Contains(s.config.SupportedCodecs, offer.Codec):
		a.Reason = "unsupported codec " + offer.Codec.String()
	case s.config.MaxBitrate > 0 && offer.MaxBitrate > s.config.MaxBitrate:
		a.Reason = fmt.Sprintf("bitrate %d exceeds %d", offer.MaxBitrate, s.config.MaxBitrate)
	default:
		a.Accepted = true
	}
	return a
}

func (s *ReceiverService) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}
