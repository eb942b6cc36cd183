package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/sockaddr"
	"github.com/openscreen/openscreen-go/pkg/trace"
	"github.com/openscreen/openscreen-go/pkg/wire"
)

// Connection states.
type ConnectionState int

const (
	// StateConnected indicates an active connection.
	StateConnected ConnectionState = iota

	// StateClosing indicates a local close is in progress.
	StateClosing

	// StateClosed indicates the connection is gone.
	StateClosed
)

// String returns the connection state name.
func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ErrConnectionClosed is returned for operations on a finished connection.
var ErrConnectionClosed = errors.New("connection closed")

// Application error codes sent in CONNECTION_CLOSE.
const (
	CodeNoError       quic.ApplicationErrorCode = 0
	CodeProtocolError quic.ApplicationErrorCode = 1
)

// Conn is an established QUIC connection between a sender and a receiver.
type Conn struct {
	qc     quic.Connection
	id     string
	local  ipaddr.Endpoint
	remote ipaddr.Endpoint

	maxMessageSize uint32
	logger         trace.Logger
	span           *trace.Span

	// Set for dialed connections, which own their socket.
	owned     io.Closer
	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
}

// newConn wraps an established QUIC connection. The TLS state must already
// have been verified.
func newConn(qc quic.Connection, local ipaddr.Endpoint, maxMessageSize uint32, logger trace.Logger, owned io.Closer) *Conn {
	c := &Conn{
		qc:             qc,
		id:             uuid.New().String(),
		local:          local,
		maxMessageSize: maxMessageSize,
		logger:         logger,
		owned:          owned,
	}
	if remote, err := endpointOf(qc.RemoteAddr()); err == nil {
		c.remote = remote
	}
	c.state.Store(int32(StateConnected))
	c.span = trace.Begin(logger, trace.CategoryQuic, "Connection").Connection(c.id).Endpoints(c.local, c.remote)
	return c
}

// ID returns the unique connection identifier.
func (c *Conn) ID() string { return c.id }

// LocalEndpoint returns the local endpoint.
func (c *Conn) LocalEndpoint() ipaddr.Endpoint { return c.local }

// RemoteEndpoint returns the peer's endpoint.
func (c *Conn) RemoteEndpoint() ipaddr.Endpoint { return c.remote }

// TLSState returns the TLS connection state.
func (c *Conn) TLSState() tls.ConnectionState {
	return c.qc.ConnectionState().TLS
}

// State returns the connection state.
func (c *Conn) State() ConnectionState {
	select {
	case <-c.qc.Context().Done():
		return StateClosed
	default:
	}
	return ConnectionState(c.state.Load())
}

// Done is closed when the connection ends for any reason.
func (c *Conn) Done() <-chan struct{} {
	return c.qc.Context().Done()
}

// OpenStream opens a bidirectional stream, blocking until the peer's stream
// limit allows it.
func (c *Conn) OpenStream(ctx context.Context) (*Stream, error) {
	qs, err := c.qc.OpenStreamSync(ctx)
	if err != nil {
		return nil, c.wrapErr("open stream", err)
	}
	return c.newStream(qs), nil
}

// AcceptStream waits for the peer to open a stream.
func (c *Conn) AcceptStream(ctx context.Context) (*Stream, error) {
	qs, err := c.qc.AcceptStream(ctx)
	if err != nil {
		return nil, c.wrapErr("accept stream", err)
	}
	return c.newStream(qs), nil
}

// Close closes the connection gracefully.
func (c *Conn) Close() error {
	return c.CloseWithError(CodeNoError, "")
}

// CloseWithError closes the connection, reporting code and reason to the
// peer.
func (c *Conn) CloseWithError(code quic.ApplicationErrorCode, reason string) error {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		c.closeErr = c.qc.CloseWithError(code, reason)
		if c.owned != nil {
			if err := c.owned.Close(); err != nil && c.closeErr == nil {
				c.closeErr = err
			}
		}
		c.state.Store(int32(StateClosed))
		if reason != "" {
			c.span.Arg("reason", reason)
		}
		c.span.End()
	})
	return c.closeErr
}

func (c *Conn) newStream(qs quic.Stream) *Stream {
	framer := &Framer{
		FrameReader: NewFrameReaderWithMaxSize(qs, c.maxMessageSize),
		FrameWriter: NewFrameWriterWithMaxSize(qs, c.maxMessageSize),
	}
	framer.SetLogger(c.logger, c.id)
	return &Stream{qs: qs, framer: framer, conn: c}
}

func (c *Conn) wrapErr(op string, err error) error {
	select {
	case <-c.qc.Context().Done():
		return fmt.Errorf("%s: %w: %v", op, ErrConnectionClosed, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Stream is a bidirectional QUIC stream carrying framed session messages.
type Stream struct {
	qs     quic.Stream
	framer *Framer
	conn   *Conn
}

// ID returns the QUIC stream id.
func (s *Stream) ID() int64 { return int64(s.qs.StreamID()) }

// Conn returns the connection the stream belongs to.
func (s *Stream) Conn() *Conn { return s.conn }

// WriteMessage encodes msg and writes it as one frame.
func (s *Stream) WriteMessage(msg wire.Message) error {
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	return s.framer.WriteFrame(data)
}

// ReadMessage reads and decodes one frame. It returns io.EOF once the peer
// has closed its side of the stream.
func (s *Stream) ReadMessage() (wire.Message, error) {
	data, err := s.framer.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, s.conn.wrapErr("read message", err)
	}
	return wire.Decode(data)
}

// SetDeadline sets read and write deadlines.
func (s *Stream) SetDeadline(t time.Time) error {
	return s.qs.SetDeadline(t)
}

// Close closes the write side. The peer sees io.EOF after the last message.
func (s *Stream) Close() error {
	return s.qs.Close()
}

// Cancel aborts both directions of the stream.
func (s *Stream) Cancel() {
	s.qs.CancelRead(quic.StreamErrorCode(CodeProtocolError))
	s.qs.CancelWrite(quic.StreamErrorCode(CodeProtocolError))
}

// endpointOf converts a socket address to an Endpoint.
func endpointOf(addr net.Addr) (ipaddr.Endpoint, error) {
	if addr == nil {
		return ipaddr.Endpoint{}, errors.New("no address")
	}
	return sockaddr.FromNetAddr(addr)
}
