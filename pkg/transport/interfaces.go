package transport

import (
	"context"
	"crypto/tls"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/wire"
)

// MessageStream carries session messages in both directions.
// Implemented by Stream.
type MessageStream interface {
	// WriteMessage sends one message.
	WriteMessage(msg wire.Message) error

	// ReadMessage receives one message, or io.EOF after the peer closed.
	ReadMessage() (wire.Message, error)

	// Close closes the write side.
	Close() error
}

// Connection is an established connection to a peer.
// Implemented by Conn.
type Connection interface {
	ID() string
	LocalEndpoint() ipaddr.Endpoint
	RemoteEndpoint() ipaddr.Endpoint
	TLSState() tls.ConnectionState

	// OpenStream opens a new bidirectional stream.
	OpenStream(ctx context.Context) (*Stream, error)

	// Close closes the connection.
	Close() error
}

// TransportServer accepts connections.
// Implemented by Server.
type TransportServer interface {
	// Start begins accepting connections.
	Start(ctx context.Context) error

	// Stop gracefully stops the server.
	Stop() error

	// Endpoint returns the server's listen endpoint.
	Endpoint() ipaddr.Endpoint

	// ConnectionCount returns the number of active connections.
	ConnectionCount() int
}

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	// ReadFrame reads a length-prefixed frame.
	ReadFrame() ([]byte, error)

	// WriteFrame writes a length-prefixed frame.
	WriteFrame(data []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ MessageStream   = (*Stream)(nil)
	_ Connection      = (*Conn)(nil)
	_ TransportServer = (*Server)(nil)
	_ FrameReadWriter = (*Framer)(nil)
)
