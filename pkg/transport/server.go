package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/quic-go/quic-go"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/trace"
)

// ListenConfig configures a Listener.
type ListenConfig struct {
	// TLSConfig contains TLS settings. Required.
	TLSConfig *TLSConfig

	// KeepAlive configures liveness.
	KeepAlive KeepAliveConfig

	// MaxMessageSize is the maximum message size (default: 1 MiB).
	MaxMessageSize uint32

	// DSCP marks outgoing packets. Zero leaves them unmarked.
	DSCP uint8

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// Trace receives trace events (optional).
	Trace trace.Logger
}

// Listener accepts QUIC connections on one UDP socket.
type Listener struct {
	config ListenConfig
	udp    *net.UDPConn
	tr     *quic.Transport
	ln     *quic.Listener
	local  ipaddr.Endpoint

	closeOnce sync.Once
	closeErr  error
}

// Listen binds local and starts accepting connections. Port 0 picks an
// ephemeral port; Endpoint reports the one chosen.
func Listen(ctx context.Context, local ipaddr.Endpoint, config ListenConfig) (*Listener, error) {
	if config.TLSConfig == nil {
		return nil, errors.New("TLSConfig is required")
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}

	tlsConf, err := NewServerTLSConfig(config.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS config: %w", err)
	}

	udp, err := listenUDP(ctx, local, config.DSCP, config.Logger)
	if err != nil {
		return nil, err
	}

	tr := &quic.Transport{Conn: udp}
	ln, err := tr.Listen(tlsConf, config.KeepAlive.quicConfig())
	if err != nil {
		tr.Close()
		udp.Close()
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	bound, err := endpointOf(udp.LocalAddr())
	if err != nil {
		bound = local
	}
	return &Listener{config: config, udp: udp, tr: tr, ln: ln, local: bound}, nil
}

// Endpoint returns the bound endpoint.
func (l *Listener) Endpoint() ipaddr.Endpoint { return l.local }

// Accept waits for the next verified connection. Connections failing
// TLS 1.3 or ALPN checks are closed and skipped.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	for {
		qc, err := l.ln.Accept(ctx)
		if err != nil {
			return nil, err
		}
		if err := VerifyConnection(qc.ConnectionState().TLS); err != nil {
			qc.CloseWithError(CodeProtocolError, err.Error())
			if l.config.Logger != nil {
				l.config.Logger.Warn("rejected connection", "remote", qc.RemoteAddr().String(), "error", err)
			}
			continue
		}
		return newConn(qc, l.local, l.config.MaxMessageSize, l.config.Trace, nil), nil
	}
}

// Close stops accepting and closes the socket. Accepted connections share
// the socket and end with it.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = errors.Join(l.ln.Close(), l.tr.Close(), l.udp.Close())
	})
	return l.closeErr
}

// ServerConfig configures a Server.
type ServerConfig struct {
	ListenConfig

	// Endpoint to listen on. Port 0 picks an ephemeral port.
	Endpoint ipaddr.Endpoint

	// OnConnect is called when a new connection is established.
	OnConnect func(conn *Conn)

	// OnDisconnect is called when a connection is closed.
	OnDisconnect func(conn *Conn)

	// OnStream is called on its own goroutine for every stream a peer
	// opens. Required.
	OnStream func(ctx context.Context, stream *Stream)

	// OnError is called when an error occurs. conn is nil for listener
	// errors.
	OnError func(conn *Conn, err error)
}

// Server accepts connections and dispatches their streams.
type Server struct {
	config   ServerConfig
	listener *Listener

	// Active connections
	conns   map[*Conn]struct{}
	connsMu sync.RWMutex

	// State
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.TLSConfig == nil {
		return nil, errors.New("TLSConfig is required")
	}
	if config.OnStream == nil {
		return nil, errors.New("OnStream is required")
	}
	return &Server{
		config: config,
		conns:  make(map[*Conn]struct{}),
	}, nil
}

// Start binds the endpoint and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("server already running")
	}

	listener, err := Listen(ctx, s.config.Endpoint, s.config.ListenConfig)
	if err != nil {
		return err
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and all connections and waits for handlers to
// return.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	err := s.listener.Close()
	s.wg.Wait()
	return err
}

// Endpoint returns the bound endpoint, or the configured one before Start.
func (s *Server) Endpoint() ipaddr.Endpoint {
	if s.listener != nil {
		return s.listener.Endpoint()
	}
	return s.config.Endpoint
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept(s.ctx)
		if err != nil {
			if s.running.Load() && s.ctx.Err() == nil {
				s.reportError(nil, fmt.Errorf("accept error: %w", err))
			}
			return
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn *Conn) {
	defer s.wg.Done()

	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()

	if s.config.Logger != nil {
		s.config.Logger.Debug("connection accepted", "conn", conn.ID(), "remote", conn.RemoteEndpoint().String())
	}
	if s.config.OnConnect != nil {
		s.config.OnConnect(conn)
	}

	for {
		stream, err := conn.AcceptStream(s.ctx)
		if err != nil {
			if !errors.Is(err, ErrConnectionClosed) && s.ctx.Err() == nil {
				s.reportError(conn, err)
			}
			break
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.config.OnStream(s.ctx, stream)
		}()
	}

	conn.Close()

	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()

	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(conn)
	}
}

func (s *Server) reportError(conn *Conn, err error) {
	if s.config.OnError != nil {
		s.config.OnError(conn, err)
	}
}
