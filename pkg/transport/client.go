package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/quic-go/quic-go"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/sockaddr"
	"github.com/openscreen/openscreen-go/pkg/trace"
)

// DialConfig configures an outgoing connection.
type DialConfig struct {
	// TLSConfig contains TLS settings. Required.
	TLSConfig *TLSConfig

	// Local is the endpoint to bind. Unset means any address of the
	// remote's family with an ephemeral port.
	Local ipaddr.Endpoint

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

// socketCloser closes a dialed connection's transport and then its socket;
// quic.Transport does not close a socket it was handed.
type socketCloser struct {
	tr   *quic.Transport
	conn *net.UDPConn
}

func (s socketCloser) Close() error {
	return errors.Join(s.tr.Close(), s.conn.Close())
}

var _ io.Closer = socketCloser{}

// Dial connects to a receiver at remote.
func Dial(ctx context.Context, remote ipaddr.Endpoint, config DialConfig) (*Conn, error) {
	if config.TLSConfig == nil {
		return nil, errors.New("TLSConfig is required")
	}
	if !remote.Address.IsSet() || remote.Port == 0 {
		return nil, fmt.Errorf("dial: incomplete remote endpoint %s", remote)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}

	tlsConf, err := NewClientTLSConfig(config.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS config: %w", err)
	}

	local := config.Local
	if !local.IsSet() {
		local = ipaddr.AnyV4Endpoint()
		if remote.Address.Is6() {
			local = ipaddr.AnyV6Endpoint()
		}
	}
	if local.Address.Version() != remote.Address.Version() {
		return nil, fmt.Errorf("dial: local %s and remote %s differ in family", local, remote)
	}

	span := trace.Begin(config.Trace, trace.CategoryQuic, "Dial").Arg("remote", remote.String())

	udp, err := listenUDP(ctx, local, config.DSCP, config.Logger)
	if err != nil {
		span.EndErr(err)
		return nil, err
	}
	tr := &quic.Transport{Conn: udp}
	closer := socketCloser{tr: tr, conn: udp}

	// Only the handshake is bound to ctx; the connection outlives it.
	dialCtx, cancelDial := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancelDial)
	qc, err := tr.Dial(dialCtx, sockaddr.UDPAddr(remote), tlsConf, config.KeepAlive.quicConfig())
	stop()
	if err != nil {
		closer.Close()
		err = fmt.Errorf("dial %s: %w", remote, err)
		span.EndErr(err)
		return nil, err
	}

	if err := VerifyConnection(qc.ConnectionState().TLS); err != nil {
		qc.CloseWithError(CodeProtocolError, err.Error())
		closer.Close()
		err = fmt.Errorf("connection verification failed: %w", err)
		span.EndErr(err)
		return nil, err
	}

	bound, err := endpointOf(udp.LocalAddr())
	if err != nil {
		bound = local
	}
	conn := newConn(qc, bound, config.MaxMessageSize, config.Trace, closer)
	span.Connection(conn.ID()).End()

	if config.Logger != nil {
		config.Logger.Debug("connected", "conn", conn.ID(), "local", bound.String(), "remote", remote.String())
	}
	return conn, nil
}
