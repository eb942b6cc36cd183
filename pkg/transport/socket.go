package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/sockaddr"
)

// listenUDP opens a UDP socket bound to local. A nonzero dscp marks outgoing
// packets; failing to mark is logged, not fatal.
func listenUDP(ctx context.Context, local ipaddr.Endpoint, dscp uint8, logger *slog.Logger) (*net.UDPConn, error) {
	network := "udp4"
	if local.Address.Is6() {
		network = "udp6"
	}

	lc := net.ListenConfig{Control: reuseAddrControl}
	pc, err := lc.ListenPacket(ctx, network, sockaddr.UDPAddr(local).String())
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", local, err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("listen %s: unexpected socket type %T", local, pc)
	}

	if dscp != DSCPDefault {
		if err := SetDSCP(conn, local.Address.Is6(), dscp); err != nil && logger != nil {
			logger.Warn("failed to set DSCP", "endpoint", local.String(), "dscp", dscp, "error", err)
		}
	}
	return conn, nil
}
