package transport

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// DSCP code points.
const (
	// DSCPDefault is best effort.
	DSCPDefault uint8 = 0

	// DSCPAF41 marks interactive video.
	DSCPAF41 uint8 = 34
)

// SetDSCP marks packets sent on conn with the given code point. The DSCP
// occupies the upper six bits of the IPv4 TOS byte or the IPv6 traffic
// class.
func SetDSCP(conn net.PacketConn, v6 bool, dscp uint8) error {
	if dscp > 63 {
		return fmt.Errorf("invalid DSCP %d", dscp)
	}
	class := int(dscp) << 2
	if v6 {
		if err := ipv6.NewPacketConn(conn).SetTrafficClass(class); err != nil {
			return fmt.Errorf("set traffic class: %w", err)
		}
		return nil
	}
	if err := ipv4.NewPacketConn(conn).SetTOS(class); err != nil {
		return fmt.Errorf("set TOS: %w", err)
	}
	return nil
}

// DSCP reads back the code point set on conn.
func DSCP(conn net.PacketConn, v6 bool) (uint8, error) {
	var (
		class int
		err   error
	)
	if v6 {
		class, err = ipv6.NewPacketConn(conn).TrafficClass()
	} else {
		class, err = ipv4.NewPacketConn(conn).TOS()
	}
	if err != nil {
		return 0, err
	}
	return uint8(class >> 2), nil
}
