//go:build unix

package sockaddr

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
)

// ToSockaddr converts e to the raw platform socket address. The scope id is
// passed through as the IPv6 zone id.
func ToSockaddr(e ipaddr.Endpoint) unix.Sockaddr {
	if e.Address.Is4() {
		sa := &unix.SockaddrInet4{Port: int(e.Port)}
		e.Address.CopyTo(sa.Addr[:])
		return sa
	}
	return &unix.SockaddrInet6{
		Port:   int(e.Port),
		ZoneId: e.Address.ScopeID(),
		Addr:   e.Address.As16(),
	}
}

// FromSockaddr converts a raw platform socket address. Zone ids on
// addresses that are not link-local are dropped.
func FromSockaddr(sa unix.Sockaddr) (ipaddr.Endpoint, error) {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return ipaddr.Endpoint{Address: ipaddr.From4(sa.Addr), Port: uint16(sa.Port)}, nil
	case *unix.SockaddrInet6:
		scope := sa.ZoneId
		if !ipaddr.FromBytes(ipaddr.V6, sa.Addr[:]).IsLinkLocal() {
			scope = 0
		}
		a, err := ipaddr.From16WithScope(sa.Addr, scope)
		if err != nil {
			return ipaddr.Endpoint{}, err
		}
		return ipaddr.Endpoint{Address: a, Port: uint16(sa.Port)}, nil
	default:
		return ipaddr.Endpoint{}, fmt.Errorf("%w: %T", ErrUnsupportedAddress, sa)
	}
}

// LocalEndpoint returns the bound endpoint of the socket fd.
func LocalEndpoint(fd int) (ipaddr.Endpoint, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return ipaddr.Endpoint{}, fmt.Errorf("getsockname: %w", err)
	}
	return FromSockaddr(sa)
}
