// Package sockaddr converts ipaddr values to and from the socket address
// types of the standard library and the platform.
//
// The net and netip packages carry an IPv6 zone as a string. Zones are
// translated to scope ids through an ipaddr.InterfaceResolver, falling back
// to a decimal zone. A zone on an address that is not link-local has no
// meaning for ipaddr and is dropped.
package sockaddr

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
)

// ErrUnsupportedAddress is returned for socket addresses that are neither
// IPv4 nor IPv6.
var ErrUnsupportedAddress = errors.New("unsupported socket address")

// Converter translates socket addresses using Resolver for zones. A nil
// Resolver handles decimal zones only.
type Converter struct {
	Resolver ipaddr.InterfaceResolver
}

// Default uses ipaddr.DefaultResolver.
func Default() Converter {
	return Converter{Resolver: ipaddr.DefaultResolver}
}

// FromIP converts ip with an optional zone. A net.IP stores IPv4 in the
// IPv4-mapped IPv6 form, so such an address always becomes IPv4. This is
// the one conversion that does not round-trip: a V6 ::ffff:a.b.c.d passed
// through ToIP comes back as V4.
func (c Converter) FromIP(ip net.IP, zone string) (ipaddr.Address, error) {
	if v4 := ip.To4(); v4 != nil {
		return ipaddr.FromBytes(ipaddr.V4, v4), nil
	}
	if len(ip) != net.IPv6len {
		return ipaddr.Address{}, fmt.Errorf("%w: %d byte IP", ErrUnsupportedAddress, len(ip))
	}
	a := ipaddr.FromBytes(ipaddr.V6, ip)
	if zone == "" || !a.IsLinkLocal() {
		return a, nil
	}
	scope, err := c.zoneToScope(zone)
	if err != nil {
		return ipaddr.Address{}, err
	}
	return a.WithScope(scope)
}

// ToIP returns the address bytes and the zone naming its scope.
func (c Converter) ToIP(a ipaddr.Address) (net.IP, string) {
	ip := net.IP(a.Bytes())
	return ip, c.scopeToZone(a.ScopeID())
}

// FromNetIP converts a netip.Addr. An IPv4-mapped IPv6 address stays IPv6.
func (c Converter) FromNetIP(addr netip.Addr) (ipaddr.Address, error) {
	if !addr.IsValid() {
		return ipaddr.Address{}, fmt.Errorf("%w: invalid netip.Addr", ErrUnsupportedAddress)
	}
	if addr.Is4() {
		return ipaddr.From4(addr.As4()), nil
	}
	a := ipaddr.FromBytes(ipaddr.V6, addr.AsSlice())
	if addr.Zone() == "" || !a.IsLinkLocal() {
		return a, nil
	}
	scope, err := c.zoneToScope(addr.Zone())
	if err != nil {
		return ipaddr.Address{}, err
	}
	return a.WithScope(scope)
}

// ToNetIP converts a to a netip.Addr carrying the scope as a zone.
func (c Converter) ToNetIP(a ipaddr.Address) netip.Addr {
	if a.Is4() {
		var b [4]byte
		a.CopyTo(b[:])
		return netip.AddrFrom4(b)
	}
	return netip.AddrFrom16(a.As16()).WithZone(c.scopeToZone(a.ScopeID()))
}

// FromAddrPort converts a netip.AddrPort.
func (c Converter) FromAddrPort(ap netip.AddrPort) (ipaddr.Endpoint, error) {
	a, err := c.FromNetIP(ap.Addr())
	if err != nil {
		return ipaddr.Endpoint{}, err
	}
	return ipaddr.Endpoint{Address: a, Port: ap.Port()}, nil
}

// ToAddrPort converts e to a netip.AddrPort.
func (c Converter) ToAddrPort(e ipaddr.Endpoint) netip.AddrPort {
	return netip.AddrPortFrom(c.ToNetIP(e.Address), e.Port)
}

// FromUDPAddr converts a *net.UDPAddr.
func (c Converter) FromUDPAddr(u *net.UDPAddr) (ipaddr.Endpoint, error) {
	if u == nil {
		return ipaddr.Endpoint{}, fmt.Errorf("%w: nil address", ErrUnsupportedAddress)
	}
	return c.fromIPPort(u.IP, u.Zone, u.Port)
}

// ToUDPAddr converts e to a *net.UDPAddr.
func (c Converter) ToUDPAddr(e ipaddr.Endpoint) *net.UDPAddr {
	ip, zone := c.ToIP(e.Address)
	return &net.UDPAddr{IP: ip, Port: int(e.Port), Zone: zone}
}

// FromTCPAddr converts a *net.TCPAddr.
func (c Converter) FromTCPAddr(t *net.TCPAddr) (ipaddr.Endpoint, error) {
	if t == nil {
		return ipaddr.Endpoint{}, fmt.Errorf("%w: nil address", ErrUnsupportedAddress)
	}
	return c.fromIPPort(t.IP, t.Zone, t.Port)
}

// ToTCPAddr converts e to a *net.TCPAddr.
func (c Converter) ToTCPAddr(e ipaddr.Endpoint) *net.TCPAddr {
	ip, zone := c.ToIP(e.Address)
	return &net.TCPAddr{IP: ip, Port: int(e.Port), Zone: zone}
}

// FromNetAddr converts the UDP and TCP implementations of net.Addr.
func (c Converter) FromNetAddr(addr net.Addr) (ipaddr.Endpoint, error) {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return c.FromUDPAddr(a)
	case *net.TCPAddr:
		return c.FromTCPAddr(a)
	default:
		return ipaddr.Endpoint{}, fmt.Errorf("%w: %T", ErrUnsupportedAddress, addr)
	}
}

func (c Converter) fromIPPort(ip net.IP, zone string, port int) (ipaddr.Endpoint, error) {
	if port < 0 || port > 0xffff {
		return ipaddr.Endpoint{}, fmt.Errorf("%w: port %d", ErrUnsupportedAddress, port)
	}
	a, err := c.FromIP(ip, zone)
	if err != nil {
		return ipaddr.Endpoint{}, err
	}
	return ipaddr.Endpoint{Address: a, Port: uint16(port)}, nil
}

func (c Converter) zoneToScope(zone string) (uint32, error) {
	if c.Resolver != nil {
		if idx, ok := c.Resolver.IndexByName(zone); ok {
			return idx, nil
		}
	}
	id, err := strconv.ParseUint(zone, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: unknown zone %q", ErrUnsupportedAddress, zone)
	}
	return uint32(id), nil
}

func (c Converter) scopeToZone(scope uint32) string {
	if scope == 0 {
		return ""
	}
	if c.Resolver != nil {
		if name, ok := c.Resolver.NameByIndex(scope); ok {
			return name
		}
	}
	return strconv.FormatUint(uint64(scope), 10)
}

// UDPAddr converts e with the default resolver.
func UDPAddr(e ipaddr.Endpoint) *net.UDPAddr { return Default().ToUDPAddr(e) }

// FromNetAddr converts addr with the default resolver.
func FromNetAddr(addr net.Addr) (ipaddr.Endpoint, error) { return Default().FromNetAddr(addr) }
