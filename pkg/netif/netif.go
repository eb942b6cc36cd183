// Package netif enumerates the host's network interfaces in terms of
// ipaddr values.
package netif

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
)

// Errors returned by this package.
var (
	ErrInvalidNetmask  = errors.New("invalid netmask")
	ErrNoSuchInterface = errors.New("no such interface")
	ErrNoUsableAddress = errors.New("interface has no usable address")
)

// Type is the media type of an interface.
type Type uint8

// Interface types.
const (
	TypeOther Type = iota
	TypeEthernet
	TypeWifi
	TypeLoopback
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeOther:
		return "other"
	case TypeEthernet:
		return "ethernet"
	case TypeWifi:
		return "wifi"
	case TypeLoopback:
		return "loopback"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Subnet is an address together with its network prefix length.
type Subnet struct {
	Address      ipaddr.Address
	PrefixLength uint8
}

// String renders "address/prefix".
func (s Subnet) String() string {
	return s.Address.String() + "/" + strconv.Itoa(int(s.PrefixLength))
}

// InterfaceInfo describes one running interface.
type InterfaceInfo struct {
	Name         string
	Index        uint32
	HardwareAddr net.HardwareAddr
	Type         Type
	Addresses    []Subnet
}

// IPv4 returns the first IPv4 address of the interface.
func (i InterfaceInfo) IPv4() (ipaddr.Address, bool) {
	return i.first(ipaddr.V4)
}

// IPv6 returns the first IPv6 address of the interface.
func (i InterfaceInfo) IPv6() (ipaddr.Address, bool) {
	return i.first(ipaddr.V6)
}

func (i InterfaceInfo) first(v ipaddr.Version) (ipaddr.Address, bool) {
	for _, s := range i.Addresses {
		if s.Address.Version() == v {
			return s.Address, true
		}
	}
	return ipaddr.Address{}, false
}

// BindAddress picks the address a service on this interface should bind to:
// IPv4 when available, otherwise IPv6.
func (i InterfaceInfo) BindAddress() (ipaddr.Address, error) {
	if a, ok := i.IPv4(); ok {
		return a, nil
	}
	if a, ok := i.IPv6(); ok {
		return a, nil
	}
	return ipaddr.Address{}, fmt.Errorf("%w: %s", ErrNoUsableAddress, i.Name)
}

// PrefixLength returns the number of leading one bits in mask. The mask
// must be contiguous: ones followed only by zeros.
func PrefixLength(mask []byte) (uint8, error) {
	var n uint8
	i := 0
	for i < len(mask) && mask[i] == 0xff {
		n += 8
		i++
	}
	if i < len(mask) && mask[i] != 0 {
		b := mask[i]
		for b&0x80 != 0 {
			n++
			b <<= 1
		}
		if b != 0 {
			return 0, fmt.Errorf("%w: % x", ErrInvalidNetmask, mask)
		}
		i++
	}
	for ; i < len(mask); i++ {
		if mask[i] != 0 {
			return 0, fmt.Errorf("%w: % x", ErrInvalidNetmask, mask)
		}
	}
	return n, nil
}

// Interfaces returns the interfaces that are running and have at least one
// address. Link-local IPv6 addresses carry the interface index as scope id.
func Interfaces() ([]InterfaceInfo, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var result []InterfaceInfo
	for _, iface := range ifaces {
		if iface.Flags&net.FlagRunning == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		info := fromNet(iface, addrs, typeOf(iface))
		if len(info.Addresses) == 0 {
			continue
		}
		result = append(result, info)
	}
	return result, nil
}

// ByName returns the running interface with the given name.
func ByName(name string) (InterfaceInfo, error) {
	ifaces, err := Interfaces()
	if err != nil {
		return InterfaceInfo{}, err
	}
	for _, info := range ifaces {
		if info.Name == name {
			return info, nil
		}
	}
	return InterfaceInfo{}, fmt.Errorf("%w: %q", ErrNoSuchInterface, name)
}

// fromNet builds an InterfaceInfo, skipping addresses that are not IP
// networks or whose mask is not contiguous.
func fromNet(iface net.Interface, addrs []net.Addr, t Type) InterfaceInfo {
	info := InterfaceInfo{
		Name:         iface.Name,
		Index:        uint32(iface.Index),
		HardwareAddr: iface.HardwareAddr,
		Type:         t,
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		a, mask, ok := toAddress(ipnet)
		if !ok {
			continue
		}
		prefix, err := PrefixLength(mask)
		if err != nil {
			continue
		}
		if a.IsLinkLocal() && info.Index != 0 {
			if scoped, err := a.WithScope(info.Index); err == nil {
				a = scoped
			}
		}
		info.Addresses = append(info.Addresses, Subnet{Address: a, PrefixLength: prefix})
	}
	return info
}

func toAddress(ipnet *net.IPNet) (ipaddr.Address, []byte, bool) {
	if v4 := ipnet.IP.To4(); v4 != nil {
		mask := []byte(ipnet.Mask)
		if len(mask) == net.IPv6len {
			mask = mask[12:]
		}
		return ipaddr.FromBytes(ipaddr.V4, v4), mask, len(mask) == ipaddr.V4Size
	}
	if len(ipnet.IP) != net.IPv6len || len(ipnet.Mask) != net.IPv6len {
		return ipaddr.Address{}, nil, false
	}
	return ipaddr.FromBytes(ipaddr.V6, ipnet.IP), ipnet.Mask, true
}

// typeOf classifies an interface. Wireless devices are recognised through
// sysfs where it exists.
func typeOf(iface net.Interface) Type {
	switch {
	case iface.Flags&net.FlagLoopback != 0:
		return TypeLoopback
	case isWireless(iface.Name):
		return TypeWifi
	case len(iface.HardwareAddr) == 6:
		return TypeEthernet
	default:
		return TypeOther
	}
}

func isWireless(name string) bool {
	_, err := os.Stat(filepath.Join("/sys/class/net", name, "wireless"))
	return err == nil
}
