package ipaddr

import (
	"bytes"
	"fmt"
	"strconv"
)

// Version identifies the address family of an Address.
type Version uint8

const (
	// V4 is an IPv4 address (4 bytes).
	V4 Version = iota
	// V6 is an IPv6 address (16 bytes).
	V6
)

// Address sizes in bytes.
const (
	V4Size = 4
	V6Size = 16
)

// String returns the family name.
func (v Version) String() string {
	switch v {
	case V4:
		return "IPv4"
	case V6:
		return "IPv6"
	default:
		panic(fmt.Sprintf("ipaddr: unknown version %d", uint8(v)))
	}
}

// Address is an IPv4 or IPv6 address. The zero value is 0.0.0.0, which
// doubles as the "unset" address.
//
// Bytes beyond Size() are always zero, so two Addresses can be compared
// with == and used as map keys.
type Address struct {
	version Version
	bytes   [V6Size]byte
	scopeID uint32
}

// Well-known addresses.
var (
	AnyV4      = New4(0, 0, 0, 0)
	AnyV6      = New6(0, 0, 0, 0, 0, 0, 0, 0)
	V4Loopback = New4(127, 0, 0, 1)
	V6Loopback = New6(0, 0, 0, 0, 0, 0, 0, 1)
)

// New4 returns the IPv4 address b1.b2.b3.b4.
func New4(b1, b2, b3, b4 uint8) Address {
	return Address{version: V4, bytes: [V6Size]byte{b1, b2, b3, b4}}
}

// From4 returns the IPv4 address with the given octets.
func From4(b [V4Size]byte) Address {
	return New4(b[0], b[1], b[2], b[3])
}

// New6 returns the IPv6 address built from eight hextets.
func New6(h0, h1, h2, h3, h4, h5, h6, h7 uint16) Address {
	return FromHextets([8]uint16{h0, h1, h2, h3, h4, h5, h6, h7})
}

// FromHextets returns the IPv6 address built from eight hextets, each split
// into two big-endian bytes. The scope id is zero.
func FromHextets(h [8]uint16) Address {
	a := Address{version: V6}
	for i, v := range h {
		a.bytes[2*i] = byte(v >> 8)
		a.bytes[2*i+1] = byte(v)
	}
	return a
}

// FromBytes returns an address of the given version copied from b.
// b must hold at least the version's size; a shorter slice is a caller bug
// and panics.
func FromBytes(v Version, b []byte) Address {
	a := Address{version: v}
	n := a.Size()
	if len(b) < n {
		panic(fmt.Sprintf("ipaddr: FromBytes needs %d bytes for %s, got %d", n, v, len(b)))
	}
	copy(a.bytes[:n], b)
	return a
}

// From16WithScope returns the IPv6 address b bound to the interface scopeID.
// A nonzero scope id is only valid on a link-local address.
func From16WithScope(b [V6Size]byte, scopeID uint32) (Address, error) {
	a := Address{version: V6, bytes: b}
	return a.WithScope(scopeID)
}

// WithScope returns a copy of a bound to scopeID. Zero clears the scope.
func (a Address) WithScope(scopeID uint32) (Address, error) {
	if scopeID != 0 && !a.IsLinkLocal() {
		return Address{}, errV6(a.String(), "scope id on non-link-local address")
	}
	a.scopeID = scopeID
	return a, nil
}

// Version returns the address family.
func (a Address) Version() Version { return a.version }

// Is4 reports whether a is an IPv4 address.
func (a Address) Is4() bool { return a.version == V4 }

// Is6 reports whether a is an IPv6 address.
func (a Address) Is6() bool { return a.version == V6 }

// Size returns 4 for IPv4 and 16 for IPv6.
func (a Address) Size() int {
	if a.version == V4 {
		return V4Size
	}
	return V6Size
}

// Bytes returns a copy of the Size() address bytes in network order.
func (a Address) Bytes() []byte {
	out := make([]byte, a.Size())
	copy(out, a.bytes[:])
	return out
}

// As16 returns the raw 16-byte backing store. Only the first 4 bytes are
// meaningful for IPv4.
func (a Address) As16() [V6Size]byte { return a.bytes }

// ScopeID returns the interface scope of a link-local IPv6 address, or 0.
func (a Address) ScopeID() uint32 { return a.scopeID }

// CopyTo writes the Size() address bytes into dst. dst must be large enough;
// a short buffer is a caller bug and panics.
func (a Address) CopyTo(dst []byte) {
	n := a.Size()
	if len(dst) < n {
		panic(fmt.Sprintf("ipaddr: CopyTo needs %d bytes, got %d", n, len(dst)))
	}
	copy(dst, a.bytes[:n])
}

// IsLinkLocal reports whether a is an IPv6 address in fe80::/10.
func (a Address) IsLinkLocal() bool {
	return a.version == V6 && a.bytes[0] == 0xfe && a.bytes[1]&0xc0 == 0x80
}

// IsSet reports whether any address byte is nonzero. Version and scope id
// do not count.
func (a Address) IsSet() bool {
	for _, b := range a.bytes[:a.Size()] {
		if b != 0 {
			return true
		}
	}
	return false
}

// Equal reports whether a and b have the same version, bytes and scope id.
func (a Address) Equal(b Address) bool {
	return a.Compare(b) == 0
}

// Compare returns -1, 0 or +1. IPv4 sorts before IPv6; within a family the
// bytes compare as an unsigned big-endian number, and IPv6 ties are broken
// by the lower scope id.
func (a Address) Compare(b Address) int {
	if a.version != b.version {
		if a.version < b.version {
			return -1
		}
		return 1
	}
	if c := bytes.Compare(a.bytes[:a.Size()], b.bytes[:b.Size()]); c != 0 {
		return c
	}
	switch {
	case a.scopeID < b.scopeID:
		return -1
	case a.scopeID > b.scopeID:
		return 1
	}
	return 0
}

// Less reports whether a sorts before b.
func (a Address) Less(b Address) bool {
	return a.Compare(b) < 0
}

// String renders a in canonical form, naming the scope interface through
// DefaultResolver.
func (a Address) String() string {
	return a.FormatWith(DefaultResolver)
}

// FormatWith renders a in canonical form, naming the scope interface through
// r. A nil resolver renders scope ids as numbers.
func (a Address) FormatWith(r InterfaceResolver) string {
	return string(a.appendTo(make([]byte, 0, 48), r))
}

const hexDigits = "0123456789abcdef"

func (a Address) appendTo(b []byte, r InterfaceResolver) []byte {
	if a.version == V4 {
		for i := 0; i < V4Size; i++ {
			if i > 0 {
				b = append(b, '.')
			}
			b = strconv.AppendUint(b, uint64(a.bytes[i]), 10)
		}
		return b
	}

	for i := 0; i < V6Size; i++ {
		if i > 0 && i%2 == 0 {
			b = append(b, ':')
		}
		b = append(b, hexDigits[a.bytes[i]>>4], hexDigits[a.bytes[i]&0x0f])
	}
	if a.IsLinkLocal() && a.scopeID != 0 {
		b = append(b, '%')
		if r != nil {
			if name, ok := r.NameByIndex(a.scopeID); ok {
				return append(b, name...)
			}
		}
		b = strconv.AppendUint(b, uint64(a.scopeID), 10)
	}
	return b
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return a.appendTo(nil, DefaultResolver), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
