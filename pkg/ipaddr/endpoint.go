package ipaddr

import (
	"strconv"
	"strings"
)

// Endpoint is an address paired with a port. Port 0 means "unset".
type Endpoint struct {
	Address Address `cbor:"1,keyasint"`
	Port    uint16  `cbor:"2,keyasint"`
}

// AnyV4Endpoint returns 0.0.0.0:0, the "any" IPv4 bind endpoint.
func AnyV4Endpoint() Endpoint { return Endpoint{} }

// AnyV6Endpoint returns [::]:0, the "any" IPv6 bind endpoint.
func AnyV6Endpoint() Endpoint { return Endpoint{Address: AnyV6} }

// IsSet reports whether either the address or the port is set.
func (e Endpoint) IsSet() bool {
	return e.Address.IsSet() || e.Port != 0
}

// Compare orders by address, then port.
func (e Endpoint) Compare(o Endpoint) int {
	if c := e.Address.Compare(o.Address); c != 0 {
		return c
	}
	switch {
	case e.Port < o.Port:
		return -1
	case e.Port > o.Port:
		return 1
	}
	return 0
}

// Less reports whether e sorts before o.
func (e Endpoint) Less(o Endpoint) bool {
	return e.Compare(o) < 0
}

// String renders "a.b.c.d:port" or "[v6]:port".
func (e Endpoint) String() string {
	return e.FormatWith(DefaultResolver)
}

// FormatWith renders e, naming any scope interface through r.
func (e Endpoint) FormatWith(r InterfaceResolver) string {
	return string(e.appendTo(make([]byte, 0, 56), r))
}

func (e Endpoint) appendTo(b []byte, r InterfaceResolver) []byte {
	if e.Address.Is6() {
		b = append(b, '[')
		b = e.Address.appendTo(b, r)
		b = append(b, ']')
	} else {
		b = e.Address.appendTo(b, r)
	}
	b = append(b, ':')
	return strconv.AppendUint(b, uint64(e.Port), 10)
}

// MarshalText implements encoding.TextMarshaler.
func (e Endpoint) MarshalText() ([]byte, error) {
	return e.appendTo(nil, DefaultResolver), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Endpoint) UnmarshalText(text []byte) error {
	parsed, err := ParseEndpoint(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ParseEndpoint parses "192.168.0.1:8080" or "[abcd::1234]:8080" using
// DefaultResolver for scope suffixes.
func ParseEndpoint(s string) (Endpoint, error) {
	return defaultParser().ParseEndpoint(s)
}

// ParseEndpoint parses an endpoint. The last ':' separates the port; IPv6
// addresses must be bracketed.
func (p Parser) ParseEndpoint(s string) (Endpoint, error) {
	colon := strings.LastIndexByte(s, ':')
	if colon < 0 {
		return Endpoint{}, errEndpoint(s, "missing colon separator", nil)
	}
	if colon == 0 {
		return Endpoint{}, errEndpoint(s, "missing address before colon", nil)
	}
	if colon == len(s)-1 {
		return Endpoint{}, errEndpoint(s, "missing port after colon", nil)
	}

	var (
		addr Address
		err  error
	)
	if s[0] == '[' && s[colon-1] == ']' {
		// [abcd:beef:1:1::2600]:8080
		addr, err = p.ParseV6(s[1 : colon-1])
	} else {
		// 127.0.0.1:22
		addr, err = ParseV4(s[:colon])
	}
	if err != nil {
		return Endpoint{}, errEndpoint(s, "invalid address part", err)
	}

	portText := s[colon+1:]
	if !isDecimal(portText) {
		return Endpoint{}, errEndpoint(s, "invalid port part", nil)
	}
	port, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		return Endpoint{}, errEndpoint(s, "invalid port part", nil)
	}

	return Endpoint{Address: addr, Port: uint16(port)}, nil
}
