package ipaddr

import (
	"strconv"
	"strings"
)

// Parser parses address and endpoint text, resolving IPv6 scope suffixes
// through Resolver. A nil Resolver accepts numeric scope ids only.
type Parser struct {
	Resolver InterfaceResolver
}

func defaultParser() Parser {
	return Parser{Resolver: DefaultResolver}
}

// Parse parses "192.168.0.1" or "abcd::1234" style text using
// DefaultResolver for scope suffixes. Failures report ErrInvalidIPv6Address;
// see Parser.Parse.
func Parse(s string) (Address, error) {
	return defaultParser().Parse(s)
}

// MustParse is like Parse but panics on error. Intended for constants in
// tests and tables.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseV6 parses IPv6 text, with an optional "%scope" suffix, using
// DefaultResolver.
func ParseV6(s string) (Address, error) {
	return defaultParser().ParseV6(s)
}

// Parse tries IPv4 first and falls back to IPv6. When neither grammar
// matches the error is always ErrInvalidIPv6Address, even for IPv4-shaped
// input such as "1920.3.2.1"; use ParseV4 to get ErrInvalidIPv4Address.
func (p Parser) Parse(s string) (Address, error) {
	if a, err := ParseV4(s); err == nil {
		return a, nil
	}
	return p.ParseV6(s)
}

// ParseV4 parses exactly four dot-separated decimal octets.
func ParseV4(s string) (Address, error) {
	var octets [V4Size]byte
	rest := s
	for i := 0; i < V4Size; i++ {
		if i > 0 {
			if rest == "" || rest[0] != '.' {
				return Address{}, errV4(s, "expected '.' separator")
			}
			rest = rest[1:]
		}

		value, n := scanDecimal(rest)
		if n == 0 {
			return Address{}, errV4(s, "expected decimal octet")
		}
		if value > 0xff {
			return Address{}, errV4(s, "octet out of range")
		}
		octets[i] = byte(value)
		rest = rest[n:]
	}

	if rest != "" {
		return Address{}, errV4(s, "trailing characters")
	}
	return From4(octets), nil
}

// ParseV6 parses IPv6 text with at most one "::" and an optional "%scope"
// suffix. A scope is only accepted on a link-local address.
func (p Parser) ParseV6(s string) (Address, error) {
	text, scopeToken, hasScope := strings.Cut(s, "%")

	var scopeID uint32
	if hasScope {
		id, ok := p.resolveScope(scopeToken)
		if !ok {
			return Address{}, errV6(s, "unknown scope "+strconv.Quote(scopeToken))
		}
		scopeID = id
	}

	groups, err := splitHextets(text)
	if err != nil {
		return Address{}, errV6(s, err.Error())
	}

	var hextets [8]uint16
	for i, g := range groups {
		value, ok := parseHextet(g)
		if !ok {
			return Address{}, errV6(s, "invalid group "+strconv.Quote(g))
		}
		hextets[i] = value
	}

	a := FromHextets(hextets)
	if scopeID != 0 {
		if !a.IsLinkLocal() {
			return Address{}, errV6(s, "scope id on non-link-local address")
		}
		a.scopeID = scopeID
	}
	return a, nil
}

// resolveScope maps an interface name, or failing that a positive decimal
// number, to a scope id.
func (p Parser) resolveScope(token string) (uint32, bool) {
	if p.Resolver != nil {
		if idx, ok := p.Resolver.IndexByName(token); ok && idx != 0 {
			return idx, true
		}
	}
	if !isDecimal(token) {
		return 0, false
	}
	id, err := strconv.ParseUint(token, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint32(id), true
}

type hextetError string

func (e hextetError) Error() string { return string(e) }

// splitHextets splits IPv6 text into exactly eight groups, expanding a
// single "::" into as many "0" groups as the explicit groups on both sides
// leave missing. "::" always stands for at least one group.
func splitHextets(s string) ([]string, error) {
	pos := strings.Index(s, "::")
	if pos < 0 {
		groups := strings.Split(s, ":")
		if len(groups) != 8 {
			return nil, hextetError("expected 8 groups")
		}
		return groups, nil
	}
	if strings.LastIndex(s, "::") != pos {
		return nil, hextetError("multiple '::'")
	}

	head := splitGroups(s[:pos])
	tail := splitGroups(s[pos+2:])
	explicit := len(head) + len(tail)
	if explicit > 7 {
		return nil, hextetError("too many groups around '::'")
	}

	groups := make([]string, 0, 8)
	groups = append(groups, head...)
	for i := 0; i < 8-explicit; i++ {
		groups = append(groups, "0")
	}
	return append(groups, tail...), nil
}

// splitGroups splits one side of a "::". An empty side has no groups;
// empty groups inside a side are kept so hextet parsing rejects them.
func splitGroups(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ":")
}

// parseHextet parses 1-4 hexadecimal digits.
func parseHextet(s string) (uint16, bool) {
	if len(s) == 0 || len(s) > 4 {
		return 0, false
	}
	var v uint16
	for i := 0; i < len(s); i++ {
		d, ok := hexValue(s[i])
		if !ok {
			return 0, false
		}
		v = v<<4 | uint16(d)
	}
	return v, true
}

func hexValue(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// scanDecimal consumes the leading run of ASCII digits in s. It returns the
// value (saturated above 0xffff so callers can range-check) and the number
// of digits consumed.
func scanDecimal(s string) (uint32, int) {
	var v uint32
	n := 0
	for n < len(s) && '0' <= s[n] && s[n] <= '9' {
		if v <= 0xffff {
			v = v*10 + uint32(s[n]-'0')
		}
		n++
	}
	return v, n
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
