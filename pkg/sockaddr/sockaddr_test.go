package sockaddr

import (
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
)

var testConv = Converter{Resolver: ipaddr.StaticResolver{"eth0": 2}}

func scoped(t *testing.T, s string, scope uint32) ipaddr.Address {
	t.Helper()
	a, err := ipaddr.MustParse(s).WithScope(scope)
	require.NoError(t, err)
	return a
}

func TestUDPAddrRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ep   ipaddr.Endpoint
		zone string
	}{
		{"v4", ipaddr.Endpoint{Address: ipaddr.New4(10, 1, 2, 3), Port: 8010}, ""},
		{"v6", ipaddr.Endpoint{Address: ipaddr.MustParse("2001:db8::1"), Port: 443}, ""},
		{"named zone", ipaddr.Endpoint{Address: scoped(t, "fe80::1", 2), Port: 1}, "eth0"},
		{"numeric zone", ipaddr.Endpoint{Address: scoped(t, "fe80::1", 9), Port: 1}, "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := testConv.ToUDPAddr(tt.ep)
			assert.Equal(t, tt.zone, u.Zone)
			assert.Equal(t, int(tt.ep.Port), u.Port)

			back, err := testConv.FromUDPAddr(u)
			require.NoError(t, err)
			assert.Equal(t, tt.ep, back)

			tcp, err := testConv.FromTCPAddr(testConv.ToTCPAddr(tt.ep))
			require.NoError(t, err)
			assert.Equal(t, tt.ep, tcp)
		})
	}
}

func TestFromIP(t *testing.T) {
	a, err := testConv.FromIP(net.ParseIP("192.168.0.7"), "")
	require.NoError(t, err)
	assert.Equal(t, ipaddr.New4(192, 168, 0, 7), a, "16-byte IPv4 form unmaps")

	a, err = testConv.FromIP(net.ParseIP("::1"), "eth0")
	require.NoError(t, err)
	assert.Zero(t, a.ScopeID(), "zone on non-link-local is dropped")

	_, err = testConv.FromIP(net.ParseIP("fe80::1"), "wlan9")
	assert.ErrorIs(t, err, ErrUnsupportedAddress)

	_, err = testConv.FromIP(nil, "")
	assert.ErrorIs(t, err, ErrUnsupportedAddress)
}

func TestNetIPRoundTrip(t *testing.T) {
	tests := []ipaddr.Address{
		ipaddr.New4(1, 2, 3, 4),
		ipaddr.V6Loopback,
		scoped(t, "fe80::abcd", 2),
	}
	for _, a := range tests {
		n := testConv.ToNetIP(a)
		back, err := testConv.FromNetIP(n)
		require.NoError(t, err)
		assert.Equal(t, a, back)
	}

	assert.Equal(t, "fe80::1%eth0", testConv.ToNetIP(scoped(t, "fe80::1", 2)).String())

	mapped := netip.MustParseAddr("::ffff:10.0.0.1")
	a, err := testConv.FromNetIP(mapped)
	require.NoError(t, err)
	assert.True(t, a.Is6())
	assert.Equal(t, ipaddr.New6(0, 0, 0, 0, 0, 0xffff, 0x0a00, 0x0001), a)

	_, err = testConv.FromNetIP(netip.Addr{})
	assert.ErrorIs(t, err, ErrUnsupportedAddress)
}

func TestAddrPort(t *testing.T) {
	ep := ipaddr.Endpoint{Address: ipaddr.MustParse("2001:db8::2"), Port: 8010}
	ap := testConv.ToAddrPort(ep)
	assert.Equal(t, "[2001:db8::2]:8010", ap.String())

	back, err := testConv.FromAddrPort(ap)
	require.NoError(t, err)
	assert.Equal(t, ep, back)
}

func TestMappedV6Endpoint(t *testing.T) {
	ep := ipaddr.Endpoint{Address: ipaddr.New6(0, 0, 0, 0, 0, 0xffff, 0x0102, 0x0304), Port: 9}
	require.True(t, ep.Address.Is6())

	back, err := testConv.FromAddrPort(testConv.ToAddrPort(ep))
	require.NoError(t, err)
	assert.Equal(t, ep, back)

	// net.IP cannot tell the two forms apart.
	viaUDP, err := testConv.FromUDPAddr(testConv.ToUDPAddr(ep))
	require.NoError(t, err)
	assert.Equal(t, ipaddr.Endpoint{Address: ipaddr.New4(1, 2, 3, 4), Port: 9}, viaUDP)
}

func TestFromNetAddr(t *testing.T) {
	ep, err := testConv.FromNetAddr(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5353})
	require.NoError(t, err)
	assert.Equal(t, ipaddr.Endpoint{Address: ipaddr.V4Loopback, Port: 5353}, ep)

	_, err = testConv.FromNetAddr(&net.UnixAddr{Name: "/tmp/x", Net: "unix"})
	assert.True(t, errors.Is(err, ErrUnsupportedAddress))

	_, err = testConv.FromUDPAddr(nil)
	assert.ErrorIs(t, err, ErrUnsupportedAddress)
}

func TestNilResolver(t *testing.T) {
	c := Converter{}
	a := scoped(t, "fe80::1", 4)

	_, zone := c.ToIP(a)
	assert.Equal(t, "4", zone)

	back, err := c.FromIP(net.ParseIP("fe80::1"), "4")
	require.NoError(t, err)
	assert.Equal(t, a, back)
}
