package ipaddr

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressCBOR(t *testing.T) {
	tests := []Address{
		AnyV4,
		New4(192, 168, 0, 1),
		V6Loopback,
		mustScope(t, "fe80::1", 7),
	}

	for _, a := range tests {
		t.Run(a.FormatWith(nil), func(t *testing.T) {
			data, err := cbor.Marshal(a)
			require.NoError(t, err)

			var got Address
			require.NoError(t, cbor.Unmarshal(data, &got))
			assert.Equal(t, a, got)
		})
	}
}

func TestEndpointCBOR(t *testing.T) {
	in := Endpoint{Address: MustParse("2001:db8::1"), Port: 8010}

	data, err := cbor.Marshal(in)
	require.NoError(t, err)

	var out Endpoint
	require.NoError(t, cbor.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestAddressCBORRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		wire addressWire
	}{
		{"short", addressWire{Bytes: []byte{1, 2, 3}}},
		{"v4 with scope", addressWire{Bytes: []byte{1, 2, 3, 4}, ScopeID: 1}},
		{"non-link-local scope", addressWire{Bytes: V6Loopback.Bytes(), ScopeID: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := cbor.Marshal(tt.wire)
			require.NoError(t, err)

			var a Address
			assert.Error(t, cbor.Unmarshal(data, &a))
		})
	}
}
