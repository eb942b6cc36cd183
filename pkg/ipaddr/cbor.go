package ipaddr

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// addressWire is the CBOR form of an Address. The family is implied by the
// byte string length.
type addressWire struct {
	Bytes   []byte `cbor:"1,keyasint"`
	ScopeID uint32 `cbor:"2,keyasint,omitempty"`
}

// MarshalCBOR implements cbor.Marshaler.
func (a Address) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(addressWire{Bytes: a.Bytes(), ScopeID: a.scopeID})
}

// UnmarshalCBOR implements cbor.Unmarshaler. The decoded value must satisfy
// the same invariants as a parsed one.
func (a *Address) UnmarshalCBOR(data []byte) error {
	var w addressWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}

	var decoded Address
	switch len(w.Bytes) {
	case V4Size:
		if w.ScopeID != 0 {
			return fmt.Errorf("%w: scope id on IPv4 address", ErrInvalidIPv4Address)
		}
		decoded = FromBytes(V4, w.Bytes)
	case V6Size:
		var err error
		decoded, err = FromBytes(V6, w.Bytes).WithScope(w.ScopeID)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %d address bytes", ErrParse, len(w.Bytes))
	}

	*a = decoded
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ cbor.Marshaler   = Address{}
	_ cbor.Unmarshaler = (*Address)(nil)
)
