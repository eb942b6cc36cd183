package wire

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for session messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for session messages.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Codec errors.
var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrInvalidMessage = errors.New("invalid message")
)

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// envelope carries one message with its type tag.
type envelope struct {
	Type    MessageType     `cbor:"1,keyasint"`
	Payload cbor.RawMessage `cbor:"2,keyasint"`
}

// Encode validates msg and wraps it in a typed envelope. msg must be one of
// *Offer, *Answer, *MediaChunk or *EndOfStream.
func Encode(msg Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	payload, err := Marshal(msg)
	if err != nil {
		return nil, err
	}
	return Marshal(envelope{Type: msg.Type(), Payload: payload})
}

// Decode unwraps an envelope produced by Encode.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}

	var msg Message
	switch env.Type {
	case TypeOffer:
		msg = &Offer{}
	case TypeAnswer:
		msg = &Answer{}
	case TypeMediaChunk:
		msg = &MediaChunk{}
	case TypeEndOfStream:
		msg = &EndOfStream{}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessage, env.Type)
	}

	if err := Unmarshal(env.Payload, msg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", env.Type, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return msg, nil
}
