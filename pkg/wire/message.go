package wire

import (
	"errors"
	"fmt"
)

// Message is one of the session messages exchanged over a stream.
type Message interface {
	Type() MessageType
	Validate() error
}

// MessageType tags the payload of an envelope.
type MessageType uint8

const (
	TypeOffer       MessageType = 1
	TypeAnswer      MessageType = 2
	TypeMediaChunk  MessageType = 3
	TypeEndOfStream MessageType = 4
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case TypeOffer:
		return "OFFER"
	case TypeAnswer:
		return "ANSWER"
	case TypeMediaChunk:
		return "MEDIA_CHUNK"
	case TypeEndOfStream:
		return "END_OF_STREAM"
	default:
		return "UNKNOWN"
	}
}

// Session limits.
const (
	// MinRequiredBitrate is the lowest max bitrate a sender may offer.
	MinRequiredBitrate = 384 << 10

	// DefaultMaxBitrate is offered when the user does not choose one.
	DefaultMaxBitrate = 5 << 20
)

// Offer opens a session. Sent by the sender on a fresh stream.
//
// CBOR encoding:
//
//	{
//	  1: sessionId,      // uint32, nonzero
//	  2: codec,          // uint8: 1=VP8, 2=VP9, 3=AV1
//	  3: maxBitrate,     // bits per second
//	  4: remoting,       // bool
//	  5: androidHack,    // bool
//	  6: fileName,       // string
//	  7: looping         // bool
//	}
type Offer struct {
	SessionID      uint32     `cbor:"1,keyasint"`
	Codec          VideoCodec `cbor:"2,keyasint"`
	MaxBitrate     int        `cbor:"3,keyasint"`
	Remoting       bool       `cbor:"4,keyasint,omitempty"`
	AndroidRTPHack bool       `cbor:"5,keyasint,omitempty"`
	FileName       string     `cbor:"6,keyasint,omitempty"`
	Looping        bool       `cbor:"7,keyasint,omitempty"`
}

// Type implements Message.
func (*Offer) Type() MessageType { return TypeOffer }

// Validate checks the offer.
func (o *Offer) Validate() error {
	if o.SessionID == 0 {
		return errors.New("session id 0 is reserved")
	}
	if !o.Codec.IsValid() {
		return fmt.Errorf("invalid codec: %d", o.Codec)
	}
	if o.MaxBitrate < MinRequiredBitrate {
		return fmt.Errorf("max bitrate %d below minimum %d", o.MaxBitrate, MinRequiredBitrate)
	}
	return nil
}

// Answer accepts or rejects an Offer.
type Answer struct {
	SessionID uint32 `cbor:"1,keyasint"`
	Accepted  bool   `cbor:"2,keyasint"`
	Reason    string `cbor:"3,keyasint,omitempty"`

	// ReceiverName is the friendly name of the answering receiver.
	ReceiverName string `cbor:"4,keyasint,omitempty"`
}

// Type implements Message.
func (*Answer) Type() MessageType { return TypeAnswer }

// Validate checks the answer.
func (a *Answer) Validate() error {
	if a.SessionID == 0 {
		return errors.New("session id 0 is reserved")
	}
	if !a.Accepted && a.Reason == "" {
		return errors.New("rejection requires a reason")
	}
	return nil
}

// MediaChunk carries a slice of the media file.
type MediaChunk struct {
	SessionID uint32 `cbor:"1,keyasint"`
	Sequence  uint64 `cbor:"2,keyasint"`

	// Loop counts how many times the file has restarted.
	Loop uint32 `cbor:"3,keyasint,omitempty"`
	Data []byte `cbor:"4,keyasint"`
}

// Type implements Message.
func (*MediaChunk) Type() MessageType { return TypeMediaChunk }

// Validate checks the chunk.
func (c *MediaChunk) Validate() error {
	if c.SessionID == 0 {
		return errors.New("session id 0 is reserved")
	}
	if len(c.Data) == 0 {
		return errors.New("empty media chunk")
	}
	return nil
}

// EndOfStream closes a session.
type EndOfStream struct {
	SessionID  uint32 `cbor:"1,keyasint"`
	TotalBytes uint64 `cbor:"2,keyasint"`
	Chunks     uint64 `cbor:"3,keyasint"`
}

// Type implements Message.
func (*EndOfStream) Type() MessageType { return TypeEndOfStream }

// Validate checks the end marker.
func (e *EndOfStream) Validate() error {
	if e.SessionID == 0 {
		return errors.New("session id 0 is reserved")
	}
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ Message = (*Offer)(nil)
	_ Message = (*Answer)(nil)
	_ Message = (*MediaChunk)(nil)
	_ Message = (*EndOfStream)(nil)
)
