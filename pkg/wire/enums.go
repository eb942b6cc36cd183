package wire

import (
	"fmt"
	"strings"
)

// VideoCodec identifies the video codec of a session.
type VideoCodec uint8

const (
	CodecVP8 VideoCodec = 1
	CodecVP9 VideoCodec = 2
	CodecAV1 VideoCodec = 3
)

// SupportedCodecs lists the codecs a sender can offer.
var SupportedCodecs = []VideoCodec{CodecVP8, CodecVP9, CodecAV1}

// String returns the lower-case codec name used on the command line.
func (c VideoCodec) String() string {
	switch c {
	case CodecVP8:
		return "vp8"
	case CodecVP9:
		return "vp9"
	case CodecAV1:
		return "av1"
	default:
		return "unknown"
	}
}

// IsValid reports whether c is a supported codec.
func (c VideoCodec) IsValid() bool {
	return c >= CodecVP8 && c <= CodecAV1
}

// ParseVideoCodec parses a codec name, ignoring case.
func ParseVideoCodec(s string) (VideoCodec, error) {
	for _, c := range SupportedCodecs {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	names := make([]string, len(SupportedCodecs))
	for i, c := range SupportedCodecs {
		names[i] = c.String()
	}
	return 0, fmt.Errorf("invalid codec %q: not one of %s", s, strings.Join(names, " "))
}

// MarshalText implements encoding.TextMarshaler.
func (c VideoCodec) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("invalid codec: %d", c)
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *VideoCodec) UnmarshalText(text []byte) error {
	parsed, err := ParseVideoCodec(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
