package ipaddr

import (
	"errors"
	"fmt"
)

// Parse error kinds.
var (
	ErrInvalidIPv4Address = errors.New("invalid IPv4 address")
	ErrInvalidIPv6Address = errors.New("invalid IPv6 address")
	ErrParse              = errors.New("parse error")
)

// ParseError reports a text that could not be parsed into an Address or
// Endpoint. Kind is one of ErrInvalidIPv4Address, ErrInvalidIPv6Address or
// ErrParse; Err optionally carries the failure of a nested parse.
type ParseError struct {
	Kind   error
	Input  string
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%v %q", e.Kind, e.Input)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the nested cause to errors.Is/As.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func errV4(input, detail string) error {
	return &ParseError{Kind: ErrInvalidIPv4Address, Input: input, Detail: detail}
}

func errV6(input, detail string) error {
	return &ParseError{Kind: ErrInvalidIPv6Address, Input: input, Detail: detail}
}

func errEndpoint(input, detail string, cause error) error {
	return &ParseError{Kind: ErrParse, Input: input, Detail: detail, Err: cause}
}
