package discovery

import (
	"errors"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of a receiver.
	ServiceType = "_googlecast._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// TXTVersion is the TXT format version published in "ve".
	TXTVersion = "02"
)

// TXT record keys.
const (
	TXTKeyID           = "id" // Unique receiver id
	TXTKeyFriendlyName = "fn" // User-visible name
	TXTKeyModel        = "md" // Model name
	TXTKeyVersion      = "ve" // TXT format version
	TXTKeyCapabilities = "ca" // Capability bit mask (optional)
)

// Timing constants.
const (
	// BrowseTimeout is the default time Collect waits for answers.
	BrowseTimeout = 5 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT record")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrNoAddresses         = errors.New("receiver has no addresses")
)
