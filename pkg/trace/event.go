package trace

import (
	"fmt"
	"strings"
	"time"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
)

// Event is one trace record. CBOR encoding uses integer keys.
type Event struct {
	// Name of the traced operation.
	Name string `cbor:"1,keyasint"`

	Category Category `cbor:"2,keyasint"`
	Phase    Phase    `cbor:"3,keyasint"`

	// Start is when the operation began (or the instant of a flow step).
	Start time.Time `cbor:"4,keyasint"`

	// Duration of a slice. Zero for other phases.
	Duration time.Duration `cbor:"5,keyasint,omitempty"`

	IDs IDs `cbor:"6,keyasint"`

	// Args are free-form annotations.
	Args map[string]string `cbor:"7,keyasint,omitempty"`

	// ConnectionID ties transport events to one connection.
	ConnectionID string `cbor:"8,keyasint,omitempty"`

	Local  *ipaddr.Endpoint `cbor:"9,keyasint,omitempty"`
	Remote *ipaddr.Endpoint `cbor:"10,keyasint,omitempty"`

	// Error is set when the operation failed.
	Error string `cbor:"11,keyasint,omitempty"`
}

// Category groups events by subsystem.
type Category uint8

const (
	CategoryAny Category = iota
	CategoryMdns
	CategoryQuic
	CategorySsl
	CategoryPresentation
	CategoryStandaloneReceiver
	CategoryDiscovery
	CategoryStandaloneSender
	CategoryReceiver
	CategorySender

	numCategories
)

// String returns the category name. Unknown values are a programming error.
func (c Category) String() string {
	switch c {
	case CategoryAny:
		return "any"
	case CategoryMdns:
		return "mdns"
	case CategoryQuic:
		return "quic"
	case CategorySsl:
		return "ssl"
	case CategoryPresentation:
		return "presentation"
	case CategoryStandaloneReceiver:
		return "standalone_receiver"
	case CategoryDiscovery:
		return "discovery"
	case CategoryStandaloneSender:
		return "standalone_sender"
	case CategoryReceiver:
		return "receiver"
	case CategorySender:
		return "sender"
	default:
		panic(fmt.Sprintf("trace: unknown category %d", uint8(c)))
	}
}

// ParseCategory maps a name back to its Category.
func ParseCategory(name string) (Category, error) {
	for c := Category(0); c < numCategories; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown trace category %q", name)
}

// Categories is a set of enabled categories.
type Categories uint16

// AllCategories enables everything.
func AllCategories() Categories {
	return Categories(1<<numCategories - 1)
}

// NewCategories builds a set from the listed categories.
func NewCategories(cs ...Category) Categories {
	var set Categories
	for _, c := range cs {
		set |= 1 << c
	}
	return set
}

// ParseCategories parses a comma separated list of category names. "all"
// and "*" enable every category; an empty string enables none.
func ParseCategories(s string) (Categories, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if s == "all" || s == "*" {
		return AllCategories(), nil
	}
	var set Categories
	for _, name := range strings.Split(s, ",") {
		c, err := ParseCategory(strings.TrimSpace(name))
		if err != nil {
			return 0, err
		}
		set |= 1 << c
	}
	return set, nil
}

// Has reports whether c is in the set. CategoryAny is enabled whenever the
// set is not empty.
func (s Categories) Has(c Category) bool {
	if c == CategoryAny {
		return s != 0
	}
	return c < numCategories && s&(1<<c) != 0
}

// Phase says how an event relates to its neighbours.
type Phase uint8

const (
	// PhaseSlice is a complete operation with a duration.
	PhaseSlice Phase = iota
	// PhaseAsyncStart opens an operation identified by IDs.Current.
	PhaseAsyncStart
	// PhaseAsyncEnd closes the operation opened with the same IDs.Current.
	PhaseAsyncEnd
	// PhaseFlowStep marks an intermediate point of a flow.
	PhaseFlowStep
	// PhaseFlowEnd terminates a flow.
	PhaseFlowEnd
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseSlice:
		return "slice"
	case PhaseAsyncStart:
		return "async_start"
	case PhaseAsyncEnd:
		return "async_end"
	case PhaseFlowStep:
		return "flow_step"
	case PhaseFlowEnd:
		return "flow_end"
	default:
		return "unknown"
	}
}

// IDs place an event in a hierarchy of operations. Zero means unset.
type IDs struct {
	Current uint64 `cbor:"1,keyasint,omitempty"`
	Parent  uint64 `cbor:"2,keyasint,omitempty"`
	Root    uint64 `cbor:"3,keyasint,omitempty"`
}

// FlowID returns the id flow events are correlated by: the root when set,
// otherwise the current id.
func (ids IDs) FlowID() uint64 {
	if ids.Root != 0 {
		return ids.Root
	}
	return ids.Current
}

// Child returns the ids of an operation started beneath ids.
func (ids IDs) Child(current uint64) IDs {
	root := ids.Root
	if root == 0 {
		root = ids.Current
	}
	return IDs{Current: current, Parent: ids.Current, Root: root}
}

// String renders "[root:parent:current]" in hex.
func (ids IDs) String() string {
	return fmt.Sprintf("[%x:%x:%x]", ids.Root, ids.Parent, ids.Current)
}
