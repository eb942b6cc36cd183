package trace

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	Name         string
	ConnectionID string
	Category     *Category
	Phase        *Phase

	// TimeStart matches events starting at or after this time.
	TimeStart *time.Time

	// TimeEnd matches events starting before this time.
	TimeEnd *time.Time

	// Endpoint matches events whose local or remote endpoint is equal.
	Endpoint *ipaddr.Endpoint

	// ErrorsOnly matches failed operations.
	ErrorsOnly bool
}

func (f *Filter) matches(event Event) bool {
	if f.Name != "" && event.Name != f.Name {
		return false
	}
	if f.ConnectionID != "" && event.ConnectionID != f.ConnectionID {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Phase != nil && event.Phase != *f.Phase {
		return false
	}
	if f.TimeStart != nil && event.Start.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Start.Before(*f.TimeEnd) {
		return false
	}
	if f.Endpoint != nil {
		local := event.Local != nil && *event.Local == *f.Endpoint
		remote := event.Remote != nil && *event.Remote == *f.Endpoint
		if !local && !remote {
			return false
		}
	}
	if f.ErrorsOnly && event.Error == "" {
		return false
	}
	return true
}

// Reader streams events from a trace file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader reads every event of the file at path.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader reads the events of the file at path that match filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}
