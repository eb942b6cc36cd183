package trace

import (
	"sync/atomic"
	"time"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
)

// Logger receives trace events. Implementations must be safe for
// concurrent use and should not block.
type Logger interface {
	// IsEnabled reports whether events of category c are recorded. Callers
	// check it before building expensive arguments.
	IsEnabled(c Category) bool

	// Log records an event.
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

// IsEnabled always reports false.
func (NoopLogger) IsEnabled(Category) bool { return false }

// Log discards the event.
func (NoopLogger) Log(Event) {}

var lastID atomic.Uint64

// NewID returns a process-unique, nonzero trace id.
func NewID() uint64 {
	return lastID.Add(1)
}

// Span times one operation and logs it as a slice when it ends.
type Span struct {
	logger   Logger
	event    Event
	disabled bool
}

// Begin starts a root span.
func Begin(l Logger, c Category, name string) *Span {
	return BeginChild(l, c, name, IDs{})
}

// BeginChild starts a span beneath parent.
func BeginChild(l Logger, c Category, name string, parent IDs) *Span {
	if l == nil || !l.IsEnabled(c) {
		return &Span{disabled: true}
	}
	return &Span{
		logger: l,
		event: Event{
			Name:     name,
			Category: c,
			Phase:    PhaseSlice,
			Start:    time.Now(),
			IDs:      parent.Child(NewID()),
		},
	}
}

// IDs returns the span's ids, for starting children.
func (s *Span) IDs() IDs { return s.event.IDs }

// Arg attaches an annotation.
func (s *Span) Arg(key, value string) *Span {
	if s.disabled {
		return s
	}
	if s.event.Args == nil {
		s.event.Args = make(map[string]string)
	}
	s.event.Args[key] = value
	return s
}

// Endpoints attaches the local and remote endpoints of a connection.
func (s *Span) Endpoints(local, remote ipaddr.Endpoint) *Span {
	if s.disabled {
		return s
	}
	s.event.Local = &local
	s.event.Remote = &remote
	return s
}

// Connection attaches a connection id.
func (s *Span) Connection(id string) *Span {
	if !s.disabled {
		s.event.ConnectionID = id
	}
	return s
}

// End logs the span.
func (s *Span) End() {
	s.EndErr(nil)
}

// EndErr logs the span, recording err if it is non-nil.
func (s *Span) EndErr(err error) {
	if s.disabled {
		return
	}
	s.event.Duration = time.Since(s.event.Start)
	if err != nil {
		s.event.Error = err.Error()
	}
	s.logger.Log(s.event)
	s.disabled = true
}

// AsyncStart logs the start of an asynchronous operation and returns its
// ids. Pass them to AsyncEnd when the operation completes.
func AsyncStart(l Logger, c Category, name string, parent IDs) IDs {
	ids := parent.Child(NewID())
	if l != nil && l.IsEnabled(c) {
		l.Log(Event{Name: name, Category: c, Phase: PhaseAsyncStart, Start: time.Now(), IDs: ids})
	}
	return ids
}

// AsyncEnd logs the completion of an asynchronous operation.
func AsyncEnd(l Logger, c Category, name string, ids IDs, err error) {
	if l == nil || !l.IsEnabled(c) {
		return
	}
	e := Event{Name: name, Category: c, Phase: PhaseAsyncEnd, Start: time.Now(), IDs: ids}
	if err != nil {
		e.Error = err.Error()
	}
	l.Log(e)
}

// Flow logs one step of a flow correlated by ids.FlowID. last marks the
// terminating step.
func Flow(l Logger, c Category, name string, ids IDs, last bool) {
	if l == nil || !l.IsEnabled(c) {
		return
	}
	phase := PhaseFlowStep
	if last {
		phase = PhaseFlowEnd
	}
	l.Log(Event{Name: name, Category: c, Phase: phase, Start: time.Now(), IDs: ids})
}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
