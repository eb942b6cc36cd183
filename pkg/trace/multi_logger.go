package trace

// MultiLogger fans events out to several loggers.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger. Nil loggers are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// IsEnabled reports whether any logger records c.
func (m *MultiLogger) IsEnabled(c Category) bool {
	for _, l := range m.loggers {
		if l.IsEnabled(c) {
			return true
		}
	}
	return false
}

// Log passes the event to every logger that records its category.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		if l.IsEnabled(event.Category) {
			l.Log(event)
		}
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*MultiLogger)(nil)
