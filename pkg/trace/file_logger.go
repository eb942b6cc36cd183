package trace

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends CBOR encoded events to a file. It is safe for
// concurrent use.
type FileLogger struct {
	file       *os.File
	encoder    *cbor.Encoder
	categories Categories
	mu         sync.Mutex
	closed     bool
}

// NewFileLogger opens path for appending, creating it with mode 0644.
func NewFileLogger(path string, categories Categories) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:       f,
		encoder:    NewEncoder(f),
		categories: categories,
	}, nil
}

// IsEnabled reports whether c is recorded.
func (l *FileLogger) IsEnabled(c Category) bool {
	return l.categories.Has(c)
}

// Log writes an event. Events logged after Close are dropped.
func (l *FileLogger) Log(event Event) {
	if !l.categories.Has(event.Category) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	// Encoding errors are ignored; tracing must not disrupt the caller.
	_ = l.encoder.Encode(event)
}

// Close closes the file. It is safe to call more than once.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	return l.file.Close()
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
