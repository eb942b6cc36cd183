// Package trace records timing and flow events for the casting tools.
//
// It is separate from operational logging (slog). Trace events describe
// what happened and when: a slice with a duration, the start and end of an
// asynchronous operation, or one step of a flow that spans several
// components.
//
// # Basic Usage
//
//	// Console output while developing
//	logger := trace.NewSlogAdapter(slog.Default(), trace.AllCategories())
//
//	// Binary capture for later analysis
//	file, _ := trace.NewFileLogger("sender.otrace", trace.AllCategories())
//
//	// Both
//	logger := trace.NewMultiLogger(console, file)
//
// Components time an operation with a Span:
//
//	span := trace.Begin(logger, trace.CategoryQuic, "Dial")
//	defer span.End()
//
// # File Format
//
// Trace files hold a stream of CBOR encoded events with integer keys, read
// back with Reader.
package trace
