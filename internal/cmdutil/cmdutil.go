// Package cmdutil holds the logging and tracing setup shared by the
// cast-sender and cast-receiver commands.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openscreen/openscreen-go/pkg/trace"
)

// ErrUsage is returned by argument parsing when the command line is
// malformed. Commands print their usage and exit with status 1.
var ErrUsage = errors.New("invalid usage")

// NewLogger returns a text logger writing to w. Verbose enables debug
// records.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// TraceOptions selects where trace events go.
type TraceOptions struct {
	// Text writes events to the operational logger at debug level.
	Text bool

	// File appends CBOR encoded events to this path.
	File string

	// Categories is a comma separated category list, or "all".
	Categories string
}

// Enabled reports whether any trace output is requested.
func (o TraceOptions) Enabled() bool {
	return o.Text || o.File != ""
}

// NewTracer builds the trace logger described by opts. The returned
// function closes the trace file, if any, and must be called on exit.
func NewTracer(logger *slog.Logger, opts TraceOptions) (trace.Logger, func() error, error) {
	noop := func() error { return nil }
	if !opts.Enabled() {
		return trace.NoopLogger{}, noop, nil
	}

	categories, err := trace.ParseCategories(opts.Categories)
	if err != nil {
		return nil, nil, err
	}
	if categories == 0 {
		return nil, nil, fmt.Errorf("%w: no trace categories selected", ErrUsage)
	}

	var (
		loggers []trace.Logger
		closer  = noop
	)
	if opts.Text {
		loggers = append(loggers, trace.NewSlogAdapter(logger, categories))
	}
	if opts.File != "" {
		fl, err := trace.NewFileLogger(opts.File, categories)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace file: %w", err)
		}
		loggers = append(loggers, fl)
		closer = fl.Close
	}

	if len(loggers) == 1 {
		return loggers[0], closer, nil
	}
	return trace.NewMultiLogger(loggers...), closer, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
