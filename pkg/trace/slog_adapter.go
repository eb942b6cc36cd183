package trace

import (
	"context"
	"log/slog"
	"sort"
)

// SlogAdapter writes trace events to an slog.Logger at debug level.
type SlogAdapter struct {
	logger     *slog.Logger
	categories Categories
}

// NewSlogAdapter creates an adapter recording the given categories.
func NewSlogAdapter(logger *slog.Logger, categories Categories) *SlogAdapter {
	return &SlogAdapter{logger: logger, categories: categories}
}

// IsEnabled reports whether c is recorded.
func (a *SlogAdapter) IsEnabled(c Category) bool {
	return a.categories.Has(c)
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	if !a.categories.Has(event.Category) {
		return
	}

	attrs := []slog.Attr{
		slog.String("name", event.Name),
		slog.String("category", event.Category.String()),
		slog.String("phase", event.Phase.String()),
		slog.String("ids", event.IDs.String()),
	}
	if event.Phase == PhaseSlice {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}
	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("conn_id", event.ConnectionID))
	}
	if event.Local != nil {
		attrs = append(attrs, slog.String("local", event.Local.String()))
	}
	if event.Remote != nil {
		attrs = append(attrs, slog.String("remote", event.Remote.String()))
	}

	keys := make([]string, 0, len(event.Args))
	for k := range event.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, event.Args[k]))
	}

	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
