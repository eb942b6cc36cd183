package trace

import "testing"

func TestMultiLoggerRoutesByCategory(t *testing.T) {
	quic := &recorder{categories: NewCategories(CategoryQuic)}
	mdns := &recorder{categories: NewCategories(CategoryMdns)}

	multi := NewMultiLogger(quic, nil, mdns)

	if !multi.IsEnabled(CategoryQuic) || !multi.IsEnabled(CategoryMdns) {
		t.Error("expected enabled categories of both loggers")
	}
	if multi.IsEnabled(CategorySender) {
		t.Error("sender is enabled by neither logger")
	}

	multi.Log(Event{Name: "a", Category: CategoryQuic})
	multi.Log(Event{Name: "b", Category: CategoryMdns})
	multi.Log(Event{Name: "c", Category: CategoryAny})

	if len(quic.events) != 2 || len(mdns.events) != 2 {
		t.Errorf("quic got %d, mdns got %d; want 2 each", len(quic.events), len(mdns.events))
	}
}

func TestMultiLoggerEmpty(t *testing.T) {
	multi := NewMultiLogger()
	if multi.IsEnabled(CategoryAny) {
		t.Error("empty MultiLogger should not be enabled")
	}
	multi.Log(Event{Name: "ignored"})
}
