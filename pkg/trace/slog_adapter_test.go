package trace

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
)

func TestSlogAdapterLogsEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler), AllCategories())

	remote := ipaddr.Endpoint{Address: ipaddr.New4(10, 0, 0, 1), Port: 8010}
	adapter.Log(Event{
		Name:         "Dial",
		Category:     CategoryQuic,
		Phase:        PhaseSlice,
		Start:        time.Now(),
		Duration:     time.Millisecond,
		IDs:          IDs{Current: 2, Root: 1},
		Args:         map[string]string{"alpn": "osp"},
		ConnectionID: "conn-1",
		Remote:       &remote,
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	want := map[string]any{
		"msg":      "trace",
		"name":     "Dial",
		"category": "quic",
		"phase":    "slice",
		"ids":      "[1:0:2]",
		"conn_id":  "conn-1",
		"remote":   "10.0.0.1:8010",
		"alpn":     "osp",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s: got %v, want %v", k, entry[k], v)
		}
	}
	if _, ok := entry["local"]; ok {
		t.Error("local should be omitted when unset")
	}
}

func TestSlogAdapterSkipsDisabledCategory(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler), NewCategories(CategorySender))

	adapter.Log(Event{Name: "Browse", Category: CategoryMdns})
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}
