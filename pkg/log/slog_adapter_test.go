package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func logOne(t *testing.T, event Event) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	if buf.Len() == 0 {
		t.Fatal("no output produced")
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return entry
}

func TestSlogAdapterLogsMessageEvent(t *testing.T) {
	entry := logOne(t, Event{
		Timestamp: time.Now(),
		SessionID: "session-123",
		Direction: DirectionOut,
		Layer:     LayerExchange,
		Category:  CategoryMessage,
		Operation: OperationPair,
		Address:   "11:22:33:44:55:66",
		Message:   &MessageEvent{Type: MessageKeyBasedPairing, Size: 80},
	})

	want := map[string]any{
		"session_id": "session-123",
		"direction":  "OUT",
		"layer":      "EXCHANGE",
		"operation":  "PAIR",
		"address":    "11:22:33:44:55:66",
		"msg_type":   "KEY_BASED_PAIRING",
		"msg_size":   float64(80),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s: got %v, want %v", k, entry[k], v)
		}
	}
}

func TestSlogAdapterLogsStateChange(t *testing.T) {
	entry := logOne(t, Event{
		SessionID:   "session-456",
		Layer:       LayerSession,
		Category:    CategoryState,
		StateChange: &StateChangeEvent{OldState: "IDLE", NewState: "RESOLVING_ADDRESS"},
	})

	if entry["old_state"] != "IDLE" || entry["new_state"] != "RESOLVING_ADDRESS" {
		t.Errorf("states: got %v -> %v", entry["old_state"], entry["new_state"])
	}
	if _, ok := entry["reason"]; ok {
		t.Error("empty reason should be omitted")
	}
	if _, ok := entry["operation"]; ok {
		t.Error("OperationNone should be omitted")
	}
}

func TestSlogAdapterLogsBondAndError(t *testing.T) {
	entry := logOne(t, Event{
		Layer:    LayerBond,
		Category: CategoryNotification,
		Bond:     &BondEvent{Type: "PASSKEY_REQUEST", PasskeyRequested: true},
	})
	if entry["bond_event"] != "PASSKEY_REQUEST" || entry["passkey_requested"] != true {
		t.Errorf("bond attrs: %v", entry)
	}

	entry = logOne(t, Event{
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerBond, Message: "no ack", Kind: "TIMEOUT", Context: "create bond"},
	})
	if entry["error_kind"] != "TIMEOUT" || entry["error_layer"] != "BOND" || entry["error_context"] != "create bond" {
		t.Errorf("error attrs: %v", entry)
	}
}

func TestSlogAdapterInterfaceSatisfaction(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)
}
