package log

import (
	"sync"
	"testing"
	"time"
)

// recordingLogger records events for tests.
type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingLogger) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestMultiLoggerCallsAll(t *testing.T) {
	loggers := []*recordingLogger{{}, {}, {}}
	multi := NewMultiLogger(loggers[0], loggers[1], loggers[2])

	multi.Log(Event{
		Timestamp: time.Now(),
		SessionID: "session-123",
		Layer:     LayerSession,
		Category:  CategoryState,
	})

	for i, l := range loggers {
		events := l.Events()
		if len(events) != 1 {
			t.Errorf("logger %d: got %d events, want 1", i, len(events))
			continue
		}
		if events[0].SessionID != "session-123" {
			t.Errorf("logger %d: SessionID = %q, want %q", i, events[0].SessionID, "session-123")
		}
	}
}

func TestMultiLoggerSkipsNil(t *testing.T) {
	rec := &recordingLogger{}
	multi := NewMultiLogger(nil, rec, nil)

	if multi.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", multi.Len())
	}

	multi.Log(Event{SessionID: "session-456"})
	if len(rec.Events()) != 1 {
		t.Errorf("got %d events, want 1", len(rec.Events()))
	}
}

func TestMultiLoggerEmptyList(t *testing.T) {
	NewMultiLogger().Log(Event{Timestamp: time.Now()})
}
