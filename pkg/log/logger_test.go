package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	event := Event{
		Timestamp: time.Now(),
		SessionID: "session-1",
		Direction: DirectionOut,
		Layer:     LayerExchange,
		Category:  CategoryMessage,
	}
	logger.Log(event)

	event.Message = &MessageEvent{Type: MessageKeyBasedPairing, Size: 16}
	logger.Log(event)

	event.Message = nil
	event.StateChange = &StateChangeEvent{NewState: "PAIRED"}
	logger.Log(event)

	event.StateChange = nil
	event.Bond = &BondEvent{Type: "STATE_CHANGED", State: "BONDED"}
	logger.Log(event)

	event.Bond = nil
	event.Error = &ErrorEventData{Message: "boom"}
	logger.Log(event)
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	var logger NoopLogger
	logger.Log(Event{})

	var _ Logger = &logger
}
