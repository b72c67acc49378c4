package log

// Logger receives protocol events from a pairing session.
// Pass nil or NoopLogger to disable protocol logging.
type Logger interface {
	// Log records a protocol event. Implementations must be safe for
	// concurrent use and must not block the session for long.
	Log(event Event)
}

// NoopLogger discards all events. It is usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
