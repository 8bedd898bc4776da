package log

// Logger is the interface applications implement to receive module events.
// Pass nil or NoopLogger to disable logging.
type Logger interface {
	// Log records an event. Implementations must be thread-safe and should
	// return quickly; modules log while executing setup.
	Log(event Event)
}

// NoopLogger discards all events.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
