package log

// Logger receives protocol events from the transport, connection and
// client layers. Implementations must be safe for concurrent use and
// should return quickly; a slow sink stalls the emitting layer.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops every event. The zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
