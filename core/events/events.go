package events

// Event represents a structured state change emitted by the ledger host.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (audit log, webhooks).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default for components that expose events optionally.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
