package emit

// NullEmitter implements Emitter by discarding all events.
//
// Use it to make the absence of observability explicit, for example when a
// caller requires a non-nil Emitter.
type NullEmitter struct{}

// NewNullEmitter creates a new NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}
