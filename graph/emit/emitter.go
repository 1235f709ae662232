package emit

// Emitter receives observability events from graph execution.
//
// Implementations must be safe for concurrent use: a compiled graph may run
// many invocations at once and they share its emitter. Emit must not block
// for long and must not panic.
type Emitter interface {
	Emit(event Event)
}

// MultiEmitter fans every event out to several emitters in order.
//
// Example:
//
//	e := emit.NewMultiEmitter(emit.NewLogEmitter(os.Stderr, false), buffered)
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter returns an emitter forwarding to every non-nil emitter given.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	m := &MultiEmitter{}
	for _, e := range emitters {
		if e != nil {
			m.emitters = append(m.emitters, e)
		}
	}
	return m
}

// Emit forwards event to each wrapped emitter.
func (m *MultiEmitter) Emit(event Event) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}
