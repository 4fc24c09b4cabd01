package overlay

// Handler reacts to one decoded event.
type Handler func(Event)

type namedHandler struct {
	name string
	fn   Handler
}

// Dispatcher routes events to handlers registered per event type. Handlers
// run synchronously, in registration order, on the caller's goroutine.
// It is not safe for concurrent use; the owning loop drives it.
type Dispatcher struct {
	handlers map[EventType][]namedHandler
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventType][]namedHandler)}
}

// On registers fn for events of type t under name. Registering the same
// (t, name) again replaces the earlier handler and keeps its position.
func (d *Dispatcher) On(t EventType, name string, fn Handler) {
	list := d.handlers[t]
	for i, h := range list {
		if h.name == name {
			list[i].fn = fn
			return
		}
	}
	d.handlers[t] = append(list, namedHandler{name: name, fn: fn})
}

// Dispatch invokes every handler registered for ev.Type and reports whether
// any handler was registered.
func (d *Dispatcher) Dispatch(ev Event) bool {
	list := d.handlers[ev.Type]
	for _, h := range list {
		h.fn(ev)
	}
	return len(list) > 0
}

// Len returns the number of handlers registered for t.
func (d *Dispatcher) Len(t EventType) int {
	return len(d.handlers[t])
}
