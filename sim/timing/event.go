package timing

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/id"
)

// An Event is something going to happen in the future.
type Event interface {
	// ID identifies the event. Cancellation is keyed by ID.
	ID() string

	// Return the time that the event should happen
	Time() VTime

	// Returns the handler that can should handle the event
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. Secondary event are
	// handled after all same-time primary events are handled.
	IsSecondary() bool
}

// HookPosBeforeEvent is a hook position that triggers before handling an event.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}

// EventBase provides the basic fields and getters for other events
type EventBase struct {
	id        string
	time      VTime
	handler   Handler
	secondary bool
}

// NewEventBase creates a new EventBase
func NewEventBase(t VTime, handler Handler) *EventBase {
	e := new(EventBase)
	e.id = id.Generate()
	e.time = t
	e.handler = handler
	e.secondary = false

	return e
}

// MakeEventBase creates a new EventBase value to embed into other events.
func MakeEventBase(t VTime, handler Handler) EventBase {
	return *NewEventBase(t, handler)
}

// ID returns the ID of the event.
func (e EventBase) ID() string {
	return e.id
}

// Time return the time that the event is going to happen
func (e EventBase) Time() VTime {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// MarkSecondary turns the event into a secondary event.
func (e *EventBase) MarkSecondary() {
	e.secondary = true
}

// A Handler defines a domain for the events.
//
// One event is always constraint to one Handler, which means the event can
// only be scheduled by one handler and can only directly modify that handler.
type Handler interface {
	Handle(e Event) error
}
