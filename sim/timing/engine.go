package timing

import (
	"github.com/miamuminovic/nesting/sim/hooking"
)

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Now() VTime
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	TimeTeller

	// Schedule registers an event to be handled at its time.
	Schedule(e Event)

	// Cancel removes a scheduled event. Cancelling an event that has already
	// been handled, or was never scheduled, has no effect.
	Cancel(e Event)

	// Resolution is the time quantum of the scheduler. All event times must
	// be multiples of it.
	Resolution() VTime
}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Run will process all the events until the simulation finishes
	Run() error

	// RunUntil processes all the events up to and including the deadline and
	// then moves the time to the deadline.
	RunUntil(deadline VTime) error

	// Pause will pause the simulation until continue is called.
	Pause()

	// Continue will continue the paused simulation
	Continue()
}
