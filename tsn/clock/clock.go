// Package clock provides the logical clock that drives every schedule in a
// TSN bridge. The clock owns a local time that only advances in discrete
// ticks, and only the ticks someone subscribed to are simulated.
package clock

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/timing"
)

// HookPosTick fires after the listeners of a tick have been notified. The item
// is the number of listeners notified and the detail is the local time.
var HookPosTick = &hooking.HookPos{Name: "Clock Tick"}

// A Listener is notified when a tick it subscribed to elapses.
type Listener interface {
	Tick(c Clock)
}

// Clock is a tick based logical clock.
type Clock interface {
	// Now returns the local time. Between ticks it first accounts for the
	// ticks that have elapsed since the last simulated one.
	Now() timing.VTime

	// Rate is the local time that one tick advances.
	Rate() timing.VTime

	// SubscribeTick notifies the listener once idleTicks further ticks have
	// elapsed. Subscriptions for the same number of ticks share one event.
	SubscribeTick(l Listener, idleTicks uint64)

	// UnsubscribeTicks removes the listener from every pending tick. The
	// ticks themselves stay scheduled.
	UnsubscribeTicks(l Listener)
}
