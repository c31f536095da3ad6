package clock

import "github.com/miamuminovic/nesting/sim/timing"

// ScheduledTick pairs a number of ticks with the global time at which they
// have elapsed.
type ScheduledTick struct {
	Ticks     uint64
	Timestamp timing.VTime
}

// State is the bookkeeping of a clock that a TickPolicy may read.
type State struct {
	// LastGlobalTick is the global time of the last simulated tick.
	LastGlobalTick timing.VTime

	// LastGlobalNonTick is the latest global time known to have had no tick
	// since LastGlobalTick.
	LastGlobalNonTick timing.VTime

	// LastLocalTick is the local time after the last simulated tick.
	LastLocalTick timing.VTime

	Rate timing.VTime
}

// A TickPolicy decides when ticks happen in global time.
//
// Implementations must never return a timestamp from ScheduleTick that is
// earlier than a timestamp already returned for fewer ticks.
type TickPolicy interface {
	// LastTick returns the ticks elapsed between the last simulated tick and
	// now, and the global time of the latest of them.
	LastTick(s State, now timing.VTime) ScheduledTick

	// ScheduleTick returns the global time at which idleTicks ticks will have
	// elapsed after the last simulated tick.
	ScheduleTick(s State, idleTicks uint64) timing.VTime
}

// IdealPolicy places ticks at exact multiples of the clock rate.
type IdealPolicy struct{}

// LastTick implements TickPolicy.
func (IdealPolicy) LastTick(s State, now timing.VTime) ScheduledTick {
	elapsed := now - s.LastGlobalTick
	ticks := uint64(elapsed / s.Rate)

	return ScheduledTick{
		Ticks:     ticks,
		Timestamp: s.LastGlobalTick + s.Rate*timing.VTime(ticks),
	}
}

// ScheduleTick implements TickPolicy.
func (IdealPolicy) ScheduleTick(s State, idleTicks uint64) timing.VTime {
	return s.LastGlobalTick + s.Rate*timing.VTime(idleTicks)
}
