package clock

import (
	"slices"

	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
)

// TickEvent is the engine event behind one pending tick entry.
type TickEvent struct {
	timing.EventBase
}

type tickEntry struct {
	scheduled ScheduledTick
	event     *TickEvent
	listeners []Listener
}

func (e *tickEntry) addListener(l Listener) {
	if slices.Contains(e.listeners, l) {
		return
	}

	e.listeners = append(e.listeners, l)
}

// Base implements Clock on top of an event scheduler. The TickPolicy decides
// where ticks fall in global time.
type Base struct {
	hooking.HookableBase
	naming.NamedBase

	engine timing.EventScheduler
	policy TickPolicy
	state  State
	inTick bool

	// Sorted by remaining ticks, ascending, unique per tick count.
	entries []*tickEntry
}

// Rate returns the local time advanced per tick.
func (c *Base) Rate() timing.VTime {
	return c.state.Rate
}

// Now returns the local time of the clock.
func (c *Base) Now() timing.VTime {
	if !c.inTick {
		c.updateTime()
	}

	return c.state.LastLocalTick
}

// SubscribeTick registers the listener for the tick idleTicks from now.
func (c *Base) SubscribeTick(l Listener, idleTicks uint64) {
	if !c.inTick {
		c.updateTime()
	}

	i, found := slices.BinarySearchFunc(c.entries, idleTicks,
		func(e *tickEntry, ticks uint64) int {
			switch {
			case e.scheduled.Ticks < ticks:
				return -1
			case e.scheduled.Ticks > ticks:
				return 1
			default:
				return 0
			}
		})

	if found {
		c.entries[i].addListener(l)
		return
	}

	entry := c.newEntry(idleTicks)
	entry.addListener(l)
	c.entries = slices.Insert(c.entries, i, entry)
	c.engine.Schedule(entry.event)
}

func (c *Base) newEntry(idleTicks uint64) *tickEntry {
	timestamp := c.policy.ScheduleTick(c.state, idleTicks)

	// A zero-tick subscription between two ticks refers to the tick that
	// has already passed, so it is delivered right away.
	now := c.engine.Now()
	if timestamp < now {
		timestamp = now
	}

	return &tickEntry{
		scheduled: ScheduledTick{Ticks: idleTicks, Timestamp: timestamp},
		event:     &TickEvent{EventBase: timing.MakeEventBase(timestamp, c)},
	}
}

// UnsubscribeTicks removes the listener from all pending entries.
func (c *Base) UnsubscribeTicks(l Listener) {
	for _, e := range c.entries {
		e.listeners = slices.DeleteFunc(e.listeners,
			func(registered Listener) bool { return registered == l })
	}
}

// NumPendingTicks returns the number of distinct ticks still scheduled.
func (c *Base) NumPendingTicks() int {
	return len(c.entries)
}

// Handle delivers a tick event.
func (c *Base) Handle(e timing.Event) error {
	evt, ok := e.(*TickEvent)
	if !ok {
		tsnerr.Violate(c.Name(), "cannot handle event of type %T", e)
	}

	if len(c.entries) == 0 {
		tsnerr.Violate(c.Name(), "tick at %s with no pending tick", e.Time())
	}

	if c.entries[0].event != evt {
		tsnerr.Violate(c.Name(),
			"tick at %s is not the head of the pending ticks", e.Time())
	}

	c.inTick = true

	c.updateTimeOnScheduledTick()
	notified := c.notifyNextTick()
	c.entries = c.entries[1:]

	c.inTick = false

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosTick,
			Item:   notified,
			Detail: c.state.LastLocalTick,
		})
	}

	return nil
}

func (c *Base) updateTimeOnScheduledTick() {
	elapsed := c.entries[0].scheduled.Ticks
	c.incrementTime(ScheduledTick{
		Ticks:     elapsed,
		Timestamp: c.engine.Now(),
	})
	c.decrementCountdowns(elapsed)
}

func (c *Base) updateTime() {
	last := c.policy.LastTick(c.state, c.engine.Now())
	if last.Ticks == 0 {
		c.state.LastGlobalNonTick = c.engine.Now()
		return
	}

	c.incrementTime(last)
	c.decrementCountdowns(last.Ticks)
}

func (c *Base) incrementTime(t ScheduledTick) {
	if t.Ticks == 0 {
		c.state.LastGlobalNonTick = c.engine.Now()
		return
	}

	c.state.LastGlobalTick = t.Timestamp
	c.state.LastGlobalNonTick = t.Timestamp
	c.state.LastLocalTick += c.state.Rate * timing.VTime(t.Ticks)
}

func (c *Base) decrementCountdowns(ticks uint64) {
	for _, e := range c.entries {
		if e.scheduled.Ticks < ticks {
			tsnerr.Violate(c.Name(),
				"pending tick at %s was skipped", e.scheduled.Timestamp)
		}

		e.scheduled.Ticks -= ticks
	}
}

// notifyNextTick takes the head entry out while its listeners run, so that
// they can subscribe for zero ticks again without joining the entry that is
// being delivered. The entry is put back at the head afterwards.
func (c *Base) notifyNextTick() int {
	head := c.entries[0]
	c.entries = c.entries[1:]

	for _, l := range head.listeners {
		l.Tick(c)
	}

	c.entries = slices.Insert(c.entries, 0, head)

	return len(head.listeners)
}
