// Package trafficgen replays host transmission schedules: every cycle, a
// host sends the scheduled frames at their start offsets.
package trafficgen

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/schedule"
)

// Hook positions of a generator. The item is the frame.
var (
	HookPosFrameGenerated = &hooking.HookPos{Name: "Frame Generated"}
	HookPosFrameReceived  = &hooking.HookPos{Name: "Frame Received"}
)

// A Sender takes the frames a generator produces.
type Sender interface {
	Send(f *frame.Frame)
}

type hostSchedule = schedule.HostSchedule[schedule.Transmission]

// ScheduledGenerator sends the frames of a host schedule. A new schedule
// becomes current when the running cycle ends.
type ScheduledGenerator struct {
	hooking.HookableBase
	naming.NamedBase

	clock  clock.Clock
	sender Sender
	host   string
	src    frame.MacAddress

	current    *hostSchedule
	next       *hostSchedule
	index      int
	subscribed bool

	numSent     uint64
	numReceived uint64
}

// NumSent returns the number of frames generated.
func (g *ScheduledGenerator) NumSent() uint64 {
	return g.numSent
}

// NumReceived returns the number of frames received.
func (g *ScheduledGenerator) NumReceived() uint64 {
	return g.numReceived
}

// CurrentSchedule returns the schedule being replayed.
func (g *ScheduledGenerator) CurrentSchedule() *hostSchedule {
	return g.current
}

// LoadScheduleOrDefault makes the host's schedule from the description
// pending.
func (g *ScheduledGenerator) LoadScheduleOrDefault(
	desc *schedule.Description,
) error {
	s, err := schedule.NewLoader(desc).HostSchedule(g.host)
	if err != nil {
		return err
	}

	g.LoadSchedule(s)

	return nil
}

// LoadSchedule makes s pending until the end of the running cycle.
func (g *ScheduledGenerator) LoadSchedule(s *hostSchedule) {
	g.next = s

	if !g.subscribed {
		g.subscribed = true
		g.clock.SubscribeTick(g, 0)
	}
}

// Tick sends the next scheduled frame, or starts a new cycle once all frames
// of the current one are out.
func (g *ScheduledGenerator) Tick(c clock.Clock) {
	g.subscribed = false

	if g.index == g.current.Size() {
		if g.next != nil {
			g.current = g.next
			g.next = nil
		}

		g.index = 0
	} else {
		g.send(c)
		g.index++
	}

	// An empty schedule without a cycle has nothing to wait for.
	if g.current.IsEmpty() && g.current.Cycle() == 0 {
		return
	}

	g.subscribed = true
	c.SubscribeTick(g, g.ticksToNextEvent())
}

// Receive counts a frame addressed to the host.
func (g *ScheduledGenerator) Receive(f *frame.Frame) {
	g.numReceived++
	g.invoke(HookPosFrameReceived, f)
}

func (g *ScheduledGenerator) send(c clock.Clock) {
	t := g.current.ScheduledObject(g.index)
	f := frame.New(g.src, t.Destination, t.Priority,
		g.current.SizeOf(g.index), c.Now())

	g.numSent++
	g.invoke(HookPosFrameGenerated, f)
	g.sender.Send(f)
}

// ticksToNextEvent is the distance from the last event to the next frame,
// or to the end of the cycle after the last frame.
func (g *ScheduledGenerator) ticksToNextEvent() uint64 {
	s := g.current

	switch {
	case s.IsEmpty():
		return s.Cycle()
	case g.index == s.Size():
		return s.Cycle() - s.Time(g.index-1)
	case g.index == 0:
		return s.Time(0)
	default:
		return s.Time(g.index) - s.Time(g.index-1)
	}
}

func (g *ScheduledGenerator) invoke(pos *hooking.HookPos, f *frame.Frame) {
	if g.NumHooks() == 0 {
		return
	}

	g.InvokeHook(hooking.HookCtx{Domain: g, Pos: pos, Item: f})
}
