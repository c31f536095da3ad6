package gating

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/schedule"
)

// HookPosGateStateChange fires when a schedule entry is applied. The item is
// the applied bitvector and the detail tells if a release was issued.
var HookPosGateStateChange = &hooking.HookPos{Name: "Gate State Change"}

// HookPosScheduleSwap fires when a pending schedule becomes current. The item
// is the new schedule and the detail is a SwapDetail.
var HookPosScheduleSwap = &hooking.HookPos{Name: "Schedule Swap"}

// SwapDetail describes a schedule swap.
type SwapDetail struct {
	// HoldConflict is set when the swap happens while hold and release is
	// used together with frame preemption. Hold periods planned from the old
	// schedule may then be wrong.
	HoldConflict bool
}

// PreemptionPort is the part of the transmit path that the controller drives.
type PreemptionPort interface {
	TxRate() frame.DataRate
	HoldAdvance() timing.VTime
	PreemptionEnabled() bool
	IsOnHold() bool
	Hold(delay timing.VTime)
	Release()
}

type gateSchedule = schedule.Schedule[schedule.GateBitvector]

// Controller drives the gates of one egress port through a gate schedule.
// A new schedule is kept pending and only becomes current when the running
// schedule wraps around to its first entry.
type Controller struct {
	hooking.HookableBase
	naming.NamedBase

	clock          clock.Clock
	port           PreemptionPort
	gates          []*Gate
	holdAndRelease bool
	switchName     string
	portID         int

	current    *gateSchedule
	next       *gateSchedule
	index      int
	lastChange timing.VTime
	subscribed bool
}

// ScheduleIndex returns the index of the entry applied on the next tick.
func (c *Controller) ScheduleIndex() int {
	return c.index
}

// CurrentSchedule returns the schedule in force.
func (c *Controller) CurrentSchedule() *gateSchedule {
	return c.current
}

// NextSchedule returns the pending schedule, or nil.
func (c *Controller) NextSchedule() *gateSchedule {
	return c.next
}

// Gates returns the gates the controller drives.
func (c *Controller) Gates() []*Gate {
	return c.gates
}

// CurrentlyOnHold reports whether the transmit path is on hold.
func (c *Controller) CurrentlyOnHold() bool {
	return c.port.IsOnHold()
}

// LoadScheduleOrDefault makes the port's schedule from the description
// pending. Ports not mentioned get the default schedule, and a nil
// description yields the empty schedule.
func (c *Controller) LoadScheduleOrDefault(desc *schedule.Description) error {
	s, err := schedule.NewLoader(desc).GateSchedule(c.switchName, c.portID)
	if err != nil {
		return err
	}

	c.LoadSchedule(s)

	return nil
}

// LoadSchedule makes s pending. It becomes current at the start of the next
// cycle. A controller that stopped ticking because it ran the empty schedule
// picks the new schedule up on the next tick.
func (c *Controller) LoadSchedule(s *gateSchedule) {
	c.next = s

	if !c.subscribed {
		c.subscribed = true
		c.clock.SubscribeTick(c, 0)
	}
}

// Tick applies the next schedule entry.
func (c *Controller) Tick(clk clock.Clock) {
	c.subscribed = false

	if c.index == 0 && c.next != nil {
		c.swap()

		if c.current.IsEmpty() {
			if c.holdAndRelease {
				c.port.Release()
			}

			c.openAllGates()
			return
		}
	}

	if c.current.IsEmpty() {
		return
	}

	bv := c.current.ScheduledObject(c.index)

	release := false
	if c.holdAndRelease {
		release = !c.opensExpressGate(bv) && c.CurrentlyOnHold()
		if release {
			c.port.Release()
		}
	}

	c.setGateStates(bv, release)

	c.subscribed = true
	clk.SubscribeTick(c, c.current.Length(c.index))
	c.lastChange = clk.Now()

	if c.holdAndRelease && !c.nextIsEmpty() &&
		c.opensExpressGate(c.followingBitvector()) {
		c.port.Hold(c.holdDelay(clk))
	}

	c.index = (c.index + 1) % c.current.Size()
}

func (c *Controller) swap() {
	conflict := c.holdAndRelease && c.port.PreemptionEnabled()

	c.current = c.next
	c.next = nil

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosScheduleSwap,
			Item:   c.current,
			Detail: SwapDetail{HoldConflict: conflict},
		})
	}
}

// nextIsEmpty reports whether the empty schedule takes over after the
// current entry.
func (c *Controller) nextIsEmpty() bool {
	return c.next != nil && c.next.IsEmpty() &&
		c.index == c.current.Size()-1
}

// followingBitvector returns the entry applied after the current one,
// looking into the pending schedule at the end of the cycle.
func (c *Controller) followingBitvector() schedule.GateBitvector {
	if c.next != nil && c.index == c.current.Size()-1 {
		if c.next.IsEmpty() {
			return schedule.AllOpen
		}

		return c.next.ScheduledObject(0)
	}

	return c.current.ScheduledObject((c.index + 1) % c.current.Size())
}

// holdDelay places the hold HoldAdvance before the end of the current entry.
func (c *Controller) holdDelay(clk clock.Clock) timing.VTime {
	length := clk.Rate() * timing.VTime(c.current.Length(c.index))
	advance := c.port.HoldAdvance()

	if advance >= length {
		return 0
	}

	return length - advance
}

func (c *Controller) opensExpressGate(bv schedule.GateBitvector) bool {
	for _, g := range c.gates {
		if g.IsExpress() && bv.Test(g.Index()) {
			return true
		}
	}

	return false
}

func (c *Controller) setGateStates(bv schedule.GateBitvector, release bool) {
	for _, g := range c.gates {
		g.SetState(bv.Test(g.Index()), release)
	}

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosGateStateChange,
			Item:   bv,
			Detail: release,
		})
	}
}

func (c *Controller) openAllGates() {
	c.setGateStates(schedule.AllOpen, true)
}

// CalculateMaxBit returns how many bits may still be sent through the gate
// before it closes, capped at one maximum sized frame. The walk starts at the
// entry in force and continues into the pending schedule once the current
// cycle ends.
func (c *Controller) CalculateMaxBit(gateIndex int) uint64 {
	if c.current == nil || c.current.IsEmpty() {
		return frame.MaxFrameBits
	}

	rate := c.port.TxRate()
	if rate == 0 {
		return 0
	}

	clockRate := c.clock.Rate()
	elapsed := c.clock.Now() - c.lastChange

	sched := c.current
	idx := (c.index + sched.Size() - 1) % sched.Size()
	inNext := false
	bits := uint64(0)
	stepsWithoutGain := 0

	for bits < frame.MaxFrameBits {
		if !sched.ScheduledObject(idx).Test(gateIndex) {
			return bits
		}

		length := clockRate * timing.VTime(sched.Length(idx))
		if length > elapsed {
			length -= elapsed
		} else {
			length = 0
		}
		elapsed = 0

		gain := rate.Bits(length)
		bits += gain

		if gain == 0 {
			stepsWithoutGain++
		} else {
			stepsWithoutGain = 0
		}

		// A whole cycle without a single bit never closes the gate.
		if stepsWithoutGain > sched.Size() {
			return frame.MaxFrameBits
		}

		if c.next != nil && !inNext && idx == sched.Size()-1 {
			if c.next.IsEmpty() {
				return frame.MaxFrameBits
			}

			sched = c.next
			idx = 0
			inNext = true
			stepsWithoutGain = 0

			continue
		}

		idx = (idx + 1) % sched.Size()
	}

	return frame.MaxFrameBits
}
