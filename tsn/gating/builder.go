package gating

import (
	"fmt"

	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/schedule"
)

// Builder creates gate controllers.
type Builder struct {
	clock          clock.Clock
	port           PreemptionPort
	gates          []*Gate
	holdAndRelease bool
	switchName     string
	portID         int
	desc           *schedule.Description
	initial        *gateSchedule
}

// MakeBuilder creates a builder with hold and release disabled.
func MakeBuilder() Builder {
	return Builder{}
}

// WithClock sets the clock that drives the controller.
func (b Builder) WithClock(c clock.Clock) Builder {
	b.clock = c
	return b
}

// WithPort sets the transmit path of the port.
func (b Builder) WithPort(p PreemptionPort) Builder {
	b.port = p
	return b
}

// WithGates sets the gates to drive.
func (b Builder) WithGates(gates ...*Gate) Builder {
	b.gates = gates
	return b
}

// WithHoldAndRelease enables hold and release signalling to the port.
func (b Builder) WithHoldAndRelease(enabled bool) Builder {
	b.holdAndRelease = enabled
	return b
}

// WithIdentity sets the switch name and port id used to select the schedule
// from a description.
func (b Builder) WithIdentity(switchName string, portID int) Builder {
	b.switchName = switchName
	b.portID = portID

	return b
}

// WithDescription sets the description to load the initial schedule from.
func (b Builder) WithDescription(desc *schedule.Description) Builder {
	b.desc = desc
	return b
}

// WithSchedule sets the initial schedule directly. It takes precedence over
// the description.
func (b Builder) WithSchedule(s *gateSchedule) Builder {
	b.initial = s
	return b
}

// Build creates the controller. The initial schedule becomes current on the
// first tick, which happens at the current time.
func (b Builder) Build(name string) (*Controller, error) {
	b.clockMustBeGiven()
	b.portMustBeGiven()
	b.gatesMustBeDistinct()

	c := &Controller{
		NamedBase:      naming.MakeNamedBase(name),
		clock:          b.clock,
		port:           b.port,
		gates:          b.gates,
		holdAndRelease: b.holdAndRelease,
		switchName:     b.switchName,
		portID:         b.portID,
		current:        schedule.EmptySchedule(),
		subscribed:     true,
	}

	initial := b.initial
	if initial == nil {
		var err error

		initial, err = schedule.NewLoader(b.desc).
			GateSchedule(b.switchName, b.portID)
		if err != nil {
			return nil, err
		}
	}

	c.next = initial
	c.lastChange = b.clock.Now()

	// Holds are requested one entry ahead, so the first entry needs its own.
	if c.holdAndRelease && !initial.IsEmpty() &&
		c.opensExpressGate(initial.ScheduledObject(0)) {
		c.port.Hold(0)
	}

	b.clock.SubscribeTick(c, 0)

	return c, nil
}

func (b Builder) clockMustBeGiven() {
	if b.clock == nil {
		panic("gate controller requires a clock")
	}
}

func (b Builder) portMustBeGiven() {
	if b.port == nil {
		panic("gate controller requires a port")
	}
}

func (b Builder) gatesMustBeDistinct() {
	seen := make(map[int]bool)

	for _, g := range b.gates {
		if g.Index() < 0 || g.Index() >= schedule.NumGates {
			panic(fmt.Sprintf("gate index %d out of range", g.Index()))
		}

		if seen[g.Index()] {
			panic(fmt.Sprintf("gate index %d used twice", g.Index()))
		}

		seen[g.Index()] = true
	}
}
