package trafficgen

import (
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/schedule"
)

// Builder creates scheduled generators.
type Builder struct {
	clock   clock.Clock
	sender  Sender
	host    string
	src     frame.MacAddress
	desc    *schedule.Description
	initial *hostSchedule
}

// MakeBuilder creates a builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithClock sets the clock that paces the generator.
func (b Builder) WithClock(c clock.Clock) Builder {
	b.clock = c
	return b
}

// WithSender sets where generated frames go.
func (b Builder) WithSender(s Sender) Builder {
	b.sender = s
	return b
}

// WithHost sets the host name used to select the schedule and the source
// address of generated frames.
func (b Builder) WithHost(name string, src frame.MacAddress) Builder {
	b.host = name
	b.src = src

	return b
}

// WithDescription sets the description to load the schedule from.
func (b Builder) WithDescription(desc *schedule.Description) Builder {
	b.desc = desc
	return b
}

// WithSchedule sets the schedule directly.
func (b Builder) WithSchedule(s *hostSchedule) Builder {
	b.initial = s
	return b
}

// Build creates the generator. Its schedule is current from the start, so
// the first frame leaves at the start offset of the first entry.
func (b Builder) Build(name string) (*ScheduledGenerator, error) {
	if b.clock == nil {
		panic("traffic generator requires a clock")
	}

	if b.sender == nil {
		panic("traffic generator requires a sender")
	}

	initial := b.initial
	if initial == nil {
		var err error

		initial, err = schedule.NewLoader(b.desc).HostSchedule(b.host)
		if err != nil {
			return nil, err
		}
	}

	g := &ScheduledGenerator{
		NamedBase: naming.MakeNamedBase(name),
		clock:     b.clock,
		sender:    b.sender,
		host:      b.host,
		src:       b.src,
		current:   initial,
	}

	if initial.IsEmpty() && initial.Cycle() == 0 {
		return g, nil
	}

	g.subscribed = true
	b.clock.SubscribeTick(g, g.ticksToNextEvent())

	return g, nil
}
