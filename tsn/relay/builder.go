package relay

import (
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
)

// Builder creates filtering databases.
type Builder struct {
	clock          clock.Clock
	switchID       string
	agingEnabled   bool
	agingThreshold timing.VTime
	cycle          uint64
	desc           *DatabaseDescription
}

// MakeBuilder creates a builder with aging disabled.
func MakeBuilder() Builder {
	return Builder{}
}

// WithClock sets the clock that drives table swaps.
func (b Builder) WithClock(c clock.Clock) Builder {
	b.clock = c
	return b
}

// WithSwitchID sets the id used to select rules from a description.
func (b Builder) WithSwitchID(id string) Builder {
	b.switchID = id
	return b
}

// WithAging enables aging of learned entries not seen for threshold.
func (b Builder) WithAging(threshold timing.VTime) Builder {
	b.agingEnabled = true
	b.agingThreshold = threshold

	return b
}

// WithCycle sets the swap cadence in ticks. A cycle in the description takes
// precedence.
func (b Builder) WithCycle(cycle uint64) Builder {
	b.cycle = cycle
	return b
}

// WithDescription sets the description holding the initial rules.
func (b Builder) WithDescription(desc *DatabaseDescription) Builder {
	b.desc = desc
	return b
}

// Build creates the database. The initial rules become operational on the
// first tick, which happens at the current time.
func (b Builder) Build(name string) (*FilteringDatabase, error) {
	if b.clock == nil {
		panic("filtering database requires a clock")
	}

	if b.agingEnabled && b.agingThreshold == 0 {
		return nil, tsnerr.NewConfigError(name, "agingThreshold",
			tsnerr.KindOutOfRange, "aging threshold must be positive")
	}

	cycle := b.cycle
	if b.desc != nil && b.desc.Cycle != nil {
		cycle = *b.desc.Cycle
	}

	db := &FilteringDatabase{
		NamedBase:      naming.MakeNamedBase(name),
		clock:          b.clock,
		switchID:       b.switchID,
		agingEnabled:   b.agingEnabled,
		agingThreshold: b.agingThreshold,
		cycle:          cycle,
		newCycle:       cycle,
		admin:          make(map[frame.MacAddress]*entry),
		oper:           make(map[frame.MacAddress]*entry),
		subscribed:     true,
	}

	if err := db.LoadDatabase(b.desc, cycle); err != nil {
		return nil, err
	}

	b.clock.SubscribeTick(db, 0)

	return db, nil
}
