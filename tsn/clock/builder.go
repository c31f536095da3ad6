package clock

import (
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
)

// Builder creates clocks.
type Builder struct {
	engine timing.EventScheduler
	rate   timing.VTime
	policy TickPolicy
}

// MakeBuilder creates a builder for an ideal clock ticking every microsecond.
func MakeBuilder() Builder {
	return Builder{
		rate:   timing.Microsecond,
		policy: IdealPolicy{},
	}
}

// WithEngine sets the scheduler that delivers the ticks.
func (b Builder) WithEngine(engine timing.EventScheduler) Builder {
	b.engine = engine
	return b
}

// WithRate sets the local time advanced per tick.
func (b Builder) WithRate(rate timing.VTime) Builder {
	b.rate = rate
	return b
}

// WithPolicy sets the tick policy.
func (b Builder) WithPolicy(policy TickPolicy) Builder {
	b.policy = policy
	return b
}

// Build creates a clock. The clock rate must be a positive multiple of the
// engine resolution.
func (b Builder) Build(name string) (*Base, error) {
	b.engineMustBeGiven()
	naming.NameMustBeValid(name)

	if b.rate == 0 {
		return nil, tsnerr.NewConfigError(name, "clockRate",
			tsnerr.KindClockPrecision, "clock rate must be positive")
	}

	if b.rate%b.engine.Resolution() != 0 {
		return nil, tsnerr.NewConfigError(name, "clockRate",
			tsnerr.KindClockPrecision,
			"clock rate %s is finer than the engine resolution %s",
			b.rate, b.engine.Resolution())
	}

	policy := b.policy
	if policy == nil {
		policy = IdealPolicy{}
	}

	now := b.engine.Now()
	c := &Base{
		NamedBase: naming.MakeNamedBase(name),
		engine:    b.engine,
		policy:    policy,
		state: State{
			LastGlobalTick:    now,
			LastGlobalNonTick: now,
			LastLocalTick:     now,
			Rate:              b.rate,
		},
	}

	return c, nil
}

func (b Builder) engineMustBeGiven() {
	if b.engine == nil {
		panic("clock requires an engine")
	}
}
