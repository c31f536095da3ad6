package mac

import (
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/frame"
)

// Builder creates ports.
type Builder struct {
	engine      timing.EventScheduler
	txRate      frame.DataRate
	holdAdvance timing.VTime
	preemption  bool
}

// MakeBuilder creates a builder for a 1 Gbps port without preemption.
func MakeBuilder() Builder {
	return Builder{txRate: frame.Gbps}
}

// WithEngine sets the engine that schedules the port's events.
func (b Builder) WithEngine(engine timing.EventScheduler) Builder {
	b.engine = engine
	return b
}

// WithTxRate sets the link rate.
func (b Builder) WithTxRate(rate frame.DataRate) Builder {
	b.txRate = rate
	return b
}

// WithHoldAdvance sets how early a hold starts before an express window.
func (b Builder) WithHoldAdvance(d timing.VTime) Builder {
	b.holdAdvance = d
	return b
}

// WithPreemption enables frame preemption.
func (b Builder) WithPreemption(enabled bool) Builder {
	b.preemption = enabled
	return b
}

// Build creates a port.
func (b Builder) Build(name string) *Port {
	b.engineMustBeGiven()
	b.txRateMustNotBeZero()

	return &Port{
		NamedBase:   naming.MakeNamedBase(name),
		engine:      b.engine,
		txRate:      b.txRate,
		holdAdvance: b.holdAdvance,
		preemption:  b.preemption,
	}
}

func (b Builder) engineMustBeGiven() {
	if b.engine == nil {
		panic("port requires an engine")
	}
}

func (b Builder) txRateMustNotBeZero() {
	if b.txRate == 0 {
		panic("port tx rate cannot be 0")
	}
}
