package shaping

import (
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/gating"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
)

// CBSBuilder creates credit based shapers.
type CBSBuilder struct {
	engine          timing.EventScheduler
	queue           *Queue
	gate            *gating.Gate
	link            Link
	notifier        ReadyNotifier
	idleSlopeFactor float64
}

// MakeCBSBuilder creates a builder with an idle slope of half the link rate.
func MakeCBSBuilder() CBSBuilder {
	return CBSBuilder{idleSlopeFactor: 0.5}
}

// WithEngine sets the engine that schedules the shaper's events.
func (b CBSBuilder) WithEngine(engine timing.EventScheduler) CBSBuilder {
	b.engine = engine
	return b
}

// WithQueue sets the queue to shape.
func (b CBSBuilder) WithQueue(q *Queue) CBSBuilder {
	b.queue = q
	return b
}

// WithGate sets the transmission gate in front of the queue.
func (b CBSBuilder) WithGate(g *gating.Gate) CBSBuilder {
	b.gate = g
	return b
}

// WithLink sets the transmit path.
func (b CBSBuilder) WithLink(l Link) CBSBuilder {
	b.link = l
	return b
}

// WithNotifier sets who is told that the queue may send.
func (b CBSBuilder) WithNotifier(n ReadyNotifier) CBSBuilder {
	b.notifier = n
	return b
}

// WithIdleSlopeFactor sets the idle slope as a fraction of the link rate.
func (b CBSBuilder) WithIdleSlopeFactor(f float64) CBSBuilder {
	b.idleSlopeFactor = f
	return b
}

// Build creates the shaper and attaches it to its queue and gate.
func (b CBSBuilder) Build(name string) (*CreditBasedShaper, error) {
	b.mustHaveCollaborators()

	if b.idleSlopeFactor <= 0 || b.idleSlopeFactor >= 1 {
		return nil, tsnerr.NewConfigError(name, "idleSlopeFactor",
			tsnerr.KindOutOfRange,
			"idle slope factor %g is not in (0,1)", b.idleSlopeFactor)
	}

	s := &CreditBasedShaper{
		NamedBase:       naming.MakeNamedBase(name),
		engine:          b.engine,
		queue:           b.queue,
		gate:            b.gate,
		link:            b.link,
		notifier:        b.notifier,
		idleSlopeFactor: b.idleSlopeFactor,
		state:           StateIdle,
		lastEvent:       b.engine.Now(),
	}

	b.queue.SetAlgorithm(s)
	b.gate.AcceptListener(s)

	return s, nil
}

func (b CBSBuilder) mustHaveCollaborators() {
	switch {
	case b.engine == nil:
		panic("credit based shaper requires an engine")
	case b.queue == nil:
		panic("credit based shaper requires a queue")
	case b.gate == nil:
		panic("credit based shaper requires a gate")
	case b.link == nil:
		panic("credit based shaper requires a link")
	case b.notifier == nil:
		panic("credit based shaper requires a notifier")
	}
}
