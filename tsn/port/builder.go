package port

import (
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/gating"
	"github.com/miamuminovic/nesting/tsn/mac"
	"github.com/miamuminovic/nesting/tsn/schedule"
	"github.com/miamuminovic/nesting/tsn/shaping"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
)

// ShaperKind selects the transmission selection algorithm of a queue.
type ShaperKind string

// Shaper kinds.
const (
	StrictPriority ShaperKind = "strictPriority"
	CreditBased    ShaperKind = "creditBased"
)

// QueueConfig configures one traffic class.
type QueueConfig struct {
	CapacityBits    uint64     `yaml:"capacityBits"`
	Express         bool       `yaml:"express"`
	Shaper          ShaperKind `yaml:"shaper"`
	IdleSlopeFactor float64    `yaml:"idleSlopeFactor"`
}

// DefaultQueues returns n strict priority queues of 100 maximum sized frames.
func DefaultQueues(n int) []QueueConfig {
	queues := make([]QueueConfig, n)
	for i := range queues {
		queues[i] = QueueConfig{
			CapacityBits: 100 * frame.MaxFrameBits,
			Shaper:       StrictPriority,
		}
	}

	return queues
}

// Builder creates egress ports.
type Builder struct {
	engine         timing.EventScheduler
	clock          clock.Clock
	txRate         frame.DataRate
	holdAdvance    timing.VTime
	preemption     bool
	holdAndRelease bool
	queues         []QueueConfig
	switchName     string
	portID         int
	desc           *schedule.Description
}

// MakeBuilder creates a builder for a 1 Gbps port with eight strict priority
// queues.
func MakeBuilder() Builder {
	return Builder{
		txRate: frame.Gbps,
		queues: DefaultQueues(frame.NumPCPValues),
	}
}

// WithEngine sets the engine that schedules the port's events.
func (b Builder) WithEngine(engine timing.EventScheduler) Builder {
	b.engine = engine
	return b
}

// WithClock sets the clock that drives the gate controller.
func (b Builder) WithClock(c clock.Clock) Builder {
	b.clock = c
	return b
}

// WithTxRate sets the link rate.
func (b Builder) WithTxRate(rate frame.DataRate) Builder {
	b.txRate = rate
	return b
}

// WithPreemption enables frame preemption with the given hold advance.
func (b Builder) WithPreemption(enabled bool, holdAdvance timing.VTime) Builder {
	b.preemption = enabled
	b.holdAdvance = holdAdvance

	return b
}

// WithHoldAndRelease enables hold and release signalling.
func (b Builder) WithHoldAndRelease(enabled bool) Builder {
	b.holdAndRelease = enabled
	return b
}

// WithQueues sets the traffic classes, lowest priority first.
func (b Builder) WithQueues(queues ...QueueConfig) Builder {
	b.queues = queues
	return b
}

// WithIdentity sets the switch name and port id that select the gate
// schedule.
func (b Builder) WithIdentity(switchName string, portID int) Builder {
	b.switchName = switchName
	b.portID = portID

	return b
}

// WithDescription sets the schedule description.
func (b Builder) WithDescription(desc *schedule.Description) Builder {
	b.desc = desc
	return b
}

// Build creates the port and everything in it.
func (b Builder) Build(name string) (*EgressPort, error) {
	if b.engine == nil || b.clock == nil {
		panic("egress port requires an engine and a clock")
	}

	if len(b.queues) == 0 || len(b.queues) > frame.NumPCPValues {
		return nil, tsnerr.NewConfigError(name, "queues",
			tsnerr.KindOutOfRange, "%d queues, want 1 to %d",
			len(b.queues), frame.NumPCPValues)
	}

	p := &EgressPort{NamedBase: naming.MakeNamedBase(name)}

	p.mac = mac.MakeBuilder().
		WithEngine(b.engine).
		WithTxRate(b.txRate).
		WithHoldAdvance(b.holdAdvance).
		WithPreemption(b.preemption).
		Build(naming.BuildName(name, "MAC"))

	gates := make([]*gating.Gate, len(b.queues))
	for i, q := range b.queues {
		gates[i] = gating.NewGate(i, q.Express)
	}

	var err error

	p.controller, err = gating.MakeBuilder().
		WithClock(b.clock).
		WithPort(p.mac).
		WithGates(gates...).
		WithHoldAndRelease(b.holdAndRelease).
		WithIdentity(b.switchName, b.portID).
		WithDescription(b.desc).
		Build(naming.BuildName(name, "GateController"))
	if err != nil {
		return nil, err
	}

	p.selection = shaping.NewSelection(naming.BuildName(name, "Selection"),
		b.engine, p.controller, p.mac)
	p.mac.AcceptListener(p.selection)

	for i, cfg := range b.queues {
		if err := b.addLane(p, i, cfg, gates[i]); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (b Builder) addLane(
	p *EgressPort,
	tc int,
	cfg QueueConfig,
	g *gating.Gate,
) error {
	capacity := cfg.CapacityBits
	if capacity == 0 {
		capacity = 100 * frame.MaxFrameBits
	}

	q := shaping.MakeQueueBuilder().
		WithClock(b.engine).
		WithCapacityBits(capacity).
		WithExpress(cfg.Express).
		Build(naming.BuildNameWithIndex(p.Name(), "Queue", tc))

	var a shaping.Algorithm

	switch cfg.Shaper {
	case StrictPriority, "":
		a = shaping.NewStrictPriority(q, p.selection)
	case CreditBased:
		cbs, err := shaping.MakeCBSBuilder().
			WithEngine(b.engine).
			WithQueue(q).
			WithGate(g).
			WithLink(p.mac).
			WithNotifier(p.selection).
			WithIdleSlopeFactor(cfg.IdleSlopeFactor).
			Build(naming.BuildNameWithIndex(p.Name(), "Shaper", tc))
		if err != nil {
			return err
		}

		a = cbs
	default:
		return tsnerr.NewConfigError(p.Name(), "shaper",
			tsnerr.KindUnsupported, "unknown shaper %q", cfg.Shaper)
	}

	p.queues = append(p.queues, q)
	p.algorithms = append(p.algorithms, a)
	p.selection.AddLane(q, a, g)

	return nil
}
