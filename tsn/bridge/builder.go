package bridge

import (
	"log"

	"github.com/miamuminovic/nesting/datarecording"
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/simulation"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/config"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/mac"
	"github.com/miamuminovic/nesting/tsn/port"
	"github.com/miamuminovic/nesting/tsn/relay"
	"github.com/miamuminovic/nesting/tsn/schedule"
	"github.com/miamuminovic/nesting/tsn/stats"
	"github.com/miamuminovic/nesting/tsn/swap"
	"github.com/miamuminovic/nesting/tsn/trafficgen"
)

// HostAddress is the source address of the frames of the attached host.
var HostAddress = frame.MustParseMacAddress("02:00:00:00:00:01")

// Builder creates bridges.
type Builder struct {
	cfg         *config.Config
	logger      *log.Logger
	logEvents   bool
	logFilter   []string
	recorder    datarecording.DataRecorder
	schedule    *schedule.Description
	database    *relay.DatabaseDescription
	plan        *swap.Plan
	ingressPort int
	ingressSet  bool
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{cfg: config.Default()}
}

// WithConfig sets the configuration.
func (b Builder) WithConfig(cfg *config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithLogger logs every hook invocation of every component.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithLogFilter only logs the hook positions with the given names.
func (b Builder) WithLogFilter(names ...string) Builder {
	b.logFilter = names
	return b
}

// WithEventLogging also logs every engine event. It needs a logger.
func (b Builder) WithEventLogging(enabled bool) Builder {
	b.logEvents = enabled
	return b
}

// WithDataRecorder records every hook invocation into the recorder. Without
// it, a recorder is only created when the configuration names a file.
func (b Builder) WithDataRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// WithScheduleDescription sets the schedules instead of reading the
// configured file.
func (b Builder) WithScheduleDescription(d *schedule.Description) Builder {
	b.schedule = d
	return b
}

// WithDatabaseDescription sets the forwarding rules instead of reading the
// configured file.
func (b Builder) WithDatabaseDescription(d *relay.DatabaseDescription) Builder {
	b.database = d
	return b
}

// WithPlan sets the swap plan instead of reading the configured file.
func (b Builder) WithPlan(p *swap.Plan) Builder {
	b.plan = p
	return b
}

// WithIngressPort sets the port the host is attached to. It defaults to the
// port after the egress port.
func (b Builder) WithIngressPort(id int) Builder {
	b.ingressPort = id
	b.ingressSet = true

	return b
}

// Build validates the configuration, reads the described files and wires the
// bridge.
func (b Builder) Build(name string) (*Bridge, error) {
	naming.NameMustBeValid(name)

	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	if err := b.readFiles(); err != nil {
		return nil, err
	}

	br := &Bridge{
		NamedBase:   naming.MakeNamedBase(name),
		cfg:         b.cfg,
		sim:         simulation.NewSimulation(),
		engine:      timing.NewSerialEngineWithResolution(b.cfg.Resolution),
		ingressPort: b.cfg.Port + 1,
	}

	if b.ingressSet {
		br.ingressPort = b.ingressPort
	}

	br.sim.RegisterEngine(br.engine)

	if err := b.buildComponents(br); err != nil {
		return nil, err
	}

	b.attachHooks(br)

	return br, nil
}

func (b *Builder) readFiles() error {
	var err error

	files := b.cfg.Files

	if b.schedule == nil && files.Schedule != "" {
		b.schedule, err = schedule.ReadDescription(files.Schedule, nil)
		if err != nil {
			return err
		}
	}

	if b.database == nil && files.Database != "" {
		b.database, err = relay.ReadDatabaseDescription(files.Database, nil)
		if err != nil {
			return err
		}
	}

	if b.plan == nil && files.Swap != "" {
		b.plan, err = swap.ReadPlan(files.Swap, nil)
		if err != nil {
			return err
		}
	}

	if b.recorder == nil && files.Record != "" {
		b.recorder = datarecording.New(files.Record)
	}

	return nil
}

func (b Builder) buildComponents(br *Bridge) error {
	var err error

	name := br.Name()

	br.clock, err = clock.MakeBuilder().
		WithEngine(br.engine).
		WithRate(b.cfg.ClockRate).
		Build(naming.BuildName(name, "Clock"))
	if err != nil {
		return err
	}

	br.egress, err = port.MakeBuilder().
		WithEngine(br.engine).
		WithClock(br.clock).
		WithTxRate(b.cfg.TxRate).
		WithPreemption(b.cfg.EnablePreemption, b.cfg.HoldAdvance).
		WithHoldAndRelease(b.cfg.EnableHoldAndRelease).
		WithQueues(b.cfg.Queues...).
		WithIdentity(b.cfg.Switch, b.cfg.Port).
		WithDescription(b.schedule).
		Build(naming.BuildNameWithIndex(name, "Port", b.cfg.Port))
	if err != nil {
		return err
	}

	br.egress.MAC().SetReceiver(br)

	fdbBuilder := relay.MakeBuilder().
		WithClock(br.clock).
		WithSwitchID(b.cfg.Switch).
		WithCycle(b.scheduleCycle()).
		WithDescription(b.database)
	if b.cfg.Aging.Enabled {
		fdbBuilder = fdbBuilder.WithAging(b.cfg.Aging.Threshold)
	}

	br.fdb, err = fdbBuilder.Build(naming.BuildName(name, "FDB"))
	if err != nil {
		return err
	}

	br.host, err = trafficgen.MakeBuilder().
		WithClock(br.clock).
		WithSender(br).
		WithHost(b.cfg.Host, HostAddress).
		WithDescription(b.schedule).
		Build(naming.BuildName(name, "Host"))
	if err != nil {
		return err
	}

	if b.plan != nil {
		br.swap, err = swap.MakeBuilder().
			WithClock(br.clock).
			WithPlan(b.plan).
			WithScheduleLoaders(br.egress.Controller(), br.host).
			WithDatabases(br.fdb).
			Build(naming.BuildName(name, "Swap"))
		if err != nil {
			return err
		}
	}

	b.register(br)

	return nil
}

func (b Builder) scheduleCycle() uint64 {
	if b.schedule == nil || b.schedule.Cycle == nil {
		return 0
	}

	return *b.schedule.Cycle
}

func (b Builder) register(br *Bridge) {
	br.sim.RegisterComponent(br)
	br.sim.RegisterComponent(br.clock)
	br.sim.RegisterComponent(br.egress.MAC())
	br.sim.RegisterComponent(br.egress.Controller())
	br.sim.RegisterComponent(br.egress.Selection())

	for tc := 0; tc < br.egress.NumQueues(); tc++ {
		br.sim.RegisterComponent(br.egress.Queue(tc))

		if a, ok := br.egress.Algorithm(tc).(naming.Named); ok {
			br.sim.RegisterComponent(a)
		}
	}

	br.sim.RegisterComponent(br.fdb)
	br.sim.RegisterComponent(br.host)

	if br.swap != nil {
		br.sim.RegisterComponent(br.swap)
	}
}

func (b Builder) attachHooks(br *Bridge) {
	br.recorder = b.recorder
	br.counter = stats.NewRecorder(br.engine, b.recorder)
	br.sim.AcceptHookAll(br.counter)

	br.txBusy = stats.NewBusyTimeTracer(br.engine,
		mac.HookPosTxStart, mac.HookPosTxComplete)
	br.egress.MAC().AcceptHook(br.txBusy)

	if b.logger == nil {
		return
	}

	br.sim.AcceptHookAll(hooking.NewPosFilter(
		stats.NewLogHook(b.logger, br.engine), b.logFilter...))

	if b.logEvents {
		br.engine.AcceptHook(timing.NewEventLogger(b.logger))
	}
}
