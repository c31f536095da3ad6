// Package bridge assembles a simulated TSN bridge from a configuration: one
// engine, the logical clock, a time-aware egress port, the filtering database
// and the scheduled host that feeds the bridge.
package bridge

import (
	"slices"

	"github.com/miamuminovic/nesting/datarecording"
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/simulation"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/config"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/gating"
	"github.com/miamuminovic/nesting/tsn/port"
	"github.com/miamuminovic/nesting/tsn/relay"
	"github.com/miamuminovic/nesting/tsn/shaping"
	"github.com/miamuminovic/nesting/tsn/stats"
	"github.com/miamuminovic/nesting/tsn/swap"
	"github.com/miamuminovic/nesting/tsn/trafficgen"
)

// Hook positions of the relay. Frame hooks carry the frame as the item.
// Delivered frames carry their latency as the detail.
var (
	HookPosFrameForwarded = &hooking.HookPos{Name: "Frame Forwarded"}
	HookPosFrameFiltered  = &hooking.HookPos{Name: "Frame Filtered"}
	HookPosFrameDelivered = &hooking.HookPos{Name: "Frame Delivered"}
)

// Bridge relays the frames of its host to the egress port when the filtering
// database allows it.
type Bridge struct {
	hooking.HookableBase
	naming.NamedBase

	cfg         *config.Config
	sim         *simulation.Simulation
	engine      *timing.SerialEngine
	clock       *clock.Base
	egress      *port.EgressPort
	fdb         *relay.FilteringDatabase
	host        *trafficgen.ScheduledGenerator
	swap        *swap.ScheduleSwap
	counter     *stats.Recorder
	txBusy      *stats.BusyTimeTracer
	recorder    datarecording.DataRecorder
	ingressPort int

	numForwarded uint64
	numFiltered  uint64
	numDelivered uint64
	maxLatency   timing.VTime
}

// Summary is the outcome of a run.
type Summary struct {
	Now          timing.VTime
	Generated    uint64
	Forwarded    uint64
	Filtered     uint64
	Dropped      uint64
	Transmitted  uint64
	Delivered    uint64
	MaxLatency   timing.VTime
	LinkBusy     timing.VTime
	GateSwaps    uint64
	TableSwaps   uint64
	EntriesAged  uint64
	PlanEntries  int
	LearnedPorts map[frame.MacAddress][]int
}

// Simulation returns the registry of the bridge's components.
func (b *Bridge) Simulation() *simulation.Simulation {
	return b.sim
}

// Engine returns the engine that runs the bridge.
func (b *Bridge) Engine() *timing.SerialEngine {
	return b.engine
}

// Clock returns the logical clock.
func (b *Bridge) Clock() *clock.Base {
	return b.clock
}

// Egress returns the egress port.
func (b *Bridge) Egress() *port.EgressPort {
	return b.egress
}

// Database returns the filtering database.
func (b *Bridge) Database() *relay.FilteringDatabase {
	return b.fdb
}

// Host returns the generator of the attached host.
func (b *Bridge) Host() *trafficgen.ScheduledGenerator {
	return b.host
}

// Recorder returns the data recorder, or nil when nothing is recorded.
func (b *Bridge) Recorder() datarecording.DataRecorder {
	return b.recorder
}

// IngressPort returns the port the host is attached to.
func (b *Bridge) IngressPort() int {
	return b.ingressPort
}

// Send takes a frame from the host. The source is learned on the ingress
// port. Broadcast and unknown destinations are flooded, which in a single
// egress port bridge means forwarded.
func (b *Bridge) Send(f *frame.Frame) {
	now := b.clock.Now()

	b.fdb.Insert(f.Src, b.ingressPort, now)

	if !b.reachesEgress(f.Dst, now) {
		b.numFiltered++
		b.invoke(HookPosFrameFiltered, f, nil)

		return
	}

	b.numForwarded++
	b.invoke(HookPosFrameForwarded, f, nil)
	b.egress.Send(f)
}

func (b *Bridge) reachesEgress(dst frame.MacAddress, now timing.VTime) bool {
	if dst.IsBroadcast() {
		return true
	}

	if dst.IsMulticast() {
		ports, ok := b.fdb.GetPorts(dst, now)
		return !ok || slices.Contains(ports, b.cfg.Port)
	}

	p, ok := b.fdb.GetPort(dst, now)

	return !ok || p == b.cfg.Port
}

// Receive takes the frames the egress port put on the wire.
func (b *Bridge) Receive(f *frame.Frame) {
	latency := b.engine.Now() - f.CreatedAt

	b.numDelivered++
	b.maxLatency = max(b.maxLatency, latency)
	b.invoke(HookPosFrameDelivered, f, latency)
}

func (b *Bridge) invoke(pos *hooking.HookPos, f *frame.Frame, detail any) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(hooking.HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   f,
		Detail: detail,
	})
}

// Run simulates until the configured duration.
func (b *Bridge) Run() error {
	return b.engine.RunUntil(b.cfg.Duration)
}

// Summary collects the counters of the bridge and its components.
func (b *Bridge) Summary() Summary {
	s := Summary{
		Now:          b.engine.Now(),
		Generated:    b.host.NumSent(),
		Forwarded:    b.numForwarded,
		Filtered:     b.numFiltered,
		Dropped:      b.counter.Count(shaping.HookPosFrameDropped),
		Transmitted:  b.egress.MAC().NumSent(),
		Delivered:    b.numDelivered,
		MaxLatency:   b.maxLatency,
		LinkBusy:     b.txBusy.BusyTime(),
		GateSwaps:    b.counter.Count(gating.HookPosScheduleSwap),
		TableSwaps:   b.counter.Count(relay.HookPosDatabaseSwap),
		EntriesAged:  b.counter.Count(relay.HookPosEntryAged),
		LearnedPorts: b.fdb.Entries(),
	}

	if b.swap != nil {
		s.PlanEntries = b.swap.Index()
	}

	return s
}
