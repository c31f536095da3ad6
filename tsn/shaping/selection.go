package shaping

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/gating"
	"github.com/miamuminovic/nesting/tsn/mac"
)

// HookPosFrameSelected fires when a frame is handed to the transmitter. The
// item is the frame and the detail is its traffic class.
var HookPosFrameSelected = &hooking.HookPos{Name: "Frame Selected"}

// A BudgetCalculator tells how many bits a gate still lets through.
type BudgetCalculator interface {
	CalculateMaxBit(gateIndex int) uint64
}

// A Transmitter puts frames on the wire one at a time.
type Transmitter interface {
	IsBusy() bool
	IsOnHold() bool
	Send(f *frame.Frame)
}

type lane struct {
	queue     *Queue
	algorithm Algorithm
	gate      *gating.Gate
}

type selectEvent struct {
	timing.EventBase
}

// Selection is strict priority transmission selection: whenever the
// transmitter is free, the highest traffic class whose gate is open and
// whose algorithm offers a frame within the gate's budget sends.
//
// Selection runs as a secondary event, after all state changes of the same
// instant have been applied.
type Selection struct {
	hooking.HookableBase
	naming.NamedBase

	engine      timing.EventScheduler
	budget      BudgetCalculator
	transmitter Transmitter
	lanes       []lane
	pending     bool
}

// NewSelection creates a selection.
func NewSelection(
	name string,
	engine timing.EventScheduler,
	budget BudgetCalculator,
	transmitter Transmitter,
) *Selection {
	if engine == nil || budget == nil || transmitter == nil {
		panic("selection requires an engine, a budget and a transmitter")
	}

	return &Selection{
		NamedBase:   naming.MakeNamedBase(name),
		engine:      engine,
		budget:      budget,
		transmitter: transmitter,
	}
}

// AddLane adds the next traffic class. Lanes added later have higher
// priority. The selection starts listening to the gate after the algorithm
// so that the algorithm sees gate changes first.
func (s *Selection) AddLane(q *Queue, a Algorithm, g *gating.Gate) {
	s.lanes = append(s.lanes, lane{queue: q, algorithm: a, gate: g})
	g.AcceptListener(s)
}

// PacketReady requests a selection.
func (s *Selection) PacketReady() {
	s.request()
}

// GateStateChanged requests a selection.
func (s *Selection) GateStateChanged(*gating.Gate) {
	s.request()
}

// TransmitterAvailable requests a selection.
func (s *Selection) TransmitterAvailable(*mac.Port) {
	s.request()
}

func (s *Selection) request() {
	if s.pending {
		return
	}

	s.pending = true

	evt := &selectEvent{
		EventBase: timing.MakeEventBase(s.engine.Now(), s),
	}
	evt.MarkSecondary()
	s.engine.Schedule(evt)
}

// Handle runs a selection.
func (s *Selection) Handle(timing.Event) error {
	s.pending = false
	s.selectFrame()

	return nil
}

func (s *Selection) selectFrame() {
	if s.transmitter.IsBusy() {
		return
	}

	onHold := s.transmitter.IsOnHold()

	for tc := len(s.lanes) - 1; tc >= 0; tc-- {
		l := s.lanes[tc]

		if !l.gate.IsOpen() {
			continue
		}

		if onHold && !l.queue.IsExpress() {
			continue
		}

		maxBits := s.budget.CalculateMaxBit(l.gate.Index())
		if l.algorithm.IsEmpty(maxBits) {
			continue
		}

		f := l.queue.Dequeue()
		l.algorithm.Sent(f)
		s.transmitter.Send(f)

		if s.NumHooks() > 0 {
			s.InvokeHook(hooking.HookCtx{
				Domain: s,
				Pos:    HookPosFrameSelected,
				Item:   f,
				Detail: tc,
			})
		}

		return
	}
}
