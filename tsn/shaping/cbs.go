package shaping

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/gating"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
)

// HookPosCreditUpdate fires on every state change of a credit based shaper.
// The item is the credit in bits and the detail is the new CreditState.
var HookPosCreditUpdate = &hooking.HookPos{Name: "Credit Update"}

// CreditState is the state of a credit based shaper.
type CreditState int

// Credit states.
const (
	StateIdle CreditState = iota
	StateEarnCredit
	StateSpendCredit
)

func (s CreditState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEarnCredit:
		return "earnCredit"
	case StateSpendCredit:
		return "spendCredit"
	default:
		return "unknown"
	}
}

// Credit is kept in millionths of a bit.
const creditScale = 1_000_000

// A slope in bit/s times a duration in ps, divided by this, is credit.
const slopeTimeDivisor = uint64(timing.Second) / creditScale

// A Link is the transmit path the shaper spends its credit on.
type Link interface {
	TxRate() frame.DataRate
	TxTime(f *frame.Frame) timing.VTime
}

type zeroCreditEvent struct {
	timing.EventBase
}

type endSpendingEvent struct {
	timing.EventBase
}

// CreditBasedShaper is the IEEE 802.1Qav shaper guarding one queue. Credit
// grows at the idle slope while the gate is open and a frame waits, and
// shrinks at the send slope while a frame is transmitted. A frame may only
// start when credit is not negative.
type CreditBasedShaper struct {
	hooking.HookableBase
	naming.NamedBase

	engine          timing.EventScheduler
	queue           *Queue
	gate            *gating.Gate
	link            Link
	notifier        ReadyNotifier
	idleSlopeFactor float64

	credit     int64
	state      CreditState
	lastEvent  timing.VTime
	zeroCredit *zeroCreditEvent
	endSpend   *endSpendingEvent
}

// Credit returns the current credit in bits.
func (s *CreditBasedShaper) Credit() float64 {
	return float64(s.credit) / creditScale
}

// State returns the current state.
func (s *CreditBasedShaper) State() CreditState {
	return s.state
}

// IdleSlope is the rate at which credit is earned.
func (s *CreditBasedShaper) IdleSlope() frame.DataRate {
	return frame.DataRate(s.idleSlopeFactor * float64(s.link.TxRate()))
}

// SendSlope is the rate at which credit is spent.
func (s *CreditBasedShaper) SendSlope() frame.DataRate {
	return s.link.TxRate() - s.IdleSlope()
}

func creditsForTime(slope frame.DataRate, d timing.VTime) int64 {
	return int64(frame.MulDiv(uint64(slope), uint64(d), slopeTimeDivisor))
}

func timeForCredits(slope frame.DataRate, credit int64) timing.VTime {
	return timing.VTime(
		frame.MulDivCeil(uint64(credit), slopeTimeDivisor, uint64(slope)))
}

func (s *CreditBasedShaper) isCreditPositive() bool {
	return s.credit >= 0
}

func (s *CreditBasedShaper) isPacketReady() bool {
	return !s.queue.IsEmpty(frame.MaxFrameBits)
}

// IsEmpty reports whether the queue cannot send within maxBits, either
// because of negative credit or because its head frame does not fit.
func (s *CreditBasedShaper) IsEmpty(maxBits uint64) bool {
	return !s.isCreditPositive() || s.queue.IsEmpty(maxBits)
}

// GateStateChanged starts earning when the gate opens on a waiting frame and
// stops earning when it closes.
func (s *CreditBasedShaper) GateStateChanged(g *gating.Gate) {
	if g.IsOpen() {
		if s.state == StateIdle && s.isPacketReady() {
			s.updateState(StateEarnCredit)

			if !s.isCreditPositive() {
				s.scheduleZeroCredit()
			}
		}

		return
	}

	if s.state == StateEarnCredit {
		s.cancelZeroCredit()
		s.earnCredits()
		s.updateState(StateIdle)
	}
}

// PacketEnqueued restarts earning from now and tells the selection when the
// queue may send.
func (s *CreditBasedShaper) PacketEnqueued() {
	if !s.isPacketReady() {
		tsnerr.Violate(s.Name(), "packet enqueued without a ready frame")
	}

	switch {
	case s.state == StateIdle && s.gate.IsOpen():
		s.updateState(StateEarnCredit)
	case s.state == StateEarnCredit:
		s.cancelZeroCredit()
		s.earnCredits()
		s.updateState(StateEarnCredit)
	}

	if s.state == StateEarnCredit && !s.isCreditPositive() {
		s.scheduleZeroCredit()
	}

	if s.isCreditPositive() {
		s.notifier.PacketReady()
	}
}

// Sent spends the credit for transmitting f.
func (s *CreditBasedShaper) Sent(f *frame.Frame) {
	if s.state == StateSpendCredit {
		tsnerr.Violate(s.Name(), "send while already spending credit")
	}

	if !s.isCreditPositive() {
		tsnerr.Violate(s.Name(), "send with negative credit %f", s.Credit())
	}

	if s.zeroCredit != nil {
		tsnerr.Violate(s.Name(), "send while waiting for zero credit")
	}

	if s.state == StateEarnCredit {
		s.earnCredits()
	}

	txTime := s.link.TxTime(f)
	s.credit -= creditsForTime(s.SendSlope(), txTime)

	s.endSpend = &endSpendingEvent{
		EventBase: timing.MakeEventBase(s.engine.Now()+txTime, s),
	}
	s.engine.Schedule(s.endSpend)

	s.updateState(StateSpendCredit)
}

// Handle processes the shaper's own events.
func (s *CreditBasedShaper) Handle(e timing.Event) error {
	switch evt := e.(type) {
	case *endSpendingEvent:
		s.handleEndSpending(evt)
	case *zeroCreditEvent:
		s.handleZeroCredit(evt)
	default:
		tsnerr.Violate(s.Name(), "cannot handle event of type %T", e)
	}

	return nil
}

func (s *CreditBasedShaper) handleEndSpending(evt *endSpendingEvent) {
	if s.state != StateSpendCredit || evt != s.endSpend {
		tsnerr.Violate(s.Name(), "end of spending while in state %s", s.state)
	}

	s.endSpend = nil

	switch {
	case !s.isPacketReady() && s.isCreditPositive():
		s.credit = 0
		s.updateState(StateIdle)
	case s.isPacketReady() && s.gate.IsOpen():
		s.updateState(StateEarnCredit)

		if !s.isCreditPositive() {
			s.scheduleZeroCredit()
		}
	default:
		s.updateState(StateIdle)
	}
}

func (s *CreditBasedShaper) handleZeroCredit(evt *zeroCreditEvent) {
	if evt != s.zeroCredit {
		return
	}

	s.zeroCredit = nil

	if s.state != StateEarnCredit || !s.gate.IsOpen() {
		tsnerr.Violate(s.Name(),
			"zero credit reached in state %s, gate open %t",
			s.state, s.gate.IsOpen())
	}

	s.earnCredits()
	s.updateState(StateEarnCredit)

	if !s.isCreditPositive() {
		tsnerr.Violate(s.Name(),
			"credit %f still negative at zero credit time", s.Credit())
	}

	if s.isPacketReady() {
		s.notifier.PacketReady()
	}
}

func (s *CreditBasedShaper) earnCredits() {
	s.credit += creditsForTime(s.IdleSlope(), s.engine.Now()-s.lastEvent)
}

func (s *CreditBasedShaper) scheduleZeroCredit() {
	wait := timeForCredits(s.IdleSlope(), -s.credit)
	at := (s.engine.Now() + wait).Ceil(s.engine.Resolution())

	s.zeroCredit = &zeroCreditEvent{EventBase: timing.MakeEventBase(at, s)}
	s.engine.Schedule(s.zeroCredit)
}

func (s *CreditBasedShaper) cancelZeroCredit() {
	if s.zeroCredit == nil {
		return
	}

	s.engine.Cancel(s.zeroCredit)
	s.zeroCredit = nil
}

func (s *CreditBasedShaper) updateState(state CreditState) {
	s.state = state
	s.lastEvent = s.engine.Now()

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosCreditUpdate,
			Item:   s.Credit(),
			Detail: state,
		})
	}
}
