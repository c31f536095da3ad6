// Package mac models the egress MAC of a port: it serializes one frame at a
// time at the link rate and can be put on hold ahead of express traffic.
package mac

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
)

// Hook positions of a port. Frame hooks carry the frame as the item.
var (
	HookPosTxStart    = &hooking.HookPos{Name: "Tx Start"}
	HookPosTxComplete = &hooking.HookPos{Name: "Tx Complete"}
	HookPosHold       = &hooking.HookPos{Name: "Hold"}
	HookPosRelease    = &hooking.HookPos{Name: "Release"}
)

// A TxListener is told when the port becomes available again, either because
// a transmission completed or because a hold was released.
type TxListener interface {
	TransmitterAvailable(p *Port)
}

// A Receiver takes the frames the port puts on the wire.
type Receiver interface {
	Receive(f *frame.Frame)
}

type holdEvent struct {
	timing.EventBase
}

type txCompleteEvent struct {
	timing.EventBase
	frame *frame.Frame
}

// Port is a full duplex egress MAC.
type Port struct {
	hooking.HookableBase
	naming.NamedBase

	engine      timing.EventScheduler
	txRate      frame.DataRate
	holdAdvance timing.VTime
	preemption  bool
	receiver    Receiver

	onHold      bool
	pendingHold *holdEvent
	current     *frame.Frame
	listeners   []TxListener
	numSent     uint64
	numBitsSent uint64
}

// TxRate returns the link rate.
func (p *Port) TxRate() frame.DataRate {
	return p.txRate
}

// HoldAdvance returns how long before an express window the hold starts.
func (p *Port) HoldAdvance() timing.VTime {
	return p.holdAdvance
}

// PreemptionEnabled reports whether frame preemption is configured.
func (p *Port) PreemptionEnabled() bool {
	return p.preemption
}

// IsOnHold reports whether preemptable frames are held back.
func (p *Port) IsOnHold() bool {
	return p.onHold
}

// IsBusy reports whether a frame is being transmitted.
func (p *Port) IsBusy() bool {
	return p.current != nil
}

// NumSent returns the number of frames transmitted.
func (p *Port) NumSent() uint64 {
	return p.numSent
}

// NumBitsSent returns the on-wire bits of all transmitted frames.
func (p *Port) NumBitsSent() uint64 {
	return p.numBitsSent
}

// AcceptListener registers a listener for transmitter availability.
func (p *Port) AcceptListener(l TxListener) {
	p.listeners = append(p.listeners, l)
}

// SetReceiver connects the far end of the link.
func (p *Port) SetReceiver(r Receiver) {
	p.receiver = r
}

// Hold puts the port on hold after delay. A hold that is already pending is
// replaced.
func (p *Port) Hold(delay timing.VTime) {
	if p.pendingHold != nil {
		p.engine.Cancel(p.pendingHold)
	}

	at := (p.engine.Now() + delay).Ceil(p.engine.Resolution())
	p.pendingHold = &holdEvent{EventBase: timing.MakeEventBase(at, p)}
	p.engine.Schedule(p.pendingHold)
}

// Release ends a hold and drops a hold that is still pending.
func (p *Port) Release() {
	if p.pendingHold != nil {
		p.engine.Cancel(p.pendingHold)
		p.pendingHold = nil
	}

	if !p.onHold {
		return
	}

	p.onHold = false
	p.invoke(HookPosRelease, nil)
	p.notifyAvailable()
}

// Send starts transmitting a frame. The port must not be busy.
func (p *Port) Send(f *frame.Frame) {
	if p.current != nil {
		tsnerr.Violate(p.Name(), "send while transmitting frame %s", p.current.ID)
	}

	p.current = f

	at := (p.engine.Now() + p.TxTime(f)).Ceil(p.engine.Resolution())
	p.engine.Schedule(&txCompleteEvent{
		EventBase: timing.MakeEventBase(at, p),
		frame:     f,
	})

	p.invoke(HookPosTxStart, f)
}

// TxTime returns how long the frame occupies the link.
func (p *Port) TxTime(f *frame.Frame) timing.VTime {
	return p.txRate.TxTime(f.WireBitLength()).Ceil(p.engine.Resolution())
}

// Handle processes the events of the port.
func (p *Port) Handle(e timing.Event) error {
	switch evt := e.(type) {
	case *holdEvent:
		p.handleHold(evt)
	case *txCompleteEvent:
		p.handleTxComplete(evt)
	default:
		tsnerr.Violate(p.Name(), "cannot handle event of type %T", e)
	}

	return nil
}

func (p *Port) handleHold(evt *holdEvent) {
	if evt != p.pendingHold {
		return
	}

	p.pendingHold = nil
	p.onHold = true
	p.invoke(HookPosHold, nil)
}

func (p *Port) handleTxComplete(evt *txCompleteEvent) {
	p.current = nil
	p.numSent++
	p.numBitsSent += evt.frame.WireBitLength()

	p.invoke(HookPosTxComplete, evt.frame)

	if p.receiver != nil {
		p.receiver.Receive(evt.frame)
	}

	p.notifyAvailable()
}

func (p *Port) notifyAvailable() {
	for _, l := range p.listeners {
		l.TransmitterAvailable(p)
	}
}

func (p *Port) invoke(pos *hooking.HookPos, item interface{}) {
	if p.NumHooks() == 0 {
		return
	}

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    pos,
		Item:   item,
	})
}
