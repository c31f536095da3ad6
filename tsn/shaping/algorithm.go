package shaping

import (
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/gating"
)

// An Algorithm is a transmission selection algorithm guarding one queue.
type Algorithm interface {
	gating.GateListener

	// PacketEnqueued is called when the queue has a frame after an enqueue.
	PacketEnqueued()

	// IsEmpty reports whether the queue has nothing to offer within maxBits.
	IsEmpty(maxBits uint64) bool

	// Sent is called when the head frame of the queue is handed to the MAC.
	Sent(f *frame.Frame)
}

// A ReadyNotifier is told that a queue may have become eligible to send.
type ReadyNotifier interface {
	PacketReady()
}

// StrictPriority passes frames through without shaping.
type StrictPriority struct {
	queue    *Queue
	notifier ReadyNotifier
}

// NewStrictPriority creates the algorithm and attaches it to the queue.
func NewStrictPriority(q *Queue, n ReadyNotifier) *StrictPriority {
	a := &StrictPriority{queue: q, notifier: n}
	q.SetAlgorithm(a)

	return a
}

// GateStateChanged does nothing. The selection listens to gates itself.
func (a *StrictPriority) GateStateChanged(*gating.Gate) {}

// PacketEnqueued notifies the selection.
func (a *StrictPriority) PacketEnqueued() {
	a.notifier.PacketReady()
}

// IsEmpty delegates to the queue.
func (a *StrictPriority) IsEmpty(maxBits uint64) bool {
	return a.queue.IsEmpty(maxBits)
}

// Sent does nothing.
func (a *StrictPriority) Sent(*frame.Frame) {}
