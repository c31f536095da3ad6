// Package shaping holds the per traffic class queues, the transmission
// selection algorithms that guard them and the strict priority selection
// that picks the next frame for the MAC.
package shaping

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/queueing"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/frame"
)

// Hook positions of a queue. The item is the frame.
var (
	HookPosFrameEnqueued = &hooking.HookPos{Name: "Frame Enqueued"}
	HookPosFrameDropped  = &hooking.HookPos{Name: "Frame Dropped"}

	// The detail of a dequeue is the time the frame spent in the queue.
	HookPosFrameDequeued = &hooking.HookPos{Name: "Frame Dequeued"}
)

type queuedFrame struct {
	frame      *frame.Frame
	enqueuedAt timing.VTime
}

// Queue is a FIFO of frames bounded by the number of bits it holds. Frames
// that do not fit are dropped.
type Queue struct {
	hooking.HookableBase
	naming.NamedBase

	clock     timing.TimeTeller
	buf       *queueing.Buffer[queuedFrame]
	express   bool
	algorithm Algorithm

	numReceived uint64
	numEnqueued uint64
	numDropped  uint64
}

// QueueBuilder creates queues.
type QueueBuilder struct {
	clock        timing.TimeTeller
	capacityBits uint64
	express      bool
}

// MakeQueueBuilder creates a builder for a queue of 100 maximum sized frames.
func MakeQueueBuilder() QueueBuilder {
	return QueueBuilder{capacityBits: 100 * frame.MaxFrameBits}
}

// WithClock sets where enqueue times are read from.
func (b QueueBuilder) WithClock(c timing.TimeTeller) QueueBuilder {
	b.clock = c
	return b
}

// WithCapacityBits sets the number of frame bits the queue holds.
func (b QueueBuilder) WithCapacityBits(bits uint64) QueueBuilder {
	b.capacityBits = bits
	return b
}

// WithExpress marks the queue as preemption eligible.
func (b QueueBuilder) WithExpress(express bool) QueueBuilder {
	b.express = express
	return b
}

// Build creates the queue.
func (b QueueBuilder) Build(name string) *Queue {
	if b.clock == nil {
		panic("queue requires a clock")
	}

	if b.capacityBits == 0 {
		panic("queue capacity cannot be 0")
	}

	return &Queue{
		NamedBase: naming.MakeNamedBase(name),
		clock:     b.clock,
		buf: queueing.BufferBuilder[queuedFrame]{}.
			WithCapacity(b.capacityBits).
			WithWeight(func(qf queuedFrame) uint64 {
				return qf.frame.BitLength()
			}).
			Build(naming.BuildName(name, "Buffer")),
		express: b.express,
	}
}

// SetAlgorithm connects the transmission selection algorithm that is told
// about every arriving frame.
func (q *Queue) SetAlgorithm(a Algorithm) {
	q.algorithm = a
}

// IsExpress reports whether the queue is preemption eligible.
func (q *Queue) IsExpress() bool {
	return q.express
}

// Enqueue stores the frame or drops it when the queue is full.
func (q *Queue) Enqueue(f *frame.Frame) {
	q.numReceived++

	qf := queuedFrame{frame: f, enqueuedAt: q.clock.Now()}

	if !q.buf.CanPush(qf) {
		q.numDropped++
		q.invoke(HookPosFrameDropped, f, nil)
	} else {
		q.buf.Push(qf)
		q.numEnqueued++
		q.invoke(HookPosFrameEnqueued, f, nil)
	}

	if q.algorithm != nil && !q.IsEmpty(frame.MaxFrameBits) {
		q.algorithm.PacketEnqueued()
	}
}

// Dequeue removes the head frame. It returns nil if the queue is empty.
func (q *Queue) Dequeue() *frame.Frame {
	qf, ok := q.buf.Pop()
	if !ok {
		return nil
	}

	q.invoke(HookPosFrameDequeued, qf.frame, q.clock.Now()-qf.enqueuedAt)

	return qf.frame
}

// Front returns the head frame without removing it.
func (q *Queue) Front() *frame.Frame {
	qf, ok := q.buf.Peek()
	if !ok {
		return nil
	}

	return qf.frame
}

// IsEmpty reports whether no frame can be offered within maxBits: the queue
// is empty or its head frame, with the per frame overhead, is larger.
func (q *Queue) IsEmpty(maxBits uint64) bool {
	f := q.Front()
	if f == nil {
		return true
	}

	return f.AdmissionBits() > maxBits
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	return q.buf.Size()
}

// AvailableBits returns the free capacity.
func (q *Queue) AvailableBits() uint64 {
	return q.buf.Available()
}

// NumReceived returns the number of frames offered to the queue.
func (q *Queue) NumReceived() uint64 {
	return q.numReceived
}

// NumEnqueued returns the number of frames accepted.
func (q *Queue) NumEnqueued() uint64 {
	return q.numEnqueued
}

// NumDropped returns the number of frames dropped on overflow.
func (q *Queue) NumDropped() uint64 {
	return q.numDropped
}

func (q *Queue) invoke(pos *hooking.HookPos, f *frame.Frame, detail any) {
	if q.NumHooks() == 0 {
		return
	}

	q.InvokeHook(hooking.HookCtx{
		Domain: q,
		Pos:    pos,
		Item:   f,
		Detail: detail,
	})
}
