// Package queueing provides FIFO buffers whose capacity is a budget of
// weight units, such as bits for a frame queue.
package queueing

import (
	"log"

	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
)

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &hooking.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &hooking.HookPos{Name: "Buffer Pop"}

// BufferBuilder is a builder for Buffer.
type BufferBuilder[T any] struct {
	capacity uint64
	weigh    func(T) uint64
}

// WithCapacity defines the capacity of the buffer in weight units.
func (b BufferBuilder[T]) WithCapacity(capacity uint64) BufferBuilder[T] {
	b.capacity = capacity
	return b
}

// WithWeight defines how much of the capacity an element takes. Without it,
// every element weighs 1.
func (b BufferBuilder[T]) WithWeight(weigh func(T) uint64) BufferBuilder[T] {
	b.weigh = weigh
	return b
}

// Build builds a new Buffer.
func (b BufferBuilder[T]) Build(name string) *Buffer[T] {
	naming.NameMustBeValid(name)

	if b.capacity == 0 {
		log.Panicf("buffer %s must have a positive capacity", name)
	}

	weigh := b.weigh
	if weigh == nil {
		weigh = func(T) uint64 { return 1 }
	}

	return &Buffer[T]{
		NamedBase: naming.MakeNamedBase(name),
		capacity:  b.capacity,
		weigh:     weigh,
	}
}

// A Buffer is a FIFO queue. An element can only be pushed if its weight fits
// in the remaining capacity.
type Buffer[T any] struct {
	hooking.HookableBase
	naming.NamedBase

	capacity uint64
	used     uint64
	weigh    func(T) uint64
	elements []T
}

// CanPush reports whether e fits.
func (b *Buffer[T]) CanPush(e T) bool {
	return b.weigh(e) <= b.Available()
}

// Push appends e. It panics if e does not fit.
func (b *Buffer[T]) Push(e T) {
	w := b.weigh(e)
	if w > b.Available() {
		log.Panicf("buffer %s overflow", b.Name())
	}

	b.elements = append(b.elements, e)
	b.used += w

	b.invoke(HookPosBufPush, e)
}

// Pop removes the head element. It reports false if the buffer is empty.
func (b *Buffer[T]) Pop() (T, bool) {
	var zero T

	if len(b.elements) == 0 {
		return zero, false
	}

	e := b.elements[0]
	b.elements[0] = zero
	b.elements = b.elements[1:]
	b.used -= b.weigh(e)

	b.invoke(HookPosBufPop, e)

	return e, true
}

// Peek returns the head element without removing it.
func (b *Buffer[T]) Peek() (T, bool) {
	if len(b.elements) == 0 {
		var zero T
		return zero, false
	}

	return b.elements[0], true
}

// Capacity returns the capacity in weight units.
func (b *Buffer[T]) Capacity() uint64 {
	return b.capacity
}

// Available returns the unused capacity.
func (b *Buffer[T]) Available() uint64 {
	return b.capacity - b.used
}

// Size returns the number of elements.
func (b *Buffer[T]) Size() int {
	return len(b.elements)
}

// Clear removes every element.
func (b *Buffer[T]) Clear() {
	b.elements = nil
	b.used = 0
}

func (b *Buffer[T]) invoke(pos *hooking.HookPos, e T) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(hooking.HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   e,
	})
}
