package timing

import (
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/miamuminovic/nesting/sim/hooking"
)

// A SerialEngine is an Engine that always run events one after another.
type SerialEngine struct {
	hooking.HookableBase

	timeLock       sync.RWMutex
	time           VTime
	resolution     VTime
	queue          EventQueue
	secondaryQueue EventQueue

	cancelLock sync.Mutex
	cancelled  map[string]struct{}

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewSerialEngine creates a SerialEngine with a one-nanosecond resolution.
func NewSerialEngine() *SerialEngine {
	return NewSerialEngineWithResolution(Nanosecond)
}

// NewSerialEngineWithResolution creates a SerialEngine whose event times must
// be multiples of the given resolution.
func NewSerialEngineWithResolution(resolution VTime) *SerialEngine {
	if resolution == 0 {
		log.Panic("engine resolution cannot be 0")
	}

	e := new(SerialEngine)

	e.resolution = resolution
	e.queue = NewEventQueue()
	e.secondaryQueue = NewEventQueue()
	e.cancelled = make(map[string]struct{})

	return e
}

// Name returns the name of the engine.
func (e *SerialEngine) Name() string {
	return "SerialEngine"
}

// Resolution returns the time quantum of the engine.
func (e *SerialEngine) Resolution() VTime {
	return e.resolution
}

// Schedule register an event to be happen in the future
func (e *SerialEngine) Schedule(evt Event) {
	now := e.readNow()
	if evt.Time() < now {
		log.Panicf(
			"scheduling an event earlier than current time, evt %s @ %s, now %s",
			reflect.TypeOf(evt), evt.Time(), now,
		)
	}

	if evt.Time()%e.resolution != 0 {
		log.Panicf(
			"event time %s is not a multiple of the engine resolution %s",
			evt.Time(), e.resolution,
		)
	}

	if evt.IsSecondary() {
		e.secondaryQueue.Push(evt)

		return
	}

	e.queue.Push(evt)
}

// Cancel marks an event so that it is dropped instead of handled.
func (e *SerialEngine) Cancel(evt Event) {
	e.cancelLock.Lock()
	e.cancelled[evt.ID()] = struct{}{}
	e.cancelLock.Unlock()
}

func (e *SerialEngine) takeCancelled(evt Event) bool {
	e.cancelLock.Lock()
	defer e.cancelLock.Unlock()

	if _, ok := e.cancelled[evt.ID()]; ok {
		delete(e.cancelled, evt.ID())
		return true
	}

	return false
}

func (e *SerialEngine) readNow() VTime {
	e.timeLock.RLock()
	t := e.time
	e.timeLock.RUnlock()

	return t
}

func (e *SerialEngine) writeNow(t VTime) {
	e.timeLock.Lock()
	e.time = t
	e.timeLock.Unlock()
}

// Run processes all the events scheduled in the SerialEngine
func (e *SerialEngine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for !e.noMoreEvent() {
		if err := e.runNext(); err != nil {
			return err
		}
	}

	return nil
}

// RunUntil processes the events that happen no later than the deadline and
// then moves the engine time to the deadline.
func (e *SerialEngine) RunUntil(deadline VTime) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	if deadline < e.readNow() {
		return fmt.Errorf("timing: deadline %s is in the past", deadline)
	}

	for !e.noMoreEvent() && e.peekNext().Time() <= deadline {
		if err := e.runNext(); err != nil {
			return err
		}
	}

	e.writeNow(deadline)

	return nil
}

func (e *SerialEngine) runNext() error {
	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	evt := e.nextEvent()
	if e.takeCancelled(evt) {
		return nil
	}

	now := e.readNow()
	if evt.Time() < now {
		log.Panicf(
			"cannot run event in the past, evt %s @ %s, now %s",
			reflect.TypeOf(evt), evt.Time(), now,
		)
	}

	e.writeNow(evt.Time())

	hookCtx := hooking.HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(hookCtx)

	err := evt.Handler().Handle(evt)

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)

	return err
}

func (e *SerialEngine) noMoreEvent() bool {
	return e.queue.Len() == 0 && e.secondaryQueue.Len() == 0
}

func (e *SerialEngine) peekNext() Event {
	if e.queue.Len() == 0 {
		return e.secondaryQueue.Peek()
	}

	if e.secondaryQueue.Len() == 0 {
		return e.queue.Peek()
	}

	primaryEvt := e.queue.Peek()
	secondaryEvt := e.secondaryQueue.Peek()

	if primaryEvt.Time() <= secondaryEvt.Time() {
		return primaryEvt
	}

	return secondaryEvt
}

func (e *SerialEngine) nextEvent() Event {
	if e.queue.Len() == 0 {
		return e.secondaryQueue.Pop()
	}

	if e.secondaryQueue.Len() == 0 {
		return e.queue.Pop()
	}

	primaryEvt := e.queue.Peek()
	secondaryEvt := e.secondaryQueue.Peek()

	if primaryEvt.Time() <= secondaryEvt.Time() {
		e.queue.Pop()
		return primaryEvt
	}

	e.secondaryQueue.Pop()

	return secondaryEvt
}

// Pause prevents the SerialEngine to trigger more events.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the SerialEngine to trigger more events.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// Now returns the current time at which the engine is at.
// Specifically, the run time of the current event.
func (e *SerialEngine) Now() VTime {
	return e.readNow()
}
