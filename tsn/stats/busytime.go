package stats

import (
	"container/list"

	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/timing"
)

type interval struct {
	start, end timing.VTime
	completed  bool
}

// BusyTimeTracer measures how long a component is busy between a start and
// an end hook position, such as a MAC between Tx Start and Tx Complete.
// Items are matched by describe, so frames are matched by ID. Overlapping
// intervals count once.
type BusyTimeTracer struct {
	timeTeller timing.TimeTeller
	startPos   *hooking.HookPos
	endPos     *hooking.HookPos
	inflight   map[string]*list.Element
	intervals  *list.List
	busyTime   timing.VTime
}

// NewBusyTimeTracer creates a BusyTimeTracer.
func NewBusyTimeTracer(
	timeTeller timing.TimeTeller,
	startPos, endPos *hooking.HookPos,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		timeTeller: timeTeller,
		startPos:   startPos,
		endPos:     endPos,
		inflight:   make(map[string]*list.Element),
		intervals:  list.New(),
	}
}

// Func records starts and ends.
func (t *BusyTimeTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case t.startPos:
		t.start(describe(ctx.Item))
	case t.endPos:
		t.end(describe(ctx.Item))
	}
}

// BusyTime returns the busy time of the completed intervals.
func (t *BusyTimeTracer) BusyTime() timing.VTime {
	return t.busyTime
}

// TerminateAll ends every open interval now.
func (t *BusyTimeTracer) TerminateAll() {
	now := t.timeTeller.Now()

	for e := t.intervals.Front(); e != nil; e = e.Next() {
		i := e.Value.(*interval)
		if !i.completed {
			i.completed = true
			i.end = now
		}
	}

	clear(t.inflight)
	t.collapse(now)
}

func (t *BusyTimeTracer) start(id string) {
	elem := t.intervals.PushBack(&interval{start: t.timeTeller.Now()})
	t.inflight[id] = elem
}

func (t *BusyTimeTracer) end(id string) {
	elem, ok := t.inflight[id]
	if !ok {
		return
	}

	now := t.timeTeller.Now()
	i := elem.Value.(*interval)
	i.end = now
	i.completed = true

	delete(t.inflight, id)

	t.collapse(now)
}

// collapse folds completed intervals into the busy time once no open
// interval can still overlap them.
func (t *BusyTimeTracer) collapse(now timing.VTime) {
	if start, found := t.firstOpenStart(); found && start < now {
		return
	}

	var finished []*interval

	var next *list.Element
	for e := t.intervals.Front(); e != nil; e = next {
		next = e.Next()

		i := e.Value.(*interval)
		if !i.completed {
			break
		}

		if i.end <= now {
			finished = append(finished, i)
			t.intervals.Remove(e)
		}
	}

	t.busyTime += union(finished)
}

func (t *BusyTimeTracer) firstOpenStart() (timing.VTime, bool) {
	for e := t.intervals.Front(); e != nil; e = e.Next() {
		i := e.Value.(*interval)
		if !i.completed {
			return i.start, true
		}
	}

	return 0, false
}

// union returns the length covered by intervals listed in order of start.
func union(intervals []*interval) timing.VTime {
	var (
		total      timing.VTime
		start, end timing.VTime
		open       bool
	)

	for _, i := range intervals {
		if open && i.start <= end {
			end = max(end, i.end)
			continue
		}

		if open {
			total += end - start
		}

		start, end, open = i.start, i.end, true
	}

	if open {
		total += end - start
	}

	return total
}
