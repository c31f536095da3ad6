// Package stats turns the hooks of TSN components into counters, log lines
// and recorded rows.
package stats

import (
	"fmt"

	"github.com/miamuminovic/nesting/datarecording"
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/frame"
)

// EventTable is the table the Recorder writes into.
const EventTable = "tsn_event"

// Event is one row of the event table. Time is in picoseconds.
type Event struct {
	Time      uint64
	Component string
	What      string
	Item      string
	Detail    string
}

// Recorder is a hook that counts the hook positions it sees and, when given
// a DataRecorder, stores every invocation as an Event.
type Recorder struct {
	timeTeller timing.TimeTeller
	recorder   datarecording.DataRecorder

	names  []string
	counts map[string]uint64
}

// NewRecorder creates a Recorder. recorder may be nil to only count.
func NewRecorder(
	timeTeller timing.TimeTeller,
	recorder datarecording.DataRecorder,
) *Recorder {
	r := &Recorder{
		timeTeller: timeTeller,
		recorder:   recorder,
		counts:     make(map[string]uint64),
	}

	if recorder != nil {
		recorder.CreateTable(EventTable, Event{})
	}

	return r
}

// Names returns the hook positions seen, in order of first appearance.
func (r *Recorder) Names() []string {
	return r.names
}

// Count returns how often a hook position was seen.
func (r *Recorder) Count(pos *hooking.HookPos) uint64 {
	return r.counts[pos.Name]
}

// Func counts and records the invocation.
func (r *Recorder) Func(ctx hooking.HookCtx) {
	if _, seen := r.counts[ctx.Pos.Name]; !seen {
		r.names = append(r.names, ctx.Pos.Name)
	}

	r.counts[ctx.Pos.Name]++

	if r.recorder == nil {
		return
	}

	r.recorder.InsertData(EventTable, Event{
		Time:      uint64(r.timeTeller.Now()),
		Component: domainName(ctx.Domain),
		What:      ctx.Pos.Name,
		Item:      describe(ctx.Item),
		Detail:    describe(ctx.Detail),
	})
}

func domainName(d hooking.Hookable) string {
	if n, ok := d.(naming.Named); ok {
		return n.Name()
	}

	return fmt.Sprintf("%T", d)
}

func describe(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case *frame.Frame:
		return v.ID
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
