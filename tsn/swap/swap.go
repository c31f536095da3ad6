// Package swap reconfigures a running network at planned times: it hands new
// gate schedules, host schedules and forwarding rules to the components that
// apply them at their next cycle boundary.
package swap

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/relay"
	"github.com/miamuminovic/nesting/tsn/schedule"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
)

// HookPosSwapApplied fires after an entry of the plan was handed out. The
// item is the index of the entry.
var HookPosSwapApplied = &hooking.HookPos{Name: "Swap Applied"}

// A ScheduleLoader takes a new schedule description. Gate controllers and
// traffic generators are schedule loaders.
type ScheduleLoader interface {
	LoadScheduleOrDefault(desc *schedule.Description) error
}

// A DatabaseLoader takes new forwarding rules.
type DatabaseLoader interface {
	LoadDatabase(desc *relay.DatabaseDescription, cycle uint64) error
}

// ScheduleSwap walks a plan, one entry per subscribed tick.
type ScheduleSwap struct {
	hooking.HookableBase
	naming.NamedBase

	plan      *Plan
	schedules []ScheduleLoader
	databases []DatabaseLoader
	index     int
}

// Index returns the index of the next entry to apply.
func (s *ScheduleSwap) Index() int {
	return s.index
}

// Tick applies the next entry and waits for its length.
func (s *ScheduleSwap) Tick(c clock.Clock) {
	if s.index >= len(s.plan.Entries) {
		return
	}

	e := s.plan.Entries[s.index]
	s.apply(e)

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosSwapApplied,
			Item:   s.index,
		})
	}

	s.index++

	if s.index < len(s.plan.Entries) {
		c.SubscribeTick(s, e.Length)
	}
}

func (s *ScheduleSwap) apply(e Entry) {
	if e.Schedule != nil {
		for _, l := range s.schedules {
			err := l.LoadScheduleOrDefault(e.Schedule)
			tsnerr.Must(err == nil, s.Name(),
				"validated schedule failed to load: %v", err)
		}
	}

	if e.Routing != nil {
		for _, db := range s.databases {
			err := db.LoadDatabase(e.Routing, e.RoutingCycle())
			tsnerr.Must(err == nil, s.Name(),
				"validated routing failed to load: %v", err)
		}
	}
}

// Builder creates schedule swaps.
type Builder struct {
	clock     clock.Clock
	plan      *Plan
	schedules []ScheduleLoader
	databases []DatabaseLoader
}

// MakeBuilder creates a builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithClock sets the clock that times the plan.
func (b Builder) WithClock(c clock.Clock) Builder {
	b.clock = c
	return b
}

// WithPlan sets the plan to walk.
func (b Builder) WithPlan(p *Plan) Builder {
	b.plan = p
	return b
}

// WithScheduleLoaders adds components that take new schedules.
func (b Builder) WithScheduleLoaders(loaders ...ScheduleLoader) Builder {
	b.schedules = append(b.schedules, loaders...)
	return b
}

// WithDatabases adds filtering databases that take new rules.
func (b Builder) WithDatabases(dbs ...DatabaseLoader) Builder {
	b.databases = append(b.databases, dbs...)
	return b
}

// Build creates the swap. The plan is validated up front and its first entry
// is applied at the current time.
func (b Builder) Build(name string) (*ScheduleSwap, error) {
	if b.clock == nil {
		panic("schedule swap requires a clock")
	}

	if b.plan == nil {
		return nil, tsnerr.NewConfigError(name, "plan",
			tsnerr.KindMissingField, "a plan is required")
	}

	if err := b.plan.Validate(); err != nil {
		return nil, err
	}

	s := &ScheduleSwap{
		NamedBase: naming.MakeNamedBase(name),
		plan:      b.plan,
		schedules: b.schedules,
		databases: b.databases,
	}

	b.clock.SubscribeTick(s, 0)

	return s, nil
}
