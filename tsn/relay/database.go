// Package relay holds the filtering database of a bridge: the table that maps
// destination addresses to egress ports.
package relay

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/frame"
)

// HookPosDatabaseSwap fires when the administrative table becomes
// operational. The item is the number of operational entries and the detail
// is the cycle now in use.
var HookPosDatabaseSwap = &hooking.HookPos{Name: "Database Swap"}

// HookPosEntryAged fires when a lookup evicts an expired entry. The item is
// the address and the detail the time it was last seen.
var HookPosEntryAged = &hooking.HookPos{Name: "Entry Aged"}

type entry struct {
	lastSeen timing.VTime
	ports    []int
	static   bool
}

// FilteringDatabase keeps two tables. Configured rules are loaded into the
// administrative table and become operational together at the next cycle
// tick. Learned addresses go straight into the operational table and may
// age out.
type FilteringDatabase struct {
	hooking.HookableBase
	naming.NamedBase

	clock          clock.Clock
	switchID       string
	agingEnabled   bool
	agingThreshold timing.VTime

	cycle      uint64
	newCycle   uint64
	admin      map[frame.MacAddress]*entry
	oper       map[frame.MacAddress]*entry
	changed    bool
	subscribed bool
}

// Cycle returns the number of ticks between two swap opportunities.
func (db *FilteringDatabase) Cycle() uint64 {
	return db.cycle
}

// Len returns the number of operational entries.
func (db *FilteringDatabase) Len() int {
	return len(db.oper)
}

// NumPending returns the number of entries waiting for the next swap.
func (db *FilteringDatabase) NumPending() int {
	return len(db.admin)
}

// LoadDatabase loads the static rules of this switch into the administrative
// table. They become operational, together with the new cycle, at the next
// tick. Descriptions without this switch, or without static rules for it,
// change nothing. A malformed rule set leaves both tables untouched.
func (db *FilteringDatabase) LoadDatabase(
	desc *DatabaseDescription,
	cycle uint64,
) error {
	sw := desc.find(db.switchID)
	if sw == nil || sw.Static == nil {
		return nil
	}

	rules, err := sw.buildRules()
	if err != nil {
		return err
	}

	db.admin = rules
	db.newCycle = cycle
	db.changed = true

	if !db.subscribed {
		db.subscribed = true
		db.clock.SubscribeTick(db, 0)
	}

	return nil
}

// Tick swaps in a pending table and waits for the next cycle.
func (db *FilteringDatabase) Tick(c clock.Clock) {
	db.subscribed = false

	if db.changed {
		db.admin, db.oper = db.oper, db.admin
		clear(db.admin)
		db.cycle = db.newCycle
		db.changed = false

		if db.NumHooks() > 0 {
			db.InvokeHook(hooking.HookCtx{
				Domain: db,
				Pos:    HookPosDatabaseSwap,
				Item:   len(db.oper),
				Detail: db.cycle,
			})
		}
	}

	if db.cycle == 0 {
		return
	}

	db.subscribed = true
	c.SubscribeTick(db, db.cycle)
}

// Insert learns that addr is reachable through port.
func (db *FilteringDatabase) Insert(
	addr frame.MacAddress,
	port int,
	now timing.VTime,
) {
	db.oper[addr] = &entry{lastSeen: now, ports: []int{port}}
}

// GetPort returns the port of an individual address. It reports false for
// unknown, aged and multicast entries. A hit refreshes the entry.
func (db *FilteringDatabase) GetPort(
	addr frame.MacAddress,
	now timing.VTime,
) (int, bool) {
	e := db.lookup(addr, now)
	if e == nil || len(e.ports) != 1 {
		return 0, false
	}

	return e.ports[0], true
}

// GetPorts returns the ports of a group address. It reports false for
// individual addresses and for unknown or aged entries. A hit refreshes the
// entry.
func (db *FilteringDatabase) GetPorts(
	addr frame.MacAddress,
	now timing.VTime,
) ([]int, bool) {
	if !addr.IsMulticast() {
		return nil, false
	}

	e := db.lookup(addr, now)
	if e == nil {
		return nil, false
	}

	ports := make([]int, len(e.ports))
	copy(ports, e.ports)

	return ports, true
}

// Entries returns a copy of the operational table mapping addresses to ports.
func (db *FilteringDatabase) Entries() map[frame.MacAddress][]int {
	out := make(map[frame.MacAddress][]int, len(db.oper))
	for addr, e := range db.oper {
		out[addr] = append([]int(nil), e.ports...)
	}

	return out
}

func (db *FilteringDatabase) lookup(
	addr frame.MacAddress,
	now timing.VTime,
) *entry {
	e, found := db.oper[addr]
	if !found {
		return nil
	}

	if e.static {
		return e
	}

	if db.agingEnabled && now-e.lastSeen >= db.agingThreshold {
		delete(db.oper, addr)

		if db.NumHooks() > 0 {
			db.InvokeHook(hooking.HookCtx{
				Domain: db,
				Pos:    HookPosEntryAged,
				Item:   addr,
				Detail: e.lastSeen,
			})
		}

		return nil
	}

	e.lastSeen = now

	return e
}
