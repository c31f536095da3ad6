package schedule

import (
	"fmt"

	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
)

// Transmission is what a host schedule entry sends.
type Transmission struct {
	Destination frame.MacAddress
	Priority    frame.VlanTag
}

// Loader selects and builds the schedules of one identity from a
// description. A Loader without a description yields empty schedules.
type Loader struct {
	desc *Description
}

// NewLoader creates a loader. desc may be nil.
func NewLoader(desc *Description) *Loader {
	return &Loader{desc: desc}
}

// EmptySchedule returns a schedule with no entries. A gate controller
// running an empty schedule keeps all gates open.
func EmptySchedule() *Schedule[GateBitvector] {
	return New[GateBitvector]()
}

// DefaultSchedule returns a single all-open entry that spans the cycle.
func DefaultSchedule(cycle uint64) *Schedule[GateBitvector] {
	return New(Entry[GateBitvector]{Length: cycle, Object: AllOpen})
}

// GateSchedule builds the gate schedule of a switch port, falling back to the
// default schedule when the description does not mention the port.
func (l *Loader) GateSchedule(
	switchName string,
	port int,
) (*Schedule[GateBitvector], error) {
	if l.desc == nil {
		return EmptySchedule(), nil
	}

	for _, sw := range l.desc.Switches {
		if sw.Name != switchName {
			continue
		}

		for _, p := range sw.Ports {
			if p.ID == port {
				return l.desc.buildGateSchedule(sw.Name, p)
			}
		}
	}

	return DefaultSchedule(*l.desc.Cycle), nil
}

// HostSchedule builds the transmission schedule of a host, falling back to an
// empty schedule with the declared cycle.
func (l *Loader) HostSchedule(host string) (*HostSchedule[Transmission], error) {
	if l.desc == nil {
		return &HostSchedule[Transmission]{}, nil
	}

	for _, h := range l.desc.Hosts {
		if h.Name == host {
			return l.desc.buildHostSchedule(h)
		}
	}

	s := &HostSchedule[Transmission]{}
	s.SetCycle(*l.desc.Cycle)

	return s, nil
}

// buildGateSchedule stretches the last entry over any trailing gap, so the
// last gate state holds until the cycle ends.
func (d *Description) buildGateSchedule(
	switchName string,
	p PortDescription,
) (*Schedule[GateBitvector], error) {
	cycle := *d.Cycle
	entries := make([]Entry[GateBitvector], 0, len(p.Entries))
	total := uint64(0)

	for i, e := range p.Entries {
		field := fmt.Sprintf("switches[%s].ports[%d].entries[%d]",
			switchName, p.ID, i)

		if e.Length == nil {
			return nil, tsnerr.NewConfigError(component, field+".length",
				tsnerr.KindMissingField, "length is required")
		}

		if e.Bitvector == nil {
			return nil, tsnerr.NewConfigError(component, field+".bitvector",
				tsnerr.KindMissingField, "bitvector is required")
		}

		bv, err := ParseGateBitvector(*e.Bitvector)
		if err != nil {
			return nil, &tsnerr.ConfigError{
				Component: component,
				Field:     field + ".bitvector",
				Kind:      tsnerr.KindMalformed,
				Err:       err,
			}
		}

		total += *e.Length
		entries = append(entries,
			Entry[GateBitvector]{Length: *e.Length, Object: bv})
	}

	if total > cycle {
		return nil, tsnerr.NewConfigError(component,
			fmt.Sprintf("switches[%s].ports[%d]", switchName, p.ID),
			tsnerr.KindOutOfRange,
			"entries last %d ticks, longer than the cycle of %d", total, cycle)
	}

	if len(entries) > 0 {
		entries[len(entries)-1].Length += cycle - total
	}

	return New(entries...), nil
}

func (d *Description) buildHostSchedule(
	h HostDescription,
) (*HostSchedule[Transmission], error) {
	s := &HostSchedule[Transmission]{}
	s.SetCycle(*d.Cycle)

	last := uint64(0)

	for i, e := range h.Entries {
		field := fmt.Sprintf("hosts[%s].entries[%d]", h.Name, i)

		t, err := buildTransmission(field, e)
		if err != nil {
			return nil, err
		}

		if *e.Start < last || *e.Start >= s.Cycle() {
			return nil, tsnerr.NewConfigError(component, field+".start",
				tsnerr.KindOutOfRange,
				"start %d must be ordered and inside the cycle of %d",
				*e.Start, s.Cycle())
		}

		last = *e.Start
		s.AddEntry(*e.Start, *e.Size, t)
	}

	return s, nil
}

func buildTransmission(
	field string,
	e HostEntryDescription,
) (Transmission, error) {
	switch {
	case e.Start == nil:
		return Transmission{}, tsnerr.NewConfigError(component,
			field+".start", tsnerr.KindMissingField, "start is required")
	case e.Size == nil:
		return Transmission{}, tsnerr.NewConfigError(component,
			field+".size", tsnerr.KindMissingField, "size is required")
	case e.Destination == nil:
		return Transmission{}, tsnerr.NewConfigError(component,
			field+".destination", tsnerr.KindMissingField,
			"destination is required")
	case e.Priority == nil:
		return Transmission{}, tsnerr.NewConfigError(component,
			field+".priority", tsnerr.KindMissingField,
			"priority is required")
	}

	if *e.Size < 0 || *e.Size > frame.MTUBytes {
		return Transmission{}, tsnerr.NewConfigError(component,
			field+".size", tsnerr.KindOutOfRange,
			"size %d is not between 0 and %d", *e.Size, frame.MTUBytes)
	}

	dst, err := frame.ParseMacAddress(*e.Destination)
	if err != nil {
		return Transmission{}, &tsnerr.ConfigError{
			Component: component,
			Field:     field + ".destination",
			Kind:      tsnerr.KindMalformed,
			Err:       err,
		}
	}

	if err := e.Priority.Validate(); err != nil {
		return Transmission{}, &tsnerr.ConfigError{
			Component: component,
			Field:     field + ".priority",
			Kind:      tsnerr.KindOutOfRange,
			Err:       err,
		}
	}

	return Transmission{Destination: dst, Priority: *e.Priority}, nil
}
