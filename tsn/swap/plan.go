package swap

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/miamuminovic/nesting/tsn/relay"
	"github.com/miamuminovic/nesting/tsn/schedule"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
	"gopkg.in/yaml.v3"
)

// Entry is one reconfiguration step. Length is the number of ticks until the
// next step.
type Entry struct {
	Length   uint64                     `yaml:"length"`
	Schedule *schedule.Description      `yaml:"schedule"`
	Routing  *relay.DatabaseDescription `yaml:"routing"`
}

// RoutingCycle is the swap cycle for the routing of the entry. It comes from
// the routing itself, or else from the schedule.
func (e Entry) RoutingCycle() uint64 {
	switch {
	case e.Routing != nil && e.Routing.Cycle != nil:
		return *e.Routing.Cycle
	case e.Schedule != nil && e.Schedule.Cycle != nil:
		return *e.Schedule.Cycle
	default:
		return 0
	}
}

// Plan is a timed list of reconfigurations.
type Plan struct {
	Entries []Entry `yaml:"entries"`
}

// ReadPlan parses a YAML plan. If data is empty, the named file is read
// instead.
func ReadPlan(filename string, data []byte) (*Plan, error) {
	var err error

	if len(data) == 0 {
		data, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	plan := &Plan{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err = dec.Decode(plan)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &tsnerr.ConfigError{
			Component: "swap",
			Kind:      tsnerr.KindMalformed,
			Err:       err,
		}
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return plan, nil
}

// Validate checks every schedule and routing description in the plan.
func (p *Plan) Validate() error {
	for _, e := range p.Entries {
		if e.Schedule != nil {
			if err := e.Schedule.Validate(); err != nil {
				return err
			}
		}

		if e.Routing != nil {
			if err := e.Routing.Validate(); err != nil {
				return err
			}
		}
	}

	return nil
}
