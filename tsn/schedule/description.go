package schedule

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
	"gopkg.in/yaml.v3"
)

const component = "schedule"

// Description is the declarative form of all schedules of a network.
type Description struct {
	Cycle    *uint64             `yaml:"cycle"`
	Switches []SwitchDescription `yaml:"switches"`
	Hosts    []HostDescription   `yaml:"hosts"`
}

// SwitchDescription holds the gate schedules of the ports of one switch.
type SwitchDescription struct {
	Name  string            `yaml:"name"`
	Ports []PortDescription `yaml:"ports"`
}

// PortDescription is the gate schedule of one egress port.
type PortDescription struct {
	ID      int                    `yaml:"id"`
	Entries []GateEntryDescription `yaml:"entries"`
}

// GateEntryDescription is one entry of a gate schedule.
type GateEntryDescription struct {
	Length    *uint64 `yaml:"length"`
	Bitvector *string `yaml:"bitvector"`
}

// HostDescription is the transmission schedule of one host.
type HostDescription struct {
	Name    string                 `yaml:"name"`
	Entries []HostEntryDescription `yaml:"entries"`
}

// HostEntryDescription is one scheduled frame.
type HostEntryDescription struct {
	Start       *uint64        `yaml:"start"`
	Size        *int           `yaml:"size"`
	Destination *string        `yaml:"destination"`
	Priority    *frame.VlanTag `yaml:"priority"`
}

// ReadDescription parses a YAML description. If data is empty, the file
// with the given name is read instead. The whole description is validated
// so that nothing is built from a malformed one.
func ReadDescription(filename string, data []byte) (*Description, error) {
	var err error

	if len(data) == 0 {
		data, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	desc := &Description{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err = dec.Decode(desc)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &tsnerr.ConfigError{
			Component: component,
			Kind:      tsnerr.KindMalformed,
			Err:       err,
		}
	}

	err = desc.Validate()
	if err != nil {
		return nil, err
	}

	return desc, nil
}

// Validate checks that every entry can be turned into a schedule.
func (d *Description) Validate() error {
	if d.Cycle == nil {
		return tsnerr.NewConfigError(component, "cycle",
			tsnerr.KindMissingField, "cycle is required")
	}

	for _, sw := range d.Switches {
		for _, p := range sw.Ports {
			if _, err := d.buildGateSchedule(sw.Name, p); err != nil {
				return err
			}
		}
	}

	for _, h := range d.Hosts {
		if _, err := d.buildHostSchedule(h); err != nil {
			return err
		}
	}

	return nil
}
