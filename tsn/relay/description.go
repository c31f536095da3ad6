package relay

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
	"gopkg.in/yaml.v3"
)

const component = "relay"

// DatabaseDescription is the declarative form of the static forwarding
// rules of a network.
type DatabaseDescription struct {
	Cycle    *uint64          `yaml:"cycle"`
	Switches []SwitchDatabase `yaml:"switches"`
}

// SwitchDatabase holds the rules of one switch.
type SwitchDatabase struct {
	ID     string       `yaml:"id"`
	Static *StaticRules `yaml:"static"`
}

// StaticRules is the static part of a filtering database.
type StaticRules struct {
	Forward *ForwardRules `yaml:"forward"`
}

// ForwardRules lists the forwarding rules per address kind.
type ForwardRules struct {
	Individual []IndividualAddressRule `yaml:"individualAddress"`
	Multicast  []MulticastAddressRule  `yaml:"multicastAddress"`
}

// IndividualAddressRule forwards one address to one port.
type IndividualAddressRule struct {
	MacAddress *string `yaml:"macAddress"`
	Port       *int    `yaml:"port"`
	VID        uint16  `yaml:"vid"`
}

// MulticastAddressRule forwards a group address to a set of ports.
type MulticastAddressRule struct {
	MacAddress *string  `yaml:"macAddress"`
	Ports      PortList `yaml:"ports"`
	VID        uint16   `yaml:"vid"`
}

// PortList is a list of port numbers. In YAML it is either a sequence of
// integers or a string of decimal numbers separated by commas or spaces,
// such as "1,2,10".
type PortList []int

// ParsePortList parses the string form of a port list.
func ParsePortList(s string) (PortList, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	if len(fields) == 0 {
		return nil, tsnerr.NewConfigError(component, "ports",
			tsnerr.KindMalformed, "port list %q is empty", s)
	}

	ports := make(PortList, 0, len(fields))

	for _, f := range fields {
		p, err := strconv.Atoi(f)
		if err != nil {
			return nil, tsnerr.NewConfigError(component, "ports",
				tsnerr.KindMalformed, "port %q is not a number", f)
		}

		ports = append(ports, p)
	}

	if err := ports.validate(); err != nil {
		return nil, err
	}

	return ports, nil
}

func (p PortList) validate() error {
	for _, port := range p {
		if err := checkPort(port); err != nil {
			return err
		}
	}

	return nil
}

func checkPort(port int) error {
	if port < 0 {
		return tsnerr.NewConfigError(component, "ports",
			tsnerr.KindOutOfRange, "port %d is negative", port)
	}

	return nil
}

// UnmarshalYAML accepts both the sequence and the string form.
func (p *PortList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var ports []int
		if err := value.Decode(&ports); err != nil {
			return err
		}

		if err := PortList(ports).validate(); err != nil {
			return err
		}

		*p = ports
	case yaml.ScalarNode:
		ports, err := ParsePortList(value.Value)
		if err != nil {
			return err
		}

		*p = ports
	default:
		return tsnerr.NewConfigError(component, "ports",
			tsnerr.KindMalformed, "line %d: ports must be a list or a string",
			value.Line)
	}

	return nil
}

// ReadDatabaseDescription parses a YAML forwarding description. If data is
// empty, the named file is read instead.
func ReadDatabaseDescription(
	filename string,
	data []byte,
) (*DatabaseDescription, error) {
	var err error

	if len(data) == 0 {
		data, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	desc := &DatabaseDescription{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err = dec.Decode(desc)
	if err != nil && !errors.Is(err, io.EOF) {
		var cfgErr *tsnerr.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, cfgErr
		}

		return nil, &tsnerr.ConfigError{
			Component: component,
			Kind:      tsnerr.KindMalformed,
			Err:       err,
		}
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}

	return desc, nil
}

// Validate checks the rules of every switch.
func (d *DatabaseDescription) Validate() error {
	for _, sw := range d.Switches {
		if _, err := sw.buildRules(); err != nil {
			return err
		}
	}

	return nil
}

func (d *DatabaseDescription) find(switchID string) *SwitchDatabase {
	if d == nil {
		return nil
	}

	for i := range d.Switches {
		if d.Switches[i].ID == switchID {
			return &d.Switches[i]
		}
	}

	return nil
}

// buildRules turns the static rules of a switch into database entries.
func (s *SwitchDatabase) buildRules() (map[frame.MacAddress]*entry, error) {
	rules := make(map[frame.MacAddress]*entry)

	if s.Static == nil || s.Static.Forward == nil {
		return rules, nil
	}

	for _, r := range s.Static.Forward.Individual {
		addr, err := parseRuleAddress(r.MacAddress, r.VID)
		if err != nil {
			return nil, err
		}

		if r.Port == nil {
			return nil, tsnerr.NewConfigError(component, "port",
				tsnerr.KindMissingField,
				"individualAddress %s has no port", addr)
		}

		if err := checkPort(*r.Port); err != nil {
			return nil, err
		}

		rules[addr] = &entry{ports: []int{*r.Port}, static: true}
	}

	for _, r := range s.Static.Forward.Multicast {
		addr, err := parseRuleAddress(r.MacAddress, r.VID)
		if err != nil {
			return nil, err
		}

		if !addr.IsMulticast() {
			return nil, tsnerr.NewConfigError(component, "macAddress",
				tsnerr.KindMalformed,
				"%s is not a multicast address", addr)
		}

		if len(r.Ports) == 0 {
			return nil, tsnerr.NewConfigError(component, "ports",
				tsnerr.KindMissingField,
				"multicastAddress %s has no ports", addr)
		}

		ports := make([]int, len(r.Ports))
		copy(ports, r.Ports)
		rules[addr] = &entry{ports: ports, static: true}
	}

	return rules, nil
}

func parseRuleAddress(s *string, vid uint16) (frame.MacAddress, error) {
	if s == nil || *s == "" {
		return frame.MacAddress{}, tsnerr.NewConfigError(component,
			"macAddress", tsnerr.KindMissingField, "rule has no macAddress")
	}

	if vid != 0 {
		return frame.MacAddress{}, tsnerr.NewConfigError(component, "vid",
			tsnerr.KindUnsupported,
			"rules for %s with vid %d are not supported", *s, vid)
	}

	addr, err := frame.ParseMacAddress(*s)
	if err != nil {
		return frame.MacAddress{}, &tsnerr.ConfigError{
			Component: component,
			Field:     "macAddress",
			Kind:      tsnerr.KindMalformed,
			Err:       err,
		}
	}

	return addr, nil
}
