// Package config holds the knobs of a TSN simulation run. Values come from a
// YAML file and can be overridden by TSN_* environment variables, which may
// in turn be set from .env files.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/port"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
	"gopkg.in/yaml.v3"
)

const component = "config"

// Aging configures the expiry of learned forwarding entries.
type Aging struct {
	Enabled   bool         `yaml:"enabled"`
	Threshold timing.VTime `yaml:"threshold"`
}

// Files points at the declarative descriptions used by a run.
type Files struct {
	Schedule string `yaml:"schedule"`
	Database string `yaml:"database"`
	Swap     string `yaml:"swap"`
	Record   string `yaml:"record"`
}

// Config is the configuration of one simulated egress port together with the
// clock and forwarding database of its switch.
type Config struct {
	ClockRate            timing.VTime       `yaml:"clockRate"`
	Resolution           timing.VTime       `yaml:"resolution"`
	TxRate               frame.DataRate     `yaml:"txRate"`
	IdleSlopeFactor      float64            `yaml:"idleSlopeFactor"`
	HoldAdvance          timing.VTime       `yaml:"holdAdvance"`
	EnableHoldAndRelease bool               `yaml:"enableHoldAndRelease"`
	EnablePreemption     bool               `yaml:"enablePreemption"`
	Aging                Aging              `yaml:"aging"`
	Queues               []port.QueueConfig `yaml:"queues"`
	Switch               string             `yaml:"switch"`
	Port                 int                `yaml:"port"`
	Host                 string             `yaml:"host"`
	Duration             timing.VTime       `yaml:"duration"`
	Files                Files              `yaml:"files"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ClockRate:       timing.Microsecond,
		Resolution:      timing.Nanosecond,
		TxRate:          frame.Gbps,
		IdleSlopeFactor: 0.5,
		Aging: Aging{
			Threshold: 300 * timing.Second,
		},
		Queues:   port.DefaultQueues(frame.NumPCPValues),
		Switch:   "Switch",
		Host:     "Host",
		Duration: timing.Millisecond,
	}
}

// Load reads the .env files, if any, then the YAML file on top of the
// defaults, then applies the environment, and validates the result. An empty
// filename skips the YAML file.
func Load(filename string, envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, err
		}
	}

	c := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}

		if err := c.decode(data); err != nil {
			return nil, err
		}
	}

	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}

	c.fillQueueDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err := dec.Decode(c)
	if err != nil && !errors.Is(err, io.EOF) {
		return &tsnerr.ConfigError{
			Component: component,
			Kind:      tsnerr.KindMalformed,
			Err:       err,
		}
	}

	return nil
}

// Credit based queues without their own idle slope factor use the global one.
func (c *Config) fillQueueDefaults() {
	for i := range c.Queues {
		q := &c.Queues[i]

		if q.Shaper == port.CreditBased && q.IdleSlopeFactor == 0 {
			q.IdleSlopeFactor = c.IdleSlopeFactor
		}

		if q.CapacityBits == 0 {
			q.CapacityBits = 100 * frame.MaxFrameBits
		}
	}
}

// Validate checks ranges and the relation between clock rate and engine
// resolution.
func (c *Config) Validate() error {
	switch {
	case c.Resolution == 0:
		return tsnerr.NewConfigError(component, "resolution",
			tsnerr.KindOutOfRange, "resolution must be positive")
	case c.ClockRate == 0 || c.ClockRate%c.Resolution != 0:
		return tsnerr.NewConfigError(component, "clockRate",
			tsnerr.KindClockPrecision,
			"clock rate %s is not a positive multiple of %s",
			c.ClockRate, c.Resolution)
	case c.TxRate == 0:
		return tsnerr.NewConfigError(component, "txRate",
			tsnerr.KindOutOfRange, "tx rate must be positive")
	case c.IdleSlopeFactor <= 0 || c.IdleSlopeFactor >= 1:
		return tsnerr.NewConfigError(component, "idleSlopeFactor",
			tsnerr.KindOutOfRange,
			"idle slope factor %g is not in (0,1)", c.IdleSlopeFactor)
	case c.Aging.Enabled && c.Aging.Threshold == 0:
		return tsnerr.NewConfigError(component, "aging.threshold",
			tsnerr.KindOutOfRange, "aging threshold must be positive")
	case len(c.Queues) == 0 || len(c.Queues) > frame.NumPCPValues:
		return tsnerr.NewConfigError(component, "queues",
			tsnerr.KindOutOfRange, "%d queues, want 1 to %d",
			len(c.Queues), frame.NumPCPValues)
	}

	for _, q := range c.Queues {
		switch q.Shaper {
		case port.StrictPriority, "":
		case port.CreditBased:
			if q.IdleSlopeFactor <= 0 || q.IdleSlopeFactor >= 1 {
				return tsnerr.NewConfigError(component,
					"queues.idleSlopeFactor", tsnerr.KindOutOfRange,
					"idle slope factor %g is not in (0,1)", q.IdleSlopeFactor)
			}
		default:
			return tsnerr.NewConfigError(component, "queues.shaper",
				tsnerr.KindUnsupported, "unknown shaper %q", q.Shaper)
		}
	}

	return nil
}
