package config

import (
	"os"
	"strconv"

	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
)

// EnvPrefix starts the name of every environment variable read by ApplyEnv.
const EnvPrefix = "TSN_"

type envSetter func(c *Config, value string) error

func vtimeSetter(field func(c *Config) *timing.VTime) envSetter {
	return func(c *Config, value string) error {
		return field(c).UnmarshalText([]byte(value))
	}
}

func boolSetter(field func(c *Config) *bool) envSetter {
	return func(c *Config, value string) error {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}

		*field(c) = v

		return nil
	}
}

func stringSetter(field func(c *Config) *string) envSetter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

var envSetters = map[string]envSetter{
	"CLOCK_RATE": vtimeSetter(func(c *Config) *timing.VTime {
		return &c.ClockRate
	}),
	"RESOLUTION": vtimeSetter(func(c *Config) *timing.VTime {
		return &c.Resolution
	}),
	"HOLD_ADVANCE": vtimeSetter(func(c *Config) *timing.VTime {
		return &c.HoldAdvance
	}),
	"AGING_THRESHOLD": vtimeSetter(func(c *Config) *timing.VTime {
		return &c.Aging.Threshold
	}),
	"DURATION": vtimeSetter(func(c *Config) *timing.VTime {
		return &c.Duration
	}),
	"TX_RATE": func(c *Config, value string) error {
		var r frame.DataRate
		if err := r.UnmarshalText([]byte(value)); err != nil {
			return err
		}

		c.TxRate = r

		return nil
	},
	"IDLE_SLOPE_FACTOR": func(c *Config, value string) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}

		c.IdleSlopeFactor = v

		return nil
	},
	"PORT": func(c *Config, value string) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		c.Port = v

		return nil
	},
	"HOLD_AND_RELEASE": boolSetter(func(c *Config) *bool {
		return &c.EnableHoldAndRelease
	}),
	"PREEMPTION": boolSetter(func(c *Config) *bool {
		return &c.EnablePreemption
	}),
	"AGING_ENABLED": boolSetter(func(c *Config) *bool {
		return &c.Aging.Enabled
	}),
	"SWITCH": stringSetter(func(c *Config) *string { return &c.Switch }),
	"HOST":   stringSetter(func(c *Config) *string { return &c.Host }),
	"SCHEDULE_FILE": stringSetter(func(c *Config) *string {
		return &c.Files.Schedule
	}),
	"DATABASE_FILE": stringSetter(func(c *Config) *string {
		return &c.Files.Database
	}),
	"SWAP_FILE": stringSetter(func(c *Config) *string {
		return &c.Files.Swap
	}),
	"RECORD": stringSetter(func(c *Config) *string {
		return &c.Files.Record
	}),
}

// ApplyEnv overrides fields with the TSN_* environment variables that are
// set, for example TSN_CLOCK_RATE=500ns or TSN_AGING_ENABLED=true.
func (c *Config) ApplyEnv() error {
	for name, set := range envSetters {
		value, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}

		if err := set(c, value); err != nil {
			return &tsnerr.ConfigError{
				Component: component,
				Field:     EnvPrefix + name,
				Kind:      tsnerr.KindMalformed,
				Err:       err,
			}
		}
	}

	return nil
}
