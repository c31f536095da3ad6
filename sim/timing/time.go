package timing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// VTime is a point in, or a span of, simulated time counted in picoseconds.
type VTime uint64

// Units of VTime.
const (
	Picosecond  VTime = 1
	Nanosecond        = 1000 * Picosecond
	Microsecond       = 1000 * Nanosecond
	Millisecond       = 1000 * Microsecond
	Second            = 1000 * Millisecond
)

var timeUnits = []struct {
	suffix string
	unit   VTime
}{
	// Longer suffixes first so that "ms" is not read as "s".
	{"ps", Picosecond},
	{"ns", Nanosecond},
	{"us", Microsecond},
	{"µs", Microsecond},
	{"ms", Millisecond},
	{"s", Second},
}

// InSec converts the time to seconds.
func (t VTime) InSec() float64 {
	return float64(t) / float64(Second)
}

// Ceil rounds the time up to a multiple of quantum.
func (t VTime) Ceil(quantum VTime) VTime {
	if rem := t % quantum; rem != 0 {
		return t + quantum - rem
	}

	return t
}

// String prints the time with the largest unit that represents it exactly.
func (t VTime) String() string {
	if t == 0 {
		return "0s"
	}

	for i := len(timeUnits) - 1; i >= 0; i-- {
		u := timeUnits[i]
		if u.suffix == "µs" {
			continue
		}

		if t%u.unit == 0 {
			return strconv.FormatUint(uint64(t/u.unit), 10) + u.suffix
		}
	}

	return strconv.FormatUint(uint64(t), 10) + "ps"
}

// ParseVTime parses strings like "1us", "12.5ns" or "800ps". The value must
// be a whole number of picoseconds.
func ParseVTime(s string) (VTime, error) {
	s = strings.TrimSpace(s)

	for _, u := range timeUnits {
		num, found := strings.CutSuffix(s, u.suffix)
		if !found {
			continue
		}

		if u.suffix == "s" && strings.HasSuffix(num, "m") {
			continue
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, fmt.Errorf("timing: invalid time %q: %w", s, err)
		}

		if value < 0 {
			return 0, fmt.Errorf("timing: negative time %q", s)
		}

		ps := value * float64(u.unit)
		if math.Abs(ps-math.Round(ps)) > 1e-6 {
			return 0, fmt.Errorf(
				"timing: time %q is finer than one picosecond", s)
		}

		return VTime(math.Round(ps)), nil
	}

	return 0, fmt.Errorf("timing: time %q has no unit", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t VTime) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so VTime fields can be
// written as duration strings in configuration files.
func (t *VTime) UnmarshalText(text []byte) error {
	v, err := ParseVTime(string(text))
	if err != nil {
		return err
	}

	*t = v

	return nil
}
