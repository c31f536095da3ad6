package frame

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/miamuminovic/nesting/sim/timing"
)

// DataRate is a link speed in bits per second.
type DataRate uint64

// Common data rates.
const (
	Bps  DataRate = 1
	Kbps          = 1000 * Bps
	Mbps          = 1000 * Kbps
	Gbps          = 1000 * Mbps
)

var rateUnits = []struct {
	suffix string
	unit   DataRate
}{
	{"Gbps", Gbps},
	{"Mbps", Mbps},
	{"Kbps", Kbps},
	{"kbps", Kbps},
	{"bps", Bps},
}

// ParseDataRate parses strings like "1Gbps", "100Mbps" or "2.5Gbps".
func ParseDataRate(s string) (DataRate, error) {
	s = strings.TrimSpace(s)

	for _, u := range rateUnits {
		num, found := strings.CutSuffix(s, u.suffix)
		if !found {
			continue
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid data rate %q: %w", s, err)
		}

		if value <= 0 {
			return 0, fmt.Errorf("data rate %q must be positive", s)
		}

		return DataRate(value * float64(u.unit)), nil
	}

	return 0, fmt.Errorf("data rate %q has no unit", s)
}

func (r DataRate) String() string {
	for _, u := range rateUnits {
		if r >= u.unit && r%u.unit == 0 {
			return strconv.FormatUint(uint64(r/u.unit), 10) + u.suffix
		}
	}

	return strconv.FormatUint(uint64(r), 10) + "bps"
}

// UnmarshalText lets data rates appear as strings in configuration files.
func (r *DataRate) UnmarshalText(text []byte) error {
	v, err := ParseDataRate(string(text))
	if err != nil {
		return err
	}

	*r = v

	return nil
}

// Bits returns the whole number of bits sent in d at this rate.
func (r DataRate) Bits(d timing.VTime) uint64 {
	return MulDiv(uint64(d), uint64(r), uint64(timing.Second))
}

// TxTime returns the time needed to send n bits, rounded up to a picosecond.
func (r DataRate) TxTime(n uint64) timing.VTime {
	return timing.VTime(MulDivCeil(n, uint64(timing.Second), uint64(r)))
}

// MulDiv computes floor(a*b/c) without overflowing the product.
func MulDiv(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, c)

	return q
}

// MulDivCeil computes ceil(a*b/c) without overflowing the product.
func MulDivCeil(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, rem := bits.Div64(hi, lo, c)

	if rem != 0 {
		q++
	}

	return q
}
