package schedule

import (
	"fmt"
	"strings"
)

// NumGates is the number of transmission gates a bitvector can describe, one
// per traffic class.
const NumGates = 8

// GateBitvector has bit i set when gate i is open.
type GateBitvector uint8

// AllOpen opens every gate.
const AllOpen GateBitvector = 1<<NumGates - 1

// ParseGateBitvector reads a string of '0' and '1' where the first character
// is gate 0. Missing trailing gates are closed.
func ParseGateBitvector(s string) (GateBitvector, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("empty bitvector")
	}

	if len(s) > NumGates {
		return 0, fmt.Errorf("bitvector %q has more than %d gates", s, NumGates)
	}

	var bv GateBitvector

	for i, c := range s {
		switch c {
		case '1':
			bv = bv.Set(i)
		case '0':
		default:
			return 0, fmt.Errorf("bitvector %q contains %q", s, c)
		}
	}

	return bv, nil
}

// Test reports whether gate i is open.
func (bv GateBitvector) Test(i int) bool {
	return bv&(1<<uint(i)) != 0
}

// Set returns the bitvector with gate i open.
func (bv GateBitvector) Set(i int) GateBitvector {
	return bv | 1<<uint(i)
}

// Any reports whether any gate in mask is open.
func (bv GateBitvector) Any(mask GateBitvector) bool {
	return bv&mask != 0
}

func (bv GateBitvector) String() string {
	var sb strings.Builder

	for i := 0; i < NumGates; i++ {
		if bv.Test(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}

	return sb.String()
}
