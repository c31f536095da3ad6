package shaping

import (
	"fmt"

	"github.com/miamuminovic/nesting/tsn/frame"
)

// standardTrafficClass maps a PCP value to a traffic class, one row per
// number of available queues (IEEE 802.1Q table 8-5).
var standardTrafficClass = [frame.NumPCPValues][frame.NumPCPValues]int{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 1, 1, 1, 1},
	{0, 0, 0, 0, 1, 1, 2, 2},
	{0, 0, 1, 1, 2, 2, 3, 3},
	{0, 0, 1, 1, 2, 2, 3, 4},
	{1, 0, 2, 2, 3, 3, 4, 5},
	{1, 0, 2, 3, 4, 4, 5, 6},
	{1, 0, 2, 3, 4, 5, 6, 7},
}

// TrafficClass returns the queue a frame with the given PCP goes to when the
// port has numQueues queues.
func TrafficClass(numQueues int, pcp uint8) (int, error) {
	if numQueues < 1 || numQueues > frame.NumPCPValues {
		return 0, fmt.Errorf("number of queues %d is not between 1 and %d",
			numQueues, frame.NumPCPValues)
	}

	if pcp > frame.MaxPCP {
		return 0, fmt.Errorf("pcp %d exceeds %d", pcp, frame.MaxPCP)
	}

	return standardTrafficClass[numQueues-1][pcp], nil
}
