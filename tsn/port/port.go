// Package port assembles a time-aware egress port: a MAC, one queue per
// traffic class with its transmission selection algorithm, the transmission
// gates, the gate controller and the strict priority selection.
package port

import (
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/gating"
	"github.com/miamuminovic/nesting/tsn/mac"
	"github.com/miamuminovic/nesting/tsn/shaping"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
)

// EgressPort is an assembled egress port. Frames handed to Send are
// classified by their priority code point.
type EgressPort struct {
	naming.NamedBase

	mac        *mac.Port
	controller *gating.Controller
	selection  *shaping.Selection
	queues     []*shaping.Queue
	algorithms []shaping.Algorithm
}

// MAC returns the transmit path.
func (p *EgressPort) MAC() *mac.Port {
	return p.mac
}

// Controller returns the gate controller.
func (p *EgressPort) Controller() *gating.Controller {
	return p.controller
}

// Selection returns the transmission selection.
func (p *EgressPort) Selection() *shaping.Selection {
	return p.selection
}

// NumQueues returns the number of traffic classes.
func (p *EgressPort) NumQueues() int {
	return len(p.queues)
}

// Queue returns the queue of a traffic class.
func (p *EgressPort) Queue(tc int) *shaping.Queue {
	return p.queues[tc]
}

// Algorithm returns the transmission selection algorithm of a traffic class.
func (p *EgressPort) Algorithm(tc int) shaping.Algorithm {
	return p.algorithms[tc]
}

// Send enqueues the frame into the queue of its traffic class.
func (p *EgressPort) Send(f *frame.Frame) {
	tc, err := shaping.TrafficClass(len(p.queues), f.Vlan.PCP)
	if err != nil {
		tsnerr.Violate(p.Name(), "frame %s: %v", f.ID, err)
	}

	p.queues[tc].Enqueue(f)
}
