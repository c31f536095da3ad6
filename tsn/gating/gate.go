// Package gating implements time-aware shaping: transmission gates and the
// controller that opens and closes them following a cyclic gate schedule.
package gating

// A GateListener is told when a gate opens, closes or is released.
type GateListener interface {
	GateStateChanged(g *Gate)
}

// Gate is the transmission gate in front of one traffic class queue.
type Gate struct {
	index     int
	express   bool
	open      bool
	listeners []GateListener
}

// NewGate creates an open gate for the traffic class with the given index.
// Express gates guard queues whose frames may preempt others.
func NewGate(index int, express bool) *Gate {
	return &Gate{index: index, express: express, open: true}
}

// Index returns the traffic class of the gate.
func (g *Gate) Index() int {
	return g.index
}

// IsExpress reports whether the gate guards an express queue.
func (g *Gate) IsExpress() bool {
	return g.express
}

// IsOpen reports whether frames may pass.
func (g *Gate) IsOpen() bool {
	return g.open
}

// AcceptListener registers a listener. Listeners are notified in the order
// they were registered.
func (g *Gate) AcceptListener(l GateListener) {
	g.listeners = append(g.listeners, l)
}

// SetState opens or closes the gate. Listeners are notified when the state
// changes or when release is set.
func (g *Gate) SetState(open, release bool) {
	changed := g.open != open
	g.open = open

	if !changed && !release {
		return
	}

	for _, l := range g.listeners {
		l.GateStateChanged(g)
	}
}
