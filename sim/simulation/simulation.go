// Package simulation keeps track of the engine and the named components that
// make up one simulation.
package simulation

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/naming"
	"github.com/miamuminovic/nesting/sim/timing"
)

// A Simulation provides the service requires to define a simulation.
type Simulation struct {
	engine     timing.Engine
	components []naming.Named
	byName     map[string]naming.Named
}

// NewSimulation creates a new simulation.
func NewSimulation() *Simulation {
	return &Simulation{
		byName: make(map[string]naming.Named),
	}
}

// RegisterEngine registers the engine used in the simulation.
func (s *Simulation) RegisterEngine(e timing.Engine) {
	s.engine = e
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() timing.Engine {
	return s.engine
}

// RegisterComponent registers a component. Names must be unique.
func (s *Simulation) RegisterComponent(c naming.Named) {
	name := c.Name()

	if _, ok := s.byName[name]; ok {
		panic("component " + name + " already registered")
	}

	s.byName[name] = c
	s.components = append(s.components, c)
}

// GetComponentByName returns the component with the given name, or nil.
func (s *Simulation) GetComponentByName(name string) naming.Named {
	return s.byName[name]
}

// Components returns the components in registration order.
func (s *Simulation) Components() []naming.Named {
	return s.components
}

// AcceptHookAll registers the hook with every component that accepts hooks.
func (s *Simulation) AcceptHookAll(h hooking.Hook) {
	for _, c := range s.components {
		if hookable, ok := c.(hooking.Hookable); ok {
			hookable.AcceptHook(h)
		}
	}
}
