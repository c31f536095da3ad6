// Package tsnerr defines the two failure classes of the TSN components:
// configuration errors, which are returned while building a component, and
// invariant violations, which indicate a logic defect and halt the
// simulation with a panic.
package tsnerr

import (
	"errors"
	"fmt"
)

// Kind classifies a configuration error.
type Kind int

// Configuration error kinds.
const (
	KindMissingField Kind = iota
	KindMalformed
	KindOutOfRange
	KindClockPrecision
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindMissingField:
		return "missing field"
	case KindMalformed:
		return "malformed value"
	case KindOutOfRange:
		return "out of range"
	case KindClockPrecision:
		return "clock precision"
	case KindUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ConfigError is returned when a configuration or a declarative description
// cannot be turned into a component. No partially built component is ever
// returned along with it.
type ConfigError struct {
	Component string
	Field     string
	Kind      Kind
	Err       error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Component, e.Kind)
	if e.Field != "" {
		msg += " in " + e.Field
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError with a formatted cause.
func NewConfigError(
	component, field string,
	kind Kind,
	format string,
	args ...any,
) *ConfigError {
	return &ConfigError{
		Component: component,
		Field:     field,
		Kind:      kind,
		Err:       fmt.Errorf(format, args...),
	}
}

// IsKind reports whether err wraps a ConfigError of the given kind.
func IsKind(err error, kind Kind) bool {
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		return false
	}

	return cfgErr.Kind == kind
}

// InvariantViolation is the panic value used when a component detects that
// its own state is inconsistent.
type InvariantViolation struct {
	Component string
	What      string
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("%s: invariant violated: %s", v.Component, v.What)
}

// Violate panics with an InvariantViolation.
func Violate(component, format string, args ...any) {
	panic(&InvariantViolation{
		Component: component,
		What:      fmt.Sprintf(format, args...),
	})
}

// Must panics with an InvariantViolation if cond is false.
func Must(cond bool, component, format string, args ...any) {
	if !cond {
		Violate(component, format, args...)
	}
}
