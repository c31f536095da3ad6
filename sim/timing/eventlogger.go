package timing

import (
	"fmt"
	"log"
	"strings"

	"github.com/miamuminovic/nesting/sim/hooking"
)

// EventLogger is a hook that prints every event before it is handled, as
// "time, kind -> handler". Secondary events are marked.
type EventLogger struct {
	logger *log.Logger
}

// NewEventLogger returns an EventLogger writing into logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

type named interface {
	Name() string
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	kind := eventKind(evt)
	if evt.IsSecondary() {
		kind += " (secondary)"
	}

	if handler, ok := evt.Handler().(named); ok {
		h.logger.Printf("%s, %s -> %s", evt.Time(), kind, handler.Name())
		return
	}

	h.logger.Printf("%s, %s", evt.Time(), kind)
}

// eventKind is the type name of the event without package or pointer.
func eventKind(evt Event) string {
	t := fmt.Sprintf("%T", evt)
	t = strings.TrimPrefix(t, "*")

	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}

	return t
}
