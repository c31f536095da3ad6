package stats

import (
	"log"

	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/gating"
)

// LogHook writes every hook invocation into a logger.
type LogHook struct {
	*log.Logger

	timeTeller timing.TimeTeller
}

// NewLogHook creates a LogHook.
func NewLogHook(logger *log.Logger, timeTeller timing.TimeTeller) *LogHook {
	return &LogHook{Logger: logger, timeTeller: timeTeller}
}

// Func logs the invocation. Schedule swaps that may invalidate planned holds
// are logged as warnings.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	now := h.timeTeller.Now()
	name := domainName(ctx.Domain)

	if d, ok := ctx.Detail.(gating.SwapDetail); ok && d.HoldConflict {
		h.Printf("%s, %s, WARNING: schedule swapped while hold and release "+
			"is used with preemption, holds may be misplaced", now, name)
	}

	if ctx.Detail == nil {
		h.Printf("%s, %s, %s, %s", now, name, ctx.Pos.Name, describe(ctx.Item))
		return
	}

	h.Printf("%s, %s, %s, %s, %s",
		now, name, ctx.Pos.Name, describe(ctx.Item), describe(ctx.Detail))
}
