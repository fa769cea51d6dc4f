package plugins

import "context"

// ReplyHandler post-processes the assistant's text output. Handlers
// run in ascending-priority order (spec §4.7); if one returns
// continue=false, later handlers in the chain are skipped.
type ReplyHandler interface {
	Priority() int
	Handle(ctx context.Context, text string, pctx PluginContext) (newText string, cont bool, err error)
}

// Dispatcher runs the full reply-handler chain for one turn. It
// implements internal/agent.ReplyHandlerChain's narrower Handle(ctx,
// text) signature by threading a fixed PluginContext through.
//
// Grounded on the teacher's HookRunner.RunModifying sequential-merge
// shape: each handler's output feeds the next, and the chain can be
// short-circuited, but here the sort direction is ascending (see
// plugin.go's ReplyHandlers) rather than the teacher's
// higher-priority-first.
type Dispatcher struct {
	registry *Registry
	pctx     func() PluginContext
}

// NewDispatcher builds a Dispatcher over registry. pctxFn is called
// once per Handle invocation to capture the current turn's
// PluginContext (recent messages, platform, ids change per turn).
func NewDispatcher(registry *Registry, pctxFn func() PluginContext) *Dispatcher {
	return &Dispatcher{registry: registry, pctx: pctxFn}
}

// Handle runs the priority-ordered reply-handler chain over text.
func (d *Dispatcher) Handle(ctx context.Context, text string) (string, error) {
	pctx := d.pctx()
	current := text
	for _, h := range d.registry.ReplyHandlers() {
		newText, cont, err := h.Handle(ctx, current, pctx)
		if err != nil {
			return current, err
		}
		current = newText
		if !cont {
			break
		}
	}
	return current, nil
}
