// Package plugins implements the Plugin Registry and Reply-Handler
// Chain (spec §4.7): plugins contribute a prompt extension before
// each LLM call and a chain of reply handlers that rewrite the
// model's text output afterward, possibly triggering side effects.
//
// Grounded on the teacher's internal/plugins/plugin.go Registry
// (flat, keyed-by-id, allow/deny resolution) and internal/plugins/
// hooks.go's priority-sorted dispatch — per spec §9's "cyclic
// reference" design note, handlers hold a plugin id, never a
// back-pointer; dispatch always goes through the Registry.
package plugins

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PluginType categorises what kind of side effect a plugin
// contributes (spec §4.7's Plugin metadata shape).
type PluginType string

const (
	TypeBuiltin PluginType = "builtin"
	TypeShell   PluginType = "shell"
)

// Metadata is a Plugin's stable identity (spec §4.7).
type Metadata struct {
	ID           string
	Name         string
	Version      string
	Type         PluginType
	Dependencies []string
	Config       map[string]any
}

// Plugin is a loaded plugin: stable metadata plus the lifecycle
// methods and the two contributions it may make to a turn.
type Plugin interface {
	Metadata() Metadata
	Initialise() error
	Shutdown() error

	// PromptExtension returns this plugin's contribution to the
	// system prompt, given the current turn's context. Implementations
	// that have nothing to add return "".
	PromptExtension(ctx PluginContext) string

	// ReplyHandlers returns the reply handlers this plugin
	// contributes to the chain. Most plugins contribute zero or one.
	ReplyHandlers() []ReplyHandler
}

// PluginContext is what a plugin sees for one turn: recent messages
// as plain text, a platform tag, user/session ids, and any extra
// key-value data the caller wants to pass through.
type PluginContext struct {
	RecentMessages []string
	Platform       string
	UserID         string
	SessionID      string
	Extras         map[string]any
}

// record tracks one registered plugin's enable state alongside its
// Plugin implementation.
type record struct {
	plugin  Plugin
	enabled bool
	reason  string
}

// Config controls which registered plugins actually load.
type Config struct {
	Enabled bool
	Allow   []string
	Deny    []string
}

// Registry is the flat, plugin-id-keyed table of loaded plugins. It
// is the only place cyclic Plugin<->ReplyHandler<->PluginContext
// references are resolved (spec §9).
type Registry struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string // registration order, for deterministic iteration
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*record)}
}

// Register adds a plugin definition. It does not yet decide whether
// the plugin is enabled; call Load for that.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.Metadata().ID
	if id == "" {
		return fmt.Errorf("plugin ID is required")
	}
	if _, exists := r.records[id]; exists {
		return fmt.Errorf("plugin %s already registered", id)
	}
	r.records[id] = &record{plugin: p}
	r.order = append(r.order, id)
	return nil
}

// Load resolves each registered plugin's enable state against cfg and
// calls Initialise on the ones that end up enabled.
func (r *Registry) Load(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !cfg.Enabled {
		for _, id := range r.order {
			r.records[id].enabled = false
			r.records[id].reason = "plugins disabled"
		}
		return nil
	}

	for _, id := range r.order {
		rec := r.records[id]
		enabled, reason := resolveEnableState(id, cfg)
		rec.enabled = enabled
		rec.reason = reason
		if enabled {
			if err := rec.plugin.Initialise(); err != nil {
				rec.enabled = false
				rec.reason = fmt.Sprintf("initialise failed: %v", err)
			}
		}
	}
	return nil
}

func resolveEnableState(id string, cfg Config) (bool, string) {
	for _, denied := range cfg.Deny {
		if denied == id {
			return false, "blocked by denylist"
		}
	}
	if len(cfg.Allow) > 0 {
		found := false
		for _, allowed := range cfg.Allow {
			if allowed == id {
				found = true
				break
			}
		}
		if !found {
			return false, "not in allowlist"
		}
	}
	return true, ""
}

// Enabled reports whether a plugin id is currently enabled.
func (r *Registry) Enabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return ok && rec.enabled
}

// Shutdown calls Shutdown on every enabled plugin.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		rec := r.records[id]
		if rec.enabled {
			_ = rec.plugin.Shutdown()
		}
	}
}

// PromptExtension aggregates every enabled plugin's prompt extension,
// blank-line separated, in registration order (spec §4.7).
func (r *Registry) PromptExtension(ctx PluginContext) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var parts []string
	for _, id := range r.order {
		rec := r.records[id]
		if !rec.enabled {
			continue
		}
		if ext := rec.plugin.PromptExtension(ctx); strings.TrimSpace(ext) != "" {
			parts = append(parts, ext)
		}
	}
	return strings.Join(parts, "\n\n")
}

// ReplyHandlers returns every enabled plugin's reply handlers, sorted
// ascending by priority (spec §4.7: "priority (ascending)").
func (r *Registry) ReplyHandlers() []ReplyHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var handlers []ReplyHandler
	for _, id := range r.order {
		rec := r.records[id]
		if !rec.enabled {
			continue
		}
		handlers = append(handlers, rec.plugin.ReplyHandlers()...)
	}
	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].Priority() < handlers[j].Priority()
	})
	return handlers
}
