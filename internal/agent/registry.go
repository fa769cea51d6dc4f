package agent

import (
	"sync"

	"github.com/haasonsaas/nexus/internal/llm"
)

// Registry manages available tools with thread-safe registration and
// lookup, grounded on the teacher's internal/agent/tool_registry.go
// ToolRegistry shape — already exactly what spec §4.5 needs.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry by name, replacing any
// existing tool of the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// AsToolSchemas returns every registered tool's schema, for passing
// to the LLM Client.
func (r *Registry) AsToolSchemas() []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.ToolSchema, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Schema(t))
	}
	return out
}

// Clone returns a new Registry built by applying rebuild to each
// registered tool's name and instance — used by the Session Manager to
// re-instantiate workspace-bound tools against a fresh cwd while
// reusing stateless tools by reference (spec §4.6).
func (r *Registry) Clone(rebuild func(name string, existing Tool) Tool) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewRegistry()
	for name, t := range r.tools {
		out.tools[name] = rebuild(name, t)
	}
	return out
}
