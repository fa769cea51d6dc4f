package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/nexus/internal/llm"
)

// Tool is a named, schema-described, asynchronously callable unit of
// side effect invoked on the model's behalf (spec §4.5). Execute must
// not return a Go error for ordinary tool-level failures — it wraps
// its own failures into a ToolResult. A Go error is reserved for truly
// exceptional conditions; the Agent Loop converts such an error, and
// any panic it recovers from Execute, into a failed ToolResult.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, args json.RawMessage) (llm.ToolResult, error)
}

// Schema returns t's canonical, dialect-independent schema.
func Schema(t Tool) llm.ToolSchema {
	return llm.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	}
}
