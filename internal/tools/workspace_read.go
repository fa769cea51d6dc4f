package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/haasonsaas/nexus/internal/llm"
)

// WorkspaceReadTool reads a file's contents, resolved relative to a
// fixed workspace root and rejected if it escapes that root (spec
// §4.5, §6). It holds per-session state (its Resolver's Root) and so
// is rebuilt, not shared, across sessions per spec §4.6.
type WorkspaceReadTool struct {
	resolver    Resolver
	maxReadSize int
}

// NewWorkspaceReadTool builds a WorkspaceReadTool rooted at workspace.
// maxReadSize caps the bytes returned (0 means unlimited).
func NewWorkspaceReadTool(workspace string, maxReadSize int) *WorkspaceReadTool {
	return &WorkspaceReadTool{resolver: Resolver{Root: workspace}, maxReadSize: maxReadSize}
}

func (t *WorkspaceReadTool) Name() string { return "workspace_read" }

func (t *WorkspaceReadTool) Description() string {
	return "Read the contents of a file within the session's workspace."
}

func (t *WorkspaceReadTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to read, relative to the workspace root.",
			},
		},
		"required": []string{"path"},
	}
}

type workspaceReadInput struct {
	Path string `json:"path"`
}

func (t *WorkspaceReadTool) Execute(_ context.Context, args json.RawMessage) (llm.ToolResult, error) {
	var input workspaceReadInput
	if err := json.Unmarshal(args, &input); err != nil {
		return llm.ToolResult{Success: false, Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return llm.ToolResult{Success: false, Error: err.Error()}, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return llm.ToolResult{Success: false, Error: fmt.Sprintf("read file: %v", err)}, nil
	}

	if t.maxReadSize > 0 && len(data) > t.maxReadSize {
		data = data[:t.maxReadSize]
	}
	return llm.ToolResult{Success: true, Content: string(data)}, nil
}
