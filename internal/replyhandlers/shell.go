package replyhandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/plugins"
)

// ShellPluginAdapter wraps a .sh or .ps1 script as a Plugin (spec
// §4.7): the runtime writes `{"action":A,"data":{...}}` to the
// script's stdin and reads a JSON object from stdout whose `success`
// field drives acceptance. Non-zero exit or non-JSON output degrades
// to an empty contribution, logged as a warning.
//
// Grounded letter-for-letter on
// original_source/ye_linghua/plugins/shell_wrapper.py's ShellPlugin
// (execute_script/get_prompt_extension/get_context_extension),
// translated to Go's os/exec + encoding/json idiom.
type ShellPluginAdapter struct {
	id          string
	scriptPath  string
	interpreter string
	timeout     time.Duration
	logger      *slog.Logger
}

// NewShellPluginAdapter builds a ShellPluginAdapter for scriptPath.
// The interpreter is chosen from the script's extension: bash for
// .sh, pwsh for .ps1.
func NewShellPluginAdapter(scriptPath string) (*ShellPluginAdapter, error) {
	var interpreter string
	switch filepath.Ext(scriptPath) {
	case ".sh":
		interpreter = "bash"
	case ".ps1":
		interpreter = "pwsh"
	default:
		return nil, fmt.Errorf("unsupported script type: %s", scriptPath)
	}

	id := "shell_" + strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	return &ShellPluginAdapter{
		id:          id,
		scriptPath:  scriptPath,
		interpreter: interpreter,
		timeout:     30 * time.Second,
		logger:      slog.Default(),
	}, nil
}

func (s *ShellPluginAdapter) Metadata() plugins.Metadata {
	return plugins.Metadata{
		ID:      s.id,
		Name:    s.id,
		Version: "1.0.0",
		Type:    plugins.TypeShell,
	}
}

func (s *ShellPluginAdapter) Initialise() error { return nil }
func (s *ShellPluginAdapter) Shutdown() error   { return nil }

// PromptExtension issues a get_prompt action to the wrapped script.
func (s *ShellPluginAdapter) PromptExtension(ctx plugins.PluginContext) string {
	result, err := s.execute(context.Background(), "get_prompt", map[string]any{"context": ctx})
	if err != nil {
		s.logger.Warn("shell plugin get_prompt failed", "plugin", s.id, "error", err)
		return ""
	}
	if prompt, ok := result["prompt"].(string); ok {
		return prompt
	}
	return ""
}

// ReplyHandlers: shell plugins contribute no reply handlers directly
// in this runtime. Their get_context output is available only through
// ContextExtension, which neither the Plugin Registry, the Dispatcher
// nor the cmd/agentrtd wiring calls.
func (s *ShellPluginAdapter) ReplyHandlers() []plugins.ReplyHandler { return nil }

// ContextExtension issues a get_context action, returning the
// script's additional context data (or nil on any failure).
func (s *ShellPluginAdapter) ContextExtension(ctx plugins.PluginContext) map[string]any {
	result, err := s.execute(context.Background(), "get_context", map[string]any{"context": ctx})
	if err != nil {
		s.logger.Warn("shell plugin get_context failed", "plugin", s.id, "error", err)
		return nil
	}
	if out, ok := result["context"].(map[string]any); ok {
		return out
	}
	return nil
}

// execute runs the script once with {"action":A,"data":data} on
// stdin, returning its parsed stdout JSON. Non-zero exit, non-JSON
// stdout, or a JSON object whose success field is not true all
// resolve to {"success": false}
// without an error — a failed script is a degraded contribution, not
// a runtime fault — matching the original's best-effort semantics.
func (s *ShellPluginAdapter) execute(ctx context.Context, action string, data map[string]any) (map[string]any, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	input, err := json.Marshal(map[string]any{"action": action, "data": data})
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}

	cmd := exec.CommandContext(runCtx, s.interpreter, s.scriptPath)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		s.logger.Warn("shell plugin script error", "plugin", s.id, "stderr", stderr.String(), "error", runErr)
		return map[string]any{"success": false}, nil
	}

	var result map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		s.logger.Warn("shell plugin produced non-JSON output", "plugin", s.id)
		return map[string]any{"success": false}, nil
	}
	if ok, _ := result["success"].(bool); !ok {
		s.logger.Warn("shell plugin reported failure", "plugin", s.id)
		return map[string]any{"success": false}, nil
	}
	return result, nil
}
