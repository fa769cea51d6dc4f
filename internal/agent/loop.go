// Package agent implements the reason-act Agent Loop (spec §4.4): the
// controller that alternates LLM calls and tool executions, bounded
// by a step budget, until a terminal answer or a distinguished
// failure is produced.
//
// Grounded on the teacher's internal/agent/loop.go AgenticLoop.Run
// phase-sequenced state machine, collapsed from its streaming-channel
// original into the synchronous run() -> string contract spec §4.4
// specifies.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/haasonsaas/nexus/internal/contextmgr"
	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/internal/retry"
)

// ReplyHandlerChain is the subset of the plugin pipeline's dispatch
// surface the loop needs (spec §4.4 step 5, §4.7). Implemented by
// internal/plugins.Dispatcher; declared here to avoid a dependency
// cycle between agent and plugins.
type ReplyHandlerChain interface {
	Handle(ctx context.Context, text string) (newText string, err error)
}

// RunLogger is the append-only per-run trace sink (spec §4.8).
// Implemented by internal/runlog.Logger.
type RunLogger interface {
	LogRequest(messages []llm.Message, toolNames []string)
	LogResponse(resp *llm.Response)
	LogToolResult(name string, args map[string]any, result llm.ToolResult)
}

type noopRunLogger struct{}

func (noopRunLogger) LogRequest([]llm.Message, []string)      {}
func (noopRunLogger) LogResponse(*llm.Response)               {}
func (noopRunLogger) LogToolResult(string, map[string]any, llm.ToolResult) {}

// CancelFlag is polled at every suspension point per spec §5's
// cooperative cancellation model.
type CancelFlag interface {
	Cancelled() bool
}

// Config configures one Loop instance.
type Config struct {
	Client      llm.Client
	Context     *contextmgr.Manager
	Tools       *Registry
	MaxSteps    int
	RetryConfig retry.Config
	ReplyChain  ReplyHandlerChain // optional
	RunLogger   RunLogger         // optional
	Cancel      CancelFlag        // optional
	Logger      *slog.Logger
}

// Loop is the reason-act controller for one session's conversation.
type Loop struct {
	cfg Config
}

// New constructs a Loop. Preconditions (spec §4.4): at least one user
// message must already be appended to cfg.Context before Run is
// called.
func New(cfg Config) *Loop {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RunLogger == nil {
		cfg.RunLogger = noopRunLogger{}
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 0
	}
	return &Loop{cfg: cfg}
}

// Run drives the loop to completion, returning the final assistant
// answer or a terminal error string (spec §4.4).
func (l *Loop) Run(ctx context.Context) string {
	if l.cfg.Client == nil {
		return "LLM call failed: " + ErrNoClient.Error()
	}

	// max_steps=0 is the boundary case from spec §8: immediate
	// budget-exhausted terminal, no LLM call at all.
	if l.cfg.MaxSteps <= 0 {
		return fmt.Sprintf("%s after 0 steps.", capitalize(ErrBudgetExhausted.Error()))
	}

	for step := 1; step <= l.cfg.MaxSteps; step++ {
		if err := l.cfg.Context.MaybeSummarise(ctx); err != nil {
			l.cfg.Logger.Warn("summarisation failed", "error", err)
		}
		if l.isCancelled() {
			return capitalize(ErrCancelled.Error()) + "."
		}

		messages, tools := l.cfg.Context.Context()
		toolNames := make([]string, len(tools))
		for i, t := range tools {
			toolNames[i] = t.Name
		}
		l.cfg.RunLogger.LogRequest(messages, toolNames)

		req := llm.Request{Messages: messages, Tools: tools}
		if len(messages) > 0 && messages[0].Role == llm.RoleSystem {
			req.System = messages[0].Content.AsText()
			req.Messages = messages[1:]
		}

		resp, err := retry.DoWithValue(ctx, l.cfg.RetryConfig, func(ctx context.Context) (*llm.Response, error) {
			resp, err := l.cfg.Client.Generate(ctx, req)
			if err != nil {
				// TransportFatal (spec §7): HTTP 4xx auth/quota/model
				// faults are a single-turn failure, never retried.
				var fatal *llm.FatalError
				if errors.As(err, &fatal) {
					return nil, retry.Permanent(err)
				}
			}
			return resp, err
		})
		if err != nil {
			var exhausted *retry.RetriesExhausted
			if asRetriesExhausted(err, &exhausted) {
				return fmt.Sprintf("LLM call failed after %d retries: %v", exhausted.Attempts, exhausted.LastCause)
			}
			return fmt.Sprintf("LLM call failed: %v", err)
		}

		l.cfg.Context.UpdateAPITokens(resp.Usage)
		l.cfg.RunLogger.LogResponse(resp)
		l.cfg.Context.AppendAssistant(resp)

		if l.cfg.ReplyChain != nil {
			newText, err := l.cfg.ReplyChain.Handle(ctx, resp.Content)
			if err != nil {
				l.cfg.Logger.Warn("reply handler chain failed", "error", err)
			} else {
				resp.Content = newText
			}
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content
		}

		for _, tc := range resp.ToolCalls {
			result := l.executeTool(ctx, tc)
			l.cfg.RunLogger.LogToolResult(tc.Name, tc.Arguments, result)
			l.cfg.Context.AppendTool(result, tc.ID, tc.Name)
		}

		if l.isCancelled() {
			return capitalize(ErrCancelled.Error()) + "."
		}
	}

	return fmt.Sprintf("%s after %d steps.", capitalize(ErrBudgetExhausted.Error()), l.cfg.MaxSteps)
}

// executeTool resolves and runs one tool call, converting any failure
// (unknown tool, exception/panic, ordinary error) into a failed
// ToolResult. Per spec §4.4 step 7's per-step atomicity, a panic here
// never escapes to abort sibling tool calls in the same turn.
func (l *Loop) executeTool(ctx context.Context, tc llm.ToolCall) (result llm.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			toolErr := &ToolError{
				Kind:       ToolErrorPanic,
				ToolName:   tc.Name,
				ToolCallID: tc.ID,
				Message:    fmt.Sprintf("panic in tool %q: %v\n%s", tc.Name, r, debug.Stack()),
			}
			l.cfg.Logger.Error("tool panicked", "tool", tc.Name, "error", toolErr)
			result = llm.ToolResult{Success: false, Error: toolErr.Message}
		}
	}()

	tool, ok := l.cfg.Tools.Get(tc.Name)
	if !ok {
		toolErr := &ToolError{
			Kind:       ToolErrorNotFound,
			ToolName:   tc.Name,
			ToolCallID: tc.ID,
			Message:    "Unknown tool: " + tc.Name,
		}
		return llm.ToolResult{Success: false, Error: toolErr.Message}
	}

	argsJSON, err := marshalArgs(tc.Arguments)
	if err != nil {
		toolErr := &ToolError{
			Kind:       ToolErrorInvalidInput,
			ToolName:   tc.Name,
			ToolCallID: tc.ID,
			Message:    fmt.Sprintf("invalid arguments: %v", err),
			Cause:      err,
		}
		return llm.ToolResult{Success: false, Error: toolErr.Message}
	}

	res, execErr := tool.Execute(ctx, argsJSON)
	if execErr != nil {
		toolErr := &ToolError{
			Kind:       ToolErrorExecution,
			ToolName:   tc.Name,
			ToolCallID: tc.ID,
			Message:    execErr.Error(),
			Cause:      execErr,
		}
		return llm.ToolResult{Success: false, Error: toolErr.Message}
	}
	return res
}

func (l *Loop) isCancelled() bool {
	return l.cfg.Cancel != nil && l.cfg.Cancel.Cancelled()
}

func marshalArgs(args map[string]any) ([]byte, error) {
	return json.Marshal(args)
}

// NewRunID returns a fresh run identifier, following the teacher's
// uuid-for-everything convention.
func NewRunID() string { return uuid.NewString() }

func asRetriesExhausted(err error, target **retry.RetriesExhausted) bool {
	e, ok := err.(*retry.RetriesExhausted)
	if !ok {
		return false
	}
	*target = e
	return true
}
