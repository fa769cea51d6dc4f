package agent

import (
	"errors"
	"fmt"
)

// Sentinel errors for agent loop control-flow signals, grounded on
// the teacher's internal/agent/errors.go. Run builds its terminal
// message from these rather than from ad hoc literals, so the
// sentinel text is the single source of truth for the Cancellation
// and BudgetExhausted terminal messages of spec §7.
var (
	// ErrBudgetExhausted indicates the loop reached max_steps without
	// a terminal answer (spec §4.4, §7 BudgetExhausted).
	ErrBudgetExhausted = errors.New("task couldn't be completed")

	// ErrCancelled indicates the session's cancel flag was observed
	// raised (spec §7 Cancellation).
	ErrCancelled = errors.New("run cancelled")

	// ErrNoClient indicates no LLM Client is configured.
	ErrNoClient = errors.New("no LLM client configured")
)

// ToolErrorKind categorises a tool execution fault, mirroring the
// teacher's ToolErrorType enum.
type ToolErrorKind string

const (
	ToolErrorNotFound     ToolErrorKind = "not_found"
	ToolErrorInvalidInput ToolErrorKind = "invalid_input"
	ToolErrorExecution    ToolErrorKind = "execution"
	ToolErrorPanic        ToolErrorKind = "panic"
)

// ToolError is a structured fault from tool execution (spec §7
// ToolFault / ProtocolViolation). The Agent Loop never lets this
// escape as a Go error — it is always converted into a failed
// llm.ToolResult before being appended to history.
type ToolError struct {
	Kind       ToolErrorKind
	ToolName   string
	ToolCallID string
	Message    string
	Cause      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("[tool:%s] %s: %s", e.Kind, e.ToolName, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// capitalize upper-cases the first rune of s, for turning a lowercase
// sentinel error's Error() text into the leading word of a
// user-facing terminal message.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
