// Package runlog implements the per-run trace file of spec §4.8: a
// timestamped, append-only log under the session's workspace with
// three entry kinds (REQUEST, RESPONSE, TOOL_RESULT), each carrying a
// monotonic index. Write failures never abort the run.
//
// Grounded on the teacher's internal/agent/trace.go TracePlugin:
// mutex-guarded writer, JSONL-per-line, fsync-on-write-if-file,
// best-effort error handling — scoped to spec's three entry kinds
// instead of the teacher's general AgentEvent stream.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/haasonsaas/nexus/internal/llm"
)

// EntryKind is one of the three entry shapes spec §4.8 names.
type EntryKind string

const (
	EntryRequest    EntryKind = "REQUEST"
	EntryResponse   EntryKind = "RESPONSE"
	EntryToolResult EntryKind = "TOOL_RESULT"
)

// Entry is one line of the run log: a monotonic index, a wall-clock
// timestamp, a kind, and a kind-specific payload.
type Entry struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Kind      EntryKind `json:"kind"`
	Payload   any       `json:"payload"`
}

// RequestPayload is logged before every LLM call (spec §4.8: messages
// + tool-name list).
type RequestPayload struct {
	Messages  []llm.Message `json:"messages"`
	ToolNames []string      `json:"tool_names"`
}

// ResponsePayload is logged after every LLM call.
type ResponsePayload struct {
	Content      string         `json:"content"`
	Thinking     string         `json:"thinking,omitempty"`
	ToolCalls    []llm.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string         `json:"finish_reason"`
}

// ToolResultPayload is logged after each tool execution.
type ToolResultPayload struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Success   bool           `json:"success"`
	Content   string         `json:"content,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Logger is a single run's append-only trace file. It satisfies
// internal/agent.RunLogger.
type Logger struct {
	mu    sync.Mutex
	w     *os.File
	index int
}

// Open creates (or truncates) a timestamped trace file under dir for
// runID, matching spec §4.8's "timestamped append-only text file
// under the session's workspace".
func Open(dir, runID string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}
	name := fmt.Sprintf("run-%s-%s.jsonl", time.Now().UTC().Format("20060102T150405Z"), runID)
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("create run log file: %w", err)
	}
	return &Logger{w: f}, nil
}

// Close releases the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	return l.w.Close()
}

// LogRequest records the messages and tool names about to be sent to
// the LLM Client.
func (l *Logger) LogRequest(messages []llm.Message, toolNames []string) {
	l.write(EntryRequest, RequestPayload{Messages: messages, ToolNames: toolNames})
}

// LogResponse records the LLM Client's response for this step.
func (l *Logger) LogResponse(resp *llm.Response) {
	if resp == nil {
		return
	}
	l.write(EntryResponse, ResponsePayload{
		Content:      resp.Content,
		Thinking:     resp.Thinking,
		ToolCalls:    resp.ToolCalls,
		FinishReason: resp.FinishReason,
	})
}

// LogToolResult records one tool invocation's outcome.
func (l *Logger) LogToolResult(name string, arguments map[string]any, result llm.ToolResult) {
	l.write(EntryToolResult, ToolResultPayload{
		Name:      name,
		Arguments: arguments,
		Success:   result.Success,
		Content:   result.Content,
		Error:     result.Error,
	})
}

// write appends one Entry as a single JSON line, best-effort: a
// marshal or I/O failure is silently swallowed rather than
// propagated, per spec §4.8 ("failure to write never aborts the
// run").
func (l *Logger) write(kind EntryKind, payload any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return
	}

	l.index++
	entry := Entry{Index: l.index, Timestamp: time.Now(), Kind: kind, Payload: payload}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	if _, err := l.w.Write(data); err != nil {
		return
	}
	_ = l.w.Sync()
}
