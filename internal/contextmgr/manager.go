// Package contextmgr implements the Context Manager (spec §4.3): it
// owns one conversation's message history and tool list, tracks token
// usage from two signals, and performs the per-user-turn
// summarisation pass when either signal crosses the configured limit.
//
// Grounded on the teacher's internal/compaction package for the
// slicing idiom, following patterns from clawdbot's agents/
// compaction.ts — scoped down to the single-slice-per-user-turn
// algorithm this runtime needs.
package contextmgr

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/internal/tokenizer"
)

// SummaryInstruction is the system prompt used for the one-shot
// summarisation LLM call (spec §4.3 step 4).
const SummaryInstruction = "summarise this agent execution; focus on tasks completed and tools called; ≤1000 words; omit user content"

// ExecutionSummaryPrefix marks a synthetic user-role message produced
// by a summarisation pass (spec §3, §8).
const ExecutionSummaryPrefix = "[Execution Summary]"

// Manager owns one conversation's history and tool list.
type Manager struct {
	mu sync.Mutex

	history []llm.Message
	tools   []llm.ToolSchema

	counter    *tokenizer.Counter
	tokenLimit int

	lastAPITokens *int
	skipNextCheck bool

	summariser llm.Client
}

// New constructs a Manager seeded with the given system prompt and
// tool list. summariser is used for the one-shot summary LLM call;
// it may be the same Client the Agent Loop otherwise uses.
func New(systemPrompt string, tools []llm.ToolSchema, tokenLimit int, counter *tokenizer.Counter, summariser llm.Client) *Manager {
	return &Manager{
		history:    []llm.Message{{Role: llm.RoleSystem, Content: llm.Text(systemPrompt)}},
		tools:      tools,
		counter:    counter,
		tokenLimit: tokenLimit,
		summariser: summariser,
	}
}

// AppendUser appends a user-role turn.
func (m *Manager) AppendUser(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, llm.Message{Role: llm.RoleUser, Content: llm.Text(text)})
}

// AppendAssistant appends the assistant turn produced from an LLM
// Response.
func (m *Manager) AppendAssistant(resp *llm.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   llm.Text(resp.Content),
		Thinking:  resp.Thinking,
		ToolCalls: resp.ToolCalls,
	})
}

// AppendTool appends the tool-role message produced from executing
// one ToolCall. Per spec §3, an unsuccessful result's message content
// is "Error: " + error.
func (m *Manager) AppendTool(result llm.ToolResult, toolCallID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content := result.Content
	if !result.Success {
		content = "Error: " + result.Error
	}
	m.history = append(m.history, llm.Message{
		Role:       llm.RoleTool,
		Content:    llm.Text(content),
		ToolCallID: toolCallID,
		ToolName:   name,
	})
}

// Context returns the payload for the next LLM call. The caller must
// not mutate the returned slices.
func (m *Manager) Context() ([]llm.Message, []llm.ToolSchema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history, m.tools
}

// HistorySnapshot returns a stable copy of the history for
// inspection.
func (m *Manager) HistorySnapshot() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Message, len(m.history))
	copy(out, m.history)
	return out
}

// UpdateAPITokens records the provider-reported total_tokens, when
// present. Per the Open Question resolution in spec §9: the
// provider-reported signal is only consulted by MaybeSummarise when
// usage is non-nil, avoiding a double-fire on providers that never
// report usage.
func (m *Manager) UpdateAPITokens(usage *llm.Usage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if usage == nil {
		return
	}
	total := usage.TotalTokens
	m.lastAPITokens = &total
}

func (m *Manager) estimateMessageTokens(msg llm.Message) int {
	n := tokenizer.PerMessageOverhead
	n += m.counter.Count(msg.Content.AsText())
	n += m.counter.Count(msg.Thinking)
	if len(msg.ToolCalls) > 0 {
		b, _ := json.Marshal(msg.ToolCalls)
		n += m.counter.Count(string(b))
	}
	return n
}

func (m *Manager) estimateTotalTokens() int {
	total := 0
	for _, msg := range m.history {
		total += m.estimateMessageTokens(msg)
	}
	return total
}

// MaybeSummarise is idempotent and must be called before each LLM
// request. It performs the summarisation algorithm of spec §4.3 when
// either token signal exceeds tokenLimit.
func (m *Manager) MaybeSummarise(ctx context.Context) error {
	m.mu.Lock()
	if m.skipNextCheck {
		m.skipNextCheck = false
		m.mu.Unlock()
		return nil
	}

	localEstimate := m.estimateTotalTokens()
	triggerLocal := localEstimate > m.tokenLimit
	triggerProvider := m.lastAPITokens != nil && *m.lastAPITokens > m.tokenLimit
	if !triggerLocal && !triggerProvider {
		m.mu.Unlock()
		return nil
	}

	history := make([]llm.Message, len(m.history))
	copy(history, m.history)
	m.mu.Unlock()

	newHistory, err := m.summarise(ctx, history)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.history = newHistory
	m.skipNextCheck = true
	m.mu.Unlock()
	return nil
}

// summarise implements spec §4.3 steps 1-5.
func (m *Manager) summarise(ctx context.Context, history []llm.Message) ([]llm.Message, error) {
	if len(history) == 0 || history[0].Role != llm.RoleSystem {
		return history, nil
	}

	// U = indices of all user messages except the system message at
	// index 0 (spec §4.3 step 1). Synthetic "[Execution Summary]"
	// messages are user-role too, so a second summarisation pass keeps
	// each prior summary verbatim as an entry of U rather than dropping
	// it; only the messages that follow it are summarised.
	var userIdx []int
	for i, msg := range history {
		if i > 0 && msg.Role == llm.RoleUser {
			userIdx = append(userIdx, i)
		}
	}

	newHistory := []llm.Message{history[0]}
	for i, uidx := range userIdx {
		newHistory = append(newHistory, history[uidx])

		end := len(history)
		if i+1 < len(userIdx) {
			end = userIdx[i+1]
		}
		sliceStart := uidx + 1
		if sliceStart >= end {
			continue
		}
		execSlice := history[sliceStart:end]

		summaryText, err := m.summariseSlice(ctx, execSlice)
		if err != nil {
			summaryText = fallbackSummary(execSlice)
		}
		newHistory = append(newHistory, llm.Message{
			Role:    llm.RoleUser,
			Content: llm.Text(ExecutionSummaryPrefix + " " + summaryText),
		})
	}

	return newHistory, nil
}

func (m *Manager) summariseSlice(ctx context.Context, slice []llm.Message) (string, error) {
	if m.summariser == nil {
		return fallbackSummary(slice), nil
	}
	req := llm.Request{
		System:   SummaryInstruction,
		Messages: slice,
	}
	resp, err := m.summariser.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// fallbackSummary concatenates the raw slice when summary generation
// fails: lossy but token-bounded by the original, per spec §4.3.
func fallbackSummary(slice []llm.Message) string {
	var sb strings.Builder
	for _, msg := range slice {
		if text := msg.Content.AsText(); text != "" {
			sb.WriteString(string(msg.Role))
			sb.WriteString(": ")
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
