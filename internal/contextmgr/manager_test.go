package contextmgr

import (
	"context"
	"strings"
	"testing"

	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/internal/tokenizer"
)

type fakeSummariser struct {
	content string
	err     error
}

func (f *fakeSummariser) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content}, nil
}

func TestAppendAndContextRoundTrip(t *testing.T) {
	m := New("you are a bot", nil, 1000, tokenizer.NewCounter(), nil)
	m.AppendUser("hello")
	m.AppendAssistant(&llm.Response{Content: "hi"})

	msgs, _ := m.Context()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem {
		t.Fatalf("expected first message to be system, got %s", msgs[0].Role)
	}
}

func TestToolResultErrorFormatting(t *testing.T) {
	m := New("sys", nil, 1000, tokenizer.NewCounter(), nil)
	m.AppendTool(llm.ToolResult{Success: false, Error: "boom"}, "t1", "nope")
	hist := m.HistorySnapshot()
	last := hist[len(hist)-1]
	if last.Content.AsText() != "Error: boom" {
		t.Fatalf("expected 'Error: boom', got %q", last.Content.AsText())
	}
}

func TestMaybeSummariseZeroLimitTriggersOncePerStep(t *testing.T) {
	m := New("sys", nil, 0, tokenizer.NewCounter(), &fakeSummariser{content: "did stuff"})
	m.AppendUser("turn one")
	m.AppendAssistant(&llm.Response{Content: "ack"})

	if err := m.MaybeSummarise(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hist := m.HistorySnapshot()
	foundSummary := false
	for _, msg := range hist {
		if strings.HasPrefix(msg.Content.AsText(), ExecutionSummaryPrefix) {
			foundSummary = true
		}
	}
	if !foundSummary {
		t.Fatalf("expected an execution summary message, history=%+v", hist)
	}

	// skip-next-check flag prevents re-entering immediately.
	if err := m.MaybeSummarise(context.Background()); err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
}

func TestSummarisePreservesSystemAndUserTurns(t *testing.T) {
	m := New("sys", nil, 5, tokenizer.NewCounter(), &fakeSummariser{content: "summary text"})
	m.AppendUser("user one")
	m.AppendAssistant(&llm.Response{Content: "working on it", ToolCalls: []llm.ToolCall{{ID: "t1", Name: "calc"}}})
	m.AppendTool(llm.ToolResult{Success: true, Content: "4"}, "t1", "calc")
	m.AppendUser("user two")

	if err := m.MaybeSummarise(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hist := m.HistorySnapshot()
	if hist[0].Role != llm.RoleSystem {
		t.Fatalf("system message must remain first")
	}
	userCount := 0
	for _, msg := range hist {
		if msg.Role == llm.RoleUser && !strings.HasPrefix(msg.Content.AsText(), ExecutionSummaryPrefix) {
			userCount++
		}
	}
	if userCount != 2 {
		t.Fatalf("expected both original user turns preserved, got %d", userCount)
	}
}

func TestFallbackSummaryUsedWhenSummariserFails(t *testing.T) {
	m := New("sys", nil, 0, tokenizer.NewCounter(), &fakeSummariser{err: context.DeadlineExceeded})
	m.AppendUser("turn")
	m.AppendAssistant(&llm.Response{Content: "doing work"})

	if err := m.MaybeSummarise(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hist := m.HistorySnapshot()
	found := false
	for _, msg := range hist {
		if strings.Contains(msg.Content.AsText(), "doing work") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fallback summary to contain raw slice text")
	}
}
