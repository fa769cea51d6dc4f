package replyhandlers

import (
	"context"
	"errors"
	"testing"

	"github.com/haasonsaas/nexus/internal/plugins"
)

func TestNotifyHandlerSuccess(t *testing.T) {
	h := NewNotifyHandler()
	h.runner = func(context.Context, string, string) error { return nil }

	out, cont, err := h.Handle(context.Background(), `before <notify title="t" message="m"/> after`, plugins.PluginContext{})
	if err != nil || !cont {
		t.Fatalf("unexpected: out=%q cont=%v err=%v", out, cont, err)
	}
	if out != "before ✓ after" {
		t.Fatalf("expected success glyph, got %q", out)
	}
}

func TestNotifyHandlerFailure(t *testing.T) {
	h := NewNotifyHandler()
	h.runner = func(context.Context, string, string) error { return errors.New("no backend") }

	out, _, err := h.Handle(context.Background(), `<notify title="t" message="m"/>`, plugins.PluginContext{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out != "✗" {
		t.Fatalf("expected failure glyph, got %q", out)
	}
}

func TestNotifyHandlerLeavesOtherTagsAlone(t *testing.T) {
	h := NewNotifyHandler()
	h.runner = func(context.Context, string, string) error { return nil }

	text := `<set-timer time="in 1 minute" reason="x"/>`
	out, _, err := h.Handle(context.Background(), text, plugins.PluginContext{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out != text {
		t.Fatalf("expected non-notify tag untouched, got %q", out)
	}
}
