package replyhandlers

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/haasonsaas/nexus/internal/plugins"
)

// NotifyHandler is the built-in Notification reply handler (spec
// §4.7, priority 60): it scans for notify tags and dispatches each to
// a platform-specific desktop-notification backend, replacing the tag
// with a success or failure glyph.
//
// Grounded on the teacher's cmd/nexus-edge/node_tools.go runtime.GOOS
// switch + exec.LookPath fallback chain idiom.
type NotifyHandler struct {
	logger *slog.Logger
	runner func(ctx context.Context, title, message string) error
}

// NewNotifyHandler builds a NotifyHandler using the host's native
// notification backend.
func NewNotifyHandler() *NotifyHandler {
	return &NotifyHandler{logger: slog.Default(), runner: dispatchNotification}
}

func (h *NotifyHandler) Priority() int { return 60 }

func (h *NotifyHandler) Handle(ctx context.Context, text string, _ plugins.PluginContext) (string, bool, error) {
	out := tagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		m := tagPattern.FindStringSubmatch(tag)
		if !strings.EqualFold(m[1], "notify") {
			return tag
		}
		attrs := parseAttrs(m[2])
		title, message := attrs["title"], attrs["message"]

		if err := h.runner(ctx, title, message); err != nil {
			h.logger.Warn("notification dispatch failed", "title", title, "error", err)
			return "✗"
		}
		return "✓"
	})
	return out, true, nil
}

// dispatchNotification sends a desktop notification via the first
// available platform backend. Returns an error if none is available
// or the backend command fails.
func dispatchNotification(ctx context.Context, title, message string) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		return exec.CommandContext(ctx, "osascript", "-e", script).Run()

	case "linux":
		if _, err := exec.LookPath("notify-send"); err == nil {
			return exec.CommandContext(ctx, "notify-send", title, message).Run()
		}
		return fmt.Errorf("notify-send not found")

	default:
		return fmt.Errorf("no notification backend for %s", runtime.GOOS)
	}
}
