package replyhandlers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haasonsaas/nexus/internal/plugins"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugin.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestShellPluginAdapterPromptExtension(t *testing.T) {
	script := writeScript(t, "#!/bin/bash\ncat >/dev/null\necho '{\"success\":true,\"prompt\":\"extra context\"}'\n")

	adapter, err := NewShellPluginAdapter(script)
	if err != nil {
		t.Fatalf("NewShellPluginAdapter: %v", err)
	}

	got := adapter.PromptExtension(plugins.PluginContext{Platform: "test"})
	if got != "extra context" {
		t.Fatalf("expected prompt extension, got %q", got)
	}
}

func TestShellPluginAdapterNonJSONOutputDegrades(t *testing.T) {
	script := writeScript(t, "#!/bin/bash\ncat >/dev/null\necho 'not json'\n")

	adapter, err := NewShellPluginAdapter(script)
	if err != nil {
		t.Fatalf("NewShellPluginAdapter: %v", err)
	}

	if got := adapter.PromptExtension(plugins.PluginContext{}); got != "" {
		t.Fatalf("expected empty contribution on non-JSON output, got %q", got)
	}
}

func TestShellPluginAdapterNonZeroExitDegrades(t *testing.T) {
	script := writeScript(t, "#!/bin/bash\ncat >/dev/null\nexit 1\n")

	adapter, err := NewShellPluginAdapter(script)
	if err != nil {
		t.Fatalf("NewShellPluginAdapter: %v", err)
	}

	if got := adapter.PromptExtension(plugins.PluginContext{}); got != "" {
		t.Fatalf("expected empty contribution on non-zero exit, got %q", got)
	}
}

func TestNewShellPluginAdapterRejectsUnsupportedExtension(t *testing.T) {
	path := writeScript(t, "#!/bin/bash\n")
	renamed := strings.TrimSuffix(path, ".sh") + ".txt"
	if err := os.Rename(path, renamed); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if _, err := NewShellPluginAdapter(renamed); err == nil {
		t.Fatalf("expected error for unsupported script extension")
	}
}
