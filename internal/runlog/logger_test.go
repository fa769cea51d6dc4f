package runlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/haasonsaas/nexus/internal/llm"
)

func TestLoggerWritesThreeEntryKindsInOrder(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(dir, "run-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer logger.Close()

	logger.LogRequest([]llm.Message{{Role: llm.RoleUser, Content: llm.Text("hi")}}, []string{"calc"})
	logger.LogResponse(&llm.Response{Content: "4", FinishReason: "stop"})
	logger.LogToolResult("calc", map[string]any{"expr": "2+2"}, llm.ToolResult{Success: true, Content: "4"})

	entries, err := os.Open(findTraceFile(t, dir))
	if err != nil {
		t.Fatalf("open trace file: %v", err)
	}
	defer entries.Close()

	scanner := bufio.NewScanner(entries)
	var kinds []EntryKind
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		kinds = append(kinds, e.Kind)
		if e.Index != len(kinds) {
			t.Fatalf("expected monotonic index %d, got %d", len(kinds), e.Index)
		}
	}
	if len(kinds) != 3 || kinds[0] != EntryRequest || kinds[1] != EntryResponse || kinds[2] != EntryToolResult {
		t.Fatalf("unexpected entry kinds: %v", kinds)
	}
}

func TestLoggerSurvivesNilResponse(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(dir, "run-2")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer logger.Close()

	logger.LogResponse(nil)

	data, err := os.ReadFile(findTraceFile(t, dir))
	if err != nil {
		t.Fatalf("read trace file: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected no entry written for nil response, got %q", data)
	}
}

func findTraceFile(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one trace file, got %d", len(entries))
	}
	return filepath.Join(dir, entries[0].Name())
}
