package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWorkspaceReadToolReadsFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "note.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tool := NewWorkspaceReadTool(dir, 0)
	args, _ := json.Marshal(workspaceReadInput{Path: "note.txt"})
	result, err := tool.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success || result.Content != "hello" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestWorkspaceReadToolRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	tool := NewWorkspaceReadTool(dir, 0)
	args, _ := json.Marshal(workspaceReadInput{Path: "../outside.txt"})
	result, err := tool.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Fatalf("expected escape to be rejected")
	}
}

func TestWorkspaceReadToolTruncatesAtMaxSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "big.txt"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tool := NewWorkspaceReadTool(dir, 4)
	args, _ := json.Marshal(workspaceReadInput{Path: "big.txt"})
	result, err := tool.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Content != "0123" {
		t.Fatalf("expected truncated content, got %q", result.Content)
	}
}

func TestWorkspaceReadToolMissingFile(t *testing.T) {
	dir := t.TempDir()
	tool := NewWorkspaceReadTool(dir, 0)
	args, _ := json.Marshal(workspaceReadInput{Path: "missing.txt"})
	result, err := tool.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure for missing file")
	}
}
