// Package tools provides the illustrative concrete Tool
// implementations named in spec §4.5/§8: a sandboxed read-only file
// tool and a trivial arithmetic tool, both behind
// internal/agent.Tool.
package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver resolves workspace-relative paths to absolute paths,
// rejecting any result that escapes the workspace root (spec §6's
// filesystem sandbox rule).
//
// Grounded on the teacher's internal/tools/files.Resolver, re-derived
// rather than copied per SPEC_FULL.md's note that the concrete file
// tools are not reproduced verbatim.
type Resolver struct {
	Root string
}

// Resolve returns the canonical absolute path for a workspace-relative
// (or absolute) path argument, or an error if it escapes Root.
func (r Resolver) Resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("path is required")
	}

	root := strings.TrimSpace(r.Root)
	if root == "" {
		root = "."
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}

	var target string
	if filepath.IsAbs(clean) {
		target = filepath.Clean(clean)
	} else {
		target = filepath.Join(rootAbs, clean)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes workspace")
	}
	return targetAbs, nil
}
