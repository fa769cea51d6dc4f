// Package sessions implements the Session Manager (spec §4.6): a
// keyed table of live conversations, each bound to its own working
// directory, tool instances, and cancel flag, with at-most-one active
// run per session enforced without holding the table mutex for the
// run's duration.
//
// Grounded on the teacher's keyed-map-plus-mutex session stores and,
// for the at-most-one-active-run guarantee, the ref-counted per-key
// mutex pattern from internal/agent/tool_registry.go's sessionLock.
package sessions

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/haasonsaas/nexus/internal/agent"
)

// MCPServerConfig is an opaque per-session external tool server
// configuration (spec §3's SessionState.mcp_servers); its shape is an
// external-collaborator concern and is not otherwise interpreted
// here.
type MCPServerConfig map[string]any

// cancelFlag implements agent.CancelFlag with an atomic bool, per
// spec §5's cooperative cancellation model (no forced task
// abortion).
type cancelFlag struct {
	raised atomic.Bool
}

func (f *cancelFlag) Cancelled() bool { return f.raised.Load() }
func (f *cancelFlag) raise()          { f.raised.Store(true) }

// Session is one isolated conversation: its own history (via the
// agent.Loop's contextmgr.Manager, owned by the caller that
// constructs Loop), working directory, tool registry, and cancel
// flag.
type Session struct {
	ID     string
	Cwd    string
	Agent  string
	MCP    []MCPServerConfig
	Tools  *agent.Registry
	Cancel *cancelFlag

	Loop *agent.Loop
}

// CancelFlag returns the session's cancel flag, for wiring into
// agent.Config.Cancel.
func (s *Session) CancelFlag() agent.CancelFlag { return s.Cancel }

type runLock struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the keyed table of live Sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	runLocksMu sync.Mutex
	runLocks   map[string]*runLock
}

// NewManager constructs an empty Session Manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		runLocks: make(map[string]*runLock),
	}
}

// ErrAlreadyExists is returned by Create when the session id is
// already live.
var ErrAlreadyExists = fmt.Errorf("session already exists")

// BuildLoop constructs the agent.Loop for a freshly created session.
// The Session Manager does not know how to build an LLM client or
// context manager itself (those are external collaborators per spec
// §1); the caller supplies this factory.
type BuildLoop func(s *Session) *agent.Loop

// RebuildTool re-instantiates a workspace-bound tool against a fresh
// cwd, or returns existing unchanged if it is stateless with respect
// to the workspace (spec §4.5, §4.6).
type RebuildTool func(name string, existing agent.Tool, cwd string) agent.Tool

// Create builds a fresh Session bound to cwd. Workspace-bound tools
// in baseTools are re-constructed via rebuild; stateless tools are
// reused by reference. Fails if sessionID is already live.
func (m *Manager) Create(sessionID, cwd, agentName string, mcpServers []MCPServerConfig, baseTools *agent.Registry, rebuild RebuildTool, build BuildLoop) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; exists {
		return nil, ErrAlreadyExists
	}

	tools := baseTools.Clone(func(name string, existing agent.Tool) agent.Tool {
		return rebuild(name, existing, cwd)
	})

	s := &Session{
		ID:     sessionID,
		Cwd:    cwd,
		Agent:  agentName,
		MCP:    mcpServers,
		Tools:  tools,
		Cancel: &cancelFlag{},
	}
	s.Loop = build(s)

	m.sessions[sessionID] = s
	return s, nil
}

// Get looks up a session by id.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Remove raises the session's cancel flag and drops the table entry.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if ok {
		s.Cancel.raise()
	}
}

// Cancel raises the cancel flag without removing the session.
func (m *Manager) Cancel(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if ok {
		s.Cancel.raise()
	}
}

// lockRun acquires the per-session run lock without holding the
// table mutex, enforcing at-most-one-active-run-per-session (spec
// §4.6, §5's shared-resource policy) while leaving other sessions
// free to run concurrently.
func (m *Manager) lockRun(sessionID string) func() {
	m.runLocksMu.Lock()
	lock := m.runLocks[sessionID]
	if lock == nil {
		lock = &runLock{}
		m.runLocks[sessionID] = lock
	}
	lock.refs++
	m.runLocksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		m.runLocksMu.Lock()
		lock.refs--
		if lock.refs <= 0 {
			delete(m.runLocks, sessionID)
		}
		m.runLocksMu.Unlock()
	}
}

// Run serialises calls to session.Loop.Run for the same session id;
// different sessions run concurrently with no shared mutable state.
func (m *Manager) Run(ctx context.Context, sessionID string) (string, error) {
	s, ok := m.Get(sessionID)
	if !ok {
		return "", fmt.Errorf("unknown session: %s", sessionID)
	}

	unlock := m.lockRun(sessionID)
	defer unlock()

	return s.Loop.Run(ctx), nil
}
