// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package orchestration implements the multi-session coordinator spec.md
// §4.8 names: the session manager, the broadcast channel, the
// maximum-concurrent-sessions counter, and the tool-call tracker, plus the
// ordered shutdown sequence spec.md §4.8/§5 describes.
package orchestration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/skein/pkg/communication"
	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/eventstore"
	"github.com/teradata-labs/skein/pkg/hooks"
)

// Sentinel errors matching spec.md §5's per-session concurrency rule: the
// session manager rejects overlapping runs with SessionNotActive or
// InvalidOperation.
var (
	ErrSessionNotActive  = fmt.Errorf("orchestration: session not active")
	ErrInvalidOperation  = fmt.Errorf("orchestration: invalid operation")
	ErrOverCapacity      = fmt.Errorf("orchestration: at maximum concurrent sessions")
	ErrShuttingDown      = fmt.Errorf("orchestration: orchestrator is shutting down")
)

// sessionEntry is the orchestrator's bookkeeping for one active session.
type sessionEntry struct {
	id         string
	cancel     context.CancelFunc
	hookEngine *hooks.Engine
	startedAt  time.Time
	lastActive time.Time
}

// Config configures a SessionManager.
type Config struct {
	Store                *eventstore.Store
	Bus                  *communication.Bus
	Logger               *zap.Logger
	MaxConcurrentSessions int
}

// SessionManager is the orchestrator spec.md §4.8 names. Safe for
// concurrent use.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	toolCallsMu sync.Mutex
	toolCalls   map[string]chan interface{}

	store         *eventstore.Store
	bus           *communication.Bus
	logger        *zap.Logger
	maxConcurrent int
	accepting     atomic.Bool
}

// NewSessionManager builds a SessionManager. If cfg.Bus is nil, a new bus
// is created; if cfg.MaxConcurrentSessions is 0, concurrency is unbounded.
func NewSessionManager(cfg Config) *SessionManager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = communication.NewBus(logger)
	}
	m := &SessionManager{
		sessions:      make(map[string]*sessionEntry),
		toolCalls:     make(map[string]chan interface{}),
		store:         cfg.Store,
		bus:           bus,
		logger:        logger,
		maxConcurrent: cfg.MaxConcurrentSessions,
	}
	m.accepting.Store(true)
	return m
}

// CanAcceptSession reports whether the orchestrator is accepting new
// sessions: it isn't shutting down, and (if a cap is configured) it is
// under its maximum-concurrent-sessions limit.
func (m *SessionManager) CanAcceptSession() bool {
	if !m.accepting.Load() {
		return false
	}
	if m.maxConcurrent <= 0 {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions) < m.maxConcurrent
}

// CreateSession creates a new session in the event store and registers it
// as active.
func (m *SessionManager) CreateSession(ctx context.Context, workspaceID string, payload events.SessionStartPayload) (*eventstore.Session, error) {
	if !m.CanAcceptSession() {
		if !m.accepting.Load() {
			return nil, ErrShuttingDown
		}
		return nil, ErrOverCapacity
	}

	sess, err := m.store.CreateSession(ctx, workspaceID, payload)
	if err != nil {
		return nil, fmt.Errorf("orchestration: create session: %w", err)
	}
	m.activate(sess.ID)
	return sess, nil
}

// ResumeSession marks an existing session active. It returns
// ErrInvalidOperation if the session is already active (spec.md §5: "at
// most one agent run per session executes at a time").
func (m *SessionManager) ResumeSession(ctx context.Context, sessionID string) (*eventstore.Session, error) {
	if !m.CanAcceptSession() {
		if !m.accepting.Load() {
			return nil, ErrShuttingDown
		}
		return nil, ErrOverCapacity
	}

	m.mu.RLock()
	_, alreadyActive := m.sessions[sessionID]
	m.mu.RUnlock()
	if alreadyActive {
		return nil, fmt.Errorf("%w: session %s already has an active run", ErrInvalidOperation, sessionID)
	}

	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("orchestration: resume session: %w", err)
	}
	m.activate(sessionID)
	return sess, nil
}

// ForkSession forks sessionID at atEventID and activates the new session.
func (m *SessionManager) ForkSession(ctx context.Context, sessionID, atEventID, name string) (*eventstore.Session, error) {
	forked, err := m.store.Fork(ctx, sessionID, atEventID, name)
	if err != nil {
		return nil, fmt.Errorf("orchestration: fork session: %w", err)
	}
	m.activate(forked.ID)
	return forked, nil
}

// EndSession appends session.end, cancels the session's run (if any), and
// removes it from the active cache.
func (m *SessionManager) EndSession(ctx context.Context, sessionID, reason string) error {
	entry := m.deactivate(sessionID)
	if entry != nil {
		entry.cancel()
	}
	if _, err := m.store.Append(ctx, sessionID, events.EventSessionEnd, events.SessionEndPayload{Reason: reason}, ""); err != nil {
		return fmt.Errorf("orchestration: end session: %w", err)
	}
	m.bus.Publish(communication.RuntimeEvent{Type: communication.EventSessionEnded, SessionID: sessionID})
	return nil
}

// Abort cancels sessionID's in-flight run without ending the session.
// Returns ErrSessionNotActive if no run is in flight.
func (m *SessionManager) Abort(sessionID string) error {
	m.mu.RLock()
	entry, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotActive, sessionID)
	}
	entry.cancel()
	return nil
}

// activate registers sessionID as active, wiring a fresh cancellation
// context and per-session hook engine.
func (m *SessionManager) activate(sessionID string) context.CancelFunc {
	_, cancel := context.WithCancel(context.Background())
	now := time.Now()
	m.mu.Lock()
	m.sessions[sessionID] = &sessionEntry{
		id:         sessionID,
		cancel:     cancel,
		hookEngine: hooks.NewEngine(m.store, sessionID, m.logger),
		startedAt:  now,
		lastActive: now,
	}
	m.mu.Unlock()
	return cancel
}

func (m *SessionManager) deactivate(sessionID string) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(m.sessions, sessionID)
	return entry
}

// HookEngine returns the per-session hook engine registered at activation,
// so an agent run can register hooks and drain them at run boundaries.
func (m *SessionManager) HookEngine(sessionID string) (*hooks.Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return entry.hookEngine, true
}

// Touch records now as sessionID's last activity, which the idle-session
// reaper compares against its cutoff.
func (m *SessionManager) Touch(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.sessions[sessionID]; ok {
		entry.lastActive = time.Now()
	}
}

// IdleSessions returns session ids whose last activity predates cutoff,
// for the idle-session reaper (SPEC_FULL.md §11's cron binding).
func (m *SessionManager) IdleSessions(cutoff time.Time) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var idle []string
	for id, entry := range m.sessions {
		if entry.lastActive.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	return idle
}

// RegisterToolCall creates a one-shot receiver for a client-supplied tool
// result (e.g. AskUser), keyed by id (spec.md §4.8).
func (m *SessionManager) RegisterToolCall(id string) <-chan interface{} {
	ch := make(chan interface{}, 1)
	m.toolCallsMu.Lock()
	m.toolCalls[id] = ch
	m.toolCallsMu.Unlock()
	return ch
}

// ResolveToolCall delivers value to the pending receiver registered under
// id, if any, and reports whether one was waiting.
func (m *SessionManager) ResolveToolCall(id string, value interface{}) bool {
	m.toolCallsMu.Lock()
	ch, ok := m.toolCalls[id]
	if ok {
		delete(m.toolCalls, id)
	}
	m.toolCallsMu.Unlock()
	if !ok {
		return false
	}
	ch <- value
	close(ch)
	return true
}

// Subscribe returns a new broadcast subscription (spec.md §4.8).
func (m *SessionManager) Subscribe(capacity int) (*communication.Subscription, error) {
	return m.bus.Subscribe(capacity)
}

// Publish broadcasts a runtime event to every subscriber.
func (m *SessionManager) Publish(event communication.RuntimeEvent) {
	m.bus.Publish(event)
}

// ActiveSessionCount reports how many sessions currently have an active
// run.
func (m *SessionManager) ActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown runs spec.md §4.8's ordered shutdown sequence: (a) stop
// accepting new sessions, (b) cancel every active run's cancellation
// token, (c) drain each session's background hook tasks under ctx's
// deadline, (d) end all active sessions, (e) shut down the broadcast bus.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.accepting.Store(false)

	m.mu.RLock()
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	for _, e := range entries {
		e.cancel()
	}

	var drainErr error
	for _, e := range entries {
		if err := e.hookEngine.Tracker().Drain(ctx); err != nil {
			drainErr = err
			m.logger.Warn("orchestration: hook drain did not finish before shutdown deadline",
				zap.String("session_id", e.id), zap.Error(err))
		}
	}

	for _, e := range entries {
		if err := m.EndSession(context.Background(), e.id, "shutdown"); err != nil {
			m.logger.Warn("orchestration: failed to end session during shutdown",
				zap.String("session_id", e.id), zap.Error(err))
		}
	}

	m.bus.Shutdown()
	return drainErr
}
