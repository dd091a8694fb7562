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
package hooks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/eventstore"
)

// Engine runs pre-tool-use hooks in order and dispatches post-tool-use
// hooks to the background Tracker. Safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	pre       []PreToolUseHook
	post      []PostToolUseHook
	store     *eventstore.Store
	sessionID string
	logger    *zap.Logger
	tracker   *Tracker
}

// NewEngine creates a hook engine that appends hook.* events to store for
// sessionID and drives post-tool-use hooks through its own Tracker.
func NewEngine(store *eventstore.Store, sessionID string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     store,
		sessionID: sessionID,
		logger:    logger,
		tracker:   NewTracker(),
	}
}

// RegisterPreToolUse adds a blocking pre-tool-use hook.
func (e *Engine) RegisterPreToolUse(h PreToolUseHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pre = append(e.pre, h)
}

// RegisterPostToolUse adds a fire-and-forget post-tool-use hook.
func (e *Engine) RegisterPostToolUse(h PostToolUseHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.post = append(e.post, h)
}

// Tracker returns the engine's background-task tracker, drained by the
// agent runner at session boundaries (spec.md §4.7 step 1 and §5).
func (e *Engine) Tracker() *Tracker { return e.tracker }

// RunPreToolUse runs every registered pre-tool-use hook in registration
// order against req. The first hook to return block short-circuits the
// rest; a modify decision replaces the arguments that later hooks see and
// evaluation continues. A hook that itself errors (as opposed to returning a
// block decision) is treated as continue — fail-open (spec.md §5: "Hook
// errors are logged and treated as continue (fail-open) except for
// declared blocking hooks").
func (e *Engine) RunPreToolUse(ctx context.Context, req PreToolUseRequest) (PreToolUseResult, error) {
	e.mu.RLock()
	hooks := append([]PreToolUseHook(nil), e.pre...)
	e.mu.RUnlock()

	for _, h := range hooks {
		start := time.Now()
		e.emit(ctx, events.EventHookTriggered, events.HookTriggeredPayload{HookName: h.Name(), Stage: "pre_tool_use"})

		result, err := h.PreToolUse(ctx, req)
		duration := time.Since(start).Milliseconds()

		if err != nil {
			e.logger.Warn("pre-tool-use hook errored, continuing (fail-open)",
				zap.String("hook", h.Name()), zap.Error(err))
			e.emit(ctx, events.EventHookCompleted, events.HookCompletedPayload{HookName: h.Name(), DurationMs: duration, Outcome: "error"})
			continue
		}

		switch result.Decision {
		case DecisionBlock:
			e.emit(ctx, events.EventHookBlocked, events.HookBlockedPayload{HookName: h.Name(), Reason: result.Reason})
			return result, nil
		case DecisionModify:
			e.emit(ctx, events.EventHookCompleted, events.HookCompletedPayload{HookName: h.Name(), DurationMs: duration, Outcome: "modified"})
			req.Arguments = result.NewArguments
			continue
		default:
			e.emit(ctx, events.EventHookCompleted, events.HookCompletedPayload{HookName: h.Name(), DurationMs: duration, Outcome: "continue"})
		}
	}

	return PreToolUseResult{Decision: DecisionContinue, NewArguments: req.Arguments}, nil
}

// RunPostToolUse dispatches every registered post-tool-use hook as a
// background task tracked by e.Tracker() (spec.md §4.6 step 5).
func (e *Engine) RunPostToolUse(req PostToolUseRequest) {
	e.mu.RLock()
	hooks := append([]PostToolUseHook(nil), e.post...)
	e.mu.RUnlock()

	for _, h := range hooks {
		h := h
		e.tracker.Go(func(ctx context.Context) {
			start := time.Now()
			h.PostToolUse(ctx, req)
			e.emit(ctx, events.EventHookCompleted, events.HookCompletedPayload{
				HookName:   h.Name(),
				DurationMs: time.Since(start).Milliseconds(),
				Outcome:    "continue",
			})
		})
	}
}

func (e *Engine) emit(ctx context.Context, eventType events.EventType, payload interface{}) {
	if e.store == nil {
		return
	}
	if _, err := e.store.Append(ctx, e.sessionID, eventType, payload, ""); err != nil {
		e.logger.Warn("failed to append hook event", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
