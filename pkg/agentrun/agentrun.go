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

// Package agentrun wraps a single run of a session with the event
// ordering spec.md §4.7 requires: drain background hooks, process
// @skill/@memory mentions, append the user message, loop turns, trigger
// compaction, then emit agent.complete strictly before agent.ready.
package agentrun

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/skein/pkg/compaction"
	skeincontext "github.com/teradata-labs/skein/pkg/context"
	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/eventstore"
	"github.com/teradata-labs/skein/pkg/hooks"
	"github.com/teradata-labs/skein/pkg/tokens"
	"github.com/teradata-labs/skein/pkg/turn"
	"github.com/teradata-labs/skein/pkg/types"
)

// hookDrainTimeout bounds how long a run waits for background hooks to
// finish before and after the turn loop.
const hookDrainTimeout = 30 * time.Second

// terminalStopReasons are the stop reasons that end the turn loop; any
// other reason (notably "tool_use") means the runner already looped
// internally and should never be returned to Run.
var terminalStopReasons = map[string]bool{
	"end_turn":       true,
	"max_tokens":     true,
	"stop_sequence":  true,
	"content_filter": true,
}

// Runner drives one session's turn() calls end to end, per spec.md §4.7.
type Runner struct {
	store             *eventstore.Store
	manager           *skeincontext.Manager
	sessionID         string
	turnRunner        *turn.Runner
	hookEngine        *hooks.Engine
	compactionEngine  *compaction.Engine
	mentionIndex      *skeincontext.MentionIndex
	modelContextLimit int64
	thresholds        tokens.Thresholds
	logger            *zap.Logger
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithMentionIndex registers the skill/memory index used to resolve
// @mentions in incoming prompts.
func WithMentionIndex(idx *skeincontext.MentionIndex) Option {
	return func(r *Runner) { r.mentionIndex = idx }
}

// WithThresholds overrides the default compaction-recommendation
// thresholds.
func WithThresholds(t tokens.Thresholds) Option {
	return func(r *Runner) { r.thresholds = t }
}

// WithLogger overrides the runner's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner builds an agent Runner. compactionEngine may be nil, in which
// case compaction is never triggered.
func NewRunner(
	store *eventstore.Store,
	manager *skeincontext.Manager,
	sessionID string,
	turnRunner *turn.Runner,
	hookEngine *hooks.Engine,
	compactionEngine *compaction.Engine,
	modelContextLimit int64,
	opts ...Option,
) *Runner {
	r := &Runner{
		store:             store,
		manager:           manager,
		sessionID:         sessionID,
		turnRunner:        turnRunner,
		hookEngine:        hookEngine,
		compactionEngine:  compactionEngine,
		modelContextLimit: modelContextLimit,
		thresholds:        tokens.DefaultThresholds,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Outcome reports what a completed run produced.
type Outcome struct {
	StopReason string
	TokenUsage events.TokenUsage
	Turns      int64
}

// Run executes spec.md §4.7's six steps for one incoming user prompt.
func (r *Runner) Run(ctx context.Context, prompt string) (*Outcome, error) {
	if err := r.drainHooks(ctx); err != nil {
		r.logger.Warn("agentrun: background hooks did not drain before run", zap.Error(err))
	}

	cleanedPrompt := prompt
	var mentions []skeincontext.Mention
	if r.mentionIndex != nil {
		cleanedPrompt, mentions = r.mentionIndex.Extract(prompt)
	}
	userContent := cleanedPrompt
	if block := skeincontext.RenderMentionBlock(mentions); block != "" {
		userContent = cleanedPrompt + "\n\n" + block
	}

	userEvent, err := r.store.Append(ctx, r.sessionID, events.EventMessageUser, events.MessageUserPayload{Content: userContent}, "")
	if err != nil {
		return nil, fmt.Errorf("agentrun: append message.user: %w", err)
	}
	r.manager.AppendMessage(types.Message{ID: userEvent.ID, Role: "user", Content: userContent})

	var turnsRun int64
	var lastStopReason string
	var totalUsage events.TokenUsage

	turnNumber := int64(0)
	for {
		result, err := r.turnRunner.RunTurn(ctx, turnNumber)
		if err != nil {
			return nil, fmt.Errorf("agentrun: turn loop: %w", err)
		}
		turnsRun++
		turnNumber = result.Turn + 1
		lastStopReason = result.StopReason
		totalUsage.InputTokens += int64(result.Usage.InputTokens)
		totalUsage.OutputTokens += int64(result.Usage.OutputTokens)

		if terminalStopReasons[result.StopReason] {
			break
		}
	}

	if r.compactionEngine != nil {
		if _, err := r.compactionEngine.MaybeCompact(ctx, r.modelContextLimit, r.thresholds); err != nil {
			r.logger.Warn("agentrun: compaction attempt failed", zap.Error(err))
		}
	}

	if _, err := r.store.Append(ctx, r.sessionID, events.EventAgentComplete, events.AgentCompletePayload{
		StopReason: lastStopReason,
		TokenUsage: totalUsage,
		Turns:      turnsRun,
	}, ""); err != nil {
		return nil, fmt.Errorf("agentrun: append agent.complete: %w", err)
	}

	if err := r.drainHooks(ctx); err != nil {
		r.logger.Warn("agentrun: background hooks did not drain after run", zap.Error(err))
	}

	if _, err := r.store.Append(ctx, r.sessionID, events.EventAgentReady, events.AgentReadyPayload{}, ""); err != nil {
		return nil, fmt.Errorf("agentrun: append agent.ready: %w", err)
	}

	return &Outcome{StopReason: lastStopReason, TokenUsage: totalUsage, Turns: turnsRun}, nil
}

func (r *Runner) drainHooks(ctx context.Context) error {
	if r.hookEngine == nil {
		return nil
	}
	drainCtx, cancel := context.WithTimeout(ctx, hookDrainTimeout)
	defer cancel()
	return r.hookEngine.Tracker().Drain(drainCtx)
}
