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
package compaction

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/eventstore"
	skeincontext "github.com/teradata-labs/skein/pkg/context"
	"github.com/teradata-labs/skein/pkg/tokens"
	"github.com/teradata-labs/skein/pkg/types"
)

// DefaultPreserveLastTurns is the number of most-recent user/assistant
// turn pairs kept verbatim by default (spec.md §4.4: "default preserves the
// last complete user/assistant pair").
const DefaultPreserveLastTurns = 1

// Engine runs the compaction algorithm for one session. Safe for
// concurrent use; Compact enforces single-flight via a compare-and-swap
// flag (spec.md §4.4: "Only one compaction per session may run at a
// time").
type Engine struct {
	store     *eventstore.Store
	manager   *skeincontext.Manager
	sessionID string

	primary  Summarizer
	fallback Summarizer

	preserveLastTurns int
	running           atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithPreserveLastTurns overrides DefaultPreserveLastTurns.
func WithPreserveLastTurns(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.preserveLastTurns = n
		}
	}
}

// WithFallback overrides the default keyword-fallback summarizer.
func WithFallback(s Summarizer) Option {
	return func(e *Engine) { e.fallback = s }
}

// NewEngine creates a compaction engine for one session, summarizing with
// primary and falling back to a keyword summarizer (or one supplied via
// WithFallback) on failure.
func NewEngine(store *eventstore.Store, manager *skeincontext.Manager, sessionID string, primary Summarizer, opts ...Option) *Engine {
	e := &Engine{
		store:             store,
		manager:           manager,
		sessionID:         sessionID,
		primary:           primary,
		fallback:          NewKeywordSummarizer(),
		preserveLastTurns: DefaultPreserveLastTurns,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaybeCompact checks window and runs Compact if compaction is recommended
// and no compaction is already in flight for this session. Returns false,
// nil if nothing needed to happen.
func (e *Engine) MaybeCompact(ctx context.Context, modelContextLimit int64, thresholds tokens.Thresholds) (bool, error) {
	window := e.manager.ValidateBeforeTurn(modelContextLimit, thresholds)
	if !window.CompactionRecommended {
		return false, nil
	}
	return e.Compact(ctx)
}

// Compact runs the compaction algorithm once (spec.md §4.4 steps 1-4). It
// is a no-op (returns false, nil) if a compaction is already running for
// this session.
func (e *Engine) Compact(ctx context.Context) (bool, error) {
	if !e.running.CompareAndSwap(false, true) {
		return false, nil
	}
	defer e.running.Store(false)

	messages := e.manager.Messages()
	toSummarize, toPreserve := splitPreserving(messages, e.preserveLastTurns)
	if len(toSummarize) == 0 {
		return false, nil
	}

	originalTokens := estimateTokens(toSummarize)

	summary, err := e.primary.Summarize(ctx, toSummarize)
	if err != nil {
		summary, err = e.fallback.Summarize(ctx, toSummarize)
		if err != nil {
			if _, ferr := e.store.Append(ctx, e.sessionID, events.EventCompactFailed, events.CompactFailedPayload{
				Reason: err.Error(),
			}, ""); ferr != nil {
				return false, fmt.Errorf("compaction: append compact.failed: %w (after summarize error: %v)", ferr, err)
			}
			return false, nil
		}
	}

	fromID, toID := toSummarize[0].ID, toSummarize[len(toSummarize)-1].ID
	compactedTokens := tokens.EstimateChars(summary)

	boundary, err := e.store.Append(ctx, e.sessionID, events.EventCompactBoundary, events.CompactBoundaryPayload{
		Range:           events.CompactRange{From: fromID, To: toID},
		OriginalTokens:  int64(originalTokens),
		CompactedTokens: int64(compactedTokens),
	}, "")
	if err != nil {
		return false, fmt.Errorf("compaction: append compact.boundary: %w", err)
	}

	if _, err := e.store.Append(ctx, e.sessionID, events.EventCompactSummary, events.CompactSummaryPayload{
		Summary:         summary,
		BoundaryEventID: boundary.ID,
	}, boundary.ID); err != nil {
		return false, fmt.Errorf("compaction: append compact.summary: %w", err)
	}

	spliced := append([]types.Message{}, summaryExchange(summary)...)
	spliced = append(spliced, toPreserve...)
	e.manager.SetMessages(spliced)

	return true, nil
}

// splitPreserving splits messages into the older to-summarize portion and
// the most recent preserveLastTurns user/assistant pairs, which stay
// verbatim (spec.md §4.4 step 1).
func splitPreserving(messages []types.Message, preserveLastTurns int) (toSummarize, toPreserve []types.Message) {
	if preserveLastTurns <= 0 || len(messages) == 0 {
		return messages, nil
	}

	// Walk from the end, counting a "turn" as one user message (with
	// everything after it, up to the next user message, grouped in).
	userCount := 0
	splitAt := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			userCount++
			if userCount > preserveLastTurns {
				break
			}
			splitAt = i
		}
	}
	return messages[:splitAt], messages[splitAt:]
}

func estimateTokens(messages []types.Message) int {
	total := 0
	for _, msg := range messages {
		total += tokens.EstimateChars(msg.Content)
	}
	return total
}

// summaryExchange builds the synthetic user/assistant pair spec.md §4.4
// step 4 describes, mirroring pkg/context's replay-time splice so a live
// compaction and a resumed reconstruction produce identical buffers.
func summaryExchange(summary string) []types.Message {
	return []types.Message{
		{Role: "user", Content: "The earlier part of this conversation was summarized:\n\n" + summary},
		{Role: "assistant", Content: "Understood, continuing from that summary."},
	}
}
