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

// Package context implements the context manager (spec.md §4.3): the
// in-memory message buffer and system-prompt assembly for one session.
package context

import (
	"fmt"
	"strings"
	"sync"

	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/eventstore"
	"github.com/teradata-labs/skein/pkg/tokens"
	"github.com/teradata-labs/skein/pkg/types"
)

// Stability is the cache-TTL hint a provider adapter may honor for a
// system-prompt block: stable blocks change rarely and are worth a long
// cache TTL, volatile blocks change every turn.
type Stability string

const (
	StabilityStable   Stability = "stable"
	StabilityVolatile Stability = "volatile"
)

// Block is one labeled section of the assembled system prompt.
type Block struct {
	Label     string
	Content   string
	Stability Stability
}

// blockOrder is the canonical ordering spec.md §4.3 names: core prompt,
// working directory, rules, skills, memory, task context. Labels not in
// this list are appended, in insertion order, after the named ones.
var blockOrder = []string{"core", "workingDirectory", "rules", "skills", "memory", "task"}

// Manager owns one session's message buffer and system-prompt blocks.
// Safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	sessionID string
	messages  []types.Message
	blocks    map[string]Block
	extra     []string // labels outside blockOrder, in first-seen order
}

// NewManager creates an empty context manager for sessionID.
func NewManager(sessionID string) *Manager {
	return &Manager{
		sessionID: sessionID,
		blocks:    make(map[string]Block),
	}
}

// SetBlock sets (or replaces) the named system-prompt block.
func (m *Manager) SetBlock(label, content string, stability Stability) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.blocks[label]; !exists && !isOrderedLabel(label) {
		m.extra = append(m.extra, label)
	}
	m.blocks[label] = Block{Label: label, Content: content, Stability: stability}
}

// RemoveBlock removes the named block, if present.
func (m *Manager) RemoveBlock(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, label)
	for i, l := range m.extra {
		if l == label {
			m.extra = append(m.extra[:i], m.extra[i+1:]...)
			break
		}
	}
}

func isOrderedLabel(label string) bool {
	for _, l := range blockOrder {
		if l == label {
			return true
		}
	}
	return false
}

// Blocks returns the configured blocks in canonical order (core, working
// directory, rules, skills, memory, task), followed by any extra labels in
// the order they were first set. Blocks with empty content are included;
// SystemPrompt is what skips them.
func (m *Manager) Blocks() []Block {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Block
	for _, label := range blockOrder {
		if b, ok := m.blocks[label]; ok {
			out = append(out, b)
		}
	}
	for _, label := range m.extra {
		if b, ok := m.blocks[label]; ok {
			out = append(out, b)
		}
	}
	return out
}

// SystemPrompt joins the configured blocks into the single string sent to
// the provider as the system prompt.
func (m *Manager) SystemPrompt() string {
	blocks := m.Blocks()
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if strings.TrimSpace(b.Content) == "" {
			continue
		}
		parts = append(parts, b.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// Messages returns a copy of the message buffer.
func (m *Manager) Messages() []types.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// AppendMessage appends msg to the buffer.
func (m *Manager) AppendMessage(msg types.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

// SetMessages replaces the entire message buffer, used by the compaction
// engine to splice a summarized region out.
func (m *Manager) SetMessages(messages []types.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = messages
}

// EstimateTokens returns the char-based approximation (spec.md §4.3: ≈
// bytes ÷ 4) over the system prompt plus every buffered message, so the
// runtime can pre-flight context size before any provider call.
func (m *Manager) EstimateTokens() int64 {
	total := tokens.EstimateChars(m.SystemPrompt())
	for _, msg := range m.Messages() {
		total += tokens.EstimateChars(msg.Content)
		for _, block := range msg.ContentBlocks {
			total += tokens.EstimateChars(block.Text)
		}
	}
	return int64(total)
}

// ValidateBeforeTurn reports the pre-turn validation spec.md §4.3 names:
// current tokens, model context limit, threshold level, and whether
// compaction is recommended.
func (m *Manager) ValidateBeforeTurn(modelContextLimit int64, thresholds tokens.Thresholds) tokens.Window {
	return tokens.EvaluateWindow(m.EstimateTokens(), modelContextLimit, thresholds)
}

// Rebuild replays evts to reconstruct the message buffer on session resume
// (spec.md §4.3): retracted targets (message.deleted) are filtered out, and
// a compacted range (compact.boundary + compact.summary) is replaced with
// a single synthetic user/assistant exchange instead of replaying the
// original messages underneath it.
func (m *Manager) Rebuild(evts []*eventstore.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	retracted := make(map[string]bool)

	// First pass: find retractions and compaction boundaries so the second
	// pass can skip what they cover regardless of event order on disk.
	var boundaries []events.CompactBoundaryPayload
	for _, ev := range evts {
		switch ev.Type {
		case events.EventMessageDeleted:
			payload, err := events.TypedPayload(ev.Type, ev.Payload)
			if err != nil {
				return fmt.Errorf("context: decode message.deleted: %w", err)
			}
			retracted[payload.(*events.MessageDeletedPayload).TargetEventID] = true
		case events.EventCompactBoundary:
			payload, err := events.TypedPayload(ev.Type, ev.Payload)
			if err != nil {
				return fmt.Errorf("context: decode compact.boundary: %w", err)
			}
			boundaries = append(boundaries, *payload.(*events.CompactBoundaryPayload))
		}
	}

	inRange := func(id string) bool {
		for _, b := range boundaries {
			if withinRange(evts, b.Range.From, b.Range.To, id) {
				return true
			}
		}
		return false
	}

	messages := make([]types.Message, 0, len(evts))
	summaryInjected := make(map[string]bool) // boundary event id -> already spliced in
	for _, ev := range evts {
		if retracted[ev.ID] {
			continue
		}
		switch ev.Type {
		case events.EventMessageUser:
			if inRange(ev.ID) {
				continue
			}
			payload, err := events.TypedPayload(ev.Type, ev.Payload)
			if err != nil {
				return fmt.Errorf("context: decode message.user: %w", err)
			}
			p := payload.(*events.MessageUserPayload)
			messages = append(messages, types.Message{ID: ev.ID, Role: "user", Content: p.Content, Timestamp: ev.Timestamp})
		case events.EventMessageAssistant:
			if inRange(ev.ID) {
				continue
			}
			payload, err := events.TypedPayload(ev.Type, ev.Payload)
			if err != nil {
				return fmt.Errorf("context: decode message.assistant: %w", err)
			}
			messages = append(messages, assistantMessage(ev, payload.(*events.MessageAssistantPayload)))
		case events.EventCompactSummary:
			payload, err := events.TypedPayload(ev.Type, ev.Payload)
			if err != nil {
				return fmt.Errorf("context: decode compact.summary: %w", err)
			}
			p := payload.(*events.CompactSummaryPayload)
			if summaryInjected[p.BoundaryEventID] {
				continue
			}
			summaryInjected[p.BoundaryEventID] = true
			messages = append(messages, summaryExchange(ev, p)...)
		}
	}

	m.messages = messages
	return nil
}

func assistantMessage(ev *eventstore.Event, p *events.MessageAssistantPayload) types.Message {
	var text strings.Builder
	for _, block := range p.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return types.Message{
		ID:        ev.ID,
		Role:      "assistant",
		Content:   text.String(),
		Timestamp: ev.Timestamp,
	}
}

// summaryExchange builds the synthetic user/assistant pair spec.md §4.4
// step 4 describes: a user message carrying the summary prefix and an
// assistant acknowledgement.
func summaryExchange(ev *eventstore.Event, p *events.CompactSummaryPayload) []types.Message {
	prefix := "The earlier part of this conversation was summarized:\n\n" + p.Summary
	return []types.Message{
		{ID: ev.ID + "-summary-user", Role: "user", Content: prefix, Timestamp: ev.Timestamp},
		{ID: ev.ID + "-summary-ack", Role: "assistant", Content: "Understood, continuing from that summary.", Timestamp: ev.Timestamp},
	}
}

// withinRange reports whether id falls within [from, to] by creation-order
// position among evts. from/to are event ids; evts is assumed already in
// persistence order.
func withinRange(evts []*eventstore.Event, from, to, id string) bool {
	idx := -1
	fromIdx, toIdx := -1, -1
	for i, ev := range evts {
		if ev.ID == id {
			idx = i
		}
		if ev.ID == from {
			fromIdx = i
		}
		if ev.ID == to {
			toIdx = i
		}
	}
	if idx < 0 || fromIdx < 0 || toIdx < 0 {
		return false
	}
	return idx >= fromIdx && idx <= toIdx
}
