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
package context

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/eventstore"
	"github.com/teradata-labs/skein/pkg/tokens"
	"github.com/teradata-labs/skein/pkg/types"
)

func TestManagerBlockOrdering(t *testing.T) {
	m := NewManager("sess-1")
	m.SetBlock("task", "current task", StabilityVolatile)
	m.SetBlock("core", "you are an agent", StabilityStable)
	m.SetBlock("custom", "extra context", StabilityVolatile)
	m.SetBlock("rules", "follow the rules", StabilityStable)

	blocks := m.Blocks()
	var labels []string
	for _, b := range blocks {
		labels = append(labels, b.Label)
	}
	assert.Equal(t, []string{"core", "rules", "task", "custom"}, labels)
}

func TestManagerSystemPromptSkipsEmptyBlocks(t *testing.T) {
	m := NewManager("sess-1")
	m.SetBlock("core", "core prompt", StabilityStable)
	m.SetBlock("memory", "", StabilityVolatile)
	m.SetBlock("skills", "skill context", StabilityVolatile)

	prompt := m.SystemPrompt()
	assert.Equal(t, "core prompt\n\n---\n\nskill context", prompt)
}

func TestManagerRemoveBlock(t *testing.T) {
	m := NewManager("sess-1")
	m.SetBlock("core", "core prompt", StabilityStable)
	m.SetBlock("custom", "extra", StabilityVolatile)
	m.RemoveBlock("custom")

	blocks := m.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, "core", blocks[0].Label)
}

func TestManagerEstimateTokens(t *testing.T) {
	m := NewManager("sess-1")
	m.SetBlock("core", "0123456789", StabilityStable) // 10 chars
	m.AppendMessage(types.Message{Role: "user", Content: "01234567"}) // 8 chars

	// EstimateChars ~= len/4, rounded per implementation.
	want := int64(tokens.EstimateChars("0123456789") + tokens.EstimateChars("01234567"))
	assert.Equal(t, want, m.EstimateTokens())
}

func TestManagerValidateBeforeTurn(t *testing.T) {
	m := NewManager("sess-1")
	for i := 0; i < 100; i++ {
		m.AppendMessage(types.Message{Role: "user", Content: "this is a long message body to accumulate tokens"})
	}

	window := m.ValidateBeforeTurn(1000, tokens.DefaultThresholds)
	assert.Equal(t, int64(1000), window.ModelContextLimit)
	assert.True(t, window.CurrentTokens > 0)
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestManagerRebuildFiltersRetractedMessages(t *testing.T) {
	now := time.Now()
	evts := []*eventstore.Event{
		{ID: "e1", Type: events.EventMessageUser, Timestamp: now, Payload: mustMarshal(t, events.MessageUserPayload{Content: "first"})},
		{ID: "e2", Type: events.EventMessageUser, Timestamp: now, Payload: mustMarshal(t, events.MessageUserPayload{Content: "retracted"})},
		{ID: "e3", Type: events.EventMessageDeleted, Timestamp: now, Payload: mustMarshal(t, events.MessageDeletedPayload{TargetEventID: "e2"})},
		{ID: "e4", Type: events.EventMessageUser, Timestamp: now, Payload: mustMarshal(t, events.MessageUserPayload{Content: "third"})},
	}

	m := NewManager("sess-1")
	require.NoError(t, m.Rebuild(evts))

	messages := m.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "third", messages[1].Content)
}

func TestManagerRebuildSplicesCompactedRange(t *testing.T) {
	now := time.Now()
	evts := []*eventstore.Event{
		{ID: "e1", Type: events.EventMessageUser, Timestamp: now, Payload: mustMarshal(t, events.MessageUserPayload{Content: "old turn 1"})},
		{ID: "e2", Type: events.EventMessageAssistant, Timestamp: now, Payload: mustMarshal(t, events.MessageAssistantPayload{
			Content: []events.ContentBlock{{Type: "text", Text: "old reply 1"}},
		})},
		{ID: "e3", Type: events.EventMessageUser, Timestamp: now, Payload: mustMarshal(t, events.MessageUserPayload{Content: "old turn 2"})},
		{ID: "e4", Type: events.EventCompactBoundary, Timestamp: now, Payload: mustMarshal(t, events.CompactBoundaryPayload{
			Range: events.CompactRange{From: "e1", To: "e3"},
		})},
		{ID: "e5", Type: events.EventCompactSummary, Timestamp: now, Payload: mustMarshal(t, events.CompactSummaryPayload{
			Summary:         "summarized the first two turns",
			BoundaryEventID: "e4",
		})},
		{ID: "e6", Type: events.EventMessageUser, Timestamp: now, Payload: mustMarshal(t, events.MessageUserPayload{Content: "new turn"})},
	}

	m := NewManager("sess-1")
	require.NoError(t, m.Rebuild(evts))

	messages := m.Messages()
	require.Len(t, messages, 3)
	assert.Contains(t, messages[0].Content, "summarized the first two turns")
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "new turn", messages[2].Content)
}
