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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skeincontext "github.com/teradata-labs/skein/pkg/context"
	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/eventstore"
	"github.com/teradata-labs/skein/pkg/tokens"
	"github.com/teradata-labs/skein/pkg/types"
)

type failingSummarizer struct{}

func (failingSummarizer) Summarize(context.Context, []types.Message) (string, error) {
	return "", fmt.Errorf("primary summarizer unavailable")
}

type fixedSummarizer struct{ text string }

func (f fixedSummarizer) Summarize(context.Context, []types.Message) (string, error) {
	return f.text, nil
}

func newTestStore(t *testing.T) (*eventstore.Store, string) {
	t.Helper()
	store, err := eventstore.New(filepath.Join(t.TempDir(), "skein.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ws, err := store.CreateWorkspace(context.Background(), t.TempDir(), "test")
	require.NoError(t, err)
	sess, err := store.CreateSession(context.Background(), ws.ID, events.SessionStartPayload{WorkingDir: "/tmp", Model: "test-model"})
	require.NoError(t, err)
	return store, sess.ID
}

func seedMessages(t *testing.T, mgr *skeincontext.Manager, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		mgr.AppendMessage(types.Message{ID: fmt.Sprintf("u%d", i), Role: "user", Content: "question"})
		mgr.AppendMessage(types.Message{ID: fmt.Sprintf("a%d", i), Role: "assistant", Content: "answer"})
	}
}

func TestEngineCompactUsesPrimarySummarizer(t *testing.T) {
	store, sessionID := newTestStore(t)
	mgr := skeincontext.NewManager(sessionID)
	seedMessages(t, mgr, 3)

	eng := NewEngine(store, mgr, sessionID, fixedSummarizer{text: "concise summary"}, WithPreserveLastTurns(1))

	changed, err := eng.Compact(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	messages := mgr.Messages()
	require.True(t, len(messages) >= 2)
	assert.Contains(t, messages[0].Content, "concise summary")
	assert.Equal(t, "assistant", messages[1].Role)

	// Last preserved turn (u2/a2) should still be present verbatim.
	last := messages[len(messages)-1]
	assert.Equal(t, "answer", last.Content)
}

func TestEngineCompactFallsBackOnPrimaryFailure(t *testing.T) {
	store, sessionID := newTestStore(t)
	mgr := skeincontext.NewManager(sessionID)
	seedMessages(t, mgr, 3)

	eng := NewEngine(store, mgr, sessionID, failingSummarizer{}, WithPreserveLastTurns(1))

	changed, err := eng.Compact(context.Background())
	require.NoError(t, err)
	assert.True(t, changed, "should still compact via the keyword fallback")

	messages := mgr.Messages()
	require.NotEmpty(t, messages)
	assert.Contains(t, messages[0].Content, "User:")
}

func TestEngineCompactIsSingleFlightPerSession(t *testing.T) {
	store, sessionID := newTestStore(t)
	mgr := skeincontext.NewManager(sessionID)
	seedMessages(t, mgr, 3)

	eng := NewEngine(store, mgr, sessionID, fixedSummarizer{text: "summary"}, WithPreserveLastTurns(1))
	eng.running.Store(true) // simulate a compaction already in flight

	changed, err := eng.Compact(context.Background())
	require.NoError(t, err)
	assert.False(t, changed, "a concurrent compaction must be a no-op, not a second summarization")
}

func TestEngineCompactNoOpWithNothingToSummarize(t *testing.T) {
	store, sessionID := newTestStore(t)
	mgr := skeincontext.NewManager(sessionID)
	seedMessages(t, mgr, 1) // entirely within preserve window

	eng := NewEngine(store, mgr, sessionID, fixedSummarizer{text: "summary"}, WithPreserveLastTurns(5))

	changed, err := eng.Compact(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestEngineMaybeCompactRespectsRecommendation(t *testing.T) {
	store, sessionID := newTestStore(t)
	mgr := skeincontext.NewManager(sessionID)
	mgr.AppendMessage(types.Message{ID: "u0", Role: "user", Content: "short"})

	eng := NewEngine(store, mgr, sessionID, fixedSummarizer{text: "summary"})

	changed, err := eng.MaybeCompact(context.Background(), 1_000_000, tokens.DefaultThresholds)
	require.NoError(t, err)
	assert.False(t, changed, "far below threshold should not trigger compaction")
}
