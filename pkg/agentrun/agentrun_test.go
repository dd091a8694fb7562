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
package agentrun

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	skeincontext "github.com/teradata-labs/skein/pkg/context"
	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/eventstore"
	"github.com/teradata-labs/skein/pkg/hooks"
	"github.com/teradata-labs/skein/pkg/shuttle"
	"github.com/teradata-labs/skein/pkg/turn"
	"github.com/teradata-labs/skein/pkg/types"
)

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

type scriptedProvider struct {
	responses []*types.LLMResponse
	calls     int
}

func (p *scriptedProvider) next() *types.LLMResponse {
	resp := p.responses[p.calls]
	p.calls++
	return resp
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []types.Message, tools []shuttle.Tool) (*types.LLMResponse, error) {
	return p.next(), nil
}
func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func TestRunnerRunEmitsCompleteBeforeReady(t *testing.T) {
	store, sessionID := newTestStore(t)
	mgr := skeincontext.NewManager(sessionID)

	provider := &scriptedProvider{responses: []*types.LLMResponse{
		{Content: "hi", StopReason: "end_turn", Usage: types.Usage{InputTokens: 10, OutputTokens: 4}},
	}}
	tr := turn.NewRunner(store, mgr, sessionID, "agent-1", "/tmp", provider, nil, nil, nil, nil)
	hookEngine := hooks.NewEngine(store, sessionID, zaptest.NewLogger(t))

	runner := NewRunner(store, mgr, sessionID, tr, hookEngine, nil, 100_000)

	outcome, err := runner.Run(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, "end_turn", outcome.StopReason)
	assert.Equal(t, int64(1), outcome.Turns)

	evts, err := store.GetEventsByType(context.Background(), sessionID, []events.EventType{events.EventAgentComplete, events.EventAgentReady}, 0)
	require.NoError(t, err)

	var completeIdx, readyIdx = -1, -1
	for i, e := range evts {
		switch e.Type {
		case events.EventAgentComplete:
			completeIdx = i
		case events.EventAgentReady:
			readyIdx = i
		}
	}
	require.GreaterOrEqual(t, completeIdx, 0)
	require.GreaterOrEqual(t, readyIdx, 0)
	assert.Less(t, completeIdx, readyIdx, "agent.ready must arrive strictly after agent.complete")
}

func TestRunnerRunResolvesMentionsBeforeAppendingUserMessage(t *testing.T) {
	store, sessionID := newTestStore(t)
	mgr := skeincontext.NewManager(sessionID)

	provider := &scriptedProvider{responses: []*types.LLMResponse{
		{Content: "done", StopReason: "end_turn"},
	}}
	tr := turn.NewRunner(store, mgr, sessionID, "agent-1", "/tmp", provider, nil, nil, nil, nil)
	idx := skeincontext.NewMentionIndex([]string{"debugger"}, nil)

	runner := NewRunner(store, mgr, sessionID, tr, nil, nil, 100_000, WithMentionIndex(idx))

	_, err := runner.Run(context.Background(), "please use @debugger here")
	require.NoError(t, err)

	messages := mgr.Messages()
	require.NotEmpty(t, messages)
	assert.Contains(t, messages[0].Content, "Invoked skills")
	assert.NotContains(t, messages[0].Content, "@debugger")
}
