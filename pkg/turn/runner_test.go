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
package turn

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
	"github.com/teradata-labs/skein/pkg/shuttle"
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

// scriptedProvider returns a fixed sequence of responses, one per Chat/
// ChatStream call, so tests can drive a multi-turn tool_use loop.
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

func (p *scriptedProvider) ChatStream(ctx context.Context, messages []types.Message, tools []shuttle.Tool, cb types.TokenCallback) (*types.LLMResponse, error) {
	resp := p.next()
	for _, r := range resp.Content {
		cb(string(r))
	}
	return resp, nil
}

type failingProvider struct{ err error }

func (p *failingProvider) Chat(ctx context.Context, messages []types.Message, tools []shuttle.Tool) (*types.LLMResponse, error) {
	return nil, p.err
}
func (p *failingProvider) Name() string  { return "failing" }
func (p *failingProvider) Model() string { return "failing-model" }

type echoTool struct{ calls int }

func (t *echoTool) Name() string                 { return "echo" }
func (t *echoTool) Description() string          { return "echoes its input" }
func (t *echoTool) InputSchema() *shuttle.JSONSchema { return &shuttle.JSONSchema{Type: "object"} }
func (t *echoTool) Backend() string              { return "" }
func (t *echoTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	t.calls++
	return &shuttle.Result{Success: true, Content: "echoed"}, nil
}

func TestRunnerRunTurnReturnsFinalTextResponse(t *testing.T) {
	store, sessionID := newTestStore(t)
	mgr := skeincontext.NewManager(sessionID)
	mgr.AppendMessage(types.Message{ID: "u0", Role: "user", Content: "hello"})

	provider := &scriptedProvider{responses: []*types.LLMResponse{
		{Content: "hi there", StopReason: "end_turn", Usage: types.Usage{InputTokens: 5, OutputTokens: 3}},
	}}

	runner := NewRunner(store, mgr, sessionID, "agent-1", "/tmp", provider, nil, nil, nil, nil)

	result, err := runner.RunTurn(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "end_turn", result.StopReason)
	assert.Equal(t, "hi there", result.Text)
}

func TestRunnerRunTurnExecutesToolCallsAndLoops(t *testing.T) {
	store, sessionID := newTestStore(t)
	mgr := skeincontext.NewManager(sessionID)
	mgr.AppendMessage(types.Message{ID: "u0", Role: "user", Content: "use the tool"})

	provider := &scriptedProvider{responses: []*types.LLMResponse{
		{
			StopReason: "tool_use",
			ToolCalls:  []types.ToolCall{{ID: "call-1", Name: "echo", Input: map[string]interface{}{"x": 1}}},
		},
		{Content: "done", StopReason: "end_turn"},
	}}

	tool := &echoTool{}
	registry := shuttle.NewRegistry()
	registry.Register(tool)
	executor := shuttle.NewExecutor(registry)

	runner := NewRunner(store, mgr, sessionID, "agent-1", "/tmp", provider, []shuttle.Tool{tool}, nil, nil, executor)

	result, err := runner.RunTurn(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "end_turn", result.StopReason)
	assert.Equal(t, "done", result.Text)
	assert.Equal(t, 1, tool.calls)
}

func TestRunnerRunTurnPropagatesProviderFailure(t *testing.T) {
	store, sessionID := newTestStore(t)
	mgr := skeincontext.NewManager(sessionID)
	mgr.AppendMessage(types.Message{ID: "u0", Role: "user", Content: "hello"})

	provider := &failingProvider{err: fmt.Errorf("provider unavailable")}
	runner := NewRunner(store, mgr, sessionID, "agent-1", "/tmp", provider, nil, nil, nil, nil, WithRetryConfig(RetryConfig{Enabled: false}))

	_, err := runner.RunTurn(context.Background(), 0)
	assert.Error(t, err)
}

func TestRunnerRunTurnReturnsCancelledWhenContextDone(t *testing.T) {
	store, sessionID := newTestStore(t)
	mgr := skeincontext.NewManager(sessionID)
	mgr.AppendMessage(types.Message{ID: "u0", Role: "user", Content: "hello"})

	provider := &scriptedProvider{responses: []*types.LLMResponse{{Content: "unused", StopReason: "end_turn"}}}
	runner := NewRunner(store, mgr, sessionID, "agent-1", "/tmp", provider, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.RunTurn(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
