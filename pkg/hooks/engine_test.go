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
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/eventstore"
)

type fakeHook struct {
	name   string
	result PreToolUseResult
	err    error
}

func (f *fakeHook) Name() string { return f.name }
func (f *fakeHook) PreToolUse(context.Context, PreToolUseRequest) (PreToolUseResult, error) {
	return f.result, f.err
}

type countingPostHook struct {
	name  string
	calls *int32
}

func (h *countingPostHook) Name() string { return h.name }
func (h *countingPostHook) PostToolUse(context.Context, PostToolUseRequest) {
	atomic.AddInt32(h.calls, 1)
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

func TestEngineRunPreToolUseAllowsByDefault(t *testing.T) {
	store, sessionID := newTestStore(t)
	eng := NewEngine(store, sessionID, zaptest.NewLogger(t))
	eng.RegisterPreToolUse(&fakeHook{name: "audit", result: PreToolUseResult{Decision: DecisionContinue}})

	result, err := eng.RunPreToolUse(context.Background(), PreToolUseRequest{ToolName: "shell_execute"})
	require.NoError(t, err)
	assert.Equal(t, DecisionContinue, result.Decision)
}

func TestEngineRunPreToolUseBlocks(t *testing.T) {
	store, sessionID := newTestStore(t)
	eng := NewEngine(store, sessionID, zaptest.NewLogger(t))
	eng.RegisterPreToolUse(&fakeHook{name: "guard", result: PreToolUseResult{Decision: DecisionBlock, Reason: "denied"}})
	eng.RegisterPreToolUse(&fakeHook{name: "never-runs", result: PreToolUseResult{Decision: DecisionBlock, Reason: "should not run"}})

	result, err := eng.RunPreToolUse(context.Background(), PreToolUseRequest{ToolName: "shell_execute"})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, result.Decision)
	assert.Equal(t, "denied", result.Reason)
}

func TestEngineRunPreToolUseModifiesArguments(t *testing.T) {
	store, sessionID := newTestStore(t)
	eng := NewEngine(store, sessionID, zaptest.NewLogger(t))
	eng.RegisterPreToolUse(&fakeHook{name: "rewriter", result: PreToolUseResult{
		Decision:     DecisionModify,
		NewArguments: map[string]interface{}{"path": "/safe/path"},
	}})

	result, err := eng.RunPreToolUse(context.Background(), PreToolUseRequest{
		ToolName:  "file_read",
		Arguments: map[string]interface{}{"path": "/etc/shadow"},
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionContinue, result.Decision)
	assert.Equal(t, "/safe/path", result.NewArguments["path"])
}

func TestEngineRunPreToolUseFailsOpenOnHookError(t *testing.T) {
	store, sessionID := newTestStore(t)
	eng := NewEngine(store, sessionID, zaptest.NewLogger(t))
	eng.RegisterPreToolUse(&fakeHook{name: "flaky", err: fmt.Errorf("boom")})

	result, err := eng.RunPreToolUse(context.Background(), PreToolUseRequest{ToolName: "shell_execute"})
	require.NoError(t, err)
	assert.Equal(t, DecisionContinue, result.Decision, "a hook error must fail open, not block")
}

func TestEngineRunPostToolUseDrainsViaTracker(t *testing.T) {
	store, sessionID := newTestStore(t)
	eng := NewEngine(store, sessionID, zaptest.NewLogger(t))

	var calls int32
	eng.RegisterPostToolUse(&countingPostHook{name: "audit-log", calls: &calls})
	eng.RegisterPostToolUse(&countingPostHook{name: "metrics", calls: &calls})

	eng.RunPostToolUse(PostToolUseRequest{ToolName: "shell_execute"})

	require.NoError(t, eng.Tracker().Drain(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
