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
package orchestration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/eventstore"
)

func newTestStore(t *testing.T) (*eventstore.Store, string) {
	t.Helper()
	store, err := eventstore.New(filepath.Join(t.TempDir(), "skein.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ws, err := store.CreateWorkspace(context.Background(), t.TempDir(), "test")
	require.NoError(t, err)
	return store, ws.ID
}

func TestSessionManagerCreateSessionActivatesIt(t *testing.T) {
	store, workspaceID := newTestStore(t)
	mgr := NewSessionManager(Config{Store: store, Logger: zaptest.NewLogger(t)})

	sess, err := mgr.CreateSession(context.Background(), workspaceID, events.SessionStartPayload{WorkingDir: "/tmp", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, 1, mgr.ActiveSessionCount())

	_, ok := mgr.HookEngine(sess.ID)
	assert.True(t, ok)
}

func TestSessionManagerResumeRejectsAlreadyActiveSession(t *testing.T) {
	store, workspaceID := newTestStore(t)
	mgr := NewSessionManager(Config{Store: store, Logger: zaptest.NewLogger(t)})

	sess, err := mgr.CreateSession(context.Background(), workspaceID, events.SessionStartPayload{WorkingDir: "/tmp", Model: "m"})
	require.NoError(t, err)

	_, err = mgr.ResumeSession(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestSessionManagerEndSessionDeactivatesAndAppendsEvent(t *testing.T) {
	store, workspaceID := newTestStore(t)
	mgr := NewSessionManager(Config{Store: store, Logger: zaptest.NewLogger(t)})

	sess, err := mgr.CreateSession(context.Background(), workspaceID, events.SessionStartPayload{WorkingDir: "/tmp", Model: "m"})
	require.NoError(t, err)

	require.NoError(t, mgr.EndSession(context.Background(), sess.ID, "test_done"))
	assert.Equal(t, 0, mgr.ActiveSessionCount())

	evts, err := store.GetEventsByType(context.Background(), sess.ID, []events.EventType{events.EventSessionEnd}, 0)
	require.NoError(t, err)
	require.Len(t, evts, 1)
}

func TestSessionManagerRejectsSessionsOverCapacity(t *testing.T) {
	store, workspaceID := newTestStore(t)
	mgr := NewSessionManager(Config{Store: store, Logger: zaptest.NewLogger(t), MaxConcurrentSessions: 1})

	_, err := mgr.CreateSession(context.Background(), workspaceID, events.SessionStartPayload{WorkingDir: "/tmp", Model: "m"})
	require.NoError(t, err)

	_, err = mgr.CreateSession(context.Background(), workspaceID, events.SessionStartPayload{WorkingDir: "/tmp", Model: "m"})
	assert.ErrorIs(t, err, ErrOverCapacity)
}

func TestSessionManagerAbortUnknownSessionFails(t *testing.T) {
	store, _ := newTestStore(t)
	mgr := NewSessionManager(Config{Store: store, Logger: zaptest.NewLogger(t)})
	assert.ErrorIs(t, mgr.Abort("nonexistent"), ErrSessionNotActive)
}

func TestSessionManagerToolCallRegisterAndResolve(t *testing.T) {
	store, _ := newTestStore(t)
	mgr := NewSessionManager(Config{Store: store, Logger: zaptest.NewLogger(t)})

	recv := mgr.RegisterToolCall("call-1")
	assert.True(t, mgr.ResolveToolCall("call-1", "the answer"))

	select {
	case v := <-recv:
		assert.Equal(t, "the answer", v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tool call resolution")
	}

	assert.False(t, mgr.ResolveToolCall("call-1", "late"))
}

func TestSessionManagerShutdownStopsAcceptingAndEndsSessions(t *testing.T) {
	store, workspaceID := newTestStore(t)
	mgr := NewSessionManager(Config{Store: store, Logger: zaptest.NewLogger(t)})

	_, err := mgr.CreateSession(context.Background(), workspaceID, events.SessionStartPayload{WorkingDir: "/tmp", Model: "m"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, mgr.Shutdown(ctx))

	assert.Equal(t, 0, mgr.ActiveSessionCount())
	assert.False(t, mgr.CanAcceptSession())

	_, err = mgr.CreateSession(context.Background(), workspaceID, events.SessionStartPayload{WorkingDir: "/tmp", Model: "m"})
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestSessionManagerIdleSessionsReportsStaleOnes(t *testing.T) {
	store, workspaceID := newTestStore(t)
	mgr := NewSessionManager(Config{Store: store, Logger: zaptest.NewLogger(t)})

	sess, err := mgr.CreateSession(context.Background(), workspaceID, events.SessionStartPayload{WorkingDir: "/tmp", Model: "m"})
	require.NoError(t, err)

	idle := mgr.IdleSessions(time.Now().Add(time.Hour))
	assert.Contains(t, idle, sess.ID)

	idle = mgr.IdleSessions(time.Now().Add(-time.Hour))
	assert.NotContains(t, idle, sess.ID)
}
