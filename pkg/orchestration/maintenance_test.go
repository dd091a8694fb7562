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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/skein/pkg/events"
)

func TestMaintenanceReapIdleSessionsEndsStaleSessions(t *testing.T) {
	store, workspaceID := newTestStore(t)
	mgr := NewSessionManager(Config{Store: store, Logger: zaptest.NewLogger(t)})

	sess, err := mgr.CreateSession(context.Background(), workspaceID, events.SessionStartPayload{WorkingDir: "/tmp", Model: "m"})
	require.NoError(t, err)

	m := NewMaintenance(mgr, zaptest.NewLogger(t), nil)
	m.idleTimeout = -time.Hour // every session is "idle" relative to now

	m.reapIdleSessions()
	assert.Equal(t, 0, mgr.ActiveSessionCount())

	evts, err := store.GetEventsByType(context.Background(), sess.ID, []events.EventType{events.EventSessionEnd}, 0)
	require.NoError(t, err)
	require.Len(t, evts, 1)
}

func TestMaintenanceStartSchedulesJobsWithoutError(t *testing.T) {
	store, _ := newTestStore(t)
	mgr := NewSessionManager(Config{Store: store, Logger: zaptest.NewLogger(t)})

	backfillCalled := make(chan struct{}, 1)
	m := NewMaintenance(mgr, zaptest.NewLogger(t), func(ctx context.Context) error {
		select {
		case backfillCalled <- struct{}{}:
		default:
		}
		return nil
	})

	require.NoError(t, m.Start())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Stop(ctx)
}
