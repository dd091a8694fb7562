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
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultIdleTimeout is how long a session may sit without activity
// before the reaper ends its run.
const DefaultIdleTimeout = 30 * time.Minute

// Maintenance runs periodic upkeep jobs against a SessionManager on a
// robfig/cron/v3 schedule: an idle-session reaper and an optional FTS
// backfill check (SPEC_FULL.md §11).
type Maintenance struct {
	manager     *SessionManager
	cronEngine  *cron.Cron
	idleTimeout time.Duration
	logger      *zap.Logger

	backfill func(ctx context.Context) error
}

// NewMaintenance builds a Maintenance runner. backfill may be nil if no
// FTS backfill check is wired; it is invoked on its own schedule when set.
func NewMaintenance(manager *SessionManager, logger *zap.Logger, backfill func(ctx context.Context) error) *Maintenance {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Maintenance{
		manager:     manager,
		cronEngine:  cron.New(),
		idleTimeout: DefaultIdleTimeout,
		logger:      logger,
		backfill:    backfill,
	}
}

// Start registers the upkeep jobs and starts the cron engine: the
// idle-session reaper every 5 minutes, and (if configured) the FTS
// backfill check every hour.
func (m *Maintenance) Start() error {
	if _, err := m.cronEngine.AddFunc("*/5 * * * *", m.reapIdleSessions); err != nil {
		return fmt.Errorf("orchestration: schedule idle-session reaper: %w", err)
	}
	if m.backfill != nil {
		if _, err := m.cronEngine.AddFunc("0 * * * *", m.runBackfillCheck); err != nil {
			return fmt.Errorf("orchestration: schedule backfill check: %w", err)
		}
	}
	m.cronEngine.Start()
	return nil
}

// Stop stops the cron engine, returning once every running job has
// finished or ctx's deadline passes.
func (m *Maintenance) Stop(ctx context.Context) {
	stopCtx := m.cronEngine.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		m.logger.Warn("orchestration: maintenance stop timed out with jobs still running")
	}
}

func (m *Maintenance) reapIdleSessions() {
	idle := m.manager.IdleSessions(time.Now().Add(-m.idleTimeout))
	for _, sessionID := range idle {
		if err := m.manager.EndSession(context.Background(), sessionID, "idle_timeout"); err != nil {
			m.logger.Warn("orchestration: failed to reap idle session",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

func (m *Maintenance) runBackfillCheck() {
	if err := m.backfill(context.Background()); err != nil {
		m.logger.Warn("orchestration: fts backfill check failed", zap.Error(err))
	}
}
