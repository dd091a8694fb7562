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
package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/teradata-labs/skein/internal/config"
	"github.com/teradata-labs/skein/pkg/eventstore"
	"github.com/teradata-labs/skein/pkg/fabric"
	"github.com/teradata-labs/skein/pkg/hooks"
	"github.com/teradata-labs/skein/pkg/llm/factory"
	"github.com/teradata-labs/skein/pkg/observability"
	"github.com/teradata-labs/skein/pkg/orchestration"
	"github.com/teradata-labs/skein/pkg/shuttle"
	"github.com/teradata-labs/skein/pkg/shuttle/builtin"
	"github.com/teradata-labs/skein/pkg/types"
)

// newProviderFactory adapts cfg.LLM into the factory.FactoryConfig shape
// pkg/llm/factory expects.
func newProviderFactory(cfg *config.Config) *factory.ProviderFactory {
	return factory.NewProviderFactory(cfg.LLM.FactoryConfig())
}

// runtime holds the subsystems every skeind command wires together, built
// once from cfg and shared by the serve daemon and the one-shot run
// command, narrowed to the subsystems Skein actually has: no gRPC server,
// no MCP manager, no TLS manager, no learning agent.
type runtime struct {
	logger     *zap.Logger
	store      *eventstore.Store
	tracer     observability.Tracer
	provider   types.LLMProvider
	tools      []shuttle.Tool
	executor   *shuttle.Executor
	guardrails *fabric.Engine
	manager    *orchestration.SessionManager
}

// buildRuntime constructs every subsystem a session needs to run turns:
// the event store, an LLM provider from cfg.LLM, the builtin tool registry
// and executor, a permissive guardrails engine, and the session manager.
func buildRuntime(cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	tracer := observability.NewLogTracer(logger)

	store, err := eventstore.New(cfg.EventStore.Path, tracer)
	if err != nil {
		return nil, fmt.Errorf("skeind: open event store: %w", err)
	}

	providerFactory := newProviderFactory(cfg)
	providerIface, err := providerFactory.CreateProvider(cfg.LLM.DefaultProvider, cfg.LLM.DefaultModel)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("skeind: create LLM provider: %w", err)
	}
	provider, ok := providerIface.(types.LLMProvider)
	if !ok {
		store.Close()
		return nil, fmt.Errorf("skeind: provider %q does not implement types.LLMProvider", cfg.LLM.DefaultProvider)
	}

	tools := builtin.All()
	registry := shuttle.NewRegistry()
	for _, tool := range tools {
		registry.Register(tool)
	}
	executor := shuttle.NewExecutor(registry)

	manager := orchestration.NewSessionManager(orchestration.Config{
		Store:                 store,
		Logger:                logger,
		MaxConcurrentSessions: cfg.Orchestration.MaxConcurrentSessions,
	})

	return &runtime{
		logger:     logger,
		store:      store,
		tracer:     tracer,
		provider:   provider,
		tools:      tools,
		executor:   executor,
		guardrails: fabric.NewEngine(),
		manager:    manager,
	}, nil
}

// Close releases the runtime's event store, the only subsystem it holds
// that needs closing.
func (rt *runtime) Close() error {
	return rt.store.Close()
}

// orchestrationMaintenance builds the cron-scheduled upkeep runner for
// rt's session manager. No FTS backfill check is wired: skein backfills
// full-text search synchronously in eventstore.Store.Append, so there is
// no lagging index for a periodic check to repair.
func orchestrationMaintenance(rt *runtime, logger *zap.Logger) *orchestration.Maintenance {
	return orchestration.NewMaintenance(rt.manager, logger, nil)
}

// hookEngineFor returns sessionID's hook engine, falling back to a fresh
// one if the session manager has no entry for it (the one-shot run path
// never calls SessionManager.CreateSession).
func hookEngineFor(rt *runtime, sessionID string) *hooks.Engine {
	if engine, ok := rt.manager.HookEngine(sessionID); ok {
		return engine
	}
	return hooks.NewEngine(rt.store, sessionID, rt.logger)
}
