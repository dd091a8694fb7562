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
package shuttle

import (
	"context"
	"fmt"
)

// Executor looks up tools by name in a Registry and runs them. It is the
// plain, uninstrumented execution path; InstrumentedExecutor wraps it with
// tracing and metrics.
type Executor struct {
	registry *Registry
}

// NewExecutor creates an Executor backed by registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute looks up toolName in the registry and runs it. It returns an error
// only when the tool itself cannot be found or run; a tool's own failure is
// reported through Result.Success/Result.Error, never as a Go error.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}) (*Result, error) {
	tool, ok := e.registry.Get(toolName)
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", toolName)
	}
	return e.ExecuteWithTool(ctx, tool, params)
}

// ExecuteWithTool runs a specific tool instance, bypassing registry lookup.
func (e *Executor) ExecuteWithTool(ctx context.Context, tool Tool, params map[string]interface{}) (*Result, error) {
	return tool.Execute(ctx, params)
}

// ListAvailableTools returns every tool registered with the executor's
// registry.
func (e *Executor) ListAvailableTools() []Tool {
	return e.registry.ListTools()
}

// ListToolsByBackend returns tools registered for backend (plus
// backend-agnostic tools).
func (e *Executor) ListToolsByBackend(backend string) []Tool {
	return e.registry.ListByBackend(backend)
}
