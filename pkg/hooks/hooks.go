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

// Package hooks implements the lifecycle hook engine (spec.md §4.6, §4.7,
// §5): blocking pre-tool-use hooks that may veto or rewrite a tool call,
// and fire-and-forget post-tool-use background hooks centralized in one
// tracker so the runner can drain them at session boundaries.
package hooks

import (
	"context"
)

// Decision is a pre-tool-use hook's verdict (spec.md §4.6 step 2).
type Decision string

const (
	// DecisionContinue lets the tool call proceed unmodified.
	DecisionContinue Decision = "continue"
	// DecisionBlock aborts the call with a synthetic error result.
	DecisionBlock Decision = "block"
	// DecisionModify lets the call proceed with replacement arguments.
	DecisionModify Decision = "modify"
)

// PreToolUseRequest carries the information a pre-tool-use hook evaluates.
type PreToolUseRequest struct {
	SessionID string
	AgentID   string
	ToolName  string
	Arguments map[string]interface{}
}

// PreToolUseResult is a pre-tool-use hook's verdict.
type PreToolUseResult struct {
	Decision     Decision
	Reason       string                 // set when Decision == DecisionBlock
	NewArguments map[string]interface{} // set when Decision == DecisionModify
}

// PreToolUseHook runs synchronously before a tool call (spec.md §4.6 step
// 2), blocking the call.
type PreToolUseHook interface {
	Name() string
	PreToolUse(ctx context.Context, req PreToolUseRequest) (PreToolUseResult, error)
}

// PostToolUseRequest carries the information a post-tool-use hook observes,
// after the call has already completed.
type PostToolUseRequest struct {
	SessionID  string
	AgentID    string
	ToolName   string
	Arguments  map[string]interface{}
	IsError    bool
	DurationMs int64
}

// PostToolUseHook runs off the critical path, fire-and-forget, after a tool
// call completes (spec.md §4.6 step 5).
type PostToolUseHook interface {
	Name() string
	PostToolUse(ctx context.Context, req PostToolUseRequest)
}
