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
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	skeincontext "github.com/teradata-labs/skein/pkg/context"
	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/eventstore"
	"github.com/teradata-labs/skein/pkg/fabric"
	"github.com/teradata-labs/skein/pkg/hooks"
	"github.com/teradata-labs/skein/pkg/shuttle"
	"github.com/teradata-labs/skein/pkg/types"
)

// maxTurnsPerCall bounds the tool_use loop inside a single RunTurn call so a
// misbehaving provider that always requests another tool call cannot spin
// forever (spec.md §4.5 names this as an implementation safeguard, not a
// user-visible limit).
const maxTurnsPerCall = 50

// Result is what a completed (or failed) RunTurn call reports back to the
// agent runner.
type Result struct {
	StopReason string
	Text       string
	Usage      types.Usage
	Turn       int64
}

// Runner executes spec.md §4.5's turn loop: assemble context, call the
// provider with retry, fold its stream into an assistant message, and run
// any requested tool calls before looping back for the next turn.
type Runner struct {
	store      *eventstore.Store
	manager    *skeincontext.Manager
	sessionID  string
	agentID    string
	workingDir string

	provider types.LLMProvider
	tools    []shuttle.Tool
	model    string

	guardrails *fabric.Engine
	hookEngine *hooks.Engine
	executor   *shuttle.Executor

	retry  RetryConfig
	logger *zap.Logger
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithRetryConfig overrides the default provider retry/backoff policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(r *Runner) { r.retry = cfg }
}

// WithLogger overrides the runner's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner builds a Runner. guardrails, hookEngine, and executor may each
// be nil; a nil guardrails engine permits every tool call, a nil hookEngine
// runs no hooks, and a nil executor means tool calls are rejected with a
// user-visible tool error rather than invoked.
func NewRunner(
	store *eventstore.Store,
	manager *skeincontext.Manager,
	sessionID, agentID, workingDir string,
	provider types.LLMProvider,
	tools []shuttle.Tool,
	guardrails *fabric.Engine,
	hookEngine *hooks.Engine,
	executor *shuttle.Executor,
	opts ...Option,
) *Runner {
	r := &Runner{
		store:      store,
		manager:    manager,
		sessionID:  sessionID,
		agentID:    agentID,
		workingDir: workingDir,
		provider:   provider,
		tools:      tools,
		model:      provider.Model(),
		guardrails: guardrails,
		hookEngine: hookEngine,
		executor:   executor,
		retry:      DefaultRetryConfig,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunTurn drives turns starting at turnNumber until the provider returns a
// stop reason other than "tool_use" (spec.md §4.5 step 6), the turn count
// safeguard trips, or ctx is cancelled.
func (r *Runner) RunTurn(ctx context.Context, turnNumber int64) (*Result, error) {
	for i := 0; i < maxTurnsPerCall; i++ {
		if err := ctx.Err(); err != nil {
			r.appendTurnFailed(context.Background(), turnNumber, err, "cancelled", false)
			return nil, err
		}

		messages := r.manager.Messages()
		processor := NewProcessor()
		resp, latency, err := r.callWithRetry(ctx, messages, turnNumber, processor)
		if err != nil {
			category, recoverable := classifyProviderError(ctx, err)
			r.appendTurnFailed(context.Background(), turnNumber, err, category, recoverable)
			return nil, err
		}

		blocks := finalizeBlocks(processor, resp)
		usage := events.TokenUsage{InputTokens: int64(resp.Usage.InputTokens), OutputTokens: int64(resp.Usage.OutputTokens)}

		assistantEvent, err := r.store.Append(ctx, r.sessionID, events.EventMessageAssistant, events.MessageAssistantPayload{
			Content:    blocks,
			TokenUsage: usage,
			StopReason: resp.StopReason,
			LatencyMs:  latency.Milliseconds(),
			Model:      r.model,
			Turn:       turnNumber,
		}, "")
		if err != nil {
			return nil, fmt.Errorf("turn: append message.assistant: %w", err)
		}

		r.manager.AppendMessage(types.Message{
			ID:        assistantEvent.ID,
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		result := &Result{
			StopReason: resp.StopReason,
			Text:       processor.Text(),
			Usage:      resp.Usage,
			Turn:       turnNumber,
		}

		if resp.StopReason != "tool_use" || len(resp.ToolCalls) == 0 {
			return result, nil
		}

		if err := r.runToolCalls(ctx, turnNumber, resp.ToolCalls); err != nil {
			category, recoverable := classifyProviderError(ctx, err)
			r.appendTurnFailed(context.Background(), turnNumber, err, category, recoverable)
			return nil, err
		}

		turnNumber++
	}

	err := fmt.Errorf("turn: exceeded %d chained tool_use turns without a final response", maxTurnsPerCall)
	r.appendTurnFailed(context.Background(), turnNumber, err, "operational", false)
	return nil, err
}

// callWithRetry calls the provider, preferring ChatStream (folding token
// deltas through processor as synthetic StreamEvents) when the provider and
// context support it, falling back to plain Chat with exponential backoff
// otherwise.
func (r *Runner) callWithRetry(ctx context.Context, messages []types.Message, turnNumber int64, processor *Processor) (*types.LLMResponse, time.Duration, error) {
	start := time.Now()

	if streaming, ok := r.provider.(types.StreamingLLMProvider); ok {
		processor.Fold(StreamEvent{Type: StreamStart, Turn: turnNumber})
		processor.Fold(StreamEvent{Type: StreamTextStart, Turn: turnNumber, BlockID: "0"})
		resp, err := streaming.ChatStream(ctx, messages, r.tools, func(token string) {
			processor.Fold(StreamEvent{Type: StreamTextDelta, Turn: turnNumber, BlockID: "0", Delta: token})
		})
		processor.Fold(StreamEvent{Type: StreamTextEnd, Turn: turnNumber, BlockID: "0"})
		if err != nil {
			processor.Fold(StreamEvent{Type: StreamError, Turn: turnNumber, Err: err})
			return nil, time.Since(start), err
		}
		processor.Fold(StreamEvent{Type: StreamDone, Turn: turnNumber})
		return resp, time.Since(start), nil
	}

	if !r.retry.Enabled || r.retry.MaxRetries == 0 {
		resp, err := r.provider.Chat(ctx, messages, r.tools)
		return resp, time.Since(start), err
	}

	var lastErr error
	delay := r.retry.InitialDelay
	for attempt := 0; attempt <= r.retry.MaxRetries; attempt++ {
		resp, err := r.provider.Chat(ctx, messages, r.tools)
		if err == nil {
			return resp, time.Since(start), nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, time.Since(start), ctx.Err()
		}
		if attempt >= r.retry.MaxRetries {
			break
		}

		r.emitRetry(ctx, attempt+1, r.retry.MaxRetries, err)
		select {
		case <-ctx.Done():
			return nil, time.Since(start), ctx.Err()
		case <-time.After(delay):
		}
		delay = r.retry.nextDelay(delay)
	}

	return nil, time.Since(start), fmt.Errorf("provider call failed after %d attempts: %w", r.retry.MaxRetries+1, lastErr)
}

func (r *Runner) emitRetry(ctx context.Context, attempt, maxRetries int, cause error) {
	if r.store == nil {
		return
	}
	_, err := r.store.Append(ctx, r.sessionID, events.EventStreamRetry, events.StreamRetryPayload{
		Attempt:    attempt,
		MaxRetries: maxRetries,
		Reason:     cause.Error(),
	}, "")
	if err != nil {
		r.logger.Warn("turn: failed to append stream.retry event", zap.Error(err))
	}
}

// finalizeBlocks renders the processor's folded text/thinking blocks plus
// one tool_use block per requested tool call, since tool calls are only
// knowable once the provider call returns (spec.md §4.5).
func finalizeBlocks(processor *Processor, resp *types.LLMResponse) []events.ContentBlock {
	blocks := processor.ContentBlocks()
	if resp.Thinking != "" {
		blocks = append(blocks, events.ContentBlock{Type: "thinking", Text: resp.Thinking})
	}
	for _, tc := range resp.ToolCalls {
		extra, _ := json.Marshal(struct {
			ID    string                 `json:"id"`
			Name  string                 `json:"name"`
			Input map[string]interface{} `json:"input"`
		}{ID: tc.ID, Name: tc.Name, Input: tc.Input})
		blocks = append(blocks, events.ContentBlock{Type: "tool_use", Extra: extra})
	}
	return blocks
}

// runToolCalls executes each requested tool call in provider order through
// the guardrail → pre-hook → invoke → post-hook pipeline (spec.md §4.6),
// appending tool.call before and tool.result after each, then splicing the
// result into the context manager as a tool-role message for the next turn.
func (r *Runner) runToolCalls(ctx context.Context, turnNumber int64, calls []types.ToolCall) error {
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return err
		}

		argsJSON, _ := json.Marshal(call.Input)
		if _, err := r.store.Append(ctx, r.sessionID, events.EventToolCall, events.ToolCallPayload{
			ToolCallID: call.ID,
			Name:       call.Name,
			Arguments:  argsJSON,
			Turn:       turnNumber,
		}, ""); err != nil {
			return fmt.Errorf("turn: append tool.call: %w", err)
		}

		result := r.invokeTool(ctx, call)

		if _, err := r.store.Append(ctx, r.sessionID, events.EventToolResult, events.ToolResultPayload{
			ToolCallID:    call.ID,
			Content:       result.Content,
			IsError:       result.IsError,
			DurationMs:    result.ExecutionTimeMs,
			AffectedFiles: result.AffectedFiles,
			Truncated:     &result.Truncated,
			BlobID:        result.BlobID,
		}, ""); err != nil {
			return fmt.Errorf("turn: append tool.result: %w", err)
		}

		r.manager.AppendMessage(types.Message{
			Role:       "tool",
			ToolUseID:  call.ID,
			ToolResult: result,
			Content:    result.Content,
		})
	}
	return nil
}

// invokeTool runs the guardrail and hook pipeline around a single tool
// call, never returning a Go error: failures become Result.IsError so the
// agent loop can react to them the way spec.md §4.6 names ("a tool's own
// failure is reported through the result contract, never as a turn
// failure").
func (r *Runner) invokeTool(ctx context.Context, call types.ToolCall) *shuttle.Result {
	start := time.Now()

	tool := r.findTool(call.Name)
	if tool == nil {
		return errorResult(fmt.Sprintf("tool not registered: %s", call.Name), start)
	}
	if err := shuttle.ValidateArguments(tool.InputSchema(), call.Input); err != nil {
		return errorResult(err.Error(), start)
	}

	if r.guardrails != nil {
		violations := r.guardrails.Evaluate(ctx, fabric.EvalContext{
			ToolName:   call.Name,
			Arguments:  call.Input,
			Backend:    tool.Backend(),
			WorkingDir: r.workingDir,
			SessionID:  r.sessionID,
			AgentID:    r.agentID,
		})
		if fabric.Blocks(violations) {
			return errorResult(fmt.Sprintf("blocked by guardrail: %s", violations[0].Message), start)
		}
	}

	args := call.Input
	if r.hookEngine != nil {
		preResult, err := r.hookEngine.RunPreToolUse(ctx, hooks.PreToolUseRequest{
			SessionID: r.sessionID,
			AgentID:   r.agentID,
			ToolName:  call.Name,
			Arguments: args,
		})
		if err != nil {
			r.logger.Warn("turn: pre-tool-use hook engine error, continuing", zap.Error(err))
		} else {
			switch preResult.Decision {
			case hooks.DecisionBlock:
				return errorResult(fmt.Sprintf("blocked by hook: %s", preResult.Reason), start)
			case hooks.DecisionModify:
				args = preResult.NewArguments
			}
		}
	}

	if r.executor == nil {
		return errorResult(fmt.Sprintf("no tool executor configured: %s", call.Name), start)
	}
	execResult, err := r.executor.ExecuteWithTool(ctx, tool, args)
	if err != nil {
		execResult = errorResult(err.Error(), start)
	}
	if execResult.ExecutionTimeMs == 0 {
		execResult.ExecutionTimeMs = time.Since(start).Milliseconds()
	}

	if r.hookEngine != nil {
		r.hookEngine.RunPostToolUse(hooks.PostToolUseRequest{
			SessionID:  r.sessionID,
			AgentID:    r.agentID,
			ToolName:   call.Name,
			Arguments:  args,
			IsError:    execResult.IsError,
			DurationMs: execResult.ExecutionTimeMs,
		})
	}

	return execResult
}

func (r *Runner) findTool(name string) shuttle.Tool {
	for _, t := range r.tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func errorResult(message string, start time.Time) *shuttle.Result {
	return &shuttle.Result{
		Success:         false,
		IsError:         true,
		Content:         message,
		Error:           &shuttle.Error{Message: message},
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
}

func (r *Runner) appendTurnFailed(ctx context.Context, turnNumber int64, cause error, category string, recoverable bool) {
	if r.store == nil {
		return
	}
	if _, err := r.store.Append(ctx, r.sessionID, events.EventTurnFailed, events.TurnFailedPayload{
		Turn:        turnNumber,
		Error:       cause.Error(),
		Category:    category,
		Recoverable: recoverable,
	}, ""); err != nil {
		r.logger.Warn("turn: failed to append turn.failed event", zap.Error(err))
	}
}

// classifyProviderError maps a failure from callWithRetry/runToolCalls onto
// spec.md §7's error taxonomy (Fatal / Retryable / Operational /
// user-visible tool error). Cancellation is never recoverable; everything
// else surfaced here already exhausted its retries, so it is reported as a
// non-recoverable operational failure rather than silently retried again
// upstream.
func classifyProviderError(ctx context.Context, err error) (category string, recoverable bool) {
	if ctx.Err() != nil {
		return "cancelled", false
	}
	return "operational", false
}
