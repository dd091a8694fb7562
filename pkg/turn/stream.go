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

// Package turn implements the turn runner and stream processor (spec.md
// §4.5): the per-turn loop that calls the provider, folds its stream into
// an assistant message, and runs any requested tool calls.
package turn

// StreamEventType is one step of the provider-agnostic stream ordering
// contract spec.md §4.5 names: start → (text_start → text_delta* →
// text_end | thinking_start → thinking_delta* → thinking_end |
// tool_call_start → tool_call_delta* → tool_call_end)* → done | error.
// retry and error may appear at any point.
type StreamEventType string

const (
	StreamStart StreamEventType = "start"

	StreamTextStart StreamEventType = "text_start"
	StreamTextDelta StreamEventType = "text_delta"
	StreamTextEnd   StreamEventType = "text_end"

	StreamThinkingStart StreamEventType = "thinking_start"
	StreamThinkingDelta StreamEventType = "thinking_delta"
	StreamThinkingEnd   StreamEventType = "thinking_end"

	StreamToolCallStart StreamEventType = "tool_call_start"
	StreamToolCallDelta StreamEventType = "tool_call_delta"
	StreamToolCallEnd   StreamEventType = "tool_call_end"

	StreamRetry StreamEventType = "retry"
	StreamError StreamEventType = "error"
	StreamDone  StreamEventType = "done"
)

// StreamEvent is one event yielded by a provider's streaming operation.
// BlockID identifies which content block (by provider-assigned index or
// tool call id) a delta belongs to, so the processor can accumulate
// deltas "keyed by their content-block identifier" even when a provider
// interleaves blocks (spec.md §4.5).
type StreamEvent struct {
	Type  StreamEventType
	Turn  int64
	Delta string // for text_delta / thinking_delta / tool_call_delta

	BlockID  string // content-block identifier
	ToolName string // set on tool_call_start

	Attempt    int // set on retry
	MaxRetries int // set on retry
	Err        error
}
