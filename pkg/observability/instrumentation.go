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
package observability

// Standard span names for consistency across the runtime.
// Use these constants instead of hardcoding strings.
const (
	// Event store spans
	SpanEventStoreAppend  = "eventstore.append"
	SpanEventStoreFork    = "eventstore.fork"
	SpanEventStoreRewind  = "eventstore.rewind"
	SpanEventStoreSearch  = "eventstore.search"
	SpanEventStoreReplay  = "eventstore.replay"
	SpanEventStoreDelete  = "eventstore.delete_message"

	// Turn runner spans
	SpanTurnRun       = "turn.run"
	SpanTurnStream    = "turn.stream"
	SpanTurnRetry     = "turn.retry"
	SpanStreamFold    = "stream.fold"

	// Tool executor spans
	SpanToolExecute    = "tool.execute"
	SpanToolGuardrail  = "tool.guardrail_check"
	SpanToolHookPre    = "tool.hook.pre"
	SpanToolHookPost   = "tool.hook.post"

	// Context manager / compaction spans
	SpanContextBuild     = "context.build"
	SpanCompactionRun    = "compaction.run"
	SpanCompactionSummarize = "compaction.summarize"

	// Orchestrator / broadcast spans
	SpanOrchestratorCreateSession = "orchestrator.create_session"
	SpanOrchestratorResumeSession = "orchestrator.resume_session"
	SpanOrchestratorAbort         = "orchestrator.abort"
	SpanBusPublish      = "bus.publish"
	SpanBusSubscribe    = "bus.subscribe"
	SpanBusDeliver      = "bus.deliver"
	SpanBusUnsubscribe  = "bus.unsubscribe"

	// Provider spans
	SpanProviderStream = "provider.stream"
)

// Standard metric names for consistency.
const (
	MetricEventsAppended   = "eventstore.events_appended.total"
	MetricEventStoreErrors = "eventstore.errors.total"

	MetricTurnsRun      = "turn.runs.total"
	MetricTurnLatency   = "turn.latency_ms"
	MetricTurnRetries   = "turn.retries.total"

	MetricToolExecutions = "tool.executions.total"
	MetricToolDuration   = "tool.duration_ms"
	MetricToolErrors     = "tool.errors.total"

	MetricCompactionsRun    = "compaction.runs.total"
	MetricCompactionTokensFreed = "compaction.tokens_freed"

	MetricBusPublished = "bus.published.total"
	MetricBusDelivered = "bus.delivered.total"
	MetricBusDropped   = "bus.dropped.total"

	MetricActiveSessions = "orchestrator.active_sessions"
)

// Standard attribute names for consistency.
// Use these constants for span and event attributes.
const (
	// Session/workspace context
	AttrSessionID   = "session.id"
	AttrWorkspaceID = "workspace.id"
	AttrEventID     = "event.id"
	AttrEventType   = "event.type"
	AttrTraceID     = "trace.id"
	AttrSpanID      = "span.id"

	// LLM / provider attributes
	AttrLLMProvider    = "llm.provider"
	AttrLLMModel       = "llm.model"
	AttrLLMTemperature = "llm.temperature"
	AttrLLMMaxTokens   = "llm.max_tokens" // #nosec G101 -- not a credential, just attribute name
	AttrLLMStreaming   = "llm.streaming"
	AttrLLMTTFT        = "llm.ttft_ms"

	// Tool attributes
	AttrToolName     = "tool.name"
	AttrToolCallID   = "tool.call_id"
	AttrToolArgs     = "tool.args"
	AttrToolMode     = "tool.execution_mode"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
	AttrErrorStack   = "error.stack"

	// Compaction attributes
	AttrCompactionTrigger = "compaction.trigger"
	AttrTokensBefore      = "compaction.tokens_before"
	AttrTokensAfter       = "compaction.tokens_after"

	// Broadcast attributes
	AttrBusTopic        = "bus.topic"
	AttrBusSubscriberID = "bus.subscriber_id"
)
