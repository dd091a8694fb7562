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
// Package events defines the closed enumeration of session event types.
//
// This file is the single source of truth mapping a wire string to an
// EventType constant and to the Go struct that decodes its payload. Go has
// no declarative-macro facility to generate this mapping, so it is
// hand-written and kept exhaustive by TestAllEventTypesHavePayloads: every
// entry in AllEventTypes must have a corresponding case in NewPayload.
// Adding a variant without wiring its payload here is a bug, not a choice.
package events

import "strings"

// EventType identifies the kind of a persisted session event. Values are
// stable wire strings: they are stored in the event store and sent to
// clients verbatim, so existing values must never be renamed.
type EventType string

const (
	// session domain
	EventSessionStart        EventType = "session.start"
	EventSessionEnd          EventType = "session.end"
	EventSessionFork         EventType = "session.fork"
	EventSessionTitleChanged EventType = "session.titleChanged"

	// message domain
	EventMessageUser      EventType = "message.user"
	EventMessageAssistant EventType = "message.assistant"
	EventMessageSystem    EventType = "message.system"
	EventMessageDeleted   EventType = "message.deleted"

	// tool domain
	EventToolCall   EventType = "tool.call"
	EventToolResult EventType = "tool.result"

	// stream domain
	EventStreamTurnStart    EventType = "stream.turnStart"
	EventStreamTurnEnd      EventType = "stream.turnEnd"
	EventStreamTextDelta    EventType = "stream.textDelta"
	EventStreamThinkingDelta EventType = "stream.thinkingDelta"
	EventStreamToolCallDelta EventType = "stream.toolCallDelta"
	EventStreamRetry        EventType = "stream.retry"

	// compact domain
	EventCompactBoundary EventType = "compact.boundary"
	EventCompactSummary  EventType = "compact.summary"
	EventCompactFailed   EventType = "compact.failed"

	// context domain
	EventContextCleared  EventType = "context.cleared"
	EventContextSnapshot EventType = "context.snapshot"

	// error domain
	EventErrorAgent    EventType = "error.agent"
	EventErrorTool     EventType = "error.tool"
	EventErrorProvider EventType = "error.provider"

	// turn domain
	EventTurnFailed EventType = "turn.failed"

	// hook domain
	EventHookTriggered EventType = "hook.triggered"
	EventHookCompleted EventType = "hook.completed"
	EventHookBlocked   EventType = "hook.blocked"

	// skill domain
	EventSkillAdded   EventType = "skill.added"
	EventSkillRemoved EventType = "skill.removed"
	EventSkillInvoked EventType = "skill.invoked"

	// rules domain
	EventRulesLoaded  EventType = "rules.loaded"
	EventRulesUpdated EventType = "rules.updated"

	// memory domain
	EventMemoryLedger  EventType = "memory.ledger"
	EventMemoryLoaded  EventType = "memory.loaded" // raw/opaque payload, see NewPayload
	EventMemoryCleared EventType = "memory.cleared"

	// config domain
	EventConfigModelSwitch    EventType = "config.modelSwitch"
	EventConfigPromptUpdate   EventType = "config.promptUpdate"
	EventConfigReasoningLevel EventType = "config.reasoningLevel"

	// agent domain
	EventAgentComplete EventType = "agent.complete"
	EventAgentReady    EventType = "agent.ready"

	// worktree domain
	EventWorktreeAcquired EventType = "worktree.acquired"
	EventWorktreeCommit   EventType = "worktree.commit"
	EventWorktreeReleased EventType = "worktree.released"
	EventWorktreeMerged   EventType = "worktree.merged"

	// subagent domain
	EventSubagentStarted                    EventType = "subagent.started"
	EventSubagentCompleted                  EventType = "subagent.completed"
	EventNotificationInterrupted            EventType = "notification.interrupted"
	EventNotificationSubagentResult         EventType = "notification.subagentResult"
	EventNotificationSubagentResultsConsumed EventType = "notification.subagentResultsConsumed"

	// task domain
	EventTaskCreated    EventType = "task.created"
	EventTaskUpdated    EventType = "task.updated"
	EventTaskDeleted    EventType = "task.deleted"
	EventProjectCreated EventType = "project.created"
	EventProjectUpdated EventType = "project.updated"
	EventProjectDeleted EventType = "project.deleted"
	EventAreaCreated    EventType = "area.created"
	EventAreaUpdated    EventType = "area.updated"
	EventAreaDeleted    EventType = "area.deleted"

	// metadata domain
	EventMetadataUpdate EventType = "metadata.update"
	EventMetadataTag    EventType = "metadata.tag"

	// branch domain
	EventBranchCreated EventType = "branch.created"
	EventBranchRewound EventType = "branch.rewound"
)

// AllEventTypes lists every EventType in definition order. Kept in sync with
// NewPayload by TestAllEventTypesHavePayloads.
var AllEventTypes = []EventType{
	EventSessionStart, EventSessionEnd, EventSessionFork, EventSessionTitleChanged,
	EventMessageUser, EventMessageAssistant, EventMessageSystem, EventMessageDeleted,
	EventToolCall, EventToolResult,
	EventStreamTurnStart, EventStreamTurnEnd, EventStreamTextDelta, EventStreamThinkingDelta, EventStreamToolCallDelta, EventStreamRetry,
	EventCompactBoundary, EventCompactSummary, EventCompactFailed,
	EventContextCleared, EventContextSnapshot,
	EventErrorAgent, EventErrorTool, EventErrorProvider,
	EventTurnFailed,
	EventHookTriggered, EventHookCompleted, EventHookBlocked,
	EventSkillAdded, EventSkillRemoved, EventSkillInvoked,
	EventRulesLoaded, EventRulesUpdated,
	EventMemoryLedger, EventMemoryLoaded, EventMemoryCleared,
	EventConfigModelSwitch, EventConfigPromptUpdate, EventConfigReasoningLevel,
	EventAgentComplete, EventAgentReady,
	EventWorktreeAcquired, EventWorktreeCommit, EventWorktreeReleased, EventWorktreeMerged,
	EventSubagentStarted, EventSubagentCompleted, EventNotificationInterrupted, EventNotificationSubagentResult, EventNotificationSubagentResultsConsumed,
	EventTaskCreated, EventTaskUpdated, EventTaskDeleted,
	EventProjectCreated, EventProjectUpdated, EventProjectDeleted,
	EventAreaCreated, EventAreaUpdated, EventAreaDeleted,
	EventMetadataUpdate, EventMetadataTag,
	EventBranchCreated, EventBranchRewound,
}

// Domain returns the substring before the first '.' in the wire string,
// e.g. "message" for EventMessageUser.
func (t EventType) Domain() string {
	if idx := strings.IndexByte(string(t), '.'); idx >= 0 {
		return string(t)[:idx]
	}
	return string(t)
}

// String implements fmt.Stringer.
func (t EventType) String() string {
	return string(t)
}

// Valid reports whether t is a member of the closed enumeration.
func (t EventType) Valid() bool {
	for _, e := range AllEventTypes {
		if e == t {
			return true
		}
	}
	return false
}

// IsMessageEvent reports whether t belongs to the message.* domain group.
func (t EventType) IsMessageEvent() bool { return t.Domain() == "message" }

// IsStreamingEvent reports whether t belongs to the stream.* domain group.
func (t EventType) IsStreamingEvent() bool { return t.Domain() == "stream" }

// IsErrorEvent reports whether t belongs to the error.* domain group.
func (t EventType) IsErrorEvent() bool { return t.Domain() == "error" }

// IsConfigEvent reports whether t belongs to the config.* domain group.
func (t EventType) IsConfigEvent() bool { return t.Domain() == "config" }

// IsWorktreeEvent reports whether t belongs to the worktree.* domain group.
func (t EventType) IsWorktreeEvent() bool { return t.Domain() == "worktree" }

// IsSubagentEvent reports whether t belongs to the subagent.*/notification.*
// domain group.
func (t EventType) IsSubagentEvent() bool {
	return t.Domain() == "subagent" || t.Domain() == "notification"
}

// IsHookEvent reports whether t belongs to the hook.* domain group.
func (t EventType) IsHookEvent() bool { return t.Domain() == "hook" }

// IsSkillEvent reports whether t belongs to the skill.* domain group.
func (t EventType) IsSkillEvent() bool { return t.Domain() == "skill" }

// IsRulesEvent reports whether t belongs to the rules.* domain group.
func (t EventType) IsRulesEvent() bool { return t.Domain() == "rules" }

// IsMemoryEvent reports whether t belongs to the memory.* domain group.
func (t EventType) IsMemoryEvent() bool { return t.Domain() == "memory" }

// Exact-type guards used by callers that branch on a single event kind
// rather than a whole domain.

func (t EventType) IsUserMessage() bool      { return t == EventMessageUser }
func (t EventType) IsAssistantMessage() bool { return t == EventMessageAssistant }
func (t EventType) IsToolCall() bool         { return t == EventToolCall }
func (t EventType) IsToolResult() bool       { return t == EventToolResult }
func (t EventType) IsMessageDeleted() bool   { return t == EventMessageDeleted }
func (t EventType) IsCompactBoundary() bool  { return t == EventCompactBoundary }
func (t EventType) IsCompactSummary() bool   { return t == EventCompactSummary }
func (t EventType) IsContextCleared() bool   { return t == EventContextCleared }
func (t EventType) IsSessionStart() bool     { return t == EventSessionStart }
