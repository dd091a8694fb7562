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
package events

import (
	"encoding/json"
	"fmt"
)

// NewPayload returns a pointer to the zero-value payload struct registered
// for t, suitable as the target of json.Unmarshal. It is the single
// exhaustive switch over the closed EventType enumeration; every case here
// must have a matching entry in AllEventTypes and vice versa
// (TestAllEventTypesHavePayloads enforces this).
func NewPayload(t EventType) (interface{}, error) {
	switch t {
	case EventSessionStart:
		return &SessionStartPayload{}, nil
	case EventSessionEnd:
		return &SessionEndPayload{}, nil
	case EventSessionFork:
		return &SessionForkPayload{}, nil
	case EventSessionTitleChanged:
		return &SessionTitleChangedPayload{}, nil

	case EventMessageUser:
		return &MessageUserPayload{}, nil
	case EventMessageAssistant:
		return &MessageAssistantPayload{}, nil
	case EventMessageSystem:
		return &MessageSystemPayload{}, nil
	case EventMessageDeleted:
		return &MessageDeletedPayload{}, nil

	case EventToolCall:
		return &ToolCallPayload{}, nil
	case EventToolResult:
		return &ToolResultPayload{}, nil

	case EventStreamTurnStart:
		return &StreamTurnStartPayload{}, nil
	case EventStreamTurnEnd:
		return &StreamTurnEndPayload{}, nil
	case EventStreamTextDelta:
		return &StreamTextDeltaPayload{}, nil
	case EventStreamThinkingDelta:
		return &StreamThinkingDeltaPayload{}, nil
	case EventStreamToolCallDelta:
		return &StreamToolCallDeltaPayload{}, nil
	case EventStreamRetry:
		return &StreamRetryPayload{}, nil

	case EventCompactBoundary:
		return &CompactBoundaryPayload{}, nil
	case EventCompactSummary:
		return &CompactSummaryPayload{}, nil
	case EventCompactFailed:
		return &CompactFailedPayload{}, nil

	case EventContextCleared:
		return &ContextClearedPayload{}, nil
	case EventContextSnapshot:
		return &ContextSnapshotPayload{}, nil

	case EventErrorAgent:
		return &ErrorAgentPayload{}, nil
	case EventErrorTool:
		return &ErrorToolPayload{}, nil
	case EventErrorProvider:
		return &ErrorProviderPayload{}, nil

	case EventTurnFailed:
		return &TurnFailedPayload{}, nil

	case EventHookTriggered:
		return &HookTriggeredPayload{}, nil
	case EventHookCompleted:
		return &HookCompletedPayload{}, nil
	case EventHookBlocked:
		return &HookBlockedPayload{}, nil

	case EventSkillAdded:
		return &SkillAddedPayload{}, nil
	case EventSkillRemoved:
		return &SkillRemovedPayload{}, nil
	case EventSkillInvoked:
		return &SkillInvokedPayload{}, nil

	case EventRulesLoaded:
		return &RulesLoadedPayload{}, nil
	case EventRulesUpdated:
		return &RulesUpdatedPayload{}, nil

	case EventMemoryLedger:
		return &MemoryLedgerPayload{}, nil
	case EventMemoryLoaded:
		return &MemoryLoadedPayload{}, nil
	case EventMemoryCleared:
		return &MemoryClearedPayload{}, nil

	case EventConfigModelSwitch:
		return &ConfigModelSwitchPayload{}, nil
	case EventConfigPromptUpdate:
		return &ConfigPromptUpdatePayload{}, nil
	case EventConfigReasoningLevel:
		return &ConfigReasoningLevelPayload{}, nil

	case EventAgentComplete:
		return &AgentCompletePayload{}, nil
	case EventAgentReady:
		return &AgentReadyPayload{}, nil

	case EventWorktreeAcquired:
		return &WorktreeAcquiredPayload{}, nil
	case EventWorktreeCommit:
		return &WorktreeCommitPayload{}, nil
	case EventWorktreeReleased:
		return &WorktreeReleasedPayload{}, nil
	case EventWorktreeMerged:
		return &WorktreeMergedPayload{}, nil

	case EventSubagentStarted:
		return &SubagentStartedPayload{}, nil
	case EventSubagentCompleted:
		return &SubagentCompletedPayload{}, nil
	case EventNotificationInterrupted:
		return &NotificationInterruptedPayload{}, nil
	case EventNotificationSubagentResult:
		return &NotificationSubagentResultPayload{}, nil
	case EventNotificationSubagentResultsConsumed:
		return &SubagentResultsConsumedPayload{}, nil

	case EventTaskCreated:
		return &TaskCreatedPayload{}, nil
	case EventTaskUpdated:
		return &TaskUpdatedPayload{}, nil
	case EventTaskDeleted:
		return &TaskDeletedPayload{}, nil
	case EventProjectCreated:
		return &ProjectCreatedPayload{}, nil
	case EventProjectUpdated:
		return &ProjectUpdatedPayload{}, nil
	case EventProjectDeleted:
		return &ProjectDeletedPayload{}, nil
	case EventAreaCreated:
		return &AreaCreatedPayload{}, nil
	case EventAreaUpdated:
		return &AreaUpdatedPayload{}, nil
	case EventAreaDeleted:
		return &AreaDeletedPayload{}, nil

	case EventMetadataUpdate:
		return &MetadataUpdatePayload{}, nil
	case EventMetadataTag:
		return &MetadataTagPayload{}, nil

	case EventBranchCreated:
		return &BranchCreatedPayload{}, nil
	case EventBranchRewound:
		return &BranchRewoundPayload{}, nil

	default:
		return nil, fmt.Errorf("events: no payload registered for event type %q", t)
	}
}

// TypedPayload unmarshals raw into the payload type registered for t and
// returns it. Callers type-assert the result to the concrete payload type
// they expect, or use a type switch when handling several event types.
func TypedPayload(t EventType, raw json.RawMessage) (interface{}, error) {
	payload, err := NewPayload(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("events: decoding payload for %q: %w", t, err)
	}
	return payload, nil
}
