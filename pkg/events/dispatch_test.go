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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllEventTypesHavePayloads(t *testing.T) {
	seen := make(map[EventType]bool)
	for _, et := range AllEventTypes {
		require.False(t, seen[et], "duplicate entry in AllEventTypes: %s", et)
		seen[et] = true

		payload, err := NewPayload(et)
		require.NoError(t, err, "event type %s has no registered payload", et)
		require.NotNil(t, payload)
	}
}

func TestEventTypeDomain(t *testing.T) {
	require.Equal(t, "message", EventMessageUser.Domain())
	require.Equal(t, "stream", EventStreamTextDelta.Domain())
	require.Equal(t, "worktree", EventWorktreeAcquired.Domain())
}

func TestDomainGroupPredicates(t *testing.T) {
	require.True(t, EventMessageUser.IsMessageEvent())
	require.False(t, EventToolCall.IsMessageEvent())

	require.True(t, EventStreamTextDelta.IsStreamingEvent())
	require.True(t, EventErrorProvider.IsErrorEvent())
	require.True(t, EventConfigModelSwitch.IsConfigEvent())
	require.True(t, EventWorktreeCommit.IsWorktreeEvent())
	require.True(t, EventSubagentStarted.IsSubagentEvent())
	require.True(t, EventNotificationSubagentResult.IsSubagentEvent())
	require.True(t, EventHookTriggered.IsHookEvent())
	require.True(t, EventSkillAdded.IsSkillEvent())
	require.True(t, EventRulesLoaded.IsRulesEvent())
	require.True(t, EventMemoryLedger.IsMemoryEvent())
}

func TestTypedPayloadRoundTrip(t *testing.T) {
	raw, err := json.Marshal(MessageUserPayload{Content: "hello"})
	require.NoError(t, err)

	decoded, err := TypedPayload(EventMessageUser, raw)
	require.NoError(t, err)

	msg, ok := decoded.(*MessageUserPayload)
	require.True(t, ok)
	require.Equal(t, "hello", msg.Content)
}

func TestTypedPayloadUnknownEventType(t *testing.T) {
	_, err := TypedPayload(EventType("bogus.event"), nil)
	require.Error(t, err)
}

func TestValidEventType(t *testing.T) {
	require.True(t, EventMessageUser.Valid())
	require.False(t, EventType("not.real").Valid())
}
