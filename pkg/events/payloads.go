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

import "encoding/json"

// TokenUsage is token usage reported by an LLM provider for a single turn.
// Field naming mirrors the wire format exactly for client compatibility.
type TokenUsage struct {
	InputTokens           int64  `json:"inputTokens"`
	OutputTokens          int64  `json:"outputTokens"`
	CacheReadTokens       *int64 `json:"cacheReadTokens,omitempty"`
	CacheCreationTokens   *int64 `json:"cacheCreationTokens,omitempty"`
	CacheCreation5mTokens *int64 `json:"cacheCreation5mTokens,omitempty"`
	CacheCreation1hTokens *int64 `json:"cacheCreation1hTokens,omitempty"`
}

// TokenRecord is the canonical source/computed/cost token record attached to
// message.assistant and stream.turnEnd events. Kept as opaque JSON since its
// shape is owned by pkg/tokens, not by the event registry.
type TokenRecord = json.RawMessage

// --- session domain ---

type SessionStartPayload struct {
	WorkingDir   string          `json:"workingDir"`
	Model        string          `json:"model"`
	ForkedFrom   *ForkSource     `json:"forkedFrom,omitempty"`
	RootEventID  string          `json:"rootEventId,omitempty"`
}

type ForkSource struct {
	SessionID string `json:"sessionId"`
	EventID   string `json:"eventId"`
}

type SessionEndPayload struct {
	Reason string `json:"reason"`
}

type SessionForkPayload struct {
	NewSessionID string `json:"newSessionId"`
	AtEventID    string `json:"atEventId"`
}

type SessionTitleChangedPayload struct {
	PreviousTitle string `json:"previousTitle,omitempty"`
	NewTitle      string `json:"newTitle"`
}

// --- message domain ---

type MessageUserPayload struct {
	Content string `json:"content"`
}

type ContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Extra json.RawMessage `json:"extra,omitempty"`
}

type MessageAssistantPayload struct {
	Content      []ContentBlock `json:"content"`
	TokenUsage   TokenUsage     `json:"tokenUsage"`
	TokenRecord  *TokenRecord   `json:"tokenRecord,omitempty"`
	StopReason   string         `json:"stopReason"`
	LatencyMs    int64          `json:"latencyMs"`
	Model        string         `json:"model"`
	Turn         int64          `json:"turn"`
}

type MessageSystemPayload struct {
	Content string `json:"content"`
}

type MessageDeletedPayload struct {
	TargetEventID string `json:"targetEventId"`
	Reason        string `json:"reason,omitempty"`
}

// --- tool domain ---

type ToolCallPayload struct {
	ToolCallID string          `json:"toolCallId"`
	Name       string          `json:"name"`
	Arguments  json.RawMessage `json:"arguments"`
	Turn       int64           `json:"turn"`
}

type ToolResultPayload struct {
	ToolCallID     string   `json:"toolCallId"`
	Content        string   `json:"content"`
	IsError        bool     `json:"isError"`
	DurationMs     int64    `json:"duration"`
	AffectedFiles  []string `json:"affectedFiles,omitempty"`
	Truncated      *bool    `json:"truncated,omitempty"`
	BlobID         string   `json:"blobId,omitempty"`
}

// --- stream domain ---

type StreamTurnStartPayload struct {
	Turn int64 `json:"turn"`
}

type StreamTurnEndPayload struct {
	Turn        int64        `json:"turn"`
	TokenUsage  TokenUsage   `json:"tokenUsage"`
	TokenRecord *TokenRecord `json:"tokenRecord,omitempty"`
	Cost        *float64     `json:"cost,omitempty"`
}

type StreamTextDeltaPayload struct {
	Delta      string `json:"delta"`
	Turn       int64  `json:"turn"`
	BlockIndex *int64 `json:"blockIndex,omitempty"`
}

type StreamThinkingDeltaPayload struct {
	Delta string `json:"delta"`
	Turn  int64  `json:"turn"`
}

type StreamToolCallDeltaPayload struct {
	ToolCallID string `json:"toolCallId"`
	Delta      string `json:"delta"`
	Turn       int64  `json:"turn"`
}

type StreamRetryPayload struct {
	Attempt    int    `json:"attempt"`
	MaxRetries int    `json:"maxRetries"`
	Reason     string `json:"reason,omitempty"`
}

// --- compact domain ---

type CompactRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type CompactBoundaryPayload struct {
	Range           CompactRange `json:"range"`
	OriginalTokens  int64        `json:"originalTokens"`
	CompactedTokens int64        `json:"compactedTokens"`
}

type CompactSummaryPayload struct {
	Summary        string   `json:"summary"`
	KeyDecisions   []string `json:"keyDecisions,omitempty"`
	FilesModified  []string `json:"filesModified,omitempty"`
	BoundaryEventID string  `json:"boundaryEventId"`
}

type CompactFailedPayload struct {
	Reason string `json:"reason"`
}

// --- context domain ---

type ContextClearedPayload struct {
	TokensBefore int64  `json:"tokensBefore"`
	TokensAfter  int64  `json:"tokensAfter"`
	Reason       string `json:"reason"`
}

type ContextSnapshotPayload struct {
	TokenCount int64  `json:"tokenCount"`
	Threshold  string `json:"threshold"`
}

// --- error domain ---

type ErrorAgentPayload struct {
	Error       string `json:"error"`
	Code        string `json:"code,omitempty"`
	Recoverable bool   `json:"recoverable"`
}

type ErrorToolPayload struct {
	ToolName   string `json:"toolName"`
	ToolCallID string `json:"toolCallId"`
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
}

type ErrorProviderPayload struct {
	Provider   string `json:"provider"`
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Category   string `json:"category,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Retryable  bool   `json:"retryable"`
	RetryAfter *int64 `json:"retryAfter,omitempty"`
}

// --- turn domain ---

type TurnFailedPayload struct {
	Turn           int64  `json:"turn"`
	Error          string `json:"error"`
	Code           string `json:"code,omitempty"`
	Category       string `json:"category,omitempty"`
	Recoverable    bool   `json:"recoverable"`
	PartialContent string `json:"partialContent,omitempty"`
}

// --- hook domain ---

type HookTriggeredPayload struct {
	HookName string `json:"hookName"`
	Stage    string `json:"stage"`
}

type HookCompletedPayload struct {
	HookName   string `json:"hookName"`
	DurationMs int64  `json:"durationMs"`
	Outcome    string `json:"outcome"`
}

type HookBlockedPayload struct {
	HookName string `json:"hookName"`
	Reason   string `json:"reason"`
}

// --- agent domain ---

// AgentCompletePayload closes out an agent run: the final stop reason and
// the token totals accumulated across every turn in the run (spec.md
// §4.7 step 6).
type AgentCompletePayload struct {
	StopReason string     `json:"stopReason"`
	TokenUsage TokenUsage `json:"tokenUsage"`
	Turns      int64      `json:"turns"`
}

// AgentReadyPayload marks that the session is ready to accept the next
// user message. Clients rely on this arriving strictly after
// agent.complete (and after any background hooks drained in between) to
// re-enable user input (spec.md §4.7 step 6, §8).
type AgentReadyPayload struct{}

// --- skill domain ---

type SkillAddedPayload struct {
	SkillName string `json:"skillName"`
	Source    string `json:"source"`
	AddedVia  string `json:"addedVia"`
}

type SkillRemovedPayload struct {
	SkillName  string `json:"skillName"`
	RemovedVia string `json:"removedVia"`
}

type SkillInvokedPayload struct {
	SkillName string `json:"skillName"`
	Turn      int64  `json:"turn"`
}

// --- rules domain ---

type RulesLoadedPayload struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type RulesUpdatedPayload struct {
	Source        string `json:"source"`
	ChangedFields  []string `json:"changedFields,omitempty"`
}

// --- memory domain ---

type MemoryLedgerPayload struct {
	Summary string `json:"summary"`
	Turn    int64  `json:"turn"`
}

// MemoryLoadedPayload is intentionally opaque: its schema is owned by the
// memory subsystem, not this registry, mirroring the original
// implementation's raw_events escape hatch for this one event.
type MemoryLoadedPayload = json.RawMessage

type MemoryClearedPayload struct {
	Reason string `json:"reason"`
}

// --- config domain ---

type ConfigModelSwitchPayload struct {
	PreviousModel string `json:"previousModel"`
	NewModel      string `json:"newModel"`
	Reason        string `json:"reason,omitempty"`
}

type ConfigPromptUpdatePayload struct {
	PreviousHash  string `json:"previousHash,omitempty"`
	NewHash       string `json:"newHash"`
	ContentBlobID string `json:"contentBlobId,omitempty"`
}

type ConfigReasoningLevelPayload struct {
	PreviousLevel string `json:"previousLevel,omitempty"`
	NewLevel      string `json:"newLevel,omitempty"`
}

// --- worktree domain ---

type WorktreeForkSource struct {
	SessionID string `json:"sessionId"`
	Commit    string `json:"commit"`
}

type WorktreeAcquiredPayload struct {
	Path       string              `json:"path"`
	Branch     string              `json:"branch"`
	BaseCommit string              `json:"baseCommit"`
	Isolated   bool                `json:"isolated"`
	ForkedFrom *WorktreeForkSource `json:"forkedFrom,omitempty"`
}

type WorktreeCommitPayload struct {
	CommitHash   string   `json:"commitHash"`
	Message      string   `json:"message"`
	FilesChanged []string `json:"filesChanged"`
	Insertions   *int64   `json:"insertions,omitempty"`
	Deletions    *int64   `json:"deletions,omitempty"`
}

type WorktreeReleasedPayload struct {
	FinalCommit     string `json:"finalCommit,omitempty"`
	Deleted         bool   `json:"deleted"`
	BranchPreserved bool   `json:"branchPreserved"`
}

type WorktreeMergedPayload struct {
	SourceBranch string `json:"sourceBranch"`
	TargetBranch string `json:"targetBranch"`
	MergeCommit  string `json:"mergeCommit"`
	Strategy     string `json:"strategy"`
}

// --- subagent / notification domain ---

type SubagentStartedPayload struct {
	ParentSessionID  string `json:"parentSessionId"`
	SubagentSessionID string `json:"subagentSessionId"`
	Task             string `json:"task"`
}

type SubagentCompletedPayload struct {
	SubagentSessionID string `json:"subagentSessionId"`
	Success           bool   `json:"success"`
	TotalTurns        int64  `json:"totalTurns"`
}

type NotificationInterruptedPayload struct {
	Timestamp string `json:"timestamp"`
	Turn      int64  `json:"turn"`
}

type NotificationSubagentResultPayload struct {
	ParentSessionID   string     `json:"parentSessionId"`
	SubagentSessionID string     `json:"subagentSessionId"`
	Task              string     `json:"task"`
	ResultSummary     string     `json:"resultSummary"`
	Success           bool       `json:"success"`
	TotalTurns        int64      `json:"totalTurns"`
	DurationMs        int64      `json:"duration"`
	TokenUsage        TokenUsage `json:"tokenUsage"`
	CompletedAt       string     `json:"completedAt"`
	Warning           string     `json:"warning,omitempty"`
	Output            string     `json:"output,omitempty"`
}

type SubagentResultsConsumedPayload struct {
	ConsumedEventIDs []string `json:"consumedEventIds"`
	Count            int      `json:"count"`
}

// --- task domain ---

type TaskCreatedPayload struct {
	TaskID    string `json:"taskId"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	ProjectID string `json:"projectId,omitempty"`
}

type TaskUpdatedPayload struct {
	TaskID        string   `json:"taskId"`
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	ChangedFields []string `json:"changedFields"`
}

type TaskDeletedPayload struct {
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
}

type ProjectCreatedPayload struct {
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	AreaID    string `json:"areaId,omitempty"`
}

type ProjectUpdatedPayload struct {
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Status    string `json:"status"`
}

type ProjectDeletedPayload struct {
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
}

type AreaCreatedPayload struct {
	AreaID string `json:"areaId"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type AreaUpdatedPayload struct {
	AreaID        string   `json:"areaId"`
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	ChangedFields []string `json:"changedFields"`
}

type AreaDeletedPayload struct {
	AreaID string `json:"areaId"`
	Title  string `json:"title"`
}

// --- metadata domain ---

type MetadataUpdatePayload struct {
	Key           string          `json:"key"`
	PreviousValue json.RawMessage `json:"previousValue,omitempty"`
	NewValue      json.RawMessage `json:"newValue"`
}

type MetadataTagPayload struct {
	Action string `json:"action"`
	Tag    string `json:"tag"`
}

// --- branch domain ---

type BranchCreatedPayload struct {
	BranchName  string `json:"branchName"`
	RootEventID string `json:"rootEventId"`
}

type BranchRewoundPayload struct {
	FromEventID    string `json:"fromEventId"`
	ToEventID      string `json:"toEventId"`
	OrphanedBranch string `json:"orphanedBranch"`
}
