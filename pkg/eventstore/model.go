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

// Package eventstore is the append-only, transactional store of record for
// session events. Every state change in a running session — a user message,
// an assistant turn, a tool call, a compaction boundary — is persisted here
// as one immutable Event row; nothing else in the runtime holds the
// authoritative copy.
package eventstore

import (
	"time"

	"github.com/teradata-labs/skein/pkg/events"
)

// Workspace is a user's project root.
type Workspace struct {
	ID          string
	Path        string
	DisplayName string
	CreatedAt   time.Time
}

// Session is one agent conversation: a chain of events rooted at a
// session.start event and addressed by its current head event.
type Session struct {
	ID              string
	WorkspaceID     string
	HeadEventID     string
	RootEventID     string
	WorkingDir      string
	Model           string
	Title           string
	Tags            []string
	InputTokens     int64
	OutputTokens    int64
	CacheReadTokens int64
	CacheCreateTokens int64
	LastTurnInputTokens int64
	CumulativeCostUSD float64
	TurnCount       int
	ParentSessionID string
	ForkFromEventID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Event is one immutable, typed record of a state change within a session.
type Event struct {
	ID            string
	SessionID     string
	WorkspaceID   string
	ParentEventID string
	Sequence      int64
	Depth         int64
	Type          events.EventType
	Payload       []byte // opaque JSON, decode with events.TypedPayload
	Timestamp     time.Time
	Checksum      string

	// Denormalized columns for query performance, not present on every
	// event type.
	Role         string
	ToolName     string
	ToolCallID   string
	Turn         int
	InputTokens  int64
	OutputTokens int64
	CacheTokens  int64
}

// Blob is a content-addressed binary payload referenced by an event whose
// inline payload would otherwise exceed InlineSizeThreshold.
type Blob struct {
	ID               string
	SHA256           string
	Bytes            []byte
	MimeType         string
	OriginalSize     int64
	CompressedSize   int64
	CompressionAlgo  string
	RefCount         int
	CreatedAt        time.Time
}

// Branch is a named head pointer within a session, enabling alternative
// continuations from a fork or rewind point.
type Branch struct {
	ID          string
	SessionID   string
	Name        string
	RootEventID string
	HeadEventID string
	IsDefault   bool
	CreatedAt   time.Time
}

// SearchResult is one FTS5 match, ranked by BM25 score (lower is better,
// matching SQLite's bm25() convention).
type SearchResult struct {
	EventID   string
	SessionID string
	EventType events.EventType
	Timestamp time.Time
	Snippet   string
	Score     float64
}

// InlineSizeThreshold is the payload byte size above which callers should
// store the content as a Blob and reference it from the event payload
// instead of inlining it.
const InlineSizeThreshold = 16 * 1024
