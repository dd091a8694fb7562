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
package eventstore

import (
	"context"
	"fmt"

	"github.com/teradata-labs/skein/pkg/observability"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS workspaces (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	head_event_id TEXT,
	root_event_id TEXT,
	working_dir TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cache_read_tokens INTEGER NOT NULL DEFAULT 0,
	cache_create_tokens INTEGER NOT NULL DEFAULT 0,
	last_turn_input_tokens INTEGER NOT NULL DEFAULT 0,
	cumulative_cost_usd REAL NOT NULL DEFAULT 0,
	turn_count INTEGER NOT NULL DEFAULT 0,
	parent_session_id TEXT REFERENCES sessions(id) ON DELETE SET NULL,
	fork_from_event_id TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_workspace ON sessions(workspace_id);
CREATE INDEX IF NOT EXISTS idx_sessions_parent ON sessions(parent_session_id);

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	workspace_id TEXT NOT NULL,
	parent_event_id TEXT,
	sequence INTEGER NOT NULL,
	depth INTEGER NOT NULL,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	checksum TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	tool_name TEXT NOT NULL DEFAULT '',
	tool_call_id TEXT NOT NULL DEFAULT '',
	turn INTEGER NOT NULL DEFAULT 0,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cache_tokens INTEGER NOT NULL DEFAULT 0,
	UNIQUE(session_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, sequence);
CREATE INDEX IF NOT EXISTS idx_events_parent ON events(parent_event_id);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(session_id, event_type);
CREATE INDEX IF NOT EXISTS idx_events_tool_call ON events(tool_call_id);

CREATE TABLE IF NOT EXISTS branches (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	root_event_id TEXT NOT NULL,
	head_event_id TEXT NOT NULL,
	is_default INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	UNIQUE(session_id, name)
);

CREATE INDEX IF NOT EXISTS idx_branches_session ON branches(session_id);

CREATE TABLE IF NOT EXISTS blobs (
	id TEXT PRIMARY KEY,
	sha256 TEXT NOT NULL UNIQUE,
	bytes BLOB NOT NULL,
	mime_type TEXT NOT NULL DEFAULT 'application/octet-stream',
	original_size INTEGER NOT NULL,
	compressed_size INTEGER NOT NULL,
	compression_algo TEXT NOT NULL DEFAULT 'none',
	ref_count INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL
);

-- FTS5 virtual table over event payload text, synced via triggers.
CREATE VIRTUAL TABLE IF NOT EXISTS events_fts5 USING fts5(
	event_id UNINDEXED,
	session_id UNINDEXED,
	event_type UNINDEXED,
	content,
	timestamp UNINDEXED,
	tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS events_fts5_insert AFTER INSERT ON events
BEGIN
	INSERT INTO events_fts5(event_id, session_id, event_type, content, timestamp)
	VALUES (NEW.id, NEW.session_id, NEW.event_type, NEW.payload, NEW.timestamp);
END;

CREATE TRIGGER IF NOT EXISTS events_fts5_delete AFTER DELETE ON events
BEGIN
	DELETE FROM events_fts5 WHERE event_id = OLD.id;
END;
`

// initSchema creates the database schema if it doesn't exist. Safe to call
// on every startup: every statement is idempotent.
func (s *Store) initSchema(ctx context.Context) error {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanEventStoreAppend+".init_schema")
	defer s.tracer.EndSpan(span)

	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		span.RecordError(err)
		return fmt.Errorf("eventstore: create schema: %w", err)
	}
	return nil
}
