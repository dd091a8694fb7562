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
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/observability"
)

// decodeTags unmarshals the sessions.tags JSON array column, tolerating an
// empty or malformed value by returning nil rather than erroring — tags are
// a display convenience, not a structural invariant.
func decodeTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}

// GetEvent loads a single event by id.
func (s *Store) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEvent(ctx, s.db, eventID)
}

func (s *Store) getEvent(ctx context.Context, q queryer, eventID string) (*Event, error) {
	row := q.QueryRowContext(ctx, eventColumns+` FROM events WHERE id = ?`, eventID)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("eventstore: get event: %w", err)
	}
	return ev, nil
}

// GetSession loads a session row by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSession(ctx, s.db, sessionID)
}

func (s *Store) getSession(ctx context.Context, q queryer, sessionID string) (*Session, error) {
	row := q.QueryRowContext(ctx, sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("eventstore: get session: %w", err)
	}
	return sess, nil
}

// GetEventsByType returns up to limit events of the given types within
// sessionID, ordered by sequence ascending. limit <= 0 means unbounded.
func (s *Store) GetEventsByType(ctx context.Context, sessionID string, types []events.EventType, limit int) ([]*Event, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanEventStoreAppend+".get_events_by_type",
		observability.WithAttribute(observability.AttrSessionID, sessionID))
	defer s.tracer.EndSpan(span)

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(types))
	args := make([]interface{}, 0, len(types)+2)
	args = append(args, sessionID)
	for i, t := range types {
		placeholders[i] = "?"
		args = append(args, string(t))
	}

	query := eventColumns + ` FROM events WHERE session_id = ?`
	if len(types) > 0 {
		query += fmt.Sprintf(" AND event_type IN (%s)", strings.Join(placeholders, ","))
	}
	query += ` ORDER BY sequence ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: get events by type: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		ev, err := scanEventRows(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("eventstore: scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// WalkAncestors returns the chain of events from the session root to
// eventID inclusive, oldest first, by following ParentEventID pointers.
func (s *Store) WalkAncestors(ctx context.Context, eventID string) ([]*Event, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanEventStoreAppend+".walk_ancestors")
	defer s.tracer.EndSpan(span)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var chain []*Event
	cur := eventID
	seen := make(map[string]bool)
	for cur != "" {
		if seen[cur] {
			err := fmt.Errorf("%w: cycle detected at event %q", ErrInvalidOperation, cur)
			span.RecordError(err)
			return nil, err
		}
		seen[cur] = true

		ev, err := s.getEvent(ctx, s.db, cur)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		chain = append(chain, ev)
		cur = ev.ParentEventID
	}

	// reverse to oldest-first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// queryer abstracts *sql.DB/*sql.Tx for read helpers.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

const eventColumns = `SELECT
	id, session_id, workspace_id, parent_event_id, sequence, depth,
	event_type, payload, timestamp, checksum,
	role, tool_name, tool_call_id, turn,
	input_tokens, output_tokens, cache_tokens`

const sessionColumns = `SELECT
	id, workspace_id, head_event_id, root_event_id, working_dir, model,
	title, tags, input_tokens, output_tokens, cache_read_tokens,
	cache_create_tokens, last_turn_input_tokens, cumulative_cost_usd,
	turn_count, parent_session_id, fork_from_event_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row *sql.Row) (*Event, error) {
	return scanEventGeneric(row)
}

func scanEventRows(rows *sql.Rows) (*Event, error) {
	return scanEventGeneric(rows)
}

func scanEventGeneric(sc rowScanner) (*Event, error) {
	var ev Event
	var parentID sql.NullString
	var ts int64
	if err := sc.Scan(
		&ev.ID, &ev.SessionID, &ev.WorkspaceID, &parentID, &ev.Sequence, &ev.Depth,
		&ev.Type, &ev.Payload, &ts, &ev.Checksum,
		&ev.Role, &ev.ToolName, &ev.ToolCallID, &ev.Turn,
		&ev.InputTokens, &ev.OutputTokens, &ev.CacheTokens,
	); err != nil {
		return nil, err
	}
	ev.ParentEventID = parentID.String
	ev.Timestamp = time.Unix(ts, 0).UTC()
	return &ev, nil
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var headID, rootID, parentSessID, forkFromID sql.NullString
	var tagsJSON string
	var createdAt, updatedAt int64
	if err := row.Scan(
		&sess.ID, &sess.WorkspaceID, &headID, &rootID, &sess.WorkingDir, &sess.Model,
		&sess.Title, &tagsJSON, &sess.InputTokens, &sess.OutputTokens, &sess.CacheReadTokens,
		&sess.CacheCreateTokens, &sess.LastTurnInputTokens, &sess.CumulativeCostUSD,
		&sess.TurnCount, &parentSessID, &forkFromID, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	sess.HeadEventID = headID.String
	sess.RootEventID = rootID.String
	sess.ParentSessionID = parentSessID.String
	sess.ForkFromEventID = forkFromID.String
	sess.CreatedAt = time.Unix(createdAt, 0).UTC()
	sess.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	sess.Tags = decodeTags(tagsJSON)
	return &sess, nil
}
