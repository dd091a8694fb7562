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
	"time"

	"github.com/google/uuid"

	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/observability"
)

// CreateWorkspace registers a new workspace root.
func (s *Store) CreateWorkspace(ctx context.Context, path, displayName string) (*Workspace, error) {
	ctx, span := s.tracer.StartSpan(ctx, "eventstore.create_workspace")
	defer s.tracer.EndSpan(span)

	w := &Workspace{
		ID:          uuid.NewString(),
		Path:        path,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, path, display_name, created_at) VALUES (?, ?, ?, ?)`,
		w.ID, w.Path, w.DisplayName, w.CreatedAt.Unix())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: create workspace: %w", err)
	}
	return w, nil
}

// CreateSession creates a new session in workspaceID and appends its
// session.start event. The returned Session's HeadEventID and RootEventID
// both reference that event.
func (s *Store) CreateSession(ctx context.Context, workspaceID string, payload events.SessionStartPayload) (*Session, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanEventStoreAppend,
		observability.WithAttribute(observability.AttrWorkspaceID, workspaceID))
	defer s.tracer.EndSpan(span)

	now := time.Now().UTC()
	sess := &Session{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		WorkingDir:  payload.WorkingDir,
		Model:       payload.Model,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: begin create_session tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, workspace_id, working_dir, model, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.WorkspaceID, sess.WorkingDir, sess.Model, now.Unix(), now.Unix()); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: insert session: %w", err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: marshal session.start payload: %w", err)
	}

	ev := &Event{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		WorkspaceID: workspaceID,
		Sequence:  1,
		Depth:     0,
		Type:      events.EventSessionStart,
		Payload:   payloadJSON,
		Timestamp: now,
	}
	if err := insertEventTx(ctx, tx, ev); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET head_event_id = ?, root_event_id = ?, updated_at = ? WHERE id = ?`,
		ev.ID, ev.ID, now.Unix(), sess.ID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: set session head: %w", err)
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: commit create_session: %w", err)
	}

	sess.HeadEventID = ev.ID
	sess.RootEventID = ev.ID
	span.SetAttribute(observability.AttrSessionID, sess.ID)
	return sess, nil
}

// Append records one new event in sessionID. If parentEventID is empty it
// defaults to the session's current head. Append runs in a single
// transaction: it assigns the next sequence number, inserts the event,
// updates the session aggregates and head pointer, and keeps the FTS5 index
// in sync — callers never observe partial state (spec.md §4.1).
func (s *Store) Append(ctx context.Context, sessionID string, eventType events.EventType, payload interface{}, parentEventID string) (*Event, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanEventStoreAppend,
		observability.WithAttribute(observability.AttrSessionID, sessionID),
		observability.WithAttribute(observability.AttrEventType, string(eventType)))
	defer s.tracer.EndSpan(span)

	if !eventType.Valid() {
		err := fmt.Errorf("%w: unknown event type %q", ErrInvalidOperation, eventType)
		span.RecordError(err)
		return nil, err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: marshal payload for %q: %w", eventType, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: begin append tx: %w", err)
	}
	defer tx.Rollback()

	var workspaceID, headEventID string
	var maxSeq sql.NullInt64
	row := tx.QueryRowContext(ctx,
		`SELECT workspace_id, head_event_id, (SELECT MAX(sequence) FROM events WHERE session_id = ?)
		 FROM sessions WHERE id = ?`, sessionID, sessionID)
	if err := row.Scan(&workspaceID, &headEventID, &maxSeq); err != nil {
		if err == sql.ErrNoRows {
			err = ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: append: %w", err)
	}

	if parentEventID == "" {
		parentEventID = headEventID
	}

	var depth int64
	if parentEventID != "" {
		var parentSessionID string
		var parentDepth int64
		err := tx.QueryRowContext(ctx,
			`SELECT session_id, depth FROM events WHERE id = ?`, parentEventID).
			Scan(&parentSessionID, &parentDepth)
		if err == sql.ErrNoRows {
			err = fmt.Errorf("%w: parent event %q not found", ErrInvalidOperation, parentEventID)
			span.RecordError(err)
			return nil, err
		}
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("eventstore: look up parent event: %w", err)
		}
		if parentSessionID != sessionID {
			err := fmt.Errorf("%w: parent event %q belongs to a different session", ErrInvalidOperation, parentEventID)
			span.RecordError(err)
			return nil, err
		}
		depth = parentDepth + 1
	}

	ev := &Event{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		WorkspaceID:   workspaceID,
		ParentEventID: parentEventID,
		Sequence:      maxSeq.Int64 + 1,
		Depth:         depth,
		Type:          eventType,
		Payload:       payloadJSON,
		Timestamp:     time.Now().UTC(),
	}
	denormalize(ev, eventType, payload)

	if err := insertEventTx(ctx, tx, ev); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := updateAggregatesTx(ctx, tx, sessionID, ev); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: commit append: %w", err)
	}

	span.SetAttribute(observability.AttrEventID, ev.ID)
	return ev, nil
}

func insertEventTx(ctx context.Context, tx *sql.Tx, ev *Event) error {
	var parentID interface{}
	if ev.ParentEventID != "" {
		parentID = ev.ParentEventID
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO events (
			id, session_id, workspace_id, parent_event_id, sequence, depth,
			event_type, payload, timestamp, checksum,
			role, tool_name, tool_call_id, turn,
			input_tokens, output_tokens, cache_tokens
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, ev.WorkspaceID, parentID, ev.Sequence, ev.Depth,
		string(ev.Type), string(ev.Payload), ev.Timestamp.Unix(), ev.Checksum,
		ev.Role, ev.ToolName, ev.ToolCallID, ev.Turn,
		ev.InputTokens, ev.OutputTokens, ev.CacheTokens)
	if err != nil {
		return fmt.Errorf("eventstore: insert event: %w", err)
	}
	return nil
}

// updateAggregatesTx updates the session's head pointer and, for events
// carrying token usage, its aggregate counters (Invariant 4: session
// aggregates reflect events, updated transactionally with the event).
func updateAggregatesTx(ctx context.Context, tx *sql.Tx, sessionID string, ev *Event) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE sessions SET head_event_id = ?, updated_at = ? WHERE id = ?`,
		ev.ID, ev.Timestamp.Unix(), sessionID)
	if err != nil {
		return fmt.Errorf("eventstore: update head pointer: %w", err)
	}

	if ev.Type != events.EventMessageAssistant {
		return nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET
			input_tokens = input_tokens + ?,
			output_tokens = output_tokens + ?,
			cache_read_tokens = cache_read_tokens + ?,
			last_turn_input_tokens = ?,
			turn_count = turn_count + 1
		WHERE id = ?`,
		ev.InputTokens, ev.OutputTokens, ev.CacheTokens, ev.InputTokens, sessionID)
	if err != nil {
		return fmt.Errorf("eventstore: update token aggregates: %w", err)
	}
	return nil
}

// denormalize fills Event's query-performance columns from a typed payload.
// Unknown event types simply leave the columns at their zero value.
func denormalize(ev *Event, eventType events.EventType, payload interface{}) {
	switch p := payload.(type) {
	case events.MessageUserPayload:
		ev.Role = "user"
	case *events.MessageUserPayload:
		ev.Role = "user"
	case events.MessageAssistantPayload:
		fillAssistant(ev, &p)
	case *events.MessageAssistantPayload:
		fillAssistant(ev, p)
	case events.MessageSystemPayload:
		ev.Role = "system"
	case *events.MessageSystemPayload:
		ev.Role = "system"
	case events.ToolCallPayload:
		fillToolCall(ev, &p)
	case *events.ToolCallPayload:
		fillToolCall(ev, p)
	case events.ToolResultPayload:
		ev.ToolCallID = p.ToolCallID
	case *events.ToolResultPayload:
		ev.ToolCallID = p.ToolCallID
	}
}

func fillAssistant(ev *Event, p *events.MessageAssistantPayload) {
	ev.Role = "assistant"
	ev.Turn = int(p.Turn)
	ev.InputTokens = p.TokenUsage.InputTokens
	ev.OutputTokens = p.TokenUsage.OutputTokens
	if p.TokenUsage.CacheReadTokens != nil {
		ev.CacheTokens = *p.TokenUsage.CacheReadTokens
	}
}

func fillToolCall(ev *Event, p *events.ToolCallPayload) {
	ev.ToolName = p.Name
	ev.ToolCallID = p.ToolCallID
	ev.Turn = int(p.Turn)
}
