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

// Fork creates a new session rooted at a fresh session.start event whose
// payload records that it was forked from sessionID at atEventID. The
// source session is unaffected (spec.md §4.1 Fork semantics).
func (s *Store) Fork(ctx context.Context, sessionID, atEventID, name string) (*Session, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanEventStoreAppend+".fork",
		observability.WithAttribute(observability.AttrSessionID, sessionID))
	defer s.tracer.EndSpan(span)

	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.getSession(ctx, s.db, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	atEvent, err := s.getEvent(ctx, s.db, atEventID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if atEvent.SessionID != sessionID {
		err := fmt.Errorf("%w: event %q does not belong to session %q", ErrInvalidOperation, atEventID, sessionID)
		span.RecordError(err)
		return nil, err
	}

	now := time.Now().UTC()
	newSess := &Session{
		ID:              uuid.NewString(),
		WorkspaceID:     src.WorkspaceID,
		WorkingDir:      src.WorkingDir,
		Model:           src.Model,
		ParentSessionID: sessionID,
		ForkFromEventID: atEventID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: begin fork tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, workspace_id, working_dir, model, parent_session_id, fork_from_event_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		newSess.ID, newSess.WorkspaceID, newSess.WorkingDir, newSess.Model,
		newSess.ParentSessionID, newSess.ForkFromEventID, now.Unix(), now.Unix()); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: insert forked session: %w", err)
	}

	startPayload := events.SessionStartPayload{
		WorkingDir: src.WorkingDir,
		Model:      src.Model,
		ForkedFrom: &events.ForkSource{SessionID: sessionID, EventID: atEventID},
	}
	payloadJSON, err := json.Marshal(startPayload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: marshal fork session.start payload: %w", err)
	}

	rootEv := &Event{
		ID:          uuid.NewString(),
		SessionID:   newSess.ID,
		WorkspaceID: newSess.WorkspaceID,
		Sequence:    1,
		Depth:       0,
		Type:        events.EventSessionStart,
		Payload:     payloadJSON,
		Timestamp:   now,
	}
	if err := insertEventTx(ctx, tx, rootEv); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET head_event_id = ?, root_event_id = ?, updated_at = ? WHERE id = ?`,
		rootEv.ID, rootEv.ID, now.Unix(), newSess.ID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: set forked session head: %w", err)
	}

	branchName := name
	if branchName == "" {
		branchName = "main"
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO branches (id, session_id, name, root_event_id, head_event_id, is_default, created_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?)`,
		uuid.NewString(), newSess.ID, branchName, rootEv.ID, rootEv.ID, now.Unix()); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: create forked session default branch: %w", err)
	}

	// Record the fork on the source session's chain too, so replaying the
	// source shows where it was forked from.
	forkEv := &Event{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		WorkspaceID: src.WorkspaceID,
		Sequence:    0, // assigned below
		Type:        events.EventSessionFork,
		Timestamp:   now,
	}
	forkPayload, err := json.Marshal(events.SessionForkPayload{NewSessionID: newSess.ID, AtEventID: atEventID})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: marshal session.fork payload: %w", err)
	}
	forkEv.Payload = forkPayload
	forkEv.ParentEventID = src.HeadEventID
	forkEv.Depth = atEvent.Depth + 1

	var maxSeq sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(sequence) FROM events WHERE session_id = ?`, sessionID).Scan(&maxSeq); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: fork: read source max sequence: %w", err)
	}
	forkEv.Sequence = maxSeq.Int64 + 1
	if err := insertEventTx(ctx, tx, forkEv); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := updateAggregatesTx(ctx, tx, sessionID, forkEv); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: commit fork: %w", err)
	}

	newSess.HeadEventID = rootEv.ID
	newSess.RootEventID = rootEv.ID
	return newSess, nil
}

// Rewind moves sessionID's head pointer back to toEventID, which must be an
// ancestor of the current head on the same chain. The events between the
// new and old head are not deleted; per DESIGN.md's Open Question decision,
// rewind creates an implicit named branch ("rewound-<timestamp>") pointing
// at the old head so the orphaned tail stays reachable (Invariant 3).
func (s *Store) Rewind(ctx context.Context, sessionID, toEventID string) (*Session, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanEventStoreAppend+".rewind",
		observability.WithAttribute(observability.AttrSessionID, sessionID))
	defer s.tracer.EndSpan(span)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(ctx, s.db, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	oldHead := sess.HeadEventID

	target, err := s.getEvent(ctx, s.db, toEventID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if target.SessionID != sessionID {
		err := fmt.Errorf("%w: event %q does not belong to session %q", ErrInvalidOperation, toEventID, sessionID)
		span.RecordError(err)
		return nil, err
	}

	ancestors, err := s.walkAncestorsTx(ctx, s.db, oldHead)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	found := false
	for _, ev := range ancestors {
		if ev.ID == toEventID {
			found = true
			break
		}
	}
	if !found {
		err := fmt.Errorf("%w: event %q is not an ancestor of the current head", ErrInvalidOperation, toEventID)
		span.RecordError(err)
		return nil, err
	}

	now := time.Now().UTC()
	branchName := fmt.Sprintf("rewound-%d", now.UnixNano())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: begin rewind tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO branches (id, session_id, name, root_event_id, head_event_id, is_default, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		uuid.NewString(), sessionID, branchName, toEventID, oldHead, now.Unix()); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: create rewind branch: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET head_event_id = ?, updated_at = ? WHERE id = ?`,
		toEventID, now.Unix(), sessionID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: update head for rewind: %w", err)
	}

	rewindPayload, err := json.Marshal(events.BranchRewoundPayload{
		FromEventID:    oldHead,
		ToEventID:      toEventID,
		OrphanedBranch: branchName,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: marshal branch.rewound payload: %w", err)
	}

	var maxSeq sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(sequence) FROM events WHERE session_id = ?`, sessionID).Scan(&maxSeq); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: rewind: read max sequence: %w", err)
	}

	rewindEv := &Event{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		WorkspaceID:   sess.WorkspaceID,
		ParentEventID: toEventID,
		Sequence:      maxSeq.Int64 + 1,
		Depth:         target.Depth + 1,
		Type:          events.EventBranchRewound,
		Payload:       rewindPayload,
		Timestamp:     now,
	}
	if err := insertEventTx(ctx, tx, rewindEv); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: commit rewind: %w", err)
	}

	sess.HeadEventID = rewindEv.ID
	return sess, nil
}

// walkAncestorsTx is the query-engine-agnostic core of WalkAncestors, usable
// from within an in-flight transaction's read-only connection (the SQLite
// driver here shares the same *sql.DB for reads and writes, so this simply
// reuses the store's connection under the already-held lock).
func (s *Store) walkAncestorsTx(ctx context.Context, q queryer, eventID string) ([]*Event, error) {
	var chain []*Event
	cur := eventID
	seen := make(map[string]bool)
	for cur != "" {
		if seen[cur] {
			return nil, fmt.Errorf("%w: cycle detected at event %q", ErrInvalidOperation, cur)
		}
		seen[cur] = true
		ev, err := s.getEvent(ctx, q, cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, ev)
		cur = ev.ParentEventID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// DeleteMessage appends a message.deleted retraction event naming
// targetEventID. It neither mutates nor physically removes the target;
// reconstruction filters out retracted targets and the retraction itself
// (spec.md §4.1 Message deletion, Invariant 1).
func (s *Store) DeleteMessage(ctx context.Context, sessionID, targetEventID, reason string) (*Event, error) {
	payload := events.MessageDeletedPayload{TargetEventID: targetEventID, Reason: reason}
	return s.Append(ctx, sessionID, events.EventMessageDeleted, payload, "")
}
