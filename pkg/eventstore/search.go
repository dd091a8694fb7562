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
	"time"

	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/observability"
)

// SearchFilters narrows a full-text Search query.
type SearchFilters struct {
	SessionID string
	Types     []events.EventType
}

// Search runs a BM25-ranked full-text query over event payloads, optionally
// scoped by SearchFilters. Results are ordered best-match first (lowest
// bm25() score — SQLite's convention is that a better match has a more
// negative score).
func (s *Store) Search(ctx context.Context, query string, filters SearchFilters, limit int) ([]SearchResult, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanEventStoreAppend+".search")
	defer s.tracer.EndSpan(span)

	s.mu.RLock()
	defer s.mu.RUnlock()

	sqlQuery := `
		SELECT f.event_id, f.session_id, f.event_type, f.timestamp,
		       snippet(events_fts5, 3, '[', ']', '...', 16) AS snip,
		       bm25(events_fts5) AS score
		FROM events_fts5 f
		WHERE events_fts5 MATCH ?`
	args := []interface{}{query}

	if filters.SessionID != "" {
		sqlQuery += ` AND f.session_id = ?`
		args = append(args, filters.SessionID)
	}
	if len(filters.Types) > 0 {
		placeholders := make([]string, len(filters.Types))
		for i, t := range filters.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		sqlQuery += fmt.Sprintf(` AND f.event_type IN (%s)`, joinPlaceholders(placeholders))
	}

	sqlQuery += ` ORDER BY score ASC`
	if limit > 0 {
		sqlQuery += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var ts int64
		var eventType string
		if err := rows.Scan(&r.EventID, &r.SessionID, &eventType, &ts, &r.Snippet, &r.Score); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("eventstore: search: scan row: %w", err)
		}
		r.EventType = events.EventType(eventType)
		r.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// SearchInSession is a convenience wrapper over Search scoped to one
// session.
func (s *Store) SearchInSession(ctx context.Context, sessionID, query string, limit int) ([]SearchResult, error) {
	return s.Search(ctx, query, SearchFilters{SessionID: sessionID}, limit)
}

func joinPlaceholders(p []string) string {
	out := ""
	for i, v := range p {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}
