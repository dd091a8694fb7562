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
	"fmt"
	"os"
	"sync"

	_ "github.com/teradata-labs/skein/internal/sqlitedriver"
	"github.com/teradata-labs/skein/pkg/observability"
)

// Config configures how a Store opens its backing SQLite database.
type Config struct {
	// Path to the SQLite database file. Callers should resolve this with
	// internal/home.ResolveDBPath rather than passing an arbitrary path.
	Path string

	// EncryptDatabase enables SQLCipher encryption at rest. Requires a cgo
	// build (internal/sqlitedriver's EncryptionSupported must be true) and
	// EncryptionKey to be set.
	EncryptDatabase bool

	// EncryptionKey is the SQLCipher key. Falls back to the SKEIN_DB_KEY
	// environment variable when empty.
	EncryptionKey string
}

// Store is the transactional, append-only event store. All operations are
// safe for concurrent use.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	tracer observability.Tracer
}

// New opens a Store at dbPath using a NoOp tracer's replacement if tracer is
// nil.
func New(dbPath string, tracer observability.Tracer) (*Store, error) {
	return NewWithConfig(Config{Path: dbPath}, tracer)
}

// NewWithConfig opens a Store with optional encryption-at-rest.
func NewWithConfig(cfg Config, tracer observability.Tracer) (*Store, error) {
	if tracer == nil {
		tracer = &observability.NoOpTracer{}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open database: %w", err)
	}

	if cfg.EncryptDatabase {
		key := cfg.EncryptionKey
		if key == "" {
			key = os.Getenv("SKEIN_DB_KEY")
		}
		if key == "" {
			db.Close()
			return nil, fmt.Errorf("eventstore: encryption enabled but no key provided (set EncryptionKey or SKEIN_DB_KEY)")
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA key = '%s'", key)); err != nil {
			db.Close()
			return nil, fmt.Errorf("eventstore: set encryption key: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventstore: ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventstore: enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventstore: enable foreign keys: %w", err)
	}

	s := &Store{db: db, tracer: tracer}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventstore: init schema: %w", err)
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
