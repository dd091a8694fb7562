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
package hooks

import (
	"context"
	"sync"
)

// Tracker centralizes the join-handles of background hook tasks (spec.md
// §5: "Background tasks ... Centralize their join-handles in one tracker;
// drain at two boundaries: before next user message; before session
// reconstruction"). Safe for concurrent use.
type Tracker struct {
	wg sync.WaitGroup
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker { return &Tracker{} }

// Go launches fn in a new goroutine with a background context, tracked so
// Drain can wait for it. fn should itself respect cancellation if it needs
// to — Drain has no deadline of its own.
func (t *Tracker) Go(fn func(ctx context.Context)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn(context.Background())
	}()
}

// Drain blocks until every tracked task launched before this call has
// completed, or ctx is done, whichever comes first.
func (t *Tracker) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
