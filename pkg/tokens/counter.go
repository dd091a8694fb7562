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

// Package tokens implements the three-layer token accounting model from
// spec.md §4.2: a Source record of raw per-turn counts reported by a
// provider, a Computed record of derived values, and a Cost in dollars from
// a model-pricing table. The package is pure — given a Source and a model
// id it returns a Computed record and a Cost, with no I/O and no
// session-level state (that lives in the session aggregate row,
// pkg/eventstore.Session).
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text using tiktoken's cl100k_base
// encoding, falling back to a char/4 approximation if the encoder could not
// be loaded (e.g. offline first run before the BPE ranks are cached).
type Counter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

var (
	global     *Counter
	globalOnce sync.Once
)

// Default returns the process-wide singleton Counter.
func Default() *Counter {
	globalOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			global = &Counter{encoder: nil}
			return
		}
		global = &Counter{encoder: enc}
	})
	return global
}

// Count returns the token count for text, using tiktoken if available.
func (c *Counter) Count(text string) int {
	if c == nil || c.encoder == nil {
		return EstimateChars(text)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoder.Encode(text, nil, nil))
}

// EstimateChars is the provider-independent char-based approximation from
// spec.md §4.3 (≈ bytes ÷ 4), used by the context manager so it can
// pre-flight context size before any provider call, independent of whether
// the tiktoken encoder loaded.
func EstimateChars(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}
