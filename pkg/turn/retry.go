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
package turn

import "time"

// RetryConfig governs the exponential backoff around a provider call.
type RetryConfig struct {
	Enabled      bool
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryConfig: a handful of retries with a 500ms initial delay
// doubling up to 10s.
var DefaultRetryConfig = RetryConfig{
	Enabled:      true,
	MaxRetries:   3,
	InitialDelay: 500 * time.Millisecond,
	Multiplier:   2.0,
	MaxDelay:     10 * time.Second,
}

// nextDelay returns the backoff delay following delay, capped at MaxDelay.
func (c RetryConfig) nextDelay(delay time.Duration) time.Duration {
	next := time.Duration(float64(delay) * c.Multiplier)
	if next > c.MaxDelay {
		return c.MaxDelay
	}
	return next
}
