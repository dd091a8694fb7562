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

import "errors"

// Sentinel errors returned by Store operations. Wrap with fmt.Errorf("%w", ...)
// so callers can still errors.Is against these.
var (
	// ErrSessionNotFound is returned when an operation references a
	// session id that does not exist.
	ErrSessionNotFound = errors.New("eventstore: session not found")

	// ErrEventNotFound is returned when an operation references an event
	// id that does not exist.
	ErrEventNotFound = errors.New("eventstore: event not found")

	// ErrInvalidOperation is returned when a parent event belongs to a
	// different session, would create a cycle, or another structural
	// invariant would be violated.
	ErrInvalidOperation = errors.New("eventstore: invalid operation")

	// ErrBranchNotFound is returned when an operation references a
	// branch name that does not exist in the session.
	ErrBranchNotFound = errors.New("eventstore: branch not found")
)
