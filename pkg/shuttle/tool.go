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
package shuttle

import (
	"context"
	"encoding/json"
)

// ExecutionMode declares whether a tool is safe to run alongside other
// tools in the same turn's batch, or must run alone (spec.md §4.6).
type ExecutionMode string

const (
	// ExecutionConcurrent tools may be grouped into parallel batches with
	// other concurrent tools.
	ExecutionConcurrent ExecutionMode = "concurrent"
	// ExecutionSequential tools must run alone, one at a time.
	ExecutionSequential ExecutionMode = "sequential"
)

// Tool defines the interface for executable tools (shuttles) in the agent
// runtime. Tools are the mechanism by which an agent interacts with its
// environment; each tool encapsulates a single capability.
//
// Why "shuttle"? Tools "shuttle" data and execution between the LLM and the
// environment, the way a weaving shuttle carries thread back and forth
// across a loom.
type Tool interface {
	// Name returns the tool's unique identifier.
	Name() string

	// Description returns a human-readable description for LLM context.
	Description() string

	// InputSchema returns the JSON Schema for tool parameters.
	InputSchema() *JSONSchema

	// Execute runs the tool with given parameters.
	Execute(ctx context.Context, params map[string]interface{}) (*Result, error)

	// Backend returns the backend type this tool requires (e.g. "filesystem",
	// "shell", "web"). Empty string means the tool is backend-agnostic.
	Backend() string
}

// ModeAware is implemented by tools that must constrain how the executor
// batches them against other tools in the same turn (spec.md §4.6). Tools
// that don't implement it are treated as ExecutionConcurrent.
type ModeAware interface {
	ExecutionMode() ExecutionMode
}

// modeOf returns t's declared execution mode, defaulting to concurrent for
// tools that don't implement ModeAware.
func modeOf(t Tool) ExecutionMode {
	if m, ok := t.(ModeAware); ok {
		return m.ExecutionMode()
	}
	return ExecutionConcurrent
}

// Result represents the outcome of tool execution (spec.md §4.6 "Tool
// result contract").
type Result struct {
	// Success indicates if the tool executed successfully. Kept alongside
	// IsError for backward-compatible call sites; IsError is the
	// contract spec.md names.
	Success bool

	// Data contains the result data (format varies by tool). For small
	// results, data is stored here directly.
	Data interface{}

	// Content is the text (or serialized block) form of Data, the shape
	// spec.md's tool result contract names directly: {content, is_error,
	// content_type, duration}.
	Content string

	// ContentType classifies Content: "text", "image", or "html".
	ContentType string

	// IsError mirrors !Success; tool failures are never Go errors, they are
	// normal results the agent can observe and react to (spec.md §4.6).
	IsError bool

	// Error contains structured error information when IsError is true.
	Error *Error

	// Metadata contains tool-specific metadata.
	Metadata map[string]interface{}

	// ExecutionTimeMs is the tool's wall-clock duration in milliseconds.
	ExecutionTimeMs int64

	// CacheHit indicates if this result came from cache.
	CacheHit bool

	// Truncated reports that Content was cut short. Neither Executor nor
	// the turn runner truncates Content or applies an output size cap, so
	// it is false unless the tool itself sets it.
	Truncated bool

	// OriginalSize is Content's size before truncation, in bytes, for a
	// tool that sets Truncated.
	OriginalSize int64

	// AffectedFiles lists paths a file-mutating tool touched, surfaced on
	// the tool.result event payload.
	AffectedFiles []string

	// BlobID references a pkg/eventstore Blob when Content was too large to
	// inline in the tool.result event payload.
	BlobID string
}

// Error represents a tool execution error with structured information.
type Error struct {
	// Code is a machine-readable error code.
	Code string

	// Message is a human-readable error message.
	Message string

	// Details provides additional error context.
	Details map[string]interface{}

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion provides a suggestion for fixing the error.
	Suggestion string
}

// JSONSchema represents a JSON Schema for tool parameters, following the
// JSON Schema spec for type definitions.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Enum        []interface{}          `json:"enum,omitempty"`
	Default     interface{}            `json:"default,omitempty"`
	Format      string                 `json:"format,omitempty"`
	Pattern     string                 `json:"pattern,omitempty"`
	Minimum     *float64               `json:"minimum,omitempty"`
	Maximum     *float64               `json:"maximum,omitempty"`
	MinLength   *int                   `json:"minLength,omitempty"`
	MaxLength   *int                   `json:"maxLength,omitempty"`
}

// MarshalJSON implements custom JSON marshaling so object types with no
// declared properties serialize "properties": {} rather than omitting the
// key, which some provider schema validators (notably Bedrock's) require.
func (s *JSONSchema) MarshalJSON() ([]byte, error) {
	type Alias JSONSchema

	if s.Type == "object" && len(s.Properties) == 0 {
		result := map[string]interface{}{
			"type":       s.Type,
			"properties": make(map[string]*JSONSchema),
		}
		if s.Description != "" {
			result["description"] = s.Description
		}
		if len(s.Required) > 0 {
			result["required"] = s.Required
		}
		if s.Items != nil {
			result["items"] = s.Items
		}
		if len(s.Enum) > 0 {
			result["enum"] = s.Enum
		}
		if s.Default != nil {
			result["default"] = s.Default
		}
		if s.Format != "" {
			result["format"] = s.Format
		}
		if s.Pattern != "" {
			result["pattern"] = s.Pattern
		}
		return json.Marshal(result)
	}
	return json.Marshal((*Alias)(s))
}

// NewObjectSchema is a convenience constructor for an object-typed
// JSONSchema with the given description, properties, and required property
// names. properties and required may both be nil (an open object schema).
func NewObjectSchema(description string, properties map[string]*JSONSchema, required []string) *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: description,
		Properties:  properties,
		Required:    required,
	}
}
