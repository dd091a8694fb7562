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

// Package fabric implements the tool executor's guardrail layer (spec.md
// §4.6 step 1) and a per-tool circuit breaker (spec.md §4.7's retry/backoff
// concerns applied to repeatedly-failing tools).
package fabric

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Severity controls what a triggered rule does to the call it matched.
type Severity string

const (
	// SeverityBlock prevents the tool call from executing.
	SeverityBlock Severity = "block"
	// SeverityWarn emits a warning event but allows the call to proceed.
	SeverityWarn Severity = "warn"
)

// EvalContext carries the information guardrail rules evaluate against: the
// tool call about to run, and the session/agent context it runs in.
type EvalContext struct {
	ToolName   string
	Arguments  map[string]interface{}
	Backend    string
	WorkingDir string
	SessionID  string
	AgentID    string
	Depth      int // subagent nesting depth
}

// Violation is one triggered rule, reported back to the tool executor.
type Violation struct {
	RuleID   string
	Severity Severity
	Message  string
}

// Blocks reports whether any violation in vs has SeverityBlock.
func Blocks(vs []Violation) bool {
	for _, v := range vs {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// PatternRule triggers when an argument's string value matches a regular
// expression.
type PatternRule struct {
	ArgumentKey string
	Regexp      *regexp.Regexp
}

func (p *PatternRule) evaluate(ec EvalContext) bool {
	v, ok := ec.Arguments[p.ArgumentKey].(string)
	if !ok {
		return false
	}
	return p.Regexp.MatchString(v)
}

// PathRule triggers when a path-valued argument falls outside the allowed
// prefixes, or inside a denied one. Denied prefixes are checked first.
type PathRule struct {
	ArgumentKey     string
	DeniedPrefixes  []string
	AllowedPrefixes []string
}

func (p *PathRule) evaluate(ec EvalContext) bool {
	v, ok := ec.Arguments[p.ArgumentKey].(string)
	if !ok {
		return false
	}
	for _, prefix := range p.DeniedPrefixes {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	if len(p.AllowedPrefixes) == 0 {
		return false
	}
	for _, prefix := range p.AllowedPrefixes {
		if strings.HasPrefix(v, prefix) {
			return false
		}
	}
	return true
}

// ResourceRule triggers when a tool on a denied backend is called.
type ResourceRule struct {
	Backend     string
	DeniedTools []string
}

func (r *ResourceRule) evaluate(ec EvalContext) bool {
	if r.Backend != "" && ec.Backend != r.Backend {
		return false
	}
	for _, name := range r.DeniedTools {
		if name == ec.ToolName {
			return true
		}
	}
	return false
}

// ContextRule triggers on an arbitrary predicate over the call context,
// e.g. "subagent depth exceeds N" or "session is in read-only mode".
type ContextRule struct {
	Predicate func(EvalContext) bool
}

func (c *ContextRule) evaluate(ec EvalContext) bool {
	return c.Predicate != nil && c.Predicate(ec)
}

// CompositeOperator combines sibling rules referenced by id.
type CompositeOperator string

const (
	CompositeAll CompositeOperator = "all"
	CompositeAny CompositeOperator = "any"
)

// CompositeRule triggers based on whether all or any of the named sibling
// rules trigger. Siblings are resolved through the owning Engine, not
// embedded, so rules can be composed without duplication.
type CompositeRule struct {
	Operator CompositeOperator
	RuleIDs  []string
}

// Rule is the tagged variant spec.md §9 names: exactly one of Pattern,
// Path, Resource, Context, Composite is set; evaluate dispatches on
// whichever is present.
type Rule struct {
	ID       string
	Severity Severity
	Message  string

	Pattern   *PatternRule
	Path      *PathRule
	Resource  *ResourceRule
	Context   *ContextRule
	Composite *CompositeRule
}

// evaluate dispatches to the set variant. engine is passed through so a
// Composite rule can resolve its siblings.
func (r *Rule) evaluate(ec EvalContext, engine *Engine) bool {
	switch {
	case r.Pattern != nil:
		return r.Pattern.evaluate(ec)
	case r.Path != nil:
		return r.Path.evaluate(ec)
	case r.Resource != nil:
		return r.Resource.evaluate(ec)
	case r.Context != nil:
		return r.Context.evaluate(ec)
	case r.Composite != nil:
		return engine.evaluateComposite(r.Composite, ec)
	default:
		return false
	}
}

// Engine holds the registered rule set and evaluates a tool call against
// every rule (spec.md §4.6 step 1).
type Engine struct {
	mu    sync.RWMutex
	rules map[string]*Rule
	order []string // registration order, for deterministic evaluation
}

// NewEngine creates an empty guardrail engine.
func NewEngine() *Engine {
	return &Engine{rules: make(map[string]*Rule)}
}

// Register adds rule to the engine, replacing any existing rule with the
// same ID.
func (e *Engine) Register(rule *Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.rules[rule.ID]; !exists {
		e.order = append(e.order, rule.ID)
	}
	e.rules[rule.ID] = rule
}

// Unregister removes a rule by ID.
func (e *Engine) Unregister(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rules, id)
	for i, existing := range e.order {
		if existing == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Evaluate runs every registered top-level rule against ec and returns the
// violations for rules that triggered. Composite rules are not evaluated
// directly here unless also registered top-level; they are normally
// referenced only from a sibling Composite rule.
func (e *Engine) Evaluate(ctx context.Context, ec EvalContext) []Violation {
	e.mu.RLock()
	order := make([]string, len(e.order))
	copy(order, e.order)
	e.mu.RUnlock()

	var violations []Violation
	for _, id := range order {
		e.mu.RLock()
		rule, ok := e.rules[id]
		e.mu.RUnlock()
		if !ok {
			continue
		}
		if rule.evaluate(ec, e) {
			violations = append(violations, Violation{
				RuleID:   rule.ID,
				Severity: rule.Severity,
				Message:  rule.Message,
			})
		}
	}
	return violations
}

// evaluateComposite resolves a Composite rule's siblings by id and combines
// their results with the configured operator.
func (e *Engine) evaluateComposite(c *CompositeRule, ec EvalContext) bool {
	if len(c.RuleIDs) == 0 {
		return false
	}
	switch c.Operator {
	case CompositeAny:
		for _, id := range c.RuleIDs {
			if e.siblingTriggers(id, ec) {
				return true
			}
		}
		return false
	default: // CompositeAll
		for _, id := range c.RuleIDs {
			if !e.siblingTriggers(id, ec) {
				return false
			}
		}
		return true
	}
}

func (e *Engine) siblingTriggers(id string, ec EvalContext) bool {
	e.mu.RLock()
	rule, ok := e.rules[id]
	e.mu.RUnlock()
	if !ok {
		return false
	}
	return rule.evaluate(ec, e)
}

// Get returns a registered rule by id.
func (e *Engine) Get(id string) (*Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rules[id]
	return r, ok
}

// Count returns the number of registered rules.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// DefaultRules returns the baseline rule set every tool executor should
// register: block any call whose "path" argument falls under the event
// store database path, and warn (without blocking) when "path" contains a
// "../" segment. Arguments are compared as plain strings; the session's
// working directory is not consulted.
func DefaultRules(dbPath string) []*Rule {
	return []*Rule{
		{
			ID:       "deny-db-file-write",
			Severity: SeverityBlock,
			Message:  fmt.Sprintf("refusing to write the event store database at %s directly", dbPath),
			Path: &PathRule{
				ArgumentKey:    "path",
				DeniedPrefixes: []string{dbPath},
			},
		},
		{
			ID:       "warn-path-traversal",
			Severity: SeverityWarn,
			Message:  "argument path contains a parent-directory traversal segment",
			Pattern: &PatternRule{
				ArgumentKey: "path",
				Regexp:      regexp.MustCompile(`\.\./`),
			},
		},
	}
}
