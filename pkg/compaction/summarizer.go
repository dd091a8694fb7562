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

// Package compaction implements the compaction engine (spec.md §4.4): it
// summarizes the older portion of a session's message buffer to free
// context tokens while leaving the event log fully replayable.
package compaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/teradata-labs/skein/pkg/types"
)

// Summarizer is the abstract capability spec.md §4.4 step 2 names: given a
// list of messages, return a narrative summary string.
type Summarizer interface {
	Summarize(ctx context.Context, messages []types.Message) (string, error)
}

// compactSystemPrompt is the compact system prompt a child-agent summarizer
// runs under (spec.md §4.4: "a subagent with a compact system prompt").
const compactSystemPrompt = `You are compacting a conversation transcript. Produce a concise narrative
summary (3-6 sentences) of what happened: the user's goals, key decisions
made, and any files or resources modified. Do not include pleasantries or
restate the instructions. Respond with the summary only.`

// ChildAgentSummarizer asks an LLM provider to summarize, running it as a
// single-turn child agent against compactSystemPrompt.
type ChildAgentSummarizer struct {
	provider types.LLMProvider
}

// NewChildAgentSummarizer creates a summarizer backed by provider.
func NewChildAgentSummarizer(provider types.LLMProvider) *ChildAgentSummarizer {
	return &ChildAgentSummarizer{provider: provider}
}

func (s *ChildAgentSummarizer) Summarize(ctx context.Context, messages []types.Message) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("compaction: no provider configured")
	}

	transcript := make([]string, 0, len(messages))
	for _, msg := range messages {
		transcript = append(transcript, fmt.Sprintf("[%s]: %s", msg.Role, msg.Content))
	}

	req := []types.Message{
		{Role: "user", Content: compactSystemPrompt + "\n\n" + strings.Join(transcript, "\n")},
	}

	resp, err := s.provider.Chat(ctx, req, nil)
	if err != nil {
		return "", fmt.Errorf("compaction: child agent summarize: %w", err)
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("compaction: child agent returned empty summary")
	}
	return summary, nil
}

// KeywordSummarizer is the fallback used when the child-agent summarizer
// fails (spec.md §4.4: "Failure semantics"). It extracts a terse line per
// message rather than calling an LLM.
type KeywordSummarizer struct{}

// NewKeywordSummarizer creates a fallback summarizer.
func NewKeywordSummarizer() *KeywordSummarizer { return &KeywordSummarizer{} }

func (s *KeywordSummarizer) Summarize(_ context.Context, messages []types.Message) (string, error) {
	var parts []string
	for _, msg := range messages {
		switch msg.Role {
		case "user":
			parts = append(parts, "User: "+truncate(msg.Content, 60))
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				parts = append(parts, "Agent executed tools")
			} else if msg.Content != "" {
				parts = append(parts, "Agent: "+truncate(msg.Content, 50))
			}
		case "tool":
			parts = append(parts, "Tool result received")
		}
	}
	if len(parts) == 0 {
		return "Previous exchanges", nil
	}
	return strings.Join(parts, "; "), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
