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
package context

import (
	"regexp"
	"strings"

	"github.com/sahilm/fuzzy"
)

// mentionPattern matches an @skill or @memory mention token: an @ followed
// by word characters, dots, slashes or hyphens.
var mentionPattern = regexp.MustCompile(`@([\w./-]+)`)

// MentionIndex fuzzy-matches @skill and @memory mentions found in a prompt
// against the registered skill/memory names (SPEC_FULL.md §4.7/§11),
// tolerating the typos and partial names a user types inline.
type MentionIndex struct {
	skills   []string
	memories []string
}

// NewMentionIndex builds an index over the currently registered skill and
// memory names.
func NewMentionIndex(skills, memories []string) *MentionIndex {
	return &MentionIndex{skills: skills, memories: memories}
}

// Mention is one resolved @-mention found in a prompt.
type Mention struct {
	Raw  string // the literal token, e.g. "@debugg"
	Kind string // "skill" or "memory"
	Name string // the resolved registered name
}

// Extract scans prompt for @-mentions, resolves each against the skill and
// memory indexes by best fuzzy match, and returns the mentions found plus
// prompt with every resolved mention token removed (spec.md §4.7 step 2:
// "producing a cleaned prompt and an injected skill context block").
func (idx *MentionIndex) Extract(prompt string) (cleaned string, mentions []Mention) {
	cleaned = prompt
	for _, match := range mentionPattern.FindAllStringSubmatch(prompt, -1) {
		token := match[1]
		if kind, name, ok := idx.resolve(token); ok {
			mentions = append(mentions, Mention{Raw: match[0], Kind: kind, Name: name})
			cleaned = strings.Replace(cleaned, match[0], "", 1)
		}
	}
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return cleaned, mentions
}

// resolve fuzzy-matches token against skills first, then memories, and
// returns the best-scoring hit across both.
func (idx *MentionIndex) resolve(token string) (kind, name string, ok bool) {
	skillMatches := fuzzy.Find(token, idx.skills)
	memoryMatches := fuzzy.Find(token, idx.memories)

	switch {
	case len(skillMatches) == 0 && len(memoryMatches) == 0:
		return "", "", false
	case len(skillMatches) == 0:
		return "memory", idx.memories[memoryMatches[0].Index], true
	case len(memoryMatches) == 0:
		return "skill", idx.skills[skillMatches[0].Index], true
	case skillMatches[0].Score >= memoryMatches[0].Score:
		return "skill", idx.skills[skillMatches[0].Index], true
	default:
		return "memory", idx.memories[memoryMatches[0].Index], true
	}
}

// RenderMentionBlock renders mentions as the "skills"/"memory" system-prompt block
// content spec.md §4.3 names as ordered sections.
func RenderMentionBlock(mentions []Mention) string {
	var skills, memories []string
	for _, m := range mentions {
		switch m.Kind {
		case "skill":
			skills = append(skills, m.Name)
		case "memory":
			memories = append(memories, m.Name)
		}
	}

	var sb strings.Builder
	if len(skills) > 0 {
		sb.WriteString("Invoked skills: " + strings.Join(skills, ", "))
	}
	if len(memories) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Referenced memories: " + strings.Join(memories, ", "))
	}
	return sb.String()
}
