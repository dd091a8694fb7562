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

import (
	"strings"

	"github.com/teradata-labs/skein/pkg/events"
)

// blockAccumulator holds the in-progress text for one content block,
// keyed by the provider's block identifier, so that interleaved deltas
// from different blocks never corrupt each other (spec.md §4.5: "The
// stream processor tolerates provider-specific deviations by accumulating
// deltas keyed by their content-block identifier").
type blockAccumulator struct {
	blockType string // "text", "thinking", "tool_use"
	id        string
	toolName  string
	text      strings.Builder
}

// Processor folds a sequence of StreamEvents into ordered content blocks.
// Not safe for concurrent use; one Processor per in-flight turn.
type Processor struct {
	order   []string // block ids in first-seen order
	blocks  map[string]*blockAccumulator
	errored error
}

// NewProcessor creates an empty stream processor.
func NewProcessor() *Processor {
	return &Processor{blocks: make(map[string]*blockAccumulator)}
}

// Fold applies one stream event to the processor's running state.
func (p *Processor) Fold(event StreamEvent) {
	switch event.Type {
	case StreamTextStart:
		p.start(event.BlockID, "text", "")
	case StreamTextDelta:
		p.append(event.BlockID, "text", event.Delta)
	case StreamThinkingStart:
		p.start(event.BlockID, "thinking", "")
	case StreamThinkingDelta:
		p.append(event.BlockID, "thinking", event.Delta)
	case StreamToolCallStart:
		p.start(event.BlockID, "tool_use", event.ToolName)
	case StreamToolCallDelta:
		p.append(event.BlockID, "tool_use", event.Delta)
	case StreamError:
		p.errored = event.Err
	}
}

func (p *Processor) start(id, blockType, toolName string) {
	if _, exists := p.blocks[id]; exists {
		return
	}
	p.order = append(p.order, id)
	p.blocks[id] = &blockAccumulator{blockType: blockType, id: id, toolName: toolName}
}

func (p *Processor) append(id, blockType, delta string) {
	acc, exists := p.blocks[id]
	if !exists {
		p.start(id, blockType, "")
		acc = p.blocks[id]
	}
	acc.text.WriteString(delta)
}

// Err returns the error observed via a StreamError event, if any.
func (p *Processor) Err() error { return p.errored }

// ContentBlocks renders the accumulated blocks in first-seen order as the
// events.ContentBlock list a message.assistant event's payload carries.
func (p *Processor) ContentBlocks() []events.ContentBlock {
	out := make([]events.ContentBlock, 0, len(p.order))
	for _, id := range p.order {
		acc := p.blocks[id]
		out = append(out, events.ContentBlock{Type: acc.blockType, Text: acc.text.String()})
	}
	return out
}

// Text concatenates every "text" block's content, the form the turn
// runner surfaces to callers that only want the final reply.
func (p *Processor) Text() string {
	var sb strings.Builder
	for _, id := range p.order {
		acc := p.blocks[id]
		if acc.blockType == "text" {
			sb.WriteString(acc.text.String())
		}
	}
	return sb.String()
}
