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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessorFoldsTextDeltasInOrder(t *testing.T) {
	p := NewProcessor()
	p.Fold(StreamEvent{Type: StreamStart})
	p.Fold(StreamEvent{Type: StreamTextStart, BlockID: "0"})
	p.Fold(StreamEvent{Type: StreamTextDelta, BlockID: "0", Delta: "Hel"})
	p.Fold(StreamEvent{Type: StreamTextDelta, BlockID: "0", Delta: "lo"})
	p.Fold(StreamEvent{Type: StreamTextEnd, BlockID: "0"})
	p.Fold(StreamEvent{Type: StreamDone})

	assert.Equal(t, "Hello", p.Text())
	blocks := p.ContentBlocks()
	assert.Len(t, blocks, 1)
	assert.Equal(t, "text", blocks[0].Type)
	assert.Equal(t, "Hello", blocks[0].Text)
}

func TestProcessorKeepsInterleavedBlocksSeparate(t *testing.T) {
	p := NewProcessor()
	p.Fold(StreamEvent{Type: StreamThinkingStart, BlockID: "think-0"})
	p.Fold(StreamEvent{Type: StreamTextStart, BlockID: "text-0"})
	p.Fold(StreamEvent{Type: StreamThinkingDelta, BlockID: "think-0", Delta: "pondering"})
	p.Fold(StreamEvent{Type: StreamTextDelta, BlockID: "text-0", Delta: "answer"})
	p.Fold(StreamEvent{Type: StreamThinkingDelta, BlockID: "think-0", Delta: "..."})

	blocks := p.ContentBlocks()
	assert.Len(t, blocks, 2)
	assert.Equal(t, "thinking", blocks[0].Type)
	assert.Equal(t, "pondering...", blocks[0].Text)
	assert.Equal(t, "text", blocks[1].Type)
	assert.Equal(t, "answer", blocks[1].Text)
}

func TestProcessorTextIgnoresNonTextBlocks(t *testing.T) {
	p := NewProcessor()
	p.Fold(StreamEvent{Type: StreamThinkingStart, BlockID: "t"})
	p.Fold(StreamEvent{Type: StreamThinkingDelta, BlockID: "t", Delta: "reasoning"})
	p.Fold(StreamEvent{Type: StreamTextStart, BlockID: "m"})
	p.Fold(StreamEvent{Type: StreamTextDelta, BlockID: "m", Delta: "reply"})

	assert.Equal(t, "reply", p.Text())
}

func TestProcessorRecordsStreamError(t *testing.T) {
	p := NewProcessor()
	p.Fold(StreamEvent{Type: StreamError, Err: fmt.Errorf("boom")})
	assert.EqualError(t, p.Err(), "boom")
}

func TestProcessorToolCallDeltaAutostartsBlockIfMissing(t *testing.T) {
	p := NewProcessor()
	p.Fold(StreamEvent{Type: StreamToolCallDelta, BlockID: "call-1", Delta: `{"x":1}`})

	blocks := p.ContentBlocks()
	require := assert.New(t)
	require.Len(blocks, 1)
	require.Equal("tool_use", blocks[0].Type)
	require.Equal(`{"x":1}`, blocks[0].Text)
}
