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
package tokens

// Source is the raw usage a provider reports for one turn (spec.md §4.2
// layer 1).
type Source struct {
	InputTokens          int64
	OutputTokens         int64
	CacheReadTokens      int64
	CacheCreateTokens    int64
	CacheCreate5mTokens  int64 // Anthropic-style 5-minute cache write, subset of CacheCreateTokens
	CacheCreate1hTokens  int64 // Anthropic-style 1-hour cache write, subset of CacheCreateTokens
}

// Computed is the derived layer-2 view of a Source: context window
// consumption and per-turn delta.
type Computed struct {
	ContextWindowUsed int64 // input + cache-read, the provider-specific formula from spec.md §4.2
	Delta             int64 // this turn's marginal contribution to the running session total
	SessionTotal       int64 // cumulative total across the session including this turn
}

// Compute derives a Computed record from a Source. prevSessionTotal is the
// session's running total before this turn (spec.md §4.2 layer 2).
func Compute(src Source, prevSessionTotal int64) Computed {
	delta := src.InputTokens + src.OutputTokens
	return Computed{
		ContextWindowUsed: src.InputTokens + src.CacheReadTokens,
		Delta:             delta,
		SessionTotal:      prevSessionTotal + delta,
	}
}

// ModelPricing is per-million-token USD rates for one model id (spec.md
// §4.2 layer 3).
type ModelPricing struct {
	InputPerMillion       float64
	OutputPerMillion      float64
	CacheReadPerMillion   float64
	CacheCreatePerMillion float64
}

// PricingTable maps a model id to its rates. Unknown model ids cost $0 —
// callers that need to reject unknown models should check PricingTable
// membership explicitly before calling Cost.
type PricingTable map[string]ModelPricing

// DefaultPricingTable carries the handful of models this runtime ships
// provider adapters for (pkg/llm/anthropic, pkg/llm/bedrock). Rates are
// published per-million-token list prices as of the models' release.
var DefaultPricingTable = PricingTable{
	"claude-sonnet-4-5": {
		InputPerMillion:       3.00,
		OutputPerMillion:      15.00,
		CacheReadPerMillion:   0.30,
		CacheCreatePerMillion: 3.75,
	},
	"claude-opus-4-1": {
		InputPerMillion:       15.00,
		OutputPerMillion:      75.00,
		CacheReadPerMillion:   1.50,
		CacheCreatePerMillion: 18.75,
	},
	"claude-haiku-4-5": {
		InputPerMillion:       0.80,
		OutputPerMillion:      4.00,
		CacheReadPerMillion:   0.08,
		CacheCreatePerMillion: 1.00,
	},
}

// Cost computes the dollar cost of one turn's Source usage against modelID's
// entry in table. Returns 0 for an unrecognized model id.
func Cost(table PricingTable, modelID string, src Source) float64 {
	rates, ok := table[modelID]
	if !ok {
		return 0
	}
	const million = 1_000_000
	return float64(src.InputTokens)/million*rates.InputPerMillion +
		float64(src.OutputTokens)/million*rates.OutputPerMillion +
		float64(src.CacheReadTokens)/million*rates.CacheReadPerMillion +
		float64(src.CacheCreateTokens)/million*rates.CacheCreatePerMillion
}
