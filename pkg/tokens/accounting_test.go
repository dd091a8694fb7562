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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	src := Source{InputTokens: 100, OutputTokens: 50, CacheReadTokens: 20}
	c := Compute(src, 1000)
	require.Equal(t, int64(120), c.ContextWindowUsed)
	require.Equal(t, int64(150), c.Delta)
	require.Equal(t, int64(1150), c.SessionTotal)
}

func TestCostKnownModel(t *testing.T) {
	src := Source{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	cost := Cost(DefaultPricingTable, "claude-sonnet-4-5", src)
	require.InDelta(t, 18.0, cost, 0.0001)
}

func TestCostUnknownModel(t *testing.T) {
	cost := Cost(DefaultPricingTable, "nonexistent-model", Source{InputTokens: 1000})
	require.Zero(t, cost)
}

func TestEvaluateWindowLevels(t *testing.T) {
	cases := []struct {
		tokens int64
		want   Level
	}{
		{100, LevelNormal},
		{700, LevelWarning},
		{800, LevelAlert},
		{850, LevelCritical},
		{1000, LevelExceeded},
	}
	for _, tc := range cases {
		w := EvaluateWindow(tc.tokens, 1000, DefaultThresholds)
		require.Equal(t, tc.want, w.Level, "tokens=%d", tc.tokens)
	}
}

func TestEvaluateWindowRecommendsCompactionAtCritical(t *testing.T) {
	w := EvaluateWindow(900, 1000, DefaultThresholds)
	require.True(t, w.CompactionRecommended)
}

func TestEstimateChars(t *testing.T) {
	require.Equal(t, 0, EstimateChars(""))
	require.Equal(t, 1, EstimateChars("ab"))
	require.Equal(t, 25, EstimateChars(string(make([]byte, 100))))
}
