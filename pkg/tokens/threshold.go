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

// Level is the pre-turn validation threshold level reported by the context
// manager (spec.md §4.3 Pre-turn validation): the five levels spec.md
// names explicitly.
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelAlert
	LevelCritical
	LevelExceeded
)

// String renders the level the way it would appear in a context.snapshot
// payload or a log line.
func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelWarning:
		return "warning"
	case LevelAlert:
		return "alert"
	case LevelCritical:
		return "critical"
	case LevelExceeded:
		return "exceeded"
	default:
		return "unknown"
	}
}

// Thresholds are the usage-fraction breakpoints between Level values.
// Defaults match spec.md §4.4's 85% compaction trigger for LevelCritical.
type Thresholds struct {
	Warning  float64
	Alert    float64
	Critical float64
}

// DefaultThresholds is 70% / 80% / 85%.
var DefaultThresholds = Thresholds{Warning: 0.70, Alert: 0.80, Critical: 0.85}

// Window reports pre-turn context validation: current usage against a
// model's context limit (spec.md §4.3).
type Window struct {
	CurrentTokens        int64
	ModelContextLimit     int64
	Level                Level
	CompactionRecommended bool
}

// EvaluateWindow classifies currentTokens against modelLimit using
// thresholds, reporting whether compaction should be triggered (spec.md
// §4.4's own trigger is "≥ 85% of context window", i.e. LevelCritical).
func EvaluateWindow(currentTokens, modelLimit int64, thresholds Thresholds) Window {
	w := Window{CurrentTokens: currentTokens, ModelContextLimit: modelLimit}
	if modelLimit <= 0 {
		w.Level = LevelNormal
		return w
	}
	frac := float64(currentTokens) / float64(modelLimit)
	switch {
	case frac >= 1.0:
		w.Level = LevelExceeded
	case frac >= thresholds.Critical:
		w.Level = LevelCritical
	case frac >= thresholds.Alert:
		w.Level = LevelAlert
	case frac >= thresholds.Warning:
		w.Level = LevelWarning
	default:
		w.Level = LevelNormal
	}
	w.CompactionRecommended = frac >= thresholds.Critical
	return w
}
