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
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// UnifiedDiff renders a compact, human-readable diff between before and
// after, for surfacing in a tool.result event so an agent (or the human
// reviewing its transcript) can see what a mutating tool actually changed
// without re-reading the whole file.
func UnifiedDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			for _, line := range strings.Split(d.Text, "\n") {
				if line == "" {
					continue
				}
				sb.WriteString("+ " + line + "\n")
			}
		case diffmatchpatch.DiffDelete:
			for _, line := range strings.Split(d.Text, "\n") {
				if line == "" {
					continue
				}
				sb.WriteString("- " + line + "\n")
			}
		}
	}
	return sb.String()
}

// DiffSimilarity returns the fraction of before/after content the two
// strings share, 0 (completely different) to 1 (identical).
func DiffSimilarity(before, after string) float64 {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)

	var common, total int
	for _, d := range diffs {
		total += len(d.Text)
		if d.Type == diffmatchpatch.DiffEqual {
			common += len(d.Text)
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(common) / float64(total)
}
