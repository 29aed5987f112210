package diff

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sprite-ai/prlens/internal/model"
)

// HotspotThreshold is the minimum score for a file to be reported.
const HotspotThreshold = 3

var coreExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".java": true, ".go": true, ".rs": true,
}

// Hotspots scores every file and returns those at or above
// HotspotThreshold, highest first. Ties keep diff order.
func Hotspots(m *Model) []model.Hotspot {
	var out []model.Hotspot
	for _, f := range m.Files {
		score := 0
		var reasons []string

		switch total := f.Total(); {
		case total > 200:
			score += 3
			reasons = append(reasons, fmt.Sprintf("Large changes (%d lines)", total))
		case total > 100:
			score += 2
			reasons = append(reasons, fmt.Sprintf("Large changes (%d lines)", total))
		}

		switch n := len(f.Functions); {
		case n > 5:
			score += 2
			reasons = append(reasons, fmt.Sprintf("Many functions changed (%d)", n))
		case n > 2:
			score++
			reasons = append(reasons, fmt.Sprintf("Many functions changed (%d)", n))
		}

		if coreExtensions[strings.ToLower(filepath.Ext(f.Filename))] {
			score++
			reasons = append(reasons, "Core logic file")
		}

		if score >= HotspotThreshold {
			out = append(out, model.Hotspot{File: f.Filename, Score: score, Reasons: reasons})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
