// Package risk turns change-set counters into a bounded 0-100 score.
package risk

import (
	"fmt"

	"github.com/rs/zerolog"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Factors are the counters the score is computed from.
type Factors struct {
	Secrets              int `json:"secrets"`
	TotalAdditions       int `json:"total_additions"`
	HighRiskDependencies int `json:"high_risk_dependencies"`
	SecurityFiles        int `json:"security_files"`
	LargeFiles           int `json:"large_files"`
	TotalFiles           int `json:"total_files"`
	BinaryFiles          int `json:"binary_files"`
	DatabaseFiles        int `json:"database_files"`
	SecurityConfigFiles  int `json:"security_config_files"`
	DeploymentFiles      int `json:"deployment_files"`
	TotalDeletions       int `json:"total_deletions"`
}

// Contribution is one satisfied factor and the points it adds.
type Contribution struct {
	Factor string `json:"factor"`
	Points int    `json:"points"`
	Detail string `json:"detail"`
}

type rule struct {
	factor string
	points int
	value  func(Factors) int
	limit  int
	detail string
}

// rules fire when value exceeds limit.
var rules = []rule{
	{"secrets", 25, func(f Factors) int { return f.Secrets }, 0, "%d potential secrets detected"},
	{"large_change", 10, func(f Factors) int { return f.TotalAdditions }, 1000, "large change (%d additions)"},
	{"high_risk_dependencies", 15, func(f Factors) int { return f.HighRiskDependencies }, 0, "%d high-risk dependency changes"},
	{"security_files", 10, func(f Factors) int { return f.SecurityFiles }, 0, "%d security-sensitive files changed"},
	{"large_files", 10, func(f Factors) int { return f.LargeFiles }, 0, "%d large files changed"},
	{"many_files", 5, func(f Factors) int { return f.TotalFiles }, 20, "many files changed (%d)"},
	{"binary_files", 5, func(f Factors) int { return f.BinaryFiles }, 0, "%d binary files changed"},
	{"database_files", 8, func(f Factors) int { return f.DatabaseFiles }, 0, "%d database files changed"},
	{"security_config_files", 12, func(f Factors) int { return f.SecurityConfigFiles }, 0, "%d security config files changed"},
	{"deployment_files", 7, func(f Factors) int { return f.DeploymentFiles }, 0, "%d deployment files changed"},
	{"large_deletions", 8, func(f Factors) int { return f.TotalDeletions }, 500, "large deletions (%d lines)"},
}

// Breakdown lists the factors that contribute to the score, in rule order.
func Breakdown(f Factors) []Contribution {
	var out []Contribution
	for _, r := range rules {
		if v := r.value(f); v > r.limit {
			out = append(out, Contribution{Factor: r.factor, Points: r.points, Detail: fmt.Sprintf(r.detail, v)})
		}
	}
	return out
}

// Score sums the contributions and clamps the result to [MinScore, MaxScore].
func Score(f Factors) int {
	return ScoreWithLog(f, zerolog.Nop())
}

// ScoreWithLog is Score with a debug entry per contributing factor.
func ScoreWithLog(f Factors, log zerolog.Logger) int {
	score := MinScore
	for _, c := range Breakdown(f) {
		score += c.Points
		log.Debug().Str("factor", c.Factor).Int("points", c.Points).Msg(c.Detail)
	}
	return clamp(score)
}

func clamp(n int) int {
	if n < MinScore {
		return MinScore
	}
	if n > MaxScore {
		return MaxScore
	}
	return n
}

// FallbackFactor is the only risk factor reported with a Fallback score.
const FallbackFactor = "Unable to complete full security analysis"

// Fallback estimates a score from size alone, for runs whose security
// analysis produced nothing.
func Fallback(files, additions int) int {
	return clamp(files*5 + additions/100)
}

// Level describes a score for readers.
func Level(score int) string {
	switch {
	case score >= 70:
		return "High Risk - Careful review recommended"
	case score >= 40:
		return "Medium Risk - Standard review process"
	case score >= 20:
		return "Low-Medium Risk - Light review needed"
	default:
		return "Low Risk - Minimal review required"
	}
}
