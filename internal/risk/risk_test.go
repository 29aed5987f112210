package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreZero(t *testing.T) {
	assert.Equal(t, 0, Score(Factors{}))
	assert.Empty(t, Breakdown(Factors{}))
}

func TestScoreClampsAtMax(t *testing.T) {
	maxed := Factors{
		Secrets:              math.MaxInt32,
		TotalAdditions:       math.MaxInt32,
		HighRiskDependencies: math.MaxInt32,
		SecurityFiles:        math.MaxInt32,
		LargeFiles:           math.MaxInt32,
		TotalFiles:           math.MaxInt32,
		BinaryFiles:          math.MaxInt32,
		DatabaseFiles:        math.MaxInt32,
		SecurityConfigFiles:  math.MaxInt32,
		DeploymentFiles:      math.MaxInt32,
		TotalDeletions:       math.MaxInt32,
	}
	sum := 0
	for _, c := range Breakdown(maxed) {
		sum += c.Points
	}
	assert.Equal(t, 115, sum)
	assert.Equal(t, 100, Score(maxed))
}

func TestScoreNegativeCountersIgnored(t *testing.T) {
	assert.Equal(t, 0, Score(Factors{Secrets: -3, TotalFiles: -100}))
}

func TestScoreThresholds(t *testing.T) {
	tests := []struct {
		name string
		f    Factors
		want int
	}{
		{"one secret", Factors{Secrets: 1}, 25},
		{"additions at threshold", Factors{TotalAdditions: 1000}, 0},
		{"additions over threshold", Factors{TotalAdditions: 1001}, 10},
		{"security file", Factors{SecurityFiles: 1}, 10},
		{"twenty files", Factors{TotalFiles: 20}, 0},
		{"twenty-one files", Factors{TotalFiles: 21}, 5},
		{"deletions over threshold", Factors{TotalDeletions: 501}, 8},
		{"mixed", Factors{Secrets: 2, HighRiskDependencies: 1, SecurityConfigFiles: 1, DeploymentFiles: 3}, 25 + 15 + 12 + 7},
		{"db and binary", Factors{DatabaseFiles: 1, BinaryFiles: 1, LargeFiles: 2}, 8 + 5 + 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.f))
		})
	}
}

func TestScoreIsOrderInsensitiveAndDeterministic(t *testing.T) {
	f := Factors{Secrets: 1, DatabaseFiles: 2, TotalDeletions: 900}
	first := Score(f)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(f))
	}
	assert.Equal(t, 41, first)
}

func TestBreakdownDetail(t *testing.T) {
	got := Breakdown(Factors{Secrets: 3})
	assert.Equal(t, []Contribution{{Factor: "secrets", Points: 25, Detail: "3 potential secrets detected"}}, got)
}

func TestFallback(t *testing.T) {
	assert.Equal(t, 12, Fallback(2, 250))
	assert.Equal(t, 100, Fallback(30, 0))
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "Low Risk - Minimal review required", Level(0))
	assert.Equal(t, "Low-Medium Risk - Light review needed", Level(20))
	assert.Equal(t, "Medium Risk - Standard review process", Level(40))
	assert.Equal(t, "High Risk - Careful review recommended", Level(100))
}
