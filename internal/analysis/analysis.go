// Package analysis implements the four analysis stages of a run. Each stage
// reads the shared Input and returns its own payload plus warnings; a stage
// never fails the run.
package analysis

import (
	"github.com/rs/zerolog"

	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/model"
)

// Stage names, in execution order.
const (
	StageChangeScanner   = "change_scanner"
	StageRiskSecurity    = "risk_security"
	StageTestSynthesizer = "test_synthesizer"
	StageReviewer        = "reviewer"
)

// DefaultMaxSuggestions caps the number of test suggestions per run.
const DefaultMaxSuggestions = 20

// Input is the read-only data a stage works from.
type Input struct {
	ChangeSet *model.ChangeSet
	Diff      *diff.Model
	// Security is set once the risk and security stage has run.
	Security *SecurityPayload
}

// diffModel returns the shared diff model, parsing the raw diff when the
// caller did not supply one.
func (in *Input) diffModel() *diff.Model {
	if in.Diff != nil {
		return in.Diff
	}
	return diff.Parse(in.ChangeSet.RawDiff)
}

// Result is a stage's output. Payload is one of the *Payload types of this
// package, or nil when the stage produced nothing usable.
type Result struct {
	Stage    string
	Payload  any
	Warnings []string
}

// Stage is one analysis step.
type Stage interface {
	Name() string
	Run(in *Input) Result
}

// Options configure the stages.
type Options struct {
	MaxSuggestions  int
	MaxContentBytes int
	Logger          zerolog.Logger
}

func (o Options) maxSuggestions() int {
	if o.MaxSuggestions <= 0 {
		return DefaultMaxSuggestions
	}
	return o.MaxSuggestions
}

// Stages returns the four stages in execution order.
func Stages(opts Options) []Stage {
	return []Stage{
		NewChangeScanner(),
		NewRiskSecurity(opts),
		NewTestSynthesizer(opts),
		NewReviewer(),
	}
}
