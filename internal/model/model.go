// Package model defines the core data types shared across prlens.
package model

import (
	"fmt"
	"time"
)

// Severity ranks secret findings, dependency changes and checklist items.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Rank orders severities for sorting: high first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity converts a name such as "high" into a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	}
	return SeverityLow, fmt.Errorf("unknown severity %q", name)
}

// FileStatus is the change status of one file in a change set.
type FileStatus string

const (
	StatusAdded    FileStatus = "added"
	StatusModified FileStatus = "modified"
	StatusRemoved  FileStatus = "removed"
)

// FileChange describes one changed file. Patch, when set, only covers this file.
type FileChange struct {
	Filename  string     `json:"filename" yaml:"filename" validate:"required"`
	Status    FileStatus `json:"status" yaml:"status" validate:"required,oneof=added modified removed"`
	Additions int        `json:"additions" yaml:"additions" validate:"gte=0"`
	Deletions int        `json:"deletions" yaml:"deletions" validate:"gte=0"`
	Changes   int        `json:"changes" yaml:"changes" validate:"gte=0"`
	Patch     string     `json:"patch,omitempty" yaml:"patch,omitempty"`
}

// ChangeSet is the immutable input of one pipeline run: a pull request at a
// given revision.
type ChangeSet struct {
	RevisionID   string            `json:"revision_id" yaml:"revision_id"`
	Repository   string            `json:"repository" yaml:"repository" validate:"required"`
	PRNumber     int               `json:"pr_number" yaml:"pr_number" validate:"gte=0"`
	HeadSHA      string            `json:"head_sha" yaml:"head_sha"`
	BaseSHA      string            `json:"base_sha" yaml:"base_sha"`
	Files        []FileChange      `json:"files" yaml:"files" validate:"dive"`
	RawDiff      string            `json:"raw_diff" yaml:"raw_diff"`
	Languages    map[string]int    `json:"languages,omitempty" yaml:"languages,omitempty"`
	Dependencies map[string]string `json:"dependency_files,omitempty" yaml:"dependency_files,omitempty"`
	Title        string            `json:"title" yaml:"title"`
	Body         string            `json:"body" yaml:"body"`
	Author       string            `json:"author" yaml:"author"`
	Labels       []string          `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// TotalAdditions sums additions over all files.
func (cs *ChangeSet) TotalAdditions() int {
	n := 0
	for _, f := range cs.Files {
		n += f.Additions
	}
	return n
}

// TotalDeletions sums deletions over all files.
func (cs *ChangeSet) TotalDeletions() int {
	n := 0
	for _, f := range cs.Files {
		n += f.Deletions
	}
	return n
}

// SecretFinding locates a likely credential. The matched value is never kept.
type SecretFinding struct {
	Category string   `json:"category" yaml:"category"`
	Kind     string   `json:"kind" yaml:"kind"`
	File     string   `json:"file" yaml:"file"`
	Line     int      `json:"line" yaml:"line"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// ChangeType classifies a dependency change.
type ChangeType string

const (
	ChangeAdded      ChangeType = "added"
	ChangeRemoved    ChangeType = "removed"
	ChangeUpgraded   ChangeType = "upgraded"
	ChangeDowngraded ChangeType = "downgraded"
	ChangeModified   ChangeType = "modified"
)

// DependencyChange is one package declaration that changed in a manifest.
type DependencyChange struct {
	Package    string     `json:"package" yaml:"package"`
	Manifest   string     `json:"manifest" yaml:"manifest"`
	OldVersion string     `json:"old_version,omitempty" yaml:"old_version,omitempty"`
	NewVersion string     `json:"new_version,omitempty" yaml:"new_version,omitempty"`
	Change     ChangeType `json:"change_type" yaml:"change_type"`
	Risk       Severity   `json:"risk" yaml:"risk"`
}

// ChecklistItem is one entry of the reviewer checklist.
type ChecklistItem struct {
	Category string   `json:"category" yaml:"category"`
	Text     string   `json:"text" yaml:"text"`
	Severity Severity `json:"severity" yaml:"severity"`
	Files    []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// TestKind is the kind of a suggested test.
type TestKind string

const (
	TestPositive    TestKind = "positive"
	TestNegative    TestKind = "negative"
	TestBoundary    TestKind = "boundary"
	TestIntegration TestKind = "integration"
)

// TestSuggestion proposes one test for a changed file or function.
type TestSuggestion struct {
	File        string   `json:"file" yaml:"file"`
	Function    string   `json:"function,omitempty" yaml:"function,omitempty"`
	Kind        TestKind `json:"kind" yaml:"kind"`
	Description string   `json:"description" yaml:"description"`
	Rationale   string   `json:"rationale" yaml:"rationale"`
	Stub        string   `json:"stub" yaml:"stub"`
}

// Changelog buckets human-readable entries.
type Changelog struct {
	Features  []string `json:"features,omitempty" yaml:"features,omitempty"`
	Fixes     []string `json:"fixes,omitempty" yaml:"fixes,omitempty"`
	Refactors []string `json:"refactors,omitempty" yaml:"refactors,omitempty"`
	Docs      []string `json:"docs,omitempty" yaml:"docs,omitempty"`
	Tests     []string `json:"tests,omitempty" yaml:"tests,omitempty"`
}

// Empty reports whether no bucket has entries.
func (c Changelog) Empty() bool {
	return len(c.Features)+len(c.Fixes)+len(c.Refactors)+len(c.Docs)+len(c.Tests) == 0
}

// Hotspot is a file singled out by the diff model as risky to review.
type Hotspot struct {
	File    string   `json:"file" yaml:"file"`
	Score   int      `json:"score" yaml:"score"`
	Reasons []string `json:"reasons" yaml:"reasons"`
}

// StageTiming records how long one stage ran.
type StageTiming struct {
	Stage   string        `json:"stage" yaml:"stage"`
	Elapsed time.Duration `json:"elapsed_ns" yaml:"elapsed_ns"`
}

// Report is the merged result of one run. It is not mutated once returned.
type Report struct {
	RunID      string `json:"run_id" yaml:"run_id"`
	Repository string `json:"repository" yaml:"repository"`
	PRNumber   int    `json:"pr_number" yaml:"pr_number"`
	HeadSHA    string `json:"head_sha,omitempty" yaml:"head_sha,omitempty"`
	BaseSHA    string `json:"base_sha,omitempty" yaml:"base_sha,omitempty"`

	Summary         string         `json:"summary" yaml:"summary"`
	Changelog       Changelog      `json:"changelog" yaml:"changelog"`
	ComplexityFlags []string       `json:"complexity_flags,omitempty" yaml:"complexity_flags,omitempty"`
	Hotspots        []Hotspot      `json:"hotspots,omitempty" yaml:"hotspots,omitempty"`
	Languages       map[string]int `json:"languages,omitempty" yaml:"languages,omitempty"`

	RiskScore   int      `json:"risk_score" yaml:"risk_score"`
	RiskLevel   string   `json:"risk_level" yaml:"risk_level"`
	RiskFactors []string `json:"risk_factors,omitempty" yaml:"risk_factors,omitempty"`

	Secrets          []SecretFinding    `json:"secrets,omitempty" yaml:"secrets,omitempty"`
	SecretCategories map[string]int     `json:"secret_categories,omitempty" yaml:"secret_categories,omitempty"`
	Dependencies     []DependencyChange `json:"dependency_changes,omitempty" yaml:"dependency_changes,omitempty"`
	TestSuggestions  []TestSuggestion   `json:"test_suggestions,omitempty" yaml:"test_suggestions,omitempty"`
	Checklist        []ChecklistItem    `json:"checklist,omitempty" yaml:"checklist,omitempty"`

	TotalFiles     int `json:"total_files" yaml:"total_files"`
	TotalAdditions int `json:"total_additions" yaml:"total_additions"`
	TotalDeletions int `json:"total_deletions" yaml:"total_deletions"`

	Timings   []StageTiming       `json:"timings" yaml:"timings"`
	Warnings  map[string][]string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	StartedAt time.Time           `json:"started_at" yaml:"started_at"`
	Duration  time.Duration       `json:"duration_ns" yaml:"duration_ns"`
}

// WarningCount totals warnings across stages.
func (r *Report) WarningCount() int {
	n := 0
	for _, w := range r.Warnings {
		n += len(w)
	}
	return n
}
