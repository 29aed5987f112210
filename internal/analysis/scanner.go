package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/model"
)

// Thresholds for complexity flags.
const (
	veryLargeChangeLines = 1000
	largeChangeLines     = 500
	largeFileLines       = 300
	manyFiles            = 20
	multipleFiles        = 10
)

// ScanPayload is the change scanner's output.
type ScanPayload struct {
	Summary         string
	Changelog       model.Changelog
	ComplexityFlags []string
	Hotspots        []model.Hotspot
	Languages       map[string]int
}

// titlePrefixes are tried in order against the lowercased title.
var titlePrefixes = []struct {
	keywords []string
	prefix   string
}{
	{[]string{"fix", "bug", "issue"}, "Bug fix: "},
	{[]string{"feature", "add", "implement"}, "Feature addition: "},
	{[]string{"refactor", "cleanup", "reorganize"}, "Refactoring: "},
	{[]string{"update", "upgrade"}, "Update: "},
}

var (
	featureKeywords  = []string{"add", "implement", "feature", "new"}
	fixKeywords      = []string{"fix", "bug", "issue", "resolve"}
	refactorKeywords = []string{"refactor", "cleanup", "reorganize", "improve"}
)

// ChangeScanner summarizes what a change set does.
type ChangeScanner struct{}

func NewChangeScanner() *ChangeScanner { return &ChangeScanner{} }

func (s *ChangeScanner) Name() string { return StageChangeScanner }

func (s *ChangeScanner) Run(in *Input) Result {
	cs := in.ChangeSet
	langs := cs.Languages
	if len(langs) == 0 {
		langs = diff.LanguageStats(cs.Files)
	}
	dm := in.diffModel()
	hotspots := diff.Hotspots(dm)

	return Result{
		Stage: s.Name(),
		Payload: &ScanPayload{
			Summary:         summarize(cs, langs),
			Changelog:       changelog(cs),
			ComplexityFlags: complexityFlags(cs, dm, hotspots),
			Hotspots:        hotspots,
			Languages:       langs,
		},
	}
}

// primaryLanguage returns the language with the most changed lines. Ties go
// to the alphabetically first name.
func primaryLanguage(langs map[string]int) string {
	best, bestLines := "", -1
	for lang, n := range langs {
		if n > bestLines || (n == bestLines && lang < best) {
			best, bestLines = lang, n
		}
	}
	if best == "" {
		return "Unknown"
	}
	return best
}

func summarize(cs *model.ChangeSet, langs map[string]int) string {
	adds, dels := cs.TotalAdditions(), cs.TotalDeletions()

	var tests, configs int
	for _, f := range cs.Files {
		switch {
		case isTestFile(f.Filename):
			tests++
		case isConfigFile(f.Filename):
			configs++
		}
	}

	var b strings.Builder
	if len(cs.Files) == 1 {
		fmt.Fprintf(&b, "Modifies 1 %s file", primaryLanguage(langs))
	} else {
		fmt.Fprintf(&b, "Modifies %d files", len(cs.Files))
	}
	switch {
	case adds > 0 && dels > 0:
		fmt.Fprintf(&b, " with %d additions and %d deletions", adds, dels)
	case adds > 0:
		fmt.Fprintf(&b, " adding %d lines", adds)
	case dels > 0:
		fmt.Fprintf(&b, " removing %d lines", dels)
	}
	if tests > 0 {
		fmt.Fprintf(&b, ", including %d test file(s)", tests)
	}
	if configs > 0 {
		if tests > 0 {
			fmt.Fprintf(&b, " and %d configuration file(s)", configs)
		} else {
			fmt.Fprintf(&b, ", including %d configuration file(s)", configs)
		}
	}
	b.WriteString(".")

	title := strings.ToLower(cs.Title)
	for _, p := range titlePrefixes {
		if title != "" && containsAny(title, p.keywords) {
			return p.prefix + b.String()
		}
	}
	return b.String()
}

func changelog(cs *model.ChangeSet) model.Changelog {
	var cl model.Changelog

	text := strings.ToLower(cs.Title + " " + cs.Body)
	if containsAny(text, featureKeywords) {
		cl.Features = append(cl.Features, "Added new functionality based on PR title: "+cs.Title)
	}
	if containsAny(text, fixKeywords) {
		cl.Fixes = append(cl.Fixes, "Fixed issue: "+cs.Title)
	}
	if containsAny(text, refactorKeywords) {
		cl.Refactors = append(cl.Refactors, "Code refactoring: "+cs.Title)
	}

	for _, f := range cs.Files {
		added := f.Status == model.StatusAdded
		switch {
		case isTestFile(f.Filename):
			if added {
				cl.Tests = append(cl.Tests, "Added test file: "+f.Filename)
			} else if f.Additions > f.Deletions {
				cl.Tests = append(cl.Tests, "Enhanced tests in: "+f.Filename)
			}
		case isDocFile(f.Filename):
			if added {
				cl.Docs = append(cl.Docs, "Added documentation: "+f.Filename)
			} else if f.Additions > 0 {
				cl.Docs = append(cl.Docs, "Updated documentation: "+f.Filename)
			}
		case added && isCodeFile(f.Filename):
			cl.Features = append(cl.Features, "Added new file: "+f.Filename)
		}
	}
	return cl
}

func complexityFlags(cs *model.ChangeSet, dm *diff.Model, hotspots []model.Hotspot) []string {
	var flags []string

	total := cs.TotalAdditions() + cs.TotalDeletions()
	switch {
	case total > veryLargeChangeLines:
		flags = append(flags, fmt.Sprintf("Very large change: %d total lines modified", total))
	case total > largeChangeLines:
		flags = append(flags, fmt.Sprintf("Large change: %d total lines modified", total))
	}

	for _, f := range cs.Files {
		if n := f.Additions + f.Deletions; n > largeFileLines {
			flags = append(flags, fmt.Sprintf("Large single file change: %s (%d lines)", f.Filename, n))
		}
	}

	switch n := len(cs.Files); {
	case n > manyFiles:
		flags = append(flags, fmt.Sprintf("Many files changed: %d files", n))
	case n > multipleFiles:
		flags = append(flags, fmt.Sprintf("Multiple files changed: %d files", n))
	}

	var binary, critical []string
	for _, f := range cs.Files {
		if isBinaryFile(dm, f.Filename) {
			binary = append(binary, f.Filename)
		}
		if isCriticalFile(f.Filename) {
			critical = append(critical, f.Filename)
		}
	}
	if len(binary) > 0 {
		flags = append(flags, fmt.Sprintf("Binary files changed: %d files", len(binary)))
	}
	if len(critical) > 0 {
		flags = append(flags, "Critical system files modified: "+strings.Join(critical, ", "))
	}
	if len(hotspots) > 0 {
		flags = append(flags, fmt.Sprintf("Code hotspots detected: %d files with high complexity", len(hotspots)))
	}
	return flags
}

// sortedKeys returns m's keys in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
