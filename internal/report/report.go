// Package report renders analysis reports as markdown, styled terminal
// text, HTML, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sprite-ai/prlens/internal/model"
	"github.com/sprite-ai/prlens/internal/secrets"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatMarkdown, FormatHTML, FormatJSON, FormatYAML}
}

// ParseFormat converts a name such as "md" into a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q", name)
}

// Render writes r to w in format f. Marker is embedded in markdown output.
func Render(w io.Writer, f Format, r *model.Report, marker string) error {
	switch f {
	case FormatText:
		_, err := io.WriteString(w, Text(r))
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r, marker))
		return err
	case FormatHTML:
		return HTML(w, r)
	case FormatJSON:
		return JSON(w, r)
	case FormatYAML:
		return YAML(w, r)
	}
	return fmt.Errorf("unknown format %q", f)
}

// JSON writes r as indented JSON. Secret findings are reduced to
// per-category counts.
func JSON(w io.Writer, r *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(redact(r))
}

// YAML writes r as YAML, redacted like JSON.
func YAML(w io.Writer, r *model.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(redact(r)); err != nil {
		return err
	}
	return enc.Close()
}

// redact returns a shallow copy of r without per-finding secret locations.
func redact(r *model.Report) *model.Report {
	out := *r
	if len(r.Secrets) > 0 && out.SecretCategories == nil {
		out.SecretCategories = secrets.CountByCategory(r.Secrets)
	}
	out.Secrets = nil
	return &out
}

// section is one titled block of a rendered report. Sections with no
// content are skipped by every renderer.
type section struct {
	id    string
	title string
	empty func(r *model.Report) bool
}

// sections is the fixed rendering order.
var sections = []section{
	{"summary", "Summary", func(r *model.Report) bool { return r.Summary == "" && len(r.ComplexityFlags) == 0 }},
	{"changelog", "Changelog", func(r *model.Report) bool { return r.Changelog.Empty() }},
	{"risk", "Risk Score", func(*model.Report) bool { return false }},
	{"secrets", "Secrets", func(r *model.Report) bool { return len(r.Secrets) == 0 && len(r.SecretCategories) == 0 }},
	{"dependencies", "Dependency Changes", func(r *model.Report) bool { return len(r.Dependencies) == 0 }},
	{"tests", "Test Suggestions", func(r *model.Report) bool { return len(r.TestSuggestions) == 0 }},
	{"checklist", "Review Checklist", func(r *model.Report) bool { return len(r.Checklist) == 0 }},
}

// changelogBuckets pairs bucket titles with their entries, in display order.
func changelogBuckets(c model.Changelog) []struct {
	title   string
	entries []string
} {
	return []struct {
		title   string
		entries []string
	}{
		{"Features", c.Features},
		{"Fixes", c.Fixes},
		{"Refactors", c.Refactors},
		{"Documentation", c.Docs},
		{"Tests", c.Tests},
	}
}

// secretCounts returns category counts in name order.
func secretCounts(r *model.Report) ([]string, map[string]int) {
	counts := r.SecretCategories
	if counts == nil {
		counts = secrets.CountByCategory(r.Secrets)
	}
	return secrets.SortedCategories(counts), counts
}

func secretTotal(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

func versionText(d model.DependencyChange) string {
	switch {
	case d.OldVersion != "" && d.NewVersion != "":
		return d.OldVersion + " -> " + d.NewVersion
	case d.NewVersion != "":
		return d.NewVersion
	default:
		return d.OldVersion
	}
}
