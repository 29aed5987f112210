package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/sprite-ai/prlens/internal/model"
)

// Section is one titled block of a report rendered for the terminal.
type Section struct {
	ID    string
	Title string
	Lines []string
}

// Sections renders the non-empty sections of r, styled for a terminal, in
// display order.
func Sections(r *model.Report) []Section {
	var out []Section
	for _, s := range sections {
		if s.empty(r) {
			continue
		}
		var lines []string
		switch s.id {
		case "summary":
			lines = textSummary(r)
		case "changelog":
			lines = textChangelog(r)
		case "risk":
			lines = textRisk(r)
		case "secrets":
			lines = textSecrets(r)
		case "dependencies":
			lines = textDependencies(r)
		case "tests":
			lines = textTests(r)
		case "checklist":
			lines = textChecklist(r)
		}
		out = append(out, Section{ID: s.id, Title: s.title, Lines: lines})
	}
	if r.WarningCount() > 0 {
		var lines []string
		for _, stage := range sortedStages(r.Warnings) {
			for _, w := range r.Warnings[stage] {
				lines = append(lines, warningStyle.Render("! ")+dimStyle.Render(stage+": ")+w)
			}
		}
		out = append(out, Section{ID: "warnings", Title: "Warnings", Lines: lines})
	}
	return out
}

// Header returns the one-line overview printed above the sections.
func Header(r *model.Report) string {
	name := "prlens report"
	if r.Repository != "" {
		name = r.Repository
		if r.PRNumber > 0 {
			name += fmt.Sprintf("#%d", r.PRNumber)
		}
	}
	return fmt.Sprintf("%s  %d file(s) changed, %s %s  risk %s",
		titleStyle.Render(name),
		r.TotalFiles,
		addedStyle.Render(fmt.Sprintf("+%d", r.TotalAdditions)),
		deletedStyle.Render(fmt.Sprintf("-%d", r.TotalDeletions)),
		ScoreStyle(r.RiskScore).Render(fmt.Sprintf("%d/100", r.RiskScore)))
}

// Text renders r for a terminal.
func Text(r *model.Report) string {
	var b strings.Builder
	b.WriteString(Header(r) + "\n")
	for _, s := range Sections(r) {
		b.WriteString(sectionStyle.Render(s.Title) + "\n")
		for _, l := range s.Lines {
			b.WriteString("  " + l + "\n")
		}
	}
	if len(r.Timings) > 0 {
		parts := make([]string, len(r.Timings))
		for i, t := range r.Timings {
			parts[i] = fmt.Sprintf("%s %s", t.Stage, t.Elapsed.Round(time.Microsecond))
		}
		b.WriteString("\n" + dimStyle.Render("run "+r.RunID+" in "+r.Duration.Round(time.Microsecond).String()+" ("+strings.Join(parts, ", ")+")") + "\n")
	}
	return b.String()
}

func textSummary(r *model.Report) []string {
	var lines []string
	if r.Summary != "" {
		lines = append(lines, r.Summary)
	}
	for _, f := range r.ComplexityFlags {
		lines = append(lines, warningStyle.Render("* ")+f)
	}
	for _, h := range r.Hotspots {
		lines = append(lines, fmt.Sprintf("%s %s (%s)", dimStyle.Render("hotspot"), fileStyle.Render(h.File), strings.Join(h.Reasons, "; ")))
	}
	return lines
}

func textChangelog(r *model.Report) []string {
	var lines []string
	for _, bucket := range changelogBuckets(r.Changelog) {
		for _, e := range bucket.entries {
			lines = append(lines, dimStyle.Render(bucket.title+":")+" "+e)
		}
	}
	return lines
}

func textRisk(r *model.Report) []string {
	lines := []string{ScoreStyle(r.RiskScore).Render(fmt.Sprintf("%d/100", r.RiskScore)) + " " + r.RiskLevel}
	for _, f := range r.RiskFactors {
		lines = append(lines, "- "+f)
	}
	return lines
}

func textSecrets(r *model.Report) []string {
	cats, counts := secretCounts(r)
	lines := []string{highStyle.Render(fmt.Sprintf("%d potential secret(s)", secretTotal(counts)))}
	for _, c := range cats {
		lines = append(lines, fmt.Sprintf("%-28s %d", c, counts[c]))
	}
	return lines
}

func textDependencies(r *model.Report) []string {
	lines := make([]string, 0, len(r.Dependencies))
	for _, d := range r.Dependencies {
		lines = append(lines, fmt.Sprintf("%s %s %s %s %s",
			SeverityStyle(d.Risk).Render(fmt.Sprintf("%-6s", d.Risk)),
			fmt.Sprintf("%-10s", d.Change),
			d.Package,
			versionText(d),
			dimStyle.Render("("+d.Manifest+")")))
	}
	return lines
}

func textTests(r *model.Report) []string {
	lines := make([]string, 0, len(r.TestSuggestions))
	for _, t := range r.TestSuggestions {
		target := fileStyle.Render(t.File)
		if t.Function != "" {
			target += " " + t.Function
		}
		lines = append(lines, fmt.Sprintf("%-11s %s: %s", t.Kind, target, t.Description))
	}
	return lines
}

func textChecklist(r *model.Report) []string {
	lines := make([]string, 0, len(r.Checklist))
	for _, it := range r.Checklist {
		l := fmt.Sprintf("[ ] %s %s: %s", SeverityStyle(it.Severity).Render(strings.ToUpper(it.Severity.String())), it.Category, it.Text)
		if len(it.Files) > 0 {
			l += " " + dimStyle.Render(strings.Join(it.Files, ", "))
		}
		lines = append(lines, l)
	}
	return lines
}
