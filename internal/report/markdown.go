package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sprite-ai/prlens/internal/model"
)

// RunComment returns the hidden line that records which run produced a
// published report.
func RunComment(runID string) string {
	return fmt.Sprintf("<!-- prlens-run: %s -->", runID)
}

// Markdown renders r for a pull request comment. The first line is marker.
func Markdown(r *model.Report, marker string) string {
	var b strings.Builder

	if marker != "" {
		b.WriteString(marker + "\n")
	}
	if r.RunID != "" {
		b.WriteString(RunComment(r.RunID) + "\n")
	}
	title := "PR Analysis"
	if r.Repository != "" {
		title += ": " + r.Repository
		if r.PRNumber > 0 {
			title += fmt.Sprintf("#%d", r.PRNumber)
		}
	}
	fmt.Fprintf(&b, "## %s\n\n", title)
	fmt.Fprintf(&b, "**%d file(s)** changed, **+%d** insertions, **-%d** deletions\n", r.TotalFiles, r.TotalAdditions, r.TotalDeletions)

	for _, s := range sections {
		if s.empty(r) {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n\n", s.title)
		switch s.id {
		case "summary":
			mdSummary(&b, r)
		case "changelog":
			mdChangelog(&b, r)
		case "risk":
			mdRisk(&b, r)
		case "secrets":
			mdSecrets(&b, r)
		case "dependencies":
			mdDependencies(&b, r)
		case "tests":
			mdTests(&b, r)
		case "checklist":
			mdChecklist(&b, r)
		}
	}

	if n := r.WarningCount(); n > 0 {
		fmt.Fprintf(&b, "\n<details><summary>%d analysis warning(s)</summary>\n\n", n)
		for _, stage := range sortedStages(r.Warnings) {
			for _, w := range r.Warnings[stage] {
				fmt.Fprintf(&b, "- `%s`: %s\n", stage, escapeMD(w))
			}
		}
		b.WriteString("\n</details>\n")
	}
	return b.String()
}

func mdSummary(b *strings.Builder, r *model.Report) {
	if r.Summary != "" {
		b.WriteString(escapeMD(r.Summary) + "\n")
	}
	if len(r.ComplexityFlags) > 0 {
		b.WriteString("\n")
		for _, f := range r.ComplexityFlags {
			fmt.Fprintf(b, "- %s\n", escapeMD(f))
		}
	}
}

func mdChangelog(b *strings.Builder, r *model.Report) {
	first := true
	for _, bucket := range changelogBuckets(r.Changelog) {
		if len(bucket.entries) == 0 {
			continue
		}
		if !first {
			b.WriteString("\n")
		}
		first = false
		fmt.Fprintf(b, "**%s**\n", bucket.title)
		for _, e := range bucket.entries {
			fmt.Fprintf(b, "- %s\n", escapeMD(e))
		}
	}
}

func mdRisk(b *strings.Builder, r *model.Report) {
	fmt.Fprintf(b, "**%d/100**: %s\n", r.RiskScore, r.RiskLevel)
	if len(r.RiskFactors) > 0 {
		b.WriteString("\n")
		for _, f := range r.RiskFactors {
			fmt.Fprintf(b, "- %s\n", escapeMD(f))
		}
	}
}

func mdSecrets(b *strings.Builder, r *model.Report) {
	cats, counts := secretCounts(r)
	fmt.Fprintf(b, "%d potential secret(s) found. Values are never included in this report.\n\n", secretTotal(counts))
	b.WriteString("| Category | Count |\n|----------|-------|\n")
	for _, c := range cats {
		fmt.Fprintf(b, "| %s | %d |\n", c, counts[c])
	}
}

func mdDependencies(b *strings.Builder, r *model.Report) {
	b.WriteString("| Package | Manifest | Change | Version | Risk |\n|---------|----------|--------|---------|------|\n")
	for _, d := range r.Dependencies {
		fmt.Fprintf(b, "| `%s` | `%s` | %s | %s | %s |\n", d.Package, d.Manifest, d.Change, versionText(d), d.Risk)
	}
}

func mdTests(b *strings.Builder, r *model.Report) {
	for _, t := range r.TestSuggestions {
		target := "`" + t.File + "`"
		if t.Function != "" {
			target += " `" + t.Function + "`"
		}
		fmt.Fprintf(b, "- **%s** %s: %s (`%s`)\n", t.Kind, target, escapeMD(t.Description), t.Stub)
	}
}

func mdChecklist(b *strings.Builder, r *model.Report) {
	for _, it := range r.Checklist {
		fmt.Fprintf(b, "- [ ] **%s** [%s] %s", it.Category, strings.ToUpper(it.Severity.String()), escapeMD(it.Text))
		if len(it.Files) > 0 {
			quoted := make([]string, len(it.Files))
			for i, f := range it.Files {
				quoted[i] = "`" + f + "`"
			}
			fmt.Fprintf(b, " (%s)", strings.Join(quoted, ", "))
		}
		b.WriteString("\n")
	}
}

var mdEscaper = strings.NewReplacer("|", `\|`, "<", "&lt;", ">", "&gt;")

// escapeMD keeps free text from breaking tables or opening HTML tags.
func escapeMD(s string) string {
	return mdEscaper.Replace(s)
}

// stageOrder is the execution order of the built-in stages.
var stageOrder = map[string]int{"change_scanner": 0, "risk_security": 1, "test_synthesizer": 2, "reviewer": 3}

// sortedStages orders warning keys by execution order, unknown stages last.
func sortedStages(w map[string][]string) []string {
	out := make([]string, 0, len(w))
	for stage := range w {
		out = append(out, stage)
	}
	rank := func(s string) int {
		if r, ok := stageOrder[s]; ok {
			return r
		}
		return len(stageOrder)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := rank(out[i]), rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}
