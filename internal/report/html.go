package report

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/sprite-ai/prlens/internal/model"
)

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>prlens Analysis Report</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 900px; margin: 40px auto; padding: 0 20px; background: #282a36; color: #f8f8f2; }
  h1 { color: #bd93f9; }
  h2 { color: #8be9fd; margin-top: 32px; }
  .summary { background: #343746; padding: 16px; border-radius: 8px; margin-bottom: 24px; }
  .summary span { margin-right: 24px; }
  .risk-high { color: #ff5555; font-weight: bold; }
  .risk-medium { color: #f1fa8c; }
  .risk-low { color: #8be9fd; }
  table { width: 100%; border-collapse: collapse; }
  th { text-align: left; padding: 8px 12px; background: #44475a; color: #f8f8f2; }
  td { padding: 8px 12px; border-bottom: 1px solid #44475a; }
  tr:hover { background: #343746; }
  .file { color: #8be9fd; }
  code { background: #343746; padding: 2px 6px; border-radius: 4px; font-size: 0.9em; }
  .warning { color: #ffb86c; }
  footer { margin-top: 32px; color: #6272a4; font-size: 0.85em; }
</style>
</head>
<body>
`

// HTML writes r as a standalone HTML page.
func HTML(w io.Writer, r *model.Report) error {
	var b strings.Builder
	esc := html.EscapeString

	b.WriteString(htmlHead)
	title := "prlens Analysis Report"
	if r.Repository != "" {
		title = r.Repository
		if r.PRNumber > 0 {
			title += fmt.Sprintf("#%d", r.PRNumber)
		}
	}
	fmt.Fprintf(&b, "<h1>%s</h1>\n", esc(title))
	fmt.Fprintf(&b, `<div class="summary">
  <span><strong>%d</strong> file(s) changed</span>
  <span style="color:#50fa7b">+%d</span>
  <span style="color:#ff5555">-%d</span>
  <span>Risk: <span class="%s">%d/100</span></span>
</div>
`, r.TotalFiles, r.TotalAdditions, r.TotalDeletions, scoreClass(r.RiskScore), r.RiskScore)

	for _, s := range sections {
		if s.empty(r) {
			continue
		}
		fmt.Fprintf(&b, "<h2>%s</h2>\n", s.title)
		switch s.id {
		case "summary":
			if r.Summary != "" {
				fmt.Fprintf(&b, "<p>%s</p>\n", esc(r.Summary))
			}
			htmlList(&b, r.ComplexityFlags)
		case "changelog":
			for _, bucket := range changelogBuckets(r.Changelog) {
				if len(bucket.entries) == 0 {
					continue
				}
				fmt.Fprintf(&b, "<h3>%s</h3>\n", bucket.title)
				htmlList(&b, bucket.entries)
			}
		case "risk":
			fmt.Fprintf(&b, "<p><span class=\"%s\">%d/100</span> %s</p>\n", scoreClass(r.RiskScore), r.RiskScore, esc(r.RiskLevel))
			htmlList(&b, r.RiskFactors)
		case "secrets":
			cats, counts := secretCounts(r)
			b.WriteString("<table>\n<thead><tr><th>Category</th><th>Count</th></tr></thead>\n<tbody>\n")
			for _, c := range cats {
				fmt.Fprintf(&b, "<tr><td class=\"risk-high\">%s</td><td>%d</td></tr>\n", esc(c), counts[c])
			}
			b.WriteString("</tbody></table>\n")
		case "dependencies":
			b.WriteString("<table>\n<thead><tr><th>Risk</th><th>Package</th><th>Change</th><th>Version</th><th>Manifest</th></tr></thead>\n<tbody>\n")
			for _, d := range r.Dependencies {
				fmt.Fprintf(&b, "<tr><td class=\"risk-%s\">%s</td><td><code>%s</code></td><td>%s</td><td>%s</td><td class=\"file\">%s</td></tr>\n",
					d.Risk, d.Risk, esc(d.Package), d.Change, esc(versionText(d)), esc(d.Manifest))
			}
			b.WriteString("</tbody></table>\n")
		case "tests":
			b.WriteString("<table>\n<thead><tr><th>Kind</th><th>Target</th><th>Suggestion</th></tr></thead>\n<tbody>\n")
			for _, t := range r.TestSuggestions {
				target := t.File
				if t.Function != "" {
					target += " " + t.Function
				}
				fmt.Fprintf(&b, "<tr><td>%s</td><td class=\"file\"><code>%s</code></td><td>%s</td></tr>\n", t.Kind, esc(target), esc(t.Description))
			}
			b.WriteString("</tbody></table>\n")
		case "checklist":
			b.WriteString("<table>\n<thead><tr><th>Severity</th><th>Category</th><th>Item</th></tr></thead>\n<tbody>\n")
			for _, it := range r.Checklist {
				fmt.Fprintf(&b, "<tr><td class=\"risk-%s\">%s</td><td>%s</td><td>%s</td></tr>\n", it.Severity, it.Severity, esc(it.Category), esc(it.Text))
			}
			b.WriteString("</tbody></table>\n")
		}
	}

	if r.WarningCount() > 0 {
		b.WriteString("<h2>Warnings</h2>\n<ul>\n")
		for _, stage := range sortedStages(r.Warnings) {
			for _, msg := range r.Warnings[stage] {
				fmt.Fprintf(&b, "<li class=\"warning\"><code>%s</code> %s</li>\n", esc(stage), esc(msg))
			}
		}
		b.WriteString("</ul>\n")
	}

	fmt.Fprintf(&b, "<footer>Generated by <strong>prlens</strong> run <code>%s</code></footer>\n</body>\n</html>\n", esc(r.RunID))
	_, err := io.WriteString(w, b.String())
	return err
}

func htmlList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("<ul>\n")
	for _, it := range items {
		fmt.Fprintf(b, "<li>%s</li>\n", html.EscapeString(it))
	}
	b.WriteString("</ul>\n")
}

func scoreClass(score int) string {
	switch {
	case score >= 70:
		return "risk-high"
	case score >= 40:
		return "risk-medium"
	default:
		return "risk-low"
	}
}
