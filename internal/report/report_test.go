package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sprite-ai/prlens/internal/model"
)

const marker = "<!-- prlens: v1 -->"

func sampleReport() *model.Report {
	return &model.Report{
		RunID:      "rev-42",
		Repository: "acme/shop",
		PRNumber:   7,
		Summary:    "Feature addition: Modifies 2 files with 40 additions and 3 deletions.",
		Changelog: model.Changelog{
			Features: []string{"Add checkout flow"},
			Tests:    []string{"Updated tests in test_checkout.py"},
		},
		ComplexityFlags: []string{"Large file changes: checkout.py"},
		RiskScore:       55,
		RiskLevel:       "Medium Risk - Standard review process",
		RiskFactors:     []string{"Potential secrets detected: 1"},
		Secrets: []model.SecretFinding{
			{Category: "Password", Kind: "password", File: "settings.py", Line: 3, Severity: model.SeverityMedium},
		},
		Dependencies: []model.DependencyChange{
			{Package: "stripe", Manifest: "requirements.txt", OldVersion: "5.0", NewVersion: "7.1", Change: model.ChangeUpgraded, Risk: model.SeverityLow},
		},
		TestSuggestions: []model.TestSuggestion{
			{File: "checkout.py", Function: "pay", Kind: model.TestPositive, Description: "Test pay with valid inputs", Stub: "test_pay_success"},
		},
		Checklist: []model.ChecklistItem{
			{Category: "Security", Text: "Review a | b handling", Severity: model.SeverityHigh, Files: []string{"settings.py"}},
		},
		TotalFiles:     2,
		TotalAdditions: 40,
		TotalDeletions: 3,
		Timings:        []model.StageTiming{{Stage: "change_scanner", Elapsed: time.Millisecond}},
		Warnings:       map[string][]string{"reviewer": {"reviewer failed: boom"}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"md", FormatMarkdown},
		{"Markdown", FormatMarkdown},
		{"yml", FormatYAML},
		{"json", FormatJSON},
		{"html", FormatHTML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestMarkdownLayout(t *testing.T) {
	out := Markdown(sampleReport(), marker)

	lines := strings.Split(out, "\n")
	assert.Equal(t, marker, lines[0])
	assert.Equal(t, "<!-- prlens-run: rev-42 -->", lines[1])
	assert.Contains(t, out, "## PR Analysis: acme/shop#7")

	order := []string{"### Summary", "### Changelog", "### Risk Score", "### Secrets", "### Dependency Changes", "### Test Suggestions", "### Review Checklist"}
	last := -1
	for _, h := range order {
		i := strings.Index(out, h)
		require.GreaterOrEqual(t, i, 0, h)
		assert.Greater(t, i, last, "%s out of order", h)
		last = i
	}

	assert.Contains(t, out, "**55/100**: Medium Risk - Standard review process")
	assert.Contains(t, out, "| Password | 1 |")
	assert.NotContains(t, out, "settings.py | 3")
	assert.Contains(t, out, "| `stripe` | `requirements.txt` | upgraded | 5.0 -> 7.1 | low |")
	assert.Contains(t, out, `- [ ] **Security** [HIGH] Review a \| b handling (`+"`settings.py`)")
	assert.Contains(t, out, "1 analysis warning(s)")
	assert.Contains(t, out, "- `reviewer`: reviewer failed: boom")
}

func TestMarkdownOmitsEmptySections(t *testing.T) {
	r := &model.Report{RunID: "x", RiskScore: 5, RiskLevel: "Low Risk - Minimal review required"}
	out := Markdown(r, "")

	assert.True(t, strings.HasPrefix(out, "<!-- prlens-run: x -->\n## PR Analysis\n"))
	assert.Contains(t, out, "### Risk Score")
	for _, h := range []string{"Summary", "Changelog", "Secrets", "Dependency Changes", "Test Suggestions", "Review Checklist"} {
		assert.NotContains(t, out, "### "+h)
	}
	assert.NotContains(t, out, "<details>")
}

func TestMarkdownIsDeterministic(t *testing.T) {
	r := sampleReport()
	r.Warnings = map[string][]string{"reviewer": {"b"}, "change_scanner": {"a"}, "custom": {"c"}}
	first := Markdown(r, marker)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Markdown(r, marker))
	}
	a := strings.Index(first, "`change_scanner`")
	b := strings.Index(first, "`reviewer`")
	c := strings.Index(first, "`custom`")
	assert.True(t, a < b && b < c, "warnings follow stage order")
}

func TestStructuredOutputsRedactSecrets(t *testing.T) {
	r := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, r))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.NotContains(t, decoded, "secrets")
	assert.Equal(t, map[string]any{"Password": float64(1)}, decoded["secret_categories"])
	assert.Equal(t, "rev-42", decoded["run_id"])

	buf.Reset()
	require.NoError(t, YAML(&buf, r))
	var y map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &y))
	assert.NotContains(t, y, "secrets")
	assert.Equal(t, 55, y["risk_score"])

	assert.Len(t, r.Secrets, 1, "input report is left untouched")
}

func TestHTMLEscapes(t *testing.T) {
	r := sampleReport()
	r.Summary = "<script>alert(1)</script>"

	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "<h1>acme/shop#7</h1>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `<td class="risk-high">high</td>`)
	assert.True(t, strings.HasSuffix(out, "</html>\n"))
}

func TestTextSections(t *testing.T) {
	r := sampleReport()
	secs := Sections(r)

	var ids []string
	for _, s := range secs {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"summary", "changelog", "risk", "secrets", "dependencies", "tests", "checklist", "warnings"}, ids)

	out := Text(r)
	assert.Contains(t, out, "acme/shop#7")
	assert.Contains(t, out, "Dependency Changes")
	assert.Contains(t, out, "stripe")
	assert.Contains(t, out, "run rev-42")
}

func TestRenderDispatch(t *testing.T) {
	r := sampleReport()
	for _, f := range Formats() {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, f, r, marker), f)
		assert.NotEmpty(t, buf.String(), f)
	}
	assert.Error(t, Render(&bytes.Buffer{}, Format("pdf"), r, marker))
}
