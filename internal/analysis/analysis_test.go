package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/model"
)

func testOptions() Options {
	return Options{Logger: zerolog.Nop()}
}

// loginPatch builds a 120-line patch for a new Python login module.
func loginPatch() string {
	var b strings.Builder
	b.WriteString("@@ -0,0 +1,120 @@\n")
	b.WriteString("+def login(username, credentials):\n")
	b.WriteString("+    user = lookup(username)\n")
	for i := 0; i < 117; i++ {
		fmt.Fprintf(&b, "+    step_%d = compute(user, %d)\n", i, i)
	}
	b.WriteString("+    return user\n")
	return b.String()
}

func loginChangeSet() *model.ChangeSet {
	patch := loginPatch()
	return &model.ChangeSet{
		Repository: "acme/web",
		PRNumber:   7,
		Title:      "Add login endpoint",
		Files: []model.FileChange{{
			Filename:  "auth/login.py",
			Status:    model.StatusAdded,
			Additions: 120,
			Changes:   120,
			Patch:     patch,
		}},
		RawDiff: "diff --git a/auth/login.py b/auth/login.py\nnew file mode 100644\n--- /dev/null\n+++ b/auth/login.py\n" + patch,
	}
}

func runAll(t *testing.T, cs *model.ChangeSet) map[string]Result {
	t.Helper()
	in := &Input{ChangeSet: cs, Diff: diff.Parse(cs.RawDiff)}
	out := make(map[string]Result)
	for _, s := range Stages(testOptions()) {
		res := s.Run(in)
		if sec, ok := res.Payload.(*SecurityPayload); ok {
			in.Security = sec
		}
		out[s.Name()] = res
	}
	return out
}

func TestStagesOrder(t *testing.T) {
	var names []string
	for _, s := range Stages(testOptions()) {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{StageChangeScanner, StageRiskSecurity, StageTestSynthesizer, StageReviewer}, names)
}

func TestLoginEndToEnd(t *testing.T) {
	results := runAll(t, loginChangeSet())

	scan := results[StageChangeScanner].Payload.(*ScanPayload)
	assert.NotEmpty(t, scan.Changelog.Features)
	assert.Contains(t, scan.Changelog.Features, "Added new file: auth/login.py")
	assert.Equal(t, "Feature addition: Modifies 1 Python file adding 120 lines.", scan.Summary)

	sec := results[StageRiskSecurity].Payload.(*SecurityPayload)
	assert.Empty(t, sec.Secrets)
	assert.Equal(t, 10, sec.Score)
	assert.Equal(t, 1, sec.Factors.SecurityFiles)
	assert.Contains(t, sec.Narrative, "Authentication/authorization files modified: 1 files")

	review := results[StageReviewer].Payload.(*ReviewPayload)
	found := false
	for _, it := range review.Checklist {
		if it.Category == CategorySecurity && it.Severity == model.SeverityHigh {
			for _, f := range it.Files {
				found = found || f == "auth/login.py"
			}
		}
	}
	assert.True(t, found, "expected a high severity security item for auth/login.py")

	tests := results[StageTestSynthesizer].Payload.(*TestPayload)
	var loginTests int
	for _, s := range tests.Suggestions {
		if s.Function == "login" {
			loginTests++
		}
	}
	assert.GreaterOrEqual(t, loginTests, 2)
	assert.Equal(t, 1, tests.FilesAnalyzed)

	for name, res := range results {
		assert.Empty(t, res.Warnings, name)
	}
}

func TestSummaryParts(t *testing.T) {
	cs := &model.ChangeSet{
		Title: "Fix flaky retry",
		Files: []model.FileChange{
			{Filename: "svc/retry.go", Status: model.StatusModified, Additions: 10, Deletions: 4},
			{Filename: "svc/retry_test.go", Status: model.StatusModified, Additions: 6},
			{Filename: "deploy/values.yaml", Status: model.StatusModified, Deletions: 1},
		},
	}
	got := summarize(cs, nil)
	assert.Equal(t, "Bug fix: Modifies 3 files with 16 additions and 5 deletions, including 1 test file(s) and 1 configuration file(s).", got)

	cs = &model.ChangeSet{Files: []model.FileChange{{Filename: "old.rs", Deletions: 9}}}
	assert.Equal(t, "Modifies 1 Unknown file removing 9 lines.", summarize(cs, nil))
}

func TestPrimaryLanguage(t *testing.T) {
	assert.Equal(t, "Unknown", primaryLanguage(nil))
	assert.Equal(t, "Go", primaryLanguage(map[string]int{"Go": 10, "Python": 3}))
	assert.Equal(t, "Go", primaryLanguage(map[string]int{"Python": 5, "Go": 5}))
}

func TestChangelogBuckets(t *testing.T) {
	cs := &model.ChangeSet{
		Title: "Refactor parser",
		Body:  "Also resolves #12",
		Files: []model.FileChange{
			{Filename: "tests/test_parser.py", Status: model.StatusAdded, Additions: 30},
			{Filename: "pkg/lexer_test.go", Status: model.StatusModified, Additions: 2, Deletions: 5},
			{Filename: "docs/parser.md", Status: model.StatusModified, Additions: 3},
			{Filename: "README.md", Status: model.StatusAdded, Additions: 3},
			{Filename: "parser/ast.py", Status: model.StatusAdded, Additions: 40},
		},
	}
	cl := changelog(cs)
	assert.Equal(t, []string{"Fixed issue: Refactor parser"}, cl.Fixes)
	assert.Equal(t, []string{"Code refactoring: Refactor parser"}, cl.Refactors)
	assert.Equal(t, []string{"Added test file: tests/test_parser.py"}, cl.Tests)
	assert.Equal(t, []string{"Updated documentation: docs/parser.md", "Added documentation: README.md"}, cl.Docs)
	assert.Equal(t, []string{"Added new file: parser/ast.py"}, cl.Features)
}

func TestComplexityFlags(t *testing.T) {
	var files []model.FileChange
	files = append(files,
		model.FileChange{Filename: "core/engine.go", Additions: 400, Deletions: 200},
		model.FileChange{Filename: "Dockerfile", Additions: 3},
		model.FileChange{Filename: "assets/logo.png"},
	)
	for i := 0; i < 10; i++ {
		files = append(files, model.FileChange{Filename: fmt.Sprintf("pkg/f%d.txt", i), Additions: 1})
	}
	cs := &model.ChangeSet{Files: files}

	flags := complexityFlags(cs, &diff.Model{}, []model.Hotspot{{File: "core/engine.go"}})
	assert.Equal(t, []string{
		"Large change: 613 total lines modified",
		"Large single file change: core/engine.go (600 lines)",
		"Multiple files changed: 13 files",
		"Binary files changed: 1 files",
		"Critical system files modified: Dockerfile",
		"Code hotspots detected: 1 files with high complexity",
	}, flags)
}

func TestMalformedManifestWarnsOnce(t *testing.T) {
	cs := loginChangeSet()
	cs.Files = append(cs.Files, model.FileChange{
		Filename:  "package.json",
		Status:    model.StatusModified,
		Additions: 1,
		Patch:     "@@ -1,1 +1,1 @@\n+    \"left-pad\": \"1.3.0\"\n",
	})
	cs.Dependencies = map[string]string{"package.json": `{"dependencies": {`}

	results := runAll(t, cs)
	assert.Len(t, results[StageRiskSecurity].Warnings, 1)
	assert.Contains(t, results[StageRiskSecurity].Warnings[0], "package.json")

	sec := results[StageRiskSecurity].Payload.(*SecurityPayload)
	assert.Empty(t, sec.Dependencies)
	for _, name := range []string{StageChangeScanner, StageTestSynthesizer, StageReviewer} {
		assert.NotNil(t, results[name].Payload, name)
		assert.Empty(t, results[name].Warnings, name)
	}
}

func TestRiskSecurityDependenciesAndSecrets(t *testing.T) {
	reqPatch := "@@ -1,1 +1,2 @@\n requests==2.31.0\n+cryptography==41.0.0\n"
	cfgPatch := "@@ -10,0 +10,2 @@\n+password = \"Sup3rSecret!\"\n+ssl_verify = true\n"
	cs := &model.ChangeSet{
		Files: []model.FileChange{
			{Filename: "requirements.txt", Status: model.StatusModified, Additions: 1, Patch: reqPatch},
			{Filename: "config/app.ini", Status: model.StatusModified, Additions: 2, Patch: cfgPatch},
		},
		Dependencies: map[string]string{"requirements.txt": "requests==2.31.0\ncryptography==41.0.0\n"},
	}

	res := NewRiskSecurity(testOptions()).Run(&Input{ChangeSet: cs, Diff: &diff.Model{}})
	require.Empty(t, res.Warnings)
	p := res.Payload.(*SecurityPayload)

	require.Len(t, p.Dependencies, 1)
	assert.Equal(t, "cryptography", p.Dependencies[0].Package)
	assert.Equal(t, 1, p.HighRiskDependencies())

	require.Len(t, p.Secrets, 1)
	assert.Equal(t, "config/app.ini", p.Secrets[0].File)

	assert.Equal(t, 1, p.Factors.SecurityConfigFiles)
	// secrets 25 + high-risk dependency 15 + security config 12
	assert.Equal(t, 52, p.Score)
	assert.Equal(t, []string{
		"Potential secrets detected: 1 occurrences",
		"High-risk dependency changes: 1 packages",
		"Security configuration changes detected in: config/app.ini",
	}, p.Narrative)
}

func TestManifestsWithoutContent(t *testing.T) {
	cs := &model.ChangeSet{
		Files: []model.FileChange{
			{Filename: "go.mod", Patch: "@@ -1 +1 @@\n+require example.com/x v1.0.0\n"},
			{Filename: "main.go", Patch: "@@ -1 +1 @@\n+package main\n"},
			{Filename: "package.json"},
		},
		Dependencies: map[string]string{"Cargo.toml": "[dependencies]\n", "empty.txt": ""},
	}
	got := manifests(cs)
	require.Len(t, got, 2)
	assert.Equal(t, "Cargo.toml", got[0].name)
	assert.Equal(t, "go.mod", got[1].name)
	assert.Empty(t, got[1].content)
}

func TestTestSynthesizerSuggestions(t *testing.T) {
	patch := `@@ -1,4 +1,8 @@
+def parse_items(items_list, count):
+    try:
+        return [validate(i) for i in items_list[:count]]
+    except ValueError:
+        raise
+def _private_helper(name):
+    pass
-def old_entry(path):
`
	cs := &model.ChangeSet{Files: []model.FileChange{
		{Filename: "lib/items.py", Status: model.StatusModified, Patch: patch},
		{Filename: "tests/test_items.py", Status: model.StatusModified, Patch: patch},
		{Filename: "lib/settings.py", Status: model.StatusModified, Patch: patch},
		{Filename: "README.md", Status: model.StatusModified, Patch: patch},
	}}

	res := NewTestSynthesizer(testOptions()).Run(&Input{ChangeSet: cs, Diff: &diff.Model{}})
	p := res.Payload.(*TestPayload)
	assert.Equal(t, 1, p.FilesAnalyzed)
	assert.Equal(t, 2, p.Functions)

	var descs []string
	for _, s := range p.Suggestions {
		assert.Equal(t, "lib/items.py", s.File)
		assert.NotEqual(t, "_private_helper", s.Function)
		descs = append(descs, s.Description)
	}
	assert.Equal(t, []string{
		"Test parse_items with valid inputs",
		"Test parse_items with invalid inputs",
		"Test parse_items with boundary values",
		"Test parse_items with empty collections",
		"Test old_entry with valid inputs",
		"Test old_entry with invalid inputs",
		"Test old_entry with empty/null strings",
		"Test error handling and exception cases",
		"Test validation logic with various input scenarios",
	}, descs)
}

func TestTestSynthesizerIntegrationAndCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("@@ -0,0 +1,30 @@\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "+func Handler%d(w io.Writer) {\n", i)
	}
	cs := &model.ChangeSet{Files: []model.FileChange{
		{Filename: "api/handlers.go", Status: model.StatusAdded, Patch: b.String()},
	}}

	res := NewTestSynthesizer(Options{MaxSuggestions: 5}).Run(&Input{ChangeSet: cs})
	p := res.Payload.(*TestPayload)
	require.Len(t, p.Suggestions, 5)
	assert.Equal(t, "test_Handler0_valid_input()", p.Suggestions[0].Stub)

	res = NewTestSynthesizer(testOptions()).Run(&Input{ChangeSet: cs})
	p = res.Payload.(*TestPayload)
	assert.Len(t, p.Suggestions, DefaultMaxSuggestions)

	one := suggestForFile(model.FileChange{Filename: "pkg/new.go", Status: model.StatusAdded, Patch: "@@ -0,0 +1 @@\n+package pkg\n"})
	require.Len(t, one, 1)
	assert.Equal(t, model.TestIntegration, one[0].Kind)
	assert.Equal(t, "test_pkg_new_go_integration()", one[0].Stub)
}

func TestDedupeKeepsFirst(t *testing.T) {
	a := model.TestSuggestion{File: "a.py", Kind: model.TestNegative, Description: "x", Rationale: "first"}
	b := a
	b.Rationale = "second"
	c := a
	c.Function = "f"
	got := dedupe([]model.TestSuggestion{a, b, c})
	assert.Equal(t, []model.TestSuggestion{a, c}, got)
}

func TestReviewerOrdering(t *testing.T) {
	cs := &model.ChangeSet{Files: []model.FileChange{
		{Filename: "app/views.py", Status: model.StatusModified, Additions: 20, Deletions: 4,
			Patch: "@@ -1,2 +1,2 @@\n-def render(request):\n+def render(request, form):\n"},
		{Filename: "db/migrations/0002.sql", Status: model.StatusAdded, Additions: 5,
			Patch: "@@ -0,0 +1 @@\n+ALTER TABLE users ADD COLUMN age int;\n"},
		{Filename: "config/app.yaml", Status: model.StatusModified, Additions: 1,
			Patch: "@@ -1 +1 @@\n+debug: false\n"},
	}}
	res := NewReviewer().Run(&Input{ChangeSet: cs})
	items := res.Payload.(*ReviewPayload).Checklist
	require.NotEmpty(t, items)

	for i := 1; i < len(items); i++ {
		assert.LessOrEqual(t, items[i-1].Severity.Rank(), items[i].Severity.Rank(), "item %d out of order", i)
	}

	var texts []string
	for _, it := range items {
		texts = append(texts, it.Text)
	}
	assert.Equal(t, []string{
		"Ensure all user inputs are properly validated and sanitized",
		"Verify removed/modified functions don't break existing functionality",
		"Review database migrations for backward compatibility",
		"Review configuration changes for security implications",
		"Ensure API calls are optimized and have proper timeout/retry logic",
		"No test files modified - ensure adequate test coverage for new/changed code",
		"Update API documentation for any interface changes",
		"Ensure configuration changes maintain backward compatibility",
		"Check loop implementations for performance efficiency",
		"Ensure public functions have appropriate docstrings",
	}, texts)
}

func TestSortChecklistIsStable(t *testing.T) {
	items := []model.ChecklistItem{
		{Text: "l1", Severity: model.SeverityLow},
		{Text: "h1", Severity: model.SeverityHigh},
		{Text: "m1", Severity: model.SeverityMedium},
		{Text: "h2", Severity: model.SeverityHigh},
		{Text: "l2", Severity: model.SeverityLow},
	}
	SortChecklist(items)
	var got []string
	for _, it := range items {
		got = append(got, it.Text)
	}
	assert.Equal(t, []string{"h1", "h2", "m1", "l1", "l2"}, got)
}

func TestComplexLogic(t *testing.T) {
	assert.False(t, complexLogic(""))
	assert.True(t, complexLogic(strings.Repeat("+if x:\n", 6)))
	assert.False(t, complexLogic(strings.Repeat("+x = 1\n", 10)))
	assert.True(t, complexLogic(strings.Repeat("+x = 1\n", 51)))
}

func TestFallbackChecklist(t *testing.T) {
	items := FallbackChecklist()
	require.Len(t, items, 1)
	assert.Equal(t, CategoryGeneral, items[0].Category)
	assert.Equal(t, model.SeverityMedium, items[0].Severity)
}

func TestClassifiers(t *testing.T) {
	assert.True(t, isTestFile("src/__tests__/a.js"))
	assert.True(t, isConfigFile(".env.production"))
	assert.True(t, isDocFile("docs/guide.html"))
	assert.True(t, isDocFile("CHANGES.rst"))
	assert.True(t, isSensitiveFile("internal/session/store.go"))
	assert.True(t, isDeploymentFile("infra/main.tf"))
	assert.True(t, isDatabaseFile("app/models/user.py"))
	assert.False(t, isSecurityConfig("config/app.yaml", "+debug: true\n"))
	assert.True(t, isSecurityConfig("config/app.yaml", "+tls: on\n"))
	assert.True(t, isBinaryFile(&diff.Model{Files: []diff.FileDiff{{Filename: "blob", IsBinary: true}}}, "blob"))
	assert.False(t, isBinaryFile(nil, "main.go"))
}
