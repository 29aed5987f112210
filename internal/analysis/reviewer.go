package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sprite-ai/prlens/internal/deps"
	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/model"
)

// Checklist categories.
const (
	CategoryCodeQuality     = "Code Quality"
	CategorySecurity        = "Security"
	CategoryPerformance     = "Performance"
	CategoryMaintainability = "Maintainability"
	CategoryTesting         = "Testing"
	CategoryDocumentation   = "Documentation"
	CategoryBreaking        = "Breaking Changes"
	CategoryGeneral         = "General"
)

// FallbackChecklist is used in place of a reviewer result that could not be
// produced.
func FallbackChecklist() []model.ChecklistItem {
	return []model.ChecklistItem{{
		Category: CategoryGeneral,
		Text:     "Standard code review (automated analysis failed)",
		Severity: model.SeverityMedium,
	}}
}

// ReviewPayload is the reviewer's output.
type ReviewPayload struct {
	Checklist []model.ChecklistItem
}

// Counts returns the number of items per severity.
func (p *ReviewPayload) Counts() map[model.Severity]int {
	out := make(map[model.Severity]int)
	for _, it := range p.Checklist {
		out[it.Severity]++
	}
	return out
}

var (
	reviewAuthPatterns   = []string{"auth", "login", "signin", "permission", "role", "access", "security"}
	criticalFuncPatterns = []string{"core", "main", "critical", "essential", "payment", "auth", "security"}

	complexityWords = []string{
		"if", "else", "elif", "switch", "case", "for", "while", "foreach",
		"try", "catch", "except", "async", "await", "promise",
	}
	errorWords   = []string{"exception", "error", "try", "catch"}
	inputWords   = []string{"input", "request", "param", "form"}
	sqlWords     = []string{"sql", "query", "database", "db"}
	queryWords   = []string{"select", "join", "query", "fetch"}
	loopWords    = []string{"for", "while", "foreach", "map", "filter"}
	remoteWords  = []string{"http", "request", "api", "fetch", "call"}
	removedDecls = []string{"def ", "function ", "class "}
	breakingExts = map[string]bool{".py": true, ".js": true, ".ts": true, ".java": true}
)

// check is one of the reviewer's sub-analyses.
type check func(cs *model.ChangeSet) []model.ChecklistItem

// Reviewer builds a severity-ordered review checklist.
type Reviewer struct {
	checks []check
}

func NewReviewer() *Reviewer {
	return &Reviewer{checks: []check{
		codeQuality,
		securityConsiderations,
		performance,
		maintainability,
		testingCoverage,
		documentation,
		breakingChanges,
	}}
}

func (r *Reviewer) Name() string { return StageReviewer }

func (r *Reviewer) Run(in *Input) Result {
	var items []model.ChecklistItem
	for _, c := range r.checks {
		items = append(items, c(in.ChangeSet)...)
	}
	SortChecklist(items)
	return Result{Stage: r.Name(), Payload: &ReviewPayload{Checklist: items}}
}

// SortChecklist orders items high, medium, low. Items of equal severity keep
// their relative order.
func SortChecklist(items []model.ChecklistItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Severity.Rank() < items[j].Severity.Rank()
	})
}

func patchMentions(f model.FileChange, words []string) bool {
	return f.Patch != "" && containsAny(strings.ToLower(f.Patch), words)
}

func anyPatchMentions(cs *model.ChangeSet, words []string) bool {
	for _, f := range cs.Files {
		if patchMentions(f, words) {
			return true
		}
	}
	return false
}

func filesWhere(cs *model.ChangeSet, pred func(model.FileChange) bool) []string {
	var out []string
	for _, f := range cs.Files {
		if pred(f) {
			out = append(out, f.Filename)
		}
	}
	return out
}

func firstN(names []string, n int) []string {
	if len(names) > n {
		return names[:n]
	}
	return names
}

// complexLogic reports a patch with more than five control-flow lines or
// more than fifty lines overall.
func complexLogic(patch string) bool {
	if patch == "" {
		return false
	}
	lines := strings.Split(patch, "\n")
	n := 0
	for _, l := range lines {
		if containsAny(strings.ToLower(l), complexityWords) {
			n++
		}
	}
	return n > 5 || len(lines) > 50
}

func codeQuality(cs *model.ChangeSet) []model.ChecklistItem {
	var items []model.ChecklistItem

	large := filesWhere(cs, func(f model.FileChange) bool { return f.Additions+f.Deletions > largeFileLines })
	if len(large) > 0 {
		items = append(items, model.ChecklistItem{
			Category: CategoryCodeQuality,
			Text:     fmt.Sprintf("Review large changes in %d file(s) for potential refactoring opportunities", len(large)),
			Severity: model.SeverityMedium,
			Files:    firstN(large, 3),
		})
	}

	complicated := filesWhere(cs, func(f model.FileChange) bool {
		return f.Additions+f.Deletions > diff.LargeChangeLines && complexLogic(f.Patch)
	})
	if len(complicated) > 0 {
		items = append(items, model.ChecklistItem{
			Category: CategoryCodeQuality,
			Text:     "Verify complex logic changes are well-structured and readable",
			Severity: model.SeverityHigh,
			Files:    firstN(complicated, 2),
		})
	}

	if anyPatchMentions(cs, errorWords) {
		items = append(items, model.ChecklistItem{
			Category: CategoryCodeQuality,
			Text:     "Ensure proper error handling and meaningful error messages",
			Severity: model.SeverityMedium,
		})
	}

	if len(cs.Files) > 5 {
		items = append(items, model.ChecklistItem{
			Category: CategoryCodeQuality,
			Text:     "Check for potential code duplication across multiple files",
			Severity: model.SeverityLow,
		})
	}
	return items
}

func securityConsiderations(cs *model.ChangeSet) []model.ChecklistItem {
	var items []model.ChecklistItem

	if auth := filesWhere(cs, func(f model.FileChange) bool { return matches(f.Filename, reviewAuthPatterns) }); len(auth) > 0 {
		items = append(items, model.ChecklistItem{
			Category: CategorySecurity,
			Text:     "Verify authentication and authorization logic is secure and properly tested",
			Severity: model.SeverityHigh,
			Files:    auth,
		})
	}
	if anyPatchMentions(cs, inputWords) {
		items = append(items, model.ChecklistItem{
			Category: CategorySecurity,
			Text:     "Ensure all user inputs are properly validated and sanitized",
			Severity: model.SeverityHigh,
		})
	}
	if anyPatchMentions(cs, sqlWords) {
		items = append(items, model.ChecklistItem{
			Category: CategorySecurity,
			Text:     "Review database operations for SQL injection vulnerabilities",
			Severity: model.SeverityHigh,
		})
	}
	if cfg := filesWhere(cs, func(f model.FileChange) bool { return isConfigFile(f.Filename) }); len(cfg) > 0 {
		items = append(items, model.ChecklistItem{
			Category: CategorySecurity,
			Text:     "Review configuration changes for security implications",
			Severity: model.SeverityMedium,
			Files:    cfg,
		})
	}
	return items
}

func performance(cs *model.ChangeSet) []model.ChecklistItem {
	var items []model.ChecklistItem

	if anyPatchMentions(cs, queryWords) {
		items = append(items, model.ChecklistItem{
			Category: CategoryPerformance,
			Text:     "Review database queries for efficiency and proper indexing",
			Severity: model.SeverityMedium,
		})
	}
	if anyPatchMentions(cs, loopWords) {
		items = append(items, model.ChecklistItem{
			Category: CategoryPerformance,
			Text:     "Check loop implementations for performance efficiency",
			Severity: model.SeverityLow,
		})
	}
	if anyPatchMentions(cs, remoteWords) {
		items = append(items, model.ChecklistItem{
			Category: CategoryPerformance,
			Text:     "Ensure API calls are optimized and have proper timeout/retry logic",
			Severity: model.SeverityMedium,
		})
	}
	if adds := cs.TotalAdditions(); adds > veryLargeChangeLines {
		items = append(items, model.ChecklistItem{
			Category: CategoryPerformance,
			Text:     fmt.Sprintf("Large code addition (%d lines) - consider performance impact", adds),
			Severity: model.SeverityLow,
		})
	}
	return items
}

func maintainability(cs *model.ChangeSet) []model.ChecklistItem {
	var items []model.ChecklistItem

	manifest := len(cs.Dependencies) > 0
	for _, f := range cs.Files {
		manifest = manifest || deps.IsManifest(f.Filename)
	}
	if manifest {
		items = append(items, model.ChecklistItem{
			Category: CategoryMaintainability,
			Text:     "Review new dependencies for necessity and long-term maintenance",
			Severity: model.SeverityMedium,
		})
	}
	if len(cs.Files) > multipleFiles {
		items = append(items, model.ChecklistItem{
			Category: CategoryMaintainability,
			Text:     "Ensure changes maintain good code organization and separation of concerns",
			Severity: model.SeverityLow,
		})
	}
	if code := filesWhere(cs, func(f model.FileChange) bool { return isCodeFile(f.Filename) }); len(code) > 3 {
		items = append(items, model.ChecklistItem{
			Category: CategoryMaintainability,
			Text:     "Verify complex code sections have appropriate comments and documentation",
			Severity: model.SeverityLow,
		})
	}
	return items
}

func testingCoverage(cs *model.ChangeSet) []model.ChecklistItem {
	var items []model.ChecklistItem

	tests := filesWhere(cs, func(f model.FileChange) bool { return matches(f.Filename, untestedPatterns) })
	code := filesWhere(cs, func(f model.FileChange) bool {
		return isCodeFile(f.Filename) && !matches(f.Filename, untestedPatterns)
	})
	switch {
	case len(code) > 0 && len(tests) == 0:
		items = append(items, model.ChecklistItem{
			Category: CategoryTesting,
			Text:     "No test files modified - ensure adequate test coverage for new/changed code",
			Severity: model.SeverityMedium,
		})
	case len(tests) > 0 && len(tests)*2 < len(code):
		items = append(items, model.ChecklistItem{
			Category: CategoryTesting,
			Text:     "Consider adding more test coverage for the modified code",
			Severity: model.SeverityLow,
		})
	}

	if critical := filesWhere(cs, func(f model.FileChange) bool { return matches(f.Filename, criticalFuncPatterns) }); len(critical) > 0 {
		items = append(items, model.ChecklistItem{
			Category: CategoryTesting,
			Text:     "Ensure critical functionality changes have comprehensive test coverage",
			Severity: model.SeverityHigh,
			Files:    critical,
		})
	}
	return items
}

func documentation(cs *model.ChangeSet) []model.ChecklistItem {
	var items []model.ChecklistItem

	if api := filesWhere(cs, func(f model.FileChange) bool { return isAPIFile(f.Filename) }); len(api) > 0 {
		items = append(items, model.ChecklistItem{
			Category: CategoryDocumentation,
			Text:     "Update API documentation for any interface changes",
			Severity: model.SeverityMedium,
			Files:    api,
		})
	}

	pyDefs := filesWhere(cs, func(f model.FileChange) bool {
		return ext(f.Filename) == ".py" && strings.Contains(f.Patch, "def ")
	})
	if len(pyDefs) > 0 {
		items = append(items, model.ChecklistItem{
			Category: CategoryDocumentation,
			Text:     "Ensure public functions have appropriate docstrings",
			Severity: model.SeverityLow,
		})
	}

	readme := len(filesWhere(cs, func(f model.FileChange) bool { return matches(f.Filename, []string{"readme"}) })) > 0
	code := filesWhere(cs, func(f model.FileChange) bool { return isCodeFile(f.Filename) })
	if !readme && len(code) > 5 {
		items = append(items, model.ChecklistItem{
			Category: CategoryDocumentation,
			Text:     "Consider updating README or documentation for significant changes",
			Severity: model.SeverityLow,
		})
	}
	return items
}

func breakingChanges(cs *model.ChangeSet) []model.ChecklistItem {
	var items []model.ChecklistItem

	removed := filesWhere(cs, func(f model.FileChange) bool {
		if f.Patch == "" || !breakingExts[ext(f.Filename)] {
			return false
		}
		_, lines := diff.ChangedLines(f.Patch)
		for _, l := range lines {
			if containsAny(l, removedDecls) {
				return true
			}
		}
		return false
	})
	if len(removed) > 0 {
		items = append(items, model.ChecklistItem{
			Category: CategoryBreaking,
			Text:     "Verify removed/modified functions don't break existing functionality",
			Severity: model.SeverityHigh,
			Files:    removed,
		})
	}

	migrations := filesWhere(cs, func(f model.FileChange) bool {
		return matches(f.Filename, []string{"migration", ".sql"})
	})
	if len(migrations) > 0 {
		items = append(items, model.ChecklistItem{
			Category: CategoryBreaking,
			Text:     "Review database migrations for backward compatibility",
			Severity: model.SeverityHigh,
			Files:    migrations,
		})
	}

	if cfg := filesWhere(cs, func(f model.FileChange) bool { return isConfigFile(f.Filename) }); len(cfg) > 0 {
		items = append(items, model.ChecklistItem{
			Category: CategoryBreaking,
			Text:     "Ensure configuration changes maintain backward compatibility",
			Severity: model.SeverityMedium,
		})
	}
	return items
}
