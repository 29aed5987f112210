package analysis

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/model"
)

// TestPayload is the test synthesizer's output.
type TestPayload struct {
	Suggestions   []model.TestSuggestion
	FilesAnalyzed int
	// Functions counts distinct functions with at least one kept suggestion.
	Functions int
}

var (
	untestedPatterns = []string{"test_", "_test.", "tests/", "spec_", "_spec.", "__tests__/"}
	skipPatterns     = []string{"config", "settings", "__init__", "migrations/", "docs/"}

	numericHints    = []string{"int", "float", "number", "count", "size", "length", "index"}
	stringHints     = []string{"str", "string", "text", "name", "message", "path"}
	collectionHints = []string{"list", "array", "dict", "map", "set", "collection"}
)

// patchRule emits one suggestion when a patch mentions any of its keywords.
type patchRule struct {
	keywords    []string
	kind        model.TestKind
	description string
	rationale   string
	stub        string
}

var patchRules = []patchRule{
	{
		keywords:    []string{"try:", "except:", "catch", "throw", "error"},
		kind:        model.TestNegative,
		description: "Test error handling and exception cases",
		rationale:   "Code contains error handling that should be tested",
		stub:        "test_error_handling()",
	},
	{
		keywords:    []string{"select", "insert", "update", "delete", "query"},
		kind:        model.TestIntegration,
		description: "Test database operations with mocked/test database",
		rationale:   "Database operations require integration testing",
		stub:        "test_database_operations()",
	},
	{
		keywords:    []string{"request", "response", "api", "http", "fetch"},
		kind:        model.TestIntegration,
		description: "Test API interactions with mocked responses",
		rationale:   "External API calls should be tested with mocked responses",
		stub:        "test_api_interactions()",
	},
	{
		keywords:    []string{"file", "read", "write", "open", "save"},
		kind:        model.TestIntegration,
		description: "Test file operations with temporary files",
		rationale:   "File operations should be tested with controlled file system state",
		stub:        "test_file_operations()",
	},
	{
		keywords:    []string{"validate", "check", "verify", "assert"},
		kind:        model.TestPositive,
		description: "Test validation logic with various input scenarios",
		rationale:   "Validation logic requires comprehensive input testing",
		stub:        "test_validation_logic()",
	},
}

// TestSynthesizer proposes tests for changed source files.
type TestSynthesizer struct {
	max int
	log zerolog.Logger
}

func NewTestSynthesizer(opts Options) *TestSynthesizer {
	return &TestSynthesizer{max: opts.maxSuggestions(), log: opts.Logger}
}

func (s *TestSynthesizer) Name() string { return StageTestSynthesizer }

func (s *TestSynthesizer) Run(in *Input) Result {
	var all []model.TestSuggestion
	analyzed := 0
	for _, f := range in.ChangeSet.Files {
		if !isTestable(f.Filename) {
			continue
		}
		analyzed++
		all = append(all, suggestForFile(f)...)
	}

	kept := dedupe(all)
	if len(kept) > s.max {
		s.log.Debug().Int("suggestions", len(kept)).Int("max", s.max).Msg("truncating test suggestions")
		kept = kept[:s.max]
	}

	funcs := make(map[string]bool)
	for _, t := range kept {
		if t.Function != "" {
			funcs[t.File+"\x00"+t.Function] = true
		}
	}

	return Result{
		Stage: s.Name(),
		Payload: &TestPayload{
			Suggestions:   kept,
			FilesAnalyzed: analyzed,
			Functions:     len(funcs),
		},
	}
}

func isTestable(filename string) bool {
	if matches(filename, untestedPatterns) {
		return false
	}
	if !diff.HasSignatures(filename) {
		return false
	}
	return !matches(filename, skipPatterns)
}

func suggestForFile(f model.FileChange) []model.TestSuggestion {
	if f.Patch == "" {
		return nil
	}

	var out []model.TestSuggestion
	for _, fl := range diff.FunctionLines(f.Filename, f.Patch) {
		if strings.HasPrefix(fl.Name, "_") {
			continue
		}
		out = append(out, suggestForFunction(f.Filename, fl.Name, fl.Text)...)
	}

	if f.Status == model.StatusAdded {
		stub := strings.NewReplacer(".", "_", "/", "_").Replace(f.Filename)
		out = append(out, model.TestSuggestion{
			File:        f.Filename,
			Kind:        model.TestIntegration,
			Description: "Integration tests for new file " + f.Filename,
			Rationale:   "New files should have comprehensive test coverage",
			Stub:        fmt.Sprintf("test_%s_integration()", stub),
		})
	}

	patch := strings.ToLower(f.Patch)
	for _, r := range patchRules {
		if containsAny(patch, r.keywords) {
			out = append(out, model.TestSuggestion{
				File:        f.Filename,
				Kind:        r.kind,
				Description: r.description,
				Rationale:   r.rationale,
				Stub:        r.stub,
			})
		}
	}
	return out
}

func suggestForFunction(file, fn, line string) []model.TestSuggestion {
	out := []model.TestSuggestion{
		{
			File:        file,
			Function:    fn,
			Kind:        model.TestPositive,
			Description: fmt.Sprintf("Test %s with valid inputs", fn),
			Rationale:   "Ensure function works correctly with expected inputs",
			Stub:        fmt.Sprintf("test_%s_valid_input()", fn),
		},
		{
			File:        file,
			Function:    fn,
			Kind:        model.TestNegative,
			Description: fmt.Sprintf("Test %s with invalid inputs", fn),
			Rationale:   "Verify proper error handling for invalid inputs",
			Stub:        fmt.Sprintf("test_%s_invalid_input()", fn),
		},
	}

	sig := strings.ToLower(line)
	boundary := func(description, rationale, stub string) {
		out = append(out, model.TestSuggestion{
			File:        file,
			Function:    fn,
			Kind:        model.TestBoundary,
			Description: fmt.Sprintf(description, fn),
			Rationale:   rationale,
			Stub:        fmt.Sprintf(stub, fn),
		})
	}
	if containsAny(sig, numericHints) {
		boundary("Test %s with boundary values",
			"Numeric parameters should be tested with min/max/zero values",
			"test_%s_boundary_values()")
	}
	if containsAny(sig, stringHints) {
		boundary("Test %s with empty/null strings",
			"String parameters should be tested with empty and null values",
			"test_%s_empty_strings()")
	}
	if containsAny(sig, collectionHints) {
		boundary("Test %s with empty collections",
			"Collection parameters should be tested with empty lists/arrays",
			"test_%s_empty_collections()")
	}
	return out
}

// dedupe keeps the first suggestion per (file, function, kind, description).
func dedupe(in []model.TestSuggestion) []model.TestSuggestion {
	type key struct {
		file, fn    string
		kind        model.TestKind
		description string
	}
	seen := make(map[key]bool, len(in))
	out := make([]model.TestSuggestion, 0, len(in))
	for _, t := range in {
		k := key{t.File, t.Function, t.Kind, t.Description}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}
