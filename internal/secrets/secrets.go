// Package secrets detects likely credentials in changed lines and
// dependency manifests. Findings record where a secret is, never its value.
package secrets

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/model"
)

// DefaultMaxContentBytes is the content size above which ScanContent skips a file.
const DefaultMaxContentBytes = 1000000

type pattern struct {
	kind     string
	category string
	re       *regexp.Regexp
	severity model.Severity
}

// Patterns in reporting order.
var patterns = []pattern{
	{"aws_access_key", "AWS Access Key ID", regexp.MustCompile(`AKIA[0-9A-Z]{16}`), model.SeverityHigh},
	{"aws_secret_key", "AWS Secret Access Key", regexp.MustCompile(`[A-Za-z0-9/+=]{40}`), model.SeverityHigh},
	{"github_token", "GitHub Token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,255}`), model.SeverityHigh},
	{"slack_token", "Slack Token", regexp.MustCompile(`xox[baprs]-[0-9a-zA-Z]{10,48}`), model.SeverityMedium},
	{"private_key", "Private Key", regexp.MustCompile(`-----BEGIN [A-Z]+ PRIVATE KEY-----`), model.SeverityHigh},
	{"api_key", "Generic API Key", regexp.MustCompile(`(?i)api[_-]?key['"\s]*[:=]['"\s]*[0-9a-zA-Z_\-]{16,128}`), model.SeverityMedium},
	{"password", "Password", regexp.MustCompile(`(?i)password['"\s]*[:=]['"\s]*[0-9a-zA-Z_\-!@#$%^&*()]{8,128}`), model.SeverityMedium},
	{"jwt_token", "JWT Token", regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`), model.SeverityMedium},
	{"database_url", "Database Connection String", regexp.MustCompile(`(?i)(?:postgres|mysql|mongodb)://[a-zA-Z0-9_.-]+:[a-zA-Z0-9_.-]+@[a-zA-Z0-9_.-]+`), model.SeverityHigh},
	{"email_credentials", "Email with Password", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}:[a-zA-Z0-9_\-!@#$%^&*()]{6,}`), model.SeverityMedium},
}

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".pdf": true,
	".zip": true, ".tar": true, ".gz": true, ".exe": true, ".dll": true,
	".so": true, ".dylib": true, ".bin": true, ".dat": true, ".db": true,
}

var docExtensions = map[string]bool{".md": true, ".rst": true}

var hashComment = map[string]bool{
	".py": true, ".rb": true, ".sh": true, ".yml": true, ".yaml": true,
	".toml": true, ".cfg": true, ".ini": true, ".txt": true, ".r": true,
}

var slashComment = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".java": true, ".go": true,
	".c": true, ".cpp": true, ".h": true, ".rs": true, ".kt": true, ".swift": true,
}

var safeMarkers = []string{
	"example", "test", "mock", "fake", "dummy", "placeholder",
	"your_api_key", "insert_key_here", "replace_with",
	"xxx", "yyy", "zzz",
}

var fakeValues = map[string]bool{
	"password123": true, "apikey123": true, "secret123": true,
	"your_api_key": true, "your_password": true, "your_secret": true,
}

var testPrefixes = []string{"test_", "mock_", "fake_", "example_"}

// Scanner matches the pattern table against lines.
type Scanner struct {
	maxContentBytes int
}

// New returns a Scanner that skips content larger than maxContentBytes.
// A non-positive limit selects DefaultMaxContentBytes.
func New(maxContentBytes int) *Scanner {
	if maxContentBytes <= 0 {
		maxContentBytes = DefaultMaxContentBytes
	}
	return &Scanner{maxContentBytes: maxContentBytes}
}

// ScanContent scans every line of a whole file.
func (s *Scanner) ScanContent(content, filename string) []model.SecretFinding {
	if IsBinary(filename) || len(content) > s.maxContentBytes {
		return nil
	}
	var findings []model.SecretFinding
	for i, line := range strings.Split(content, "\n") {
		findings = append(findings, scanLine(line, filename, i+1)...)
	}
	return findings
}

// ScanDiff scans the added lines of a single-file patch, numbering findings
// by destination line.
func (s *Scanner) ScanDiff(patch, filename string) []model.SecretFinding {
	if IsBinary(filename) {
		return nil
	}
	var findings []model.SecretFinding
	diff.WalkPatch(patch, func(l diff.Line) {
		if l.Op == gitdiff.OpAdd {
			findings = append(findings, scanLine(l.Text, filename, l.Number)...)
		}
	})
	return findings
}

func scanLine(line, filename string, lineNum int) []model.SecretFinding {
	if safeLine(line, filename) {
		return nil
	}
	var findings []model.SecretFinding
	for _, p := range patterns {
		for _, match := range p.re.FindAllString(line, -1) {
			if !accept(p.kind, match, filename) {
				continue
			}
			findings = append(findings, model.SecretFinding{
				Category: p.category,
				Kind:     p.kind,
				File:     filename,
				Line:     lineNum,
				Severity: p.severity,
			})
		}
	}
	return findings
}

// IsBinary reports whether filename has a binary-looking extension.
func IsBinary(filename string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(filename))]
}

func safeLine(line, filename string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if hashComment[ext] && strings.HasPrefix(line, "#") {
		return true
	}
	if slashComment[ext] && strings.HasPrefix(line, "//") {
		return true
	}
	if strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "*") {
		return true
	}
	if docExtensions[ext] {
		return true
	}

	lower := strings.ToLower(line)
	for _, marker := range safeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func accept(kind, match, filename string) bool {
	lower := strings.ToLower(match)
	if fakeValues[lower] || fakeValues[strings.ToLower(assignedValue(match))] {
		return false
	}

	switch kind {
	case "aws_secret_key":
		if !mixedCharacters(match) {
			return false
		}
	case "jwt_token":
		if len(strings.Split(match, ".")) != 3 {
			return false
		}
	}

	if strings.Contains(strings.ToLower(filename), "test") {
		for _, p := range testPrefixes {
			if strings.Contains(lower, p) {
				return false
			}
		}
	}
	return true
}

// assignedValue returns the right-hand side of a key=value or key: value
// match, without quotes.
func assignedValue(match string) string {
	i := strings.IndexAny(match, ":=")
	if i < 0 {
		return match
	}
	return strings.Trim(match[i+1:], `'" `+"\t")
}

func mixedCharacters(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// Categories maps each pattern kind to its human-readable category.
func Categories() map[string]string {
	out := make(map[string]string, len(patterns))
	for _, p := range patterns {
		out[p.kind] = p.category
	}
	return out
}

// CountByCategory tallies findings per category.
func CountByCategory(findings []model.SecretFinding) map[string]int {
	if len(findings) == 0 {
		return nil
	}
	out := make(map[string]int)
	for _, f := range findings {
		out[f.Category]++
	}
	return out
}

// SortedCategories returns the keys of counts in alphabetical order.
func SortedCategories(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
