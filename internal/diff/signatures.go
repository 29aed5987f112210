package diff

import (
	"path/filepath"
	"regexp"
	"strings"
)

// funcPattern extracts a function name from one source line. The name is the
// first non-empty capture group.
type funcPattern struct {
	re *regexp.Regexp
	// cLike patterns also match call statements, so lines opening with a
	// control keyword are rejected.
	cLike bool
}

var (
	pyFunc   = funcPattern{re: regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(`)}
	rbFunc   = funcPattern{re: regexp.MustCompile(`^\s*def\s+(?:self\.)?(\w+[?!]?)`)}
	goFunc   = funcPattern{re: regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?(\w+)\s*[\[(]`)}
	rustFunc = funcPattern{re: regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+(\w+)`)}
	jsFunc   = funcPattern{re: regexp.MustCompile(
		`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*\(` +
			`|^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>|\w+\s*=>)`)}
	javaFunc = funcPattern{re: regexp.MustCompile(
		`^\s*(?:(?:public|private|protected|static|final|abstract|synchronized)\s+)*(?:[\w<>\[\],]+\s+)+(\w+)\s*\([^;]*$`), cLike: true}
	cFunc = funcPattern{re: regexp.MustCompile(
		`^\s*(?:(?:static|inline|extern|virtual|const|unsigned)\s+)*(?:[\w:<>]+[\s*&]+)+(\w+)\s*\([^;]*$`), cLike: true}
)

// funcPatterns maps a lowercase file extension to its signature pattern.
var funcPatterns = map[string]funcPattern{
	".py":   pyFunc,
	".rb":   rbFunc,
	".go":   goFunc,
	".rs":   rustFunc,
	".js":   jsFunc,
	".jsx":  jsFunc,
	".mjs":  jsFunc,
	".ts":   jsFunc,
	".tsx":  jsFunc,
	".java": javaFunc,
	".kt":   javaFunc,
	".c":    cFunc,
	".h":    cFunc,
	".cc":   cFunc,
	".cpp":  cFunc,
	".hpp":  cFunc,
}

var controlWords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true,
	"catch": true, "else": true, "new": true, "throw": true, "sizeof": true,
	"delete": true, "case": true, "do": true, "try": true,
}

// HasSignatures reports whether filename has a function-signature pattern.
func HasSignatures(filename string) bool {
	_, ok := funcPatterns[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// FunctionName returns the function declared on line, if any, using the
// pattern for filename's extension.
func FunctionName(filename, line string) (string, bool) {
	p, ok := funcPatterns[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", false
	}
	m := p.re.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	if p.cLike {
		fields := strings.Fields(line)
		if len(fields) > 0 && controlWords[strings.TrimRight(fields[0], "(")] {
			return "", false
		}
	}
	for _, g := range m[1:] {
		if g != "" {
			if controlWords[g] {
				return "", false
			}
			return g, true
		}
	}
	return "", false
}
