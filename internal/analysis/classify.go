package analysis

import (
	"path/filepath"
	"strings"

	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/secrets"
)

// File classification by lowercase substring of the path.
var (
	testPatterns = []string{
		"test_", "_test.", "tests/", "/test/", ".test.",
		"spec_", "_spec.", "specs/", "/spec/", ".spec.", "__tests__/",
	}
	configPatterns = []string{
		".env", ".ini", ".conf", ".config", "config.", "settings",
		".yml", ".yaml", ".json", ".toml", "docker", "makefile",
	}
	securityPatterns = []string{
		"security", "sec_", "crypto", "encryption", "decrypt",
		"certificate", "cert", "ssl", "tls", "key", "token",
		"password", "passwd", "secret", "private",
	}
	authPatterns = []string{
		"auth", "login", "logout", "signin", "signup",
		"permission", "role", "access", "oauth", "jwt",
		"session", "guards/",
	}
	databasePatterns = []string{
		"migration", "migrate", "schema", "database", "db_",
		".sql", "models/", "entity/", "repository/",
	}
	deploymentPatterns = []string{
		"dockerfile", "docker-compose", ".github/workflows",
		"deploy", "terraform", ".tf", "kubernetes", "k8s", "helm", "ansible",
	}
	criticalPatterns = []string{
		"dockerfile", "docker-compose", ".github/workflows/",
		"security", "auth", "login", "password", "secret",
		"deploy", "production", "database", "migration",
	}
	apiPatterns = []string{"api", "endpoint", "route", "controller", "handler", "view"}

	// Keywords that make a config change security-relevant.
	securityConfigKeywords = []string{"password", "secret", "key", "token", "auth", "security", "ssl", "tls"}
)

var docDirs = []string{"docs/", "doc/", "documentation/"}

var docExtensions = map[string]bool{
	".md": true, ".rst": true, ".txt": true, ".pdf": true, ".doc": true, ".docx": true, ".adoc": true,
}

var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".java": true,
	".go": true, ".rs": true, ".cpp": true, ".cc": true, ".c": true, ".h": true,
	".rb": true, ".php": true, ".swift": true, ".kt": true, ".scala": true, ".cs": true,
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func matches(filename string, patterns []string) bool {
	return containsAny(strings.ToLower(filename), patterns)
}

func ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func isTestFile(name string) bool       { return matches(name, testPatterns) }
func isConfigFile(name string) bool     { return matches(name, configPatterns) }
func isSecurityFile(name string) bool   { return matches(name, securityPatterns) }
func isAuthFile(name string) bool       { return matches(name, authPatterns) }
func isDatabaseFile(name string) bool   { return matches(name, databasePatterns) }
func isDeploymentFile(name string) bool { return matches(name, deploymentPatterns) }
func isCriticalFile(name string) bool   { return matches(name, criticalPatterns) }
func isAPIFile(name string) bool        { return matches(name, apiPatterns) }
func isCodeFile(name string) bool       { return codeExtensions[ext(name)] }

// isBinaryFile reports binary content by extension or by the diff's own
// binary marker.
func isBinaryFile(m *diff.Model, name string) bool {
	if secrets.IsBinary(name) {
		return true
	}
	if m == nil {
		return false
	}
	fd := m.File(name)
	return fd != nil && fd.IsBinary
}

// isSensitiveFile covers both security and authentication paths.
func isSensitiveFile(name string) bool {
	return isSecurityFile(name) || isAuthFile(name)
}

func isDocFile(name string) bool {
	return docExtensions[ext(name)] || matches(name, docDirs)
}

// isSecurityConfig reports whether a config file's patch touches
// security-relevant settings.
func isSecurityConfig(name, patch string) bool {
	return isConfigFile(name) && patch != "" && containsAny(strings.ToLower(patch), securityConfigKeywords)
}
