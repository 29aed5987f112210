package deps

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"golang.org/x/mod/modfile"
)

var (
	pinnedSpec = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)(?:\[[^\]]*\])?\s*(?:===|==|>=|<=|~=|!=|>|<)\s*(.+)$`)
	bareName   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// parsePinned reads requirements-style lines: name==1.0, name>=1.0, name.
func parsePinned(lines []string) *versions {
	out := newVersions()
	for _, line := range lines {
		if name, ver, ok := requirement(line); ok {
			out.set(name, ver)
		}
	}
	return out
}

func requirement(line string) (name, version string, ok bool) {
	if i := strings.Index(line, " #"); i >= 0 {
		line = line[:i]
	}
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
		return "", "", false
	}
	if m := pinnedSpec.FindStringSubmatch(line); m != nil {
		return m[1], strings.TrimSpace(m[2]), true
	}
	if bareName.MatchString(line) {
		return line, "latest", true
	}
	return "", "", false
}

// packageJSONFields are top-level package.json keys that sometimes hold
// string values and are never dependencies.
var packageJSONFields = map[string]bool{
	"name": true, "version": true, "description": true, "main": true,
	"module": true, "types": true, "license": true, "author": true,
	"homepage": true, "type": true, "private": true, "packageManager": true,
}

// parsePackageJSON reads `"name": "version"` lines. Each line is decoded as
// a one-member object so quoting and escapes follow JSON rules.
func parsePackageJSON(lines []string) *versions {
	out := newVersions()
	for _, line := range lines {
		line = strings.TrimSuffix(strings.TrimSpace(line), ",")
		if !strings.HasPrefix(line, `"`) {
			continue
		}
		var kv map[string]any
		if err := json.Unmarshal([]byte("{"+line+"}"), &kv); err != nil {
			continue
		}
		for name, v := range kv {
			ver, ok := v.(string)
			if !ok || packageJSONFields[name] || strings.HasPrefix(name, "_") {
				continue
			}
			out.set(name, ver)
		}
	}
	return out
}

func validatePackageJSON(content string) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return fmt.Errorf("invalid package.json: %w", err)
	}
	return nil
}

// tomlMetaKeys are project metadata keys that share the key = "value" shape.
var tomlMetaKeys = map[string]bool{
	"name": true, "version": true, "description": true, "edition": true,
	"license": true, "readme": true, "homepage": true, "repository": true,
	"documentation": true, "requires-python": true, "build-backend": true,
	"url": true, "verify_ssl": true,
}

// parseTOML reads `name = "version"` and `name = { version = "..." }` lines
// with the TOML decoder, plus quoted PEP 508 strings from dependency arrays.
func parseTOML(lines []string) *versions {
	out := newVersions()
	parser := toml.Parser()
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "[") {
			continue
		}
		if arrayEntry(line) {
			spec := strings.Trim(strings.TrimSuffix(line, ","), `"'`)
			if name, ver, ok := requirement(spec); ok {
				out.set(name, ver)
			}
			continue
		}
		kv, err := parser.Unmarshal([]byte(line))
		if err != nil {
			continue
		}
		for name, v := range kv {
			if tomlMetaKeys[name] {
				continue
			}
			switch val := v.(type) {
			case string:
				out.set(name, val)
			case map[string]any:
				if ver, ok := val["version"].(string); ok {
					out.set(name, ver)
				}
			case []any:
				// dependencies = ["requests>=2.31", ...] on one line
				for _, item := range val {
					spec, _ := item.(string)
					if n, ver, ok := requirement(spec); ok {
						out.set(n, ver)
					}
				}
			}
		}
	}
	return out
}

// arrayEntry reports whether line is a quoted array element such as
// "requests>=2.31", rather than a quoted key.
func arrayEntry(line string) bool {
	if line == "" || (line[0] != '"' && line[0] != '\'') {
		return false
	}
	end := strings.IndexByte(line[1:], line[0])
	if end < 0 {
		return true
	}
	rest := strings.TrimSpace(line[end+2:])
	return !strings.HasPrefix(rest, "=")
}

// parseModules reads go.mod require lines and go.sum checksum lines.
// go.mod lines are decoded together through modfile so quoting and
// comments follow the go.mod grammar.
// modDirectives open go.mod lines that never name a required module.
var modDirectives = map[string]bool{
	"module": true, "go": true, "toolchain": true, "godebug": true,
	"exclude": true, "replace": true, "retract": true, "tool": true,
}

func parseModules(lines []string) *versions {
	out := newVersions()
	var requires []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		fields := strings.Fields(line)
		if len(fields) == 3 && strings.HasPrefix(fields[2], "h1:") {
			if !strings.HasSuffix(fields[1], "/go.mod") {
				out.set(fields[0], fields[1])
			}
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "require "))
		fields = strings.Fields(line)
		if len(fields) > 0 && modDirectives[fields[0]] {
			continue
		}
		if len(fields) >= 2 && strings.HasPrefix(fields[1], "v") && !strings.HasPrefix(fields[0], "//") {
			requires = append(requires, line)
		}
	}
	if len(requires) == 0 {
		return out
	}

	src := "module prlens.invalid/manifest\n\nrequire (\n\t" + strings.Join(requires, "\n\t") + "\n)\n"
	f, err := modfile.ParseLax("go.mod", []byte(src), nil)
	if err != nil {
		for _, line := range requires {
			fields := strings.Fields(line)
			out.set(fields[0], fields[1])
		}
		return out
	}
	for _, r := range f.Require {
		out.set(r.Mod.Path, r.Mod.Version)
	}
	return out
}
