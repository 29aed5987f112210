// Package deps extracts package-level changes from dependency manifests.
package deps

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/model"
)

// Format selects the handler for a manifest.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPinnedList         // requirements.txt
	FormatPackageJSON        // package.json
	FormatTOML               // Pipfile, pyproject.toml, Cargo.toml
	FormatModuleList         // go.mod, go.sum
)

func (f Format) String() string {
	switch f {
	case FormatPinnedList:
		return "pinned-list"
	case FormatPackageJSON:
		return "package-json"
	case FormatTOML:
		return "toml"
	case FormatModuleList:
		return "module-list"
	default:
		return "unsupported"
	}
}

// manifest describes a recognized dependency file.
type manifest struct {
	ecosystem string
	format    Format
}

// Dependency and lock files by base name.
var manifests = map[string]manifest{
	"go.mod":            {"go", FormatModuleList},
	"go.sum":            {"go", FormatModuleList},
	"package.json":      {"npm", FormatPackageJSON},
	"package-lock.json": {"npm", FormatUnsupported},
	"yarn.lock":         {"npm", FormatUnsupported},
	"pnpm-lock.yaml":    {"npm", FormatUnsupported},
	"Cargo.toml":        {"cargo", FormatTOML},
	"Cargo.lock":        {"cargo", FormatUnsupported},
	"requirements.txt":  {"pip", FormatPinnedList},
	"Pipfile":           {"pip", FormatTOML},
	"Pipfile.lock":      {"pip", FormatUnsupported},
	"pyproject.toml":    {"pip", FormatTOML},
	"poetry.lock":       {"pip", FormatUnsupported},
	"Gemfile":           {"gem", FormatUnsupported},
	"Gemfile.lock":      {"gem", FormatUnsupported},
	"pom.xml":           {"maven", FormatUnsupported},
	"build.gradle":      {"gradle", FormatUnsupported},
}

func lookup(filename string) (manifest, bool) {
	base := filepath.Base(filename)
	if m, ok := manifests[base]; ok {
		return m, true
	}
	// requirements-dev.txt, requirements_test.txt, ...
	if strings.HasPrefix(base, "requirements") && strings.HasSuffix(base, ".txt") {
		return manifest{"pip", FormatPinnedList}, true
	}
	return manifest{}, false
}

// IsManifest reports whether filename is a dependency or lock file,
// supported for change extraction or not.
func IsManifest(filename string) bool {
	_, ok := lookup(filename)
	return ok
}

// Detect returns the handler format for filename.
func Detect(filename string) Format {
	m, _ := lookup(filename)
	return m.format
}

// Ecosystem returns the package ecosystem of a manifest, or "".
func Ecosystem(filename string) string {
	m, _ := lookup(filename)
	return m.ecosystem
}

// handler turns patch lines into an ordered name→version list. validate,
// when set, checks the full manifest content first.
type handler struct {
	parse    func(lines []string) *versions
	validate func(content string) error
}

var handlers = map[Format]handler{
	FormatPinnedList:  {parse: parsePinned},
	FormatPackageJSON: {parse: parsePackageJSON, validate: validatePackageJSON},
	FormatTOML:        {parse: parseTOML},
	FormatModuleList:  {parse: parseModules},
}

// versions is an insertion-ordered name→version map.
type versions struct {
	names  []string
	byName map[string]string
}

func newVersions() *versions {
	return &versions{byName: make(map[string]string)}
}

func (v *versions) set(name, version string) {
	if _, ok := v.byName[name]; !ok {
		v.names = append(v.names, name)
	}
	v.byName[name] = version
}

func (v *versions) get(name string) (string, bool) {
	s, ok := v.byName[name]
	return s, ok
}

// Analyzer classifies dependency changes in manifests.
type Analyzer struct {
	log zerolog.Logger
}

// NewAnalyzer returns an Analyzer logging advisories to log.
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{log: log}
}

// Analyze compares the added and removed lines of patch for a manifest.
// Unsupported manifests yield an empty list and an advisory log entry.
// An error means the manifest content itself could not be read.
func (a *Analyzer) Analyze(filename, content, patch string) ([]model.DependencyChange, error) {
	format := Detect(filename)
	h, ok := handlers[format]
	if !ok {
		a.log.Warn().Str("file", filename).Msg("unsupported dependency file")
		return nil, nil
	}
	if h.validate != nil && strings.TrimSpace(content) != "" {
		if err := h.validate(content); err != nil {
			return nil, fmt.Errorf("reading %s: %w", filename, err)
		}
	}
	if patch == "" {
		return nil, nil
	}

	addedLines, removedLines := diff.ChangedLines(patch)
	added := h.parse(addedLines)
	removed := h.parse(removedLines)

	var changes []model.DependencyChange
	for _, name := range added.names {
		newVer, _ := added.get(name)
		change := model.DependencyChange{Package: name, Manifest: filename, NewVersion: newVer}
		if oldVer, ok := removed.get(name); ok {
			change.OldVersion = oldVer
			change.Change = CompareVersions(oldVer, newVer)
		} else {
			change.Change = model.ChangeAdded
		}
		change.Risk = AssessRisk(name, change.Change)
		changes = append(changes, change)
	}
	for _, name := range removed.names {
		if _, ok := added.get(name); ok {
			continue
		}
		oldVer, _ := removed.get(name)
		changes = append(changes, model.DependencyChange{
			Package:    name,
			Manifest:   filename,
			OldVersion: oldVer,
			Change:     model.ChangeRemoved,
			Risk:       AssessRisk(name, model.ChangeRemoved),
		})
	}

	a.log.Debug().Str("file", filename).Str("format", format.String()).Int("changes", len(changes)).Msg("dependency manifest analyzed")
	return changes, nil
}
