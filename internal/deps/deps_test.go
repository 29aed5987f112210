package deps

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/prlens/internal/model"
)

func analyzer() *Analyzer {
	return NewAnalyzer(zerolog.Nop())
}

func TestRequirementsAddedHighRisk(t *testing.T) {
	patch := "@@ -1,0 +1,1 @@\n+cryptography==41.0.0\n"
	changes, err := analyzer().Analyze("requirements.txt", "cryptography==41.0.0\n", patch)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	c := changes[0]
	assert.Equal(t, "cryptography", c.Package)
	assert.Equal(t, model.ChangeAdded, c.Change)
	assert.Equal(t, model.SeverityHigh, c.Risk)
	assert.Equal(t, "41.0.0", c.NewVersion)
	assert.Empty(t, c.OldVersion)
}

func TestRequirementsVersionChanges(t *testing.T) {
	patch := `@@ -1,5 +1,5 @@
-click==8.1.0
-tqdm==4.66.0
-leftpad==1.0
+click==8.0.4
+tqdm==4.66.0
+pydantic[email]>=2.5 ; python_version >= "3.8"
 # pinned
`
	changes, err := analyzer().Analyze("requirements-dev.txt", "", patch)
	require.NoError(t, err)

	want := []model.DependencyChange{
		{Package: "click", Manifest: "requirements-dev.txt", OldVersion: "8.1.0", NewVersion: "8.0.4", Change: model.ChangeDowngraded, Risk: model.SeverityMedium},
		{Package: "tqdm", Manifest: "requirements-dev.txt", OldVersion: "4.66.0", NewVersion: "4.66.0", Change: model.ChangeModified, Risk: model.SeverityLow},
		{Package: "pydantic", Manifest: "requirements-dev.txt", NewVersion: "2.5", Change: model.ChangeAdded, Risk: model.SeverityLow},
		{Package: "leftpad", Manifest: "requirements-dev.txt", OldVersion: "1.0", Change: model.ChangeRemoved, Risk: model.SeverityLow},
	}
	assert.Equal(t, want, changes)
}

func TestSameVersionOnBothSidesIsModified(t *testing.T) {
	patch := "@@ -1,1 +1,1 @@\n-flask==2.0.0\n+flask==2.0.0  # pinned\n"
	changes, err := analyzer().Analyze("requirements.txt", "", patch)
	require.NoError(t, err)

	want := []model.DependencyChange{
		{Package: "flask", Manifest: "requirements.txt", OldVersion: "2.0.0", NewVersion: "2.0.0", Change: model.ChangeModified, Risk: model.SeverityHigh},
	}
	assert.Equal(t, want, changes)
}

func TestPackageJSON(t *testing.T) {
	content := `{
  "name": "web",
  "version": "2.0.0",
  "dependencies": {
    "left-pad": "^1.3.0",
    "@scope/auth-client": "2.1.0"
  }
}`
	patch := `@@ -1,7 +1,7 @@
 {
   "name": "web",
-  "version": "1.9.0",
+  "version": "2.0.0",
   "dependencies": {
-    "left-pad": "^1.1.0",
+    "left-pad": "^1.3.0",
+    "@scope/auth-client": "2.1.0"
   }
`
	changes, err := analyzer().Analyze("web/package.json", content, patch)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, "left-pad", changes[0].Package)
	assert.Equal(t, model.ChangeUpgraded, changes[0].Change)
	assert.Equal(t, model.SeverityLow, changes[0].Risk)

	assert.Equal(t, "@scope/auth-client", changes[1].Package)
	assert.Equal(t, model.ChangeAdded, changes[1].Change)
	assert.Equal(t, model.SeverityMedium, changes[1].Risk)
}

func TestMalformedPackageJSONFails(t *testing.T) {
	_, err := analyzer().Analyze("package.json", `{"dependencies": {`, "@@ -1 +1 @@\n+\"a\": \"1\"\n")
	assert.Error(t, err)
}

func TestTOMLManifests(t *testing.T) {
	patch := `@@ -3,4 +3,6 @@
 [dependencies]
-serde = "1.0.100"
+serde = { version = "1.0.190", features = ["derive"] }
+tokio = "1.35"
 name = "ignored"
+"rich>=13.0",
+dependencies = ["httpx==0.27.0"]
`
	changes, err := analyzer().Analyze("Cargo.toml", "", patch)
	require.NoError(t, err)

	got := map[string]model.DependencyChange{}
	for _, c := range changes {
		got[c.Package] = c
	}
	require.Len(t, got, 4)
	assert.Equal(t, model.ChangeUpgraded, got["serde"].Change)
	assert.Equal(t, "1.0.190", got["serde"].NewVersion)
	assert.Equal(t, model.SeverityHigh, got["tokio"].Risk)
	assert.Equal(t, "13.0", got["rich"].NewVersion)
	assert.Equal(t, model.ChangeAdded, got["httpx"].Change)
}

func TestGoModAndSum(t *testing.T) {
	modPatch := `@@ -3,6 +3,7 @@
 require (
-	github.com/spf13/cobra v1.9.0
+	github.com/spf13/cobra v1.10.2
+	golang.org/x/crypto v0.48.0 // indirect
 )
 go 1.25
`
	changes, err := analyzer().Analyze("go.mod", "", modPatch)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, model.ChangeUpgraded, changes[0].Change)
	assert.Equal(t, "v1.9.0", changes[0].OldVersion)
	assert.Equal(t, "golang.org/x/crypto", changes[1].Package)
	assert.Equal(t, model.SeverityMedium, changes[1].Risk)

	directivePatch := `@@ -5,3 +5,5 @@
+retract v1.0.0
+exclude golang.org/x/net v0.1.0
+replace github.com/old/pkg v1.2.0 => github.com/new/pkg v1.3.0
+toolchain go1.25.1
+	github.com/google/uuid v1.6.0
`
	changes, err = analyzer().Analyze("go.mod", "", directivePatch)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "github.com/google/uuid", changes[0].Package)

	sumPatch := `@@ -1,2 +1,2 @@
-github.com/google/uuid v1.5.0 h1:abc=
-github.com/google/uuid v1.5.0/go.mod h1:def=
+github.com/google/uuid v1.6.0 h1:ghi=
+github.com/google/uuid v1.6.0/go.mod h1:jkl=
`
	changes, err = analyzer().Analyze("go.sum", "", sumPatch)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeUpgraded, changes[0].Change)
}

func TestUnsupportedManifest(t *testing.T) {
	changes, err := analyzer().Analyze("Gemfile.lock", "GEM", "@@ -1 +1 @@\n+rails (7.1)\n")
	assert.NoError(t, err)
	assert.Empty(t, changes)

	changes, err = analyzer().Analyze("notes.txt", "", "")
	assert.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDetect(t *testing.T) {
	assert.Equal(t, FormatPinnedList, Detect("requirements.txt"))
	assert.Equal(t, FormatPinnedList, Detect("api/requirements_test.txt"))
	assert.Equal(t, FormatPackageJSON, Detect("frontend/package.json"))
	assert.Equal(t, FormatTOML, Detect("Pipfile"))
	assert.Equal(t, FormatModuleList, Detect("go.sum"))
	assert.Equal(t, FormatUnsupported, Detect("yarn.lock"))
	assert.True(t, IsManifest("yarn.lock"))
	assert.False(t, IsManifest("main.go"))
	assert.Equal(t, "npm", Ecosystem("package.json"))
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		old, new string
		want     model.ChangeType
	}{
		{"1.9.0", "1.10.0", model.ChangeUpgraded},
		{"2.0", "1.99.99", model.ChangeDowngraded},
		{"1.0", "1.0.0", model.ChangeModified},
		{"v1.2.3", "v1.2.4", model.ChangeUpgraded},
		{"^4.17.20", "~4.17.21", model.ChangeUpgraded},
		{"1.0.0-rc1", "1.0.0", model.ChangeModified},
		{"1.0.0", "1.0.0+build5", model.ChangeModified},
		{"latest", "0.1", model.ChangeUpgraded},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareVersions(tt.old, tt.new), "%s -> %s", tt.old, tt.new)
	}
}

func TestAssessRisk(t *testing.T) {
	assert.Equal(t, model.SeverityHigh, AssessRisk("Django", model.ChangeAdded))
	assert.Equal(t, model.SeverityMedium, AssessRisk("authlib", model.ChangeAdded))
	assert.Equal(t, model.SeverityMedium, AssessRisk("left-pad", model.ChangeDowngraded))
	assert.Equal(t, model.SeverityLow, AssessRisk("left-pad", model.ChangeUpgraded))
}
