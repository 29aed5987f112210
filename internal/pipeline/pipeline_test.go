package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/prlens/internal/analysis"
	"github.com/sprite-ai/prlens/internal/config"
	"github.com/sprite-ai/prlens/internal/model"
	"github.com/sprite-ai/prlens/internal/risk"
)

const loginDiff = `diff --git a/auth/login.py b/auth/login.py
new file mode 100644
--- /dev/null
+++ b/auth/login.py
@@ -0,0 +1,3 @@
+def login(username, credentials):
+    user = lookup(username)
+    return user
`

func loginChangeSet() *model.ChangeSet {
	return &model.ChangeSet{
		RevisionID: "rev-1",
		Repository: "acme/web",
		PRNumber:   7,
		HeadSHA:    "abc123",
		Title:      "Add login",
		RawDiff:    loginDiff,
		Files: []model.FileChange{{
			Filename:  "auth/login.py",
			Status:    model.StatusAdded,
			Additions: 3,
			Changes:   3,
			Patch:     loginDiff[strings.Index(loginDiff, "@@"):],
		}},
	}
}

type panicStage struct{ name string }

func (p panicStage) Name() string { return p.name }

func (p panicStage) Run(*analysis.Input) analysis.Result { panic("boom") }

type recordingPublisher struct {
	mu   sync.Mutex
	keys []PublishKey
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key PublishKey, _ *model.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func newOrchestrator(opts ...Option) *Orchestrator {
	return New(config.Default(), zerolog.Nop(), opts...)
}

// replaceStage swaps the named default stage for a panicking one.
func replaceStage(name string) Option {
	return func(o *Orchestrator) {
		for i, s := range o.stages {
			if s.Name() == name {
				o.stages[i] = panicStage{name: name}
			}
		}
	}
}

func TestRunProducesReport(t *testing.T) {
	pub := &recordingPublisher{}
	var events []Event
	o := newOrchestrator(WithPublisher(pub), WithObserver(func(e Event) { events = append(events, e) }))

	report, err := o.Run(context.Background(), Static(loginChangeSet()))
	require.NoError(t, err)

	assert.Equal(t, "rev-1", report.RunID)
	assert.Equal(t, 10, report.RiskScore)
	assert.Equal(t, "Low Risk - Minimal review required", report.RiskLevel)
	assert.NotEmpty(t, report.Summary)
	assert.NotEmpty(t, report.Checklist)
	assert.NotEmpty(t, report.TestSuggestions)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 1, report.TotalFiles)

	var stages []string
	for _, tm := range report.Timings {
		stages = append(stages, tm.Stage)
	}
	assert.Equal(t, []string{
		analysis.StageChangeScanner,
		analysis.StageRiskSecurity,
		analysis.StageTestSynthesizer,
		analysis.StageReviewer,
	}, stages)

	require.Len(t, pub.keys, 1)
	assert.Equal(t, PublishKey{Repository: "acme/web", PRNumber: 7, Revision: "rev-1", Marker: config.DefaultMarker}, pub.keys[0])

	var states []State
	for _, e := range events {
		if e.Kind == EventState {
			states = append(states, e.State)
		}
	}
	assert.Equal(t, []State{StateBuildingContext, StateRunningStages, StateMerging, StatePublishing, StateDone}, states)
}

func TestFailingStageIsIsolated(t *testing.T) {
	for _, name := range []string{
		analysis.StageChangeScanner,
		analysis.StageRiskSecurity,
		analysis.StageTestSynthesizer,
		analysis.StageReviewer,
	} {
		t.Run(name, func(t *testing.T) {
			o := newOrchestrator(replaceStage(name))
			report := o.Analyze(loginChangeSet())

			require.Len(t, report.Warnings, 1)
			require.Len(t, report.Warnings[name], 1)
			assert.Contains(t, report.Warnings[name][0], "boom")
			assert.Len(t, report.Timings, 4)

			if name != analysis.StageChangeScanner {
				assert.NotEmpty(t, report.Summary)
			}
			if name != analysis.StageTestSynthesizer {
				assert.NotEmpty(t, report.TestSuggestions)
			}
			switch name {
			case analysis.StageRiskSecurity:
				assert.Equal(t, risk.Fallback(1, 3), report.RiskScore)
				assert.Equal(t, []string{risk.FallbackFactor}, report.RiskFactors)
			case analysis.StageReviewer:
				assert.Equal(t, analysis.FallbackChecklist(), report.Checklist)
			default:
				assert.Equal(t, 10, report.RiskScore)
			}
		})
	}
}

func TestMalformedManifestAddsOneWarning(t *testing.T) {
	cs := loginChangeSet()
	cs.Files = append(cs.Files, model.FileChange{
		Filename:  "package.json",
		Status:    model.StatusModified,
		Additions: 1,
		Patch:     "@@ -1 +1 @@\n+  \"left-pad\": \"1.3.0\"\n",
	})
	cs.Dependencies = map[string]string{"package.json": "{not json"}

	report := newOrchestrator().Analyze(cs)
	assert.Equal(t, 1, report.WarningCount())
	assert.Len(t, report.Warnings[analysis.StageRiskSecurity], 1)
	assert.NotEmpty(t, report.Summary)
	assert.NotEmpty(t, report.Checklist)
	assert.NotEmpty(t, report.TestSuggestions)
}

func TestBuildFailureAborts(t *testing.T) {
	pub := &recordingPublisher{}
	var last Event
	o := newOrchestrator(WithPublisher(pub), WithObserver(func(e Event) { last = e }))

	report, err := o.Run(context.Background(), BuilderFunc(func(context.Context) (*model.ChangeSet, error) {
		return nil, errors.New("no such revision")
	}))
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrContextBuild)
	assert.Contains(t, err.Error(), "no such revision")
	assert.Empty(t, pub.keys)
	assert.Equal(t, StateFailed, last.State)

	_, err = o.Run(context.Background(), Static(nil))
	assert.ErrorIs(t, err, ErrContextBuild)
}

func TestPublishFailureKeepsReport(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("store unavailable")}
	o := newOrchestrator(WithPublisher(pub))

	report, err := o.Run(context.Background(), Static(loginChangeSet()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPublish)
	require.NotNil(t, report)
	assert.Equal(t, 10, report.RiskScore)
}

func TestRunIDAndRevision(t *testing.T) {
	cs := loginChangeSet()
	cs.RevisionID = ""
	report := newOrchestrator().Analyze(cs)
	assert.Len(t, report.RunID, 36)
	assert.Equal(t, "abc123", revision(cs))
}

func TestTimingsUseClock(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}
	report := newOrchestrator(withClock(clock)).Analyze(loginChangeSet())

	for _, tm := range report.Timings {
		assert.Equal(t, time.Millisecond, tm.Elapsed, tm.Stage)
	}
	assert.Equal(t, base.Add(time.Millisecond), report.StartedAt)
	assert.Equal(t, 9*time.Millisecond, report.Duration)
}

func TestEmptyStagesDegradeToDefaults(t *testing.T) {
	report := newOrchestrator(WithStages()).Analyze(loginChangeSet())
	assert.Empty(t, report.Summary)
	assert.Equal(t, risk.Fallback(1, 3), report.RiskScore)
	assert.Equal(t, analysis.FallbackChecklist(), report.Checklist)
	assert.Empty(t, report.Timings)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "running_stages", StateRunningStages.String())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StatePublishing.Terminal())
}
