// Package pipeline runs the analysis stages over one change set and hands
// the merged report to a publisher.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sprite-ai/prlens/internal/analysis"
	"github.com/sprite-ai/prlens/internal/config"
	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/model"
	"github.com/sprite-ai/prlens/internal/risk"
	"github.com/sprite-ai/prlens/internal/secrets"
)

var (
	// ErrContextBuild wraps failures of the change-set builder.
	ErrContextBuild = errors.New("building change set")
	// ErrPublish wraps publisher failures. The report is still returned.
	ErrPublish = errors.New("publishing report")
)

// ContextBuilder produces the change set a run analyzes.
type ContextBuilder interface {
	Build(ctx context.Context) (*model.ChangeSet, error)
}

// BuilderFunc adapts a function to ContextBuilder.
type BuilderFunc func(ctx context.Context) (*model.ChangeSet, error)

func (f BuilderFunc) Build(ctx context.Context) (*model.ChangeSet, error) { return f(ctx) }

// Static returns a builder for an already built change set.
func Static(cs *model.ChangeSet) ContextBuilder {
	return BuilderFunc(func(context.Context) (*model.ChangeSet, error) { return cs, nil })
}

// PublishKey identifies the published report of a pull request. Marker is
// the token a publisher looks for to find its earlier output.
type PublishKey struct {
	Repository string
	PRNumber   int
	Revision   string
	Marker     string
}

// Publisher makes a report visible outside the process.
type Publisher interface {
	Publish(ctx context.Context, key PublishKey, r *model.Report) error
}

// Orchestrator runs pipelines. It holds no per-run state and may be shared
// by concurrent runs.
type Orchestrator struct {
	cfg       config.Pipeline
	stages    []analysis.Stage
	publisher Publisher
	observers []func(Event)
	log       zerolog.Logger
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPublisher sets the publisher. Without one, runs end after merging.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithObserver registers a callback for state and stage events. Observers
// are called in registration order.
func WithObserver(fn func(Event)) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, fn) }
}

// WithStages replaces the default stages.
func WithStages(stages ...analysis.Stage) Option {
	return func(o *Orchestrator) { o.stages = stages }
}

func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New returns an Orchestrator running the standard stages.
func New(cfg *config.Config, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg: cfg.Pipeline,
		log: log,
		now: time.Now,
	}
	o.stages = analysis.Stages(analysis.Options{
		MaxSuggestions:  cfg.Pipeline.MaxSuggestions,
		MaxContentBytes: cfg.Pipeline.MaxContentBytes,
		Logger:          log,
	})
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run builds the change set, analyzes it and publishes the report. A build
// failure returns a nil report. A publish failure returns the report along
// with the error.
func (o *Orchestrator) Run(ctx context.Context, b ContextBuilder) (*model.Report, error) {
	run := &runState{o: o}

	run.enter(StateBuildingContext)
	cs, err := b.Build(ctx)
	if err == nil && cs == nil {
		err = errors.New("builder returned no change set")
	}
	if err != nil {
		run.fail(err)
		return nil, fmt.Errorf("%w: %w", ErrContextBuild, err)
	}

	report := o.analyze(run, cs)

	if o.publisher != nil {
		run.enter(StatePublishing)
		key := PublishKey{
			Repository: cs.Repository,
			PRNumber:   cs.PRNumber,
			Revision:   revision(cs),
			Marker:     o.cfg.Marker,
		}
		if err := o.publisher.Publish(ctx, key, report); err != nil {
			run.fail(err)
			return report, fmt.Errorf("%w: %w", ErrPublish, err)
		}
	}

	run.enter(StateDone)
	o.log.Info().
		Str("run", report.RunID).
		Str("repository", report.Repository).
		Int("pr", report.PRNumber).
		Int("score", report.RiskScore).
		Int("warnings", report.WarningCount()).
		Dur("duration", report.Duration).
		Msg("run complete")
	return report, nil
}

// Analyze runs the stages over cs and merges their results. It never fails.
func (o *Orchestrator) Analyze(cs *model.ChangeSet) *model.Report {
	return o.analyze(&runState{o: o}, cs)
}

func (o *Orchestrator) analyze(run *runState, cs *model.ChangeSet) *model.Report {
	run.id = runID(cs)
	started := o.now()

	run.enter(StateRunningStages)
	in := &analysis.Input{ChangeSet: cs, Diff: diff.Parse(cs.RawDiff)}
	results := make([]analysis.Result, 0, len(o.stages))
	timings := make([]model.StageTiming, 0, len(o.stages))
	for _, s := range o.stages {
		run.emit(Event{Kind: EventStageStarted, Stage: s.Name()})
		t0 := o.now()
		res := runStage(s, in)
		elapsed := o.now().Sub(t0)

		if sec, ok := res.Payload.(*analysis.SecurityPayload); ok {
			in.Security = sec
		}
		results = append(results, res)
		timings = append(timings, model.StageTiming{Stage: s.Name(), Elapsed: elapsed})

		o.log.Debug().Str("run", run.id).Str("stage", s.Name()).Dur("elapsed", elapsed).Int("warnings", len(res.Warnings)).Msg("stage finished")
		run.emit(Event{Kind: EventStageFinished, Stage: s.Name(), Elapsed: elapsed, Warnings: res.Warnings})
	}

	run.enter(StateMerging)
	report := merge(cs, results)
	report.RunID = run.id
	report.Timings = timings
	report.StartedAt = started
	report.Duration = o.now().Sub(started)
	return report
}

// runStage runs one stage. A panic becomes the stage's only warning and
// leaves it without a payload.
func runStage(s analysis.Stage, in *analysis.Input) (res analysis.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = analysis.Result{
				Stage:    s.Name(),
				Warnings: []string{fmt.Sprintf("%s failed: %v", s.Name(), r)},
			}
		}
	}()
	res = s.Run(in)
	res.Stage = s.Name()
	return res
}

func merge(cs *model.ChangeSet, results []analysis.Result) *model.Report {
	r := &model.Report{
		Repository:     cs.Repository,
		PRNumber:       cs.PRNumber,
		HeadSHA:        cs.HeadSHA,
		BaseSHA:        cs.BaseSHA,
		TotalFiles:     len(cs.Files),
		TotalAdditions: cs.TotalAdditions(),
		TotalDeletions: cs.TotalDeletions(),
	}

	var scored, reviewed bool
	for _, res := range results {
		if len(res.Warnings) > 0 {
			if r.Warnings == nil {
				r.Warnings = make(map[string][]string)
			}
			r.Warnings[res.Stage] = append(r.Warnings[res.Stage], res.Warnings...)
		}

		switch p := res.Payload.(type) {
		case *analysis.ScanPayload:
			r.Summary = p.Summary
			r.Changelog = p.Changelog
			r.ComplexityFlags = p.ComplexityFlags
			r.Hotspots = p.Hotspots
			r.Languages = p.Languages
		case *analysis.SecurityPayload:
			scored = true
			r.RiskScore = p.Score
			r.RiskFactors = p.Narrative
			r.Secrets = p.Secrets
			r.SecretCategories = secrets.CountByCategory(p.Secrets)
			r.Dependencies = p.Dependencies
		case *analysis.TestPayload:
			r.TestSuggestions = p.Suggestions
		case *analysis.ReviewPayload:
			reviewed = true
			r.Checklist = p.Checklist
		}
	}

	if !scored {
		r.RiskScore = risk.Fallback(r.TotalFiles, r.TotalAdditions)
		r.RiskFactors = []string{risk.FallbackFactor}
	}
	if !reviewed {
		r.Checklist = analysis.FallbackChecklist()
	}
	r.RiskLevel = risk.Level(r.RiskScore)
	return r
}

// revision is the revision-stable identifier used for publishing.
func revision(cs *model.ChangeSet) string {
	if cs.RevisionID != "" {
		return cs.RevisionID
	}
	return cs.HeadSHA
}

func runID(cs *model.ChangeSet) string {
	if cs.RevisionID != "" {
		return cs.RevisionID
	}
	return uuid.NewString()
}
