package analysis

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sprite-ai/prlens/internal/deps"
	"github.com/sprite-ai/prlens/internal/model"
	"github.com/sprite-ai/prlens/internal/risk"
	"github.com/sprite-ai/prlens/internal/secrets"
)

// Per-file thresholds for the risk factors.
const (
	largeFileChangeLines = 200
	largeDeletionLines   = 100
)

// SecurityPayload is the risk and security stage's output.
type SecurityPayload struct {
	Secrets      []model.SecretFinding
	Dependencies []model.DependencyChange
	Factors      risk.Factors
	Breakdown    []risk.Contribution
	Score        int
	Narrative    []string
}

// HighRiskDependencies counts dependency changes rated high.
func (p *SecurityPayload) HighRiskDependencies() int {
	n := 0
	for _, d := range p.Dependencies {
		if d.Risk == model.SeverityHigh {
			n++
		}
	}
	return n
}

// RiskSecurity scans for secrets, analyzes dependency manifests and scores
// the change set.
type RiskSecurity struct {
	scanner  *secrets.Scanner
	analyzer *deps.Analyzer
	log      zerolog.Logger
}

func NewRiskSecurity(opts Options) *RiskSecurity {
	return &RiskSecurity{
		scanner:  secrets.New(opts.MaxContentBytes),
		analyzer: deps.NewAnalyzer(opts.Logger),
		log:      opts.Logger,
	}
}

func (s *RiskSecurity) Name() string { return StageRiskSecurity }

func (s *RiskSecurity) Run(in *Input) Result {
	cs := in.ChangeSet
	dm := in.diffModel()
	var warnings []string

	p := &SecurityPayload{Secrets: s.scanSecrets(cs)}

	for _, m := range manifests(cs) {
		changes, err := s.analyzer.Analyze(m.name, m.content, m.patch)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("dependency analysis of %s failed: %v", m.name, err))
			continue
		}
		p.Dependencies = append(p.Dependencies, changes...)
	}

	p.Factors = risk.Factors{
		Secrets:              len(p.Secrets),
		TotalAdditions:       cs.TotalAdditions(),
		HighRiskDependencies: p.HighRiskDependencies(),
		TotalFiles:           len(cs.Files),
		TotalDeletions:       cs.TotalDeletions(),
	}
	for _, f := range cs.Files {
		if isSensitiveFile(f.Filename) {
			p.Factors.SecurityFiles++
		}
		if f.Additions+f.Deletions > largeFileChangeLines {
			p.Factors.LargeFiles++
		}
		if isBinaryFile(dm, f.Filename) {
			p.Factors.BinaryFiles++
		}
		if isDatabaseFile(f.Filename) {
			p.Factors.DatabaseFiles++
		}
		if isSecurityConfig(f.Filename, f.Patch) {
			p.Factors.SecurityConfigFiles++
		}
		if isDeploymentFile(f.Filename) {
			p.Factors.DeploymentFiles++
		}
	}

	p.Breakdown = risk.Breakdown(p.Factors)
	p.Score = risk.ScoreWithLog(p.Factors, s.log)
	p.Narrative = narrative(cs, p)

	return Result{Stage: s.Name(), Payload: p, Warnings: warnings}
}

// scanSecrets scans every text patch and every manifest's full content. A
// secret seen in both is reported once.
func (s *RiskSecurity) scanSecrets(cs *model.ChangeSet) []model.SecretFinding {
	type key struct {
		file, kind string
		line       int
	}
	seen := make(map[key]bool)
	var out []model.SecretFinding
	add := func(findings []model.SecretFinding) {
		for _, f := range findings {
			k := key{f.File, f.Kind, f.Line}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, f)
		}
	}

	for _, f := range cs.Files {
		if f.Patch == "" || secrets.IsBinary(f.Filename) {
			continue
		}
		add(s.scanner.ScanDiff(f.Patch, f.Filename))
	}
	for _, name := range sortedKeys(cs.Dependencies) {
		add(s.scanner.ScanContent(cs.Dependencies[name], name))
	}
	return out
}

type manifestInput struct {
	name, content, patch string
}

// manifests lists the dependency files to analyze: those whose content the
// change set carries, in name order, then changed manifests known only by
// their patch, in file order.
func manifests(cs *model.ChangeSet) []manifestInput {
	patches := make(map[string]string, len(cs.Files))
	for _, f := range cs.Files {
		patches[f.Filename] = f.Patch
	}

	var out []manifestInput
	for _, name := range sortedKeys(cs.Dependencies) {
		content := cs.Dependencies[name]
		if content == "" {
			continue
		}
		out = append(out, manifestInput{name: name, content: content, patch: patches[name]})
	}
	for _, f := range cs.Files {
		if _, ok := cs.Dependencies[f.Filename]; ok {
			continue
		}
		if f.Patch != "" && deps.IsManifest(f.Filename) {
			out = append(out, manifestInput{name: f.Filename, patch: f.Patch})
		}
	}
	return out
}

func narrative(cs *model.ChangeSet, p *SecurityPayload) []string {
	var out []string

	if n := len(p.Secrets); n > 0 {
		out = append(out, fmt.Sprintf("Potential secrets detected: %d occurrences", n))
		high := 0
		for _, f := range p.Secrets {
			if f.Severity == model.SeverityHigh {
				high++
			}
		}
		if high > 0 {
			out = append(out, fmt.Sprintf("High-severity secrets: %d", high))
		}
	}
	if n := p.HighRiskDependencies(); n > 0 {
		out = append(out, fmt.Sprintf("High-risk dependency changes: %d packages", n))
	}

	var security, auth, largeDeletions, db, deploy int
	var securityConfig []string
	for _, f := range cs.Files {
		if isSecurityFile(f.Filename) {
			security++
		}
		if isAuthFile(f.Filename) {
			auth++
		}
		if isSecurityConfig(f.Filename, f.Patch) {
			securityConfig = append(securityConfig, f.Filename)
		}
		if f.Deletions > largeDeletionLines {
			largeDeletions++
		}
		if isDatabaseFile(f.Filename) {
			db++
		}
		if isDeploymentFile(f.Filename) {
			deploy++
		}
	}

	if security > 0 {
		out = append(out, fmt.Sprintf("Security-sensitive files modified: %d files", security))
	}
	if auth > 0 {
		out = append(out, fmt.Sprintf("Authentication/authorization files modified: %d files", auth))
	}
	if len(securityConfig) > 0 {
		out = append(out, "Security configuration changes detected in: "+strings.Join(securityConfig, ", "))
	}
	if largeDeletions > 0 {
		out = append(out, fmt.Sprintf("Large deletions detected: %d files with significant content removal", largeDeletions))
	}
	if db > 0 {
		out = append(out, fmt.Sprintf("Database/migration files modified: %d files", db))
	}
	if deploy > 0 {
		out = append(out, fmt.Sprintf("Deployment configuration changes: %d files", deploy))
	}
	return out
}
