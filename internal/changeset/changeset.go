// Package changeset builds the change sets a pipeline run analyzes: from a
// unified diff, from a local git repository, or from a JSON or YAML
// document.
package changeset

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/rs/zerolog/log"

	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/model"
)

// Meta carries the pull request metadata a diff does not contain.
type Meta struct {
	RevisionID string
	Repository string
	PRNumber   int
	HeadSHA    string
	BaseSHA    string
	Title      string
	Body       string
	Author     string
	Labels     []string
}

func (m Meta) apply(cs *model.ChangeSet) {
	cs.RevisionID = m.RevisionID
	cs.Repository = m.Repository
	cs.PRNumber = m.PRNumber
	cs.HeadSHA = m.HeadSHA
	cs.BaseSHA = m.BaseSHA
	cs.Title = m.Title
	cs.Body = m.Body
	cs.Author = m.Author
	cs.Labels = m.Labels
}

// FromDiff builds a change set from a unified diff. Each file gets its own
// hunk-only patch, cut at maxPatchBytes on a line boundary when that is
// positive. Input go-gitdiff rejects still yields per-file counts, without
// patches.
func FromDiff(raw string, meta Meta, maxPatchBytes int) *model.ChangeSet {
	cs := &model.ChangeSet{RawDiff: raw}
	meta.apply(cs)

	files, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		log.Debug().Err(err).Msg("diff rejected, building file list from the lenient parse")
		cs.Files = fromModel(diff.Parse(raw))
	} else {
		cs.Files = make([]model.FileChange, 0, len(files))
		for _, f := range files {
			cs.Files = append(cs.Files, fileChange(f, maxPatchBytes))
		}
	}
	cs.Languages = diff.LanguageStats(cs.Files)
	return cs
}

func fileChange(f *gitdiff.File, maxPatchBytes int) model.FileChange {
	fc := model.FileChange{Filename: f.NewName, Status: model.StatusModified}
	if fc.Filename == "" {
		fc.Filename = f.OldName
	}
	switch {
	case f.IsNew:
		fc.Status = model.StatusAdded
	case f.IsDelete:
		fc.Status = model.StatusRemoved
	}
	for _, frag := range f.TextFragments {
		fc.Additions += int(frag.LinesAdded)
		fc.Deletions += int(frag.LinesDeleted)
	}
	fc.Changes = fc.Additions + fc.Deletions
	fc.Patch = Truncate(formatHunks(f.TextFragments), maxPatchBytes)
	return fc
}

func fromModel(m *diff.Model) []model.FileChange {
	out := make([]model.FileChange, 0, len(m.Files))
	for _, f := range m.Files {
		status := model.StatusModified
		switch {
		case f.IsNew:
			status = model.StatusAdded
		case f.IsDeleted:
			status = model.StatusRemoved
		}
		out = append(out, model.FileChange{
			Filename:  f.Filename,
			Status:    status,
			Additions: f.Additions,
			Deletions: f.Deletions,
			Changes:   f.Total(),
		})
	}
	return out
}

// formatHunks reconstructs the hunks of one file as unified diff text.
func formatHunks(frags []*gitdiff.TextFragment) string {
	var b strings.Builder
	for _, frag := range frags {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@", frag.OldPosition, frag.OldLines, frag.NewPosition, frag.NewLines)
		if frag.Comment != "" {
			b.WriteString(" " + frag.Comment)
		}
		b.WriteString("\n")

		for _, line := range frag.Lines {
			switch line.Op {
			case gitdiff.OpContext:
				b.WriteString(" " + line.Line)
			case gitdiff.OpDelete:
				b.WriteString("-" + line.Line)
			case gitdiff.OpAdd:
				b.WriteString("+" + line.Line)
			}
			if !strings.HasSuffix(line.Line, "\n") {
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

// Truncate cuts patch to at most max bytes, ending after the last complete
// line that fits. A non-positive max leaves patch unchanged.
func Truncate(patch string, max int) string {
	if max <= 0 || len(patch) <= max {
		return patch
	}
	cut := patch[:max]
	if i := strings.LastIndexByte(cut, '\n'); i >= 0 {
		return cut[:i+1]
	}
	return ""
}
