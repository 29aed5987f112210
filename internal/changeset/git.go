package changeset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sprite-ai/prlens/internal/deps"
	"github.com/sprite-ai/prlens/internal/diff"
	"github.com/sprite-ai/prlens/internal/model"
)

// ErrEmpty is returned when there are no changes to analyze.
var ErrEmpty = errors.New("no changes")

// Git builds a change set from a local repository. Target is empty for the
// working tree against HEAD, a ref to diff the working tree against, or a
// range like "main...HEAD".
type Git struct {
	Dir             string
	Target          string
	Meta            Meta
	ContextLines    int
	MaxPatchBytes   int
	MaxContentBytes int
	Log             zerolog.Logger
}

// Build implements pipeline.ContextBuilder.
func (g *Git) Build(ctx context.Context) (*model.ChangeSet, error) {
	root, err := diff.RepoRoot(ctx, g.Dir)
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	args := []string{fmt.Sprintf("-U%d", g.contextLines())}
	if g.Target != "" {
		args = append(args, g.Target)
	}
	raw, err := diff.GitDiff(ctx, root, args...)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmpty
	}

	base, head := splitRange(g.Target)
	meta := g.Meta
	if meta.HeadSHA == "" {
		if sha, err := diff.RevParse(ctx, root, orHEAD(head)); err == nil {
			meta.HeadSHA = sha
		}
	}
	if meta.BaseSHA == "" && base != "" {
		if sha, err := diff.RevParse(ctx, root, base); err == nil {
			meta.BaseSHA = sha
		}
	}

	cs := FromDiff(raw, meta, g.MaxPatchBytes)
	cs.Dependencies = g.manifests(ctx, root, head, cs.Files)
	return cs, nil
}

func (g *Git) contextLines() int {
	if g.ContextLines > 0 {
		return g.ContextLines
	}
	return 3
}

// manifests reads the new-side content of every changed dependency
// manifest. Head is empty when the new side is the working tree.
func (g *Git) manifests(ctx context.Context, root, head string, files []model.FileChange) map[string]string {
	out := make(map[string]string)
	for _, f := range files {
		if f.Status == model.StatusRemoved || !deps.IsManifest(f.Filename) {
			continue
		}
		var (
			content string
			err     error
		)
		if head == "" {
			var b []byte
			b, err = os.ReadFile(filepath.Join(root, f.Filename))
			content = string(b)
		} else {
			content, err = diff.ShowFile(ctx, root, head, f.Filename)
		}
		if err != nil {
			g.Log.Warn().Err(err).Str("file", f.Filename).Msg("cannot read manifest")
			continue
		}
		if g.MaxContentBytes > 0 && len(content) > g.MaxContentBytes {
			g.Log.Debug().Str("file", f.Filename).Int("bytes", len(content)).Msg("manifest too large, skipped")
			continue
		}
		out[f.Filename] = content
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// splitRange splits "a..b" or "a...b" into its sides. A single ref is the
// base of a working-tree diff.
func splitRange(target string) (base, head string) {
	if i := strings.Index(target, "..."); i >= 0 {
		return target[:i], orHEAD(target[i+3:])
	}
	if i := strings.Index(target, ".."); i >= 0 {
		return target[:i], orHEAD(target[i+2:])
	}
	return target, ""
}

func orHEAD(rev string) string {
	if rev == "" {
		return "HEAD"
	}
	return rev
}
