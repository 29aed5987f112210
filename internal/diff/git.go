package diff

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func git(ctx context.Context, repoDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

// GitDiff runs `git diff` with the given arguments and returns the raw output.
func GitDiff(ctx context.Context, repoDir string, args ...string) (string, error) {
	return git(ctx, repoDir, append([]string{"diff"}, args...)...)
}

// GitDiffRange returns the diff for a commit range like "main...HEAD".
func GitDiffRange(ctx context.Context, repoDir, commitRange string, contextLines int) (string, error) {
	return GitDiff(ctx, repoDir, fmt.Sprintf("-U%d", contextLines), commitRange)
}

// RepoRoot returns the top-level directory of the repository containing dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	out, err := git(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RevParse resolves a revision to its full hash.
func RevParse(ctx context.Context, repoDir, rev string) (string, error) {
	out, err := git(ctx, repoDir, "rev-parse", "--verify", rev)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ShowFile returns path's content at rev.
func ShowFile(ctx context.Context, repoDir, rev, path string) (string, error) {
	return git(ctx, repoDir, "show", rev+":"+path)
}
