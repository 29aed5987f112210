package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/prlens/internal/changeset"
	"github.com/sprite-ai/prlens/internal/model"
	"github.com/sprite-ai/prlens/internal/pipeline"
)

// addInputFlags registers the flags shared by commands that build a
// change set.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("context", "", "read a change-set document (JSON or YAML) instead of a diff")
	cmd.Flags().IntP("unified", "U", 3, "lines of context around changes")
	cmd.Flags().String("repo", "", "repository name, e.g. owner/name")
	cmd.Flags().Int("pr", 0, "pull request number")
	cmd.Flags().String("revision", "", "revision id (default: head commit)")
	cmd.Flags().String("title", "", "pull request title")
	cmd.Flags().String("body", "", "pull request description")
	cmd.Flags().String("author", "", "pull request author")
	cmd.Flags().StringSlice("label", nil, "pull request label (repeatable)")
}

func metaFromFlags(cmd *cobra.Command) changeset.Meta {
	var m changeset.Meta
	m.Repository, _ = cmd.Flags().GetString("repo")
	m.PRNumber, _ = cmd.Flags().GetInt("pr")
	m.RevisionID, _ = cmd.Flags().GetString("revision")
	m.Title, _ = cmd.Flags().GetString("title")
	m.Body, _ = cmd.Flags().GetString("body")
	m.Author, _ = cmd.Flags().GetString("author")
	m.Labels, _ = cmd.Flags().GetStringSlice("label")
	return m
}

// builder returns the change-set source selected by args and flags: a
// change-set document, a diff on stdin ("-"), or the local repository.
func builder(cmd *cobra.Command, args []string) (pipeline.ContextBuilder, error) {
	meta := metaFromFlags(cmd)

	if path, _ := cmd.Flags().GetString("context"); path != "" {
		cs, err := changeset.LoadFile(path, cfg.Pipeline.MaxPatchBytes)
		if err != nil {
			return nil, err
		}
		overrideMeta(cmd, cs, meta)
		return pipeline.Static(cs), nil
	}

	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return pipeline.BuilderFunc(func(context.Context) (*model.ChangeSet, error) {
				return nil, changeset.ErrEmpty
			}), nil
		}
		return pipeline.Static(changeset.FromDiff(string(data), meta, cfg.Pipeline.MaxPatchBytes)), nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	g := &changeset.Git{
		Dir:             dir,
		Meta:            meta,
		MaxPatchBytes:   cfg.Pipeline.MaxPatchBytes,
		MaxContentBytes: cfg.Pipeline.MaxContentBytes,
		Log:             logger,
	}
	g.ContextLines, _ = cmd.Flags().GetInt("unified")
	if len(args) == 1 {
		g.Target = args[0]
	}
	return g, nil
}

// overrideMeta applies metadata flags the user set explicitly on top of a
// loaded document.
func overrideMeta(cmd *cobra.Command, cs *model.ChangeSet, m changeset.Meta) {
	f := cmd.Flags()
	if f.Changed("repo") {
		cs.Repository = m.Repository
	}
	if f.Changed("pr") {
		cs.PRNumber = m.PRNumber
	}
	if f.Changed("revision") {
		cs.RevisionID = m.RevisionID
	}
	if f.Changed("title") {
		cs.Title = m.Title
	}
	if f.Changed("body") {
		cs.Body = m.Body
	}
	if f.Changed("author") {
		cs.Author = m.Author
	}
	if f.Changed("label") {
		cs.Labels = m.Labels
	}
}
