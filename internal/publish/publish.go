// Package publish makes reports visible as pull request comments. A
// Publisher keeps at most one comment per pull request by finding its
// earlier output through an embedded marker and updating it in place.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sprite-ai/prlens/internal/model"
	"github.com/sprite-ai/prlens/internal/pipeline"
	"github.com/sprite-ai/prlens/internal/report"
)

// ErrNoMarker is returned when a key carries an empty marker, which would
// make every comment look like a previous report.
var ErrNoMarker = errors.New("publish key has no marker")

// Comment is one comment on a pull request.
type Comment struct {
	ID   string
	Body string
}

// CommentStore reads and writes the comments of pull requests.
type CommentStore interface {
	List(ctx context.Context, repo string, pr int) ([]Comment, error)
	Create(ctx context.Context, repo string, pr int, body string) (Comment, error)
	Update(ctx context.Context, repo string, pr int, id, body string) error
}

// Publisher implements pipeline.Publisher over a CommentStore.
type Publisher struct {
	store CommentStore
	log   zerolog.Logger
}

var _ pipeline.Publisher = (*Publisher)(nil)

// New returns a Publisher writing to store.
func New(store CommentStore, log zerolog.Logger) *Publisher {
	return &Publisher{store: store, log: log}
}

// Publish renders r as markdown and creates or updates the pull request's
// report comment.
func (p *Publisher) Publish(ctx context.Context, key pipeline.PublishKey, r *model.Report) error {
	if key.Marker == "" {
		return ErrNoMarker
	}
	body := Body(key, r)

	comments, err := p.store.List(ctx, key.Repository, key.PRNumber)
	if err != nil {
		return fmt.Errorf("listing comments: %w", err)
	}

	existing := Find(comments, key.Marker)
	if existing == nil {
		c, err := p.store.Create(ctx, key.Repository, key.PRNumber, body)
		if err != nil {
			return fmt.Errorf("creating comment: %w", err)
		}
		p.log.Info().Str("repo", key.Repository).Int("pr", key.PRNumber).Str("comment", c.ID).Msg("report published")
		return nil
	}

	if existing.Body == body {
		p.log.Debug().Str("comment", existing.ID).Msg("report unchanged, skipping update")
		return nil
	}
	if err := p.store.Update(ctx, key.Repository, key.PRNumber, existing.ID, body); err != nil {
		return fmt.Errorf("updating comment %s: %w", existing.ID, err)
	}
	p.log.Info().Str("repo", key.Repository).Int("pr", key.PRNumber).Str("comment", existing.ID).
		Str("revision", key.Revision).Msg("report updated")
	return nil
}

// Body returns the comment text for r: the rendered markdown report
// followed by a hidden revision line.
func Body(key pipeline.PublishKey, r *model.Report) string {
	body := report.Markdown(r, key.Marker)
	if key.Revision != "" {
		body += RevisionLine(key.Revision) + "\n"
	}
	return body
}

// RevisionLine returns the hidden line recording which revision a comment
// describes.
func RevisionLine(rev string) string {
	return "<!-- prlens-revision: " + rev + " -->"
}

// Revision extracts the revision recorded in a published comment body.
func Revision(body string) string {
	const prefix = "<!-- prlens-revision: "
	i := strings.LastIndex(body, prefix)
	if i < 0 {
		return ""
	}
	rest := body[i+len(prefix):]
	j := strings.Index(rest, " -->")
	if j < 0 {
		return ""
	}
	return rest[:j]
}

// Find returns the first comment containing marker, or nil.
func Find(comments []Comment, marker string) *Comment {
	for i := range comments {
		if strings.Contains(comments[i].Body, marker) {
			return &comments[i]
		}
	}
	return nil
}
