package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Dir is a CommentStore that keeps each pull request's comments as
// markdown files under <root>/<repository>/<pr>/.
type Dir struct {
	root string
}

// NewDir returns a store rooted at root. The directory is created on the
// first write.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Path returns the directory holding the comments of one pull request.
func (d *Dir) Path(repo string, pr int) string {
	return filepath.Join(d.root, sanitize(repo), strconv.Itoa(pr))
}

func (d *Dir) List(ctx context.Context, repo string, pr int) ([]Comment, error) {
	dir := d.Path(repo, pr)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// oldest first
	type stamped struct {
		c   Comment
		mod int64
	}
	var found []stamped
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		found = append(found, stamped{
			c:   Comment{ID: strings.TrimSuffix(e.Name(), ".md"), Body: string(data)},
			mod: info.ModTime().UnixNano(),
		})
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].mod != found[j].mod {
			return found[i].mod < found[j].mod
		}
		return found[i].c.ID < found[j].c.ID
	})

	out := make([]Comment, len(found))
	for i, s := range found {
		out[i] = s.c
	}
	return out, nil
}

func (d *Dir) Create(_ context.Context, repo string, pr int, body string) (Comment, error) {
	dir := d.Path(repo, pr)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Comment{}, err
	}
	c := Comment{ID: uuid.NewString(), Body: body}
	if err := os.WriteFile(filepath.Join(dir, c.ID+".md"), []byte(body), 0o644); err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (d *Dir) Update(_ context.Context, repo string, pr int, id, body string) error {
	path := filepath.Join(d.Path(repo, pr), id+".md")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("comment %s: %w", id, err)
	}
	return os.WriteFile(path, []byte(body), 0o644)
}

// sanitize turns a repository name like "acme/shop" into a single path
// element.
func sanitize(repo string) string {
	if repo == "" || repo == "." || repo == ".." {
		return "_local"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			return r
		}
		return '_'
	}, repo)
}
