// Package diff parses unified diffs into the per-file line model the
// analysis stages share.
package diff

import (
	"bufio"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/rs/zerolog/log"
)

// LargeChangeLines is the changed-line count above which a file is flagged
// as a large change.
const LargeChangeLines = 100

// FunctionChange says whether a function signature was added or removed.
type FunctionChange string

const (
	FunctionAdded   FunctionChange = "added"
	FunctionRemoved FunctionChange = "removed"
)

// Function is a function signature seen on an added or removed line.
type Function struct {
	Name   string
	Change FunctionChange
}

// FileDiff is the parsed view of one file in a diff.
type FileDiff struct {
	Filename  string
	OldName   string
	IsNew     bool
	IsDeleted bool
	IsBinary  bool
	Additions int
	Deletions int
	Functions []Function
	Large     bool
}

// Total returns additions plus deletions.
func (f *FileDiff) Total() int {
	return f.Additions + f.Deletions
}

func (f *FileDiff) observe(op gitdiff.LineOp, text string) {
	switch op {
	case gitdiff.OpAdd:
		f.Additions++
	case gitdiff.OpDelete:
		f.Deletions++
	default:
		return
	}
	name, ok := FunctionName(f.Filename, strings.TrimRight(text, "\r\n"))
	if !ok {
		return
	}
	for _, fn := range f.Functions {
		if fn.Name == name {
			return
		}
	}
	change := FunctionAdded
	if op == gitdiff.OpDelete {
		change = FunctionRemoved
	}
	f.Functions = append(f.Functions, Function{Name: name, Change: change})
}

func (f *FileDiff) finish() {
	f.Large = f.Total() > LargeChangeLines
}

// Model is the parsed diff for a whole change set, files in diff order.
type Model struct {
	Files []FileDiff
}

// File returns the entry for filename, or nil.
func (m *Model) File(filename string) *FileDiff {
	for i := range m.Files {
		if m.Files[i].Filename == filename {
			return &m.Files[i]
		}
	}
	return nil
}

// Stats returns aggregate statistics.
func (m *Model) Stats() (files, added, deleted int) {
	files = len(m.Files)
	for _, f := range m.Files {
		added += f.Additions
		deleted += f.Deletions
	}
	return
}

// Parse reads a unified diff. It never fails: input go-gitdiff rejects is
// re-read line by line and unparseable lines are skipped.
func Parse(raw string) *Model {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		log.Debug().Err(err).Msg("strict diff parse failed, scanning leniently")
		return scanLenient(raw)
	}

	m := &Model{Files: make([]FileDiff, 0, len(parsed))}
	for _, f := range parsed {
		fd := FileDiff{
			Filename:  f.NewName,
			OldName:   f.OldName,
			IsNew:     f.IsNew,
			IsDeleted: f.IsDelete,
			IsBinary:  f.IsBinary,
		}
		if fd.Filename == "" {
			fd.Filename = f.OldName
		}
		for _, frag := range f.TextFragments {
			for _, line := range frag.Lines {
				fd.observe(line.Op, line.Line)
			}
		}
		fd.finish()
		m.Files = append(m.Files, fd)
	}
	return m
}

// scanLenient counts lines without validating hunk headers. A file record
// starts at each "diff --git" header, or at a "---" header outside a file
// that already has hunks.
func scanLenient(raw string) *Model {
	m := &Model{}
	var cur *FileDiff
	inHunk, gitHeader := false, false

	flush := func() {
		if cur != nil {
			cur.finish()
			m.Files = append(m.Files, *cur)
			cur = nil
		}
	}

	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			cur = &FileDiff{Filename: nameFromGitHeader(line)}
			inHunk, gitHeader = false, true
		case inHunk && gitHeader && (strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ")):
		case strings.HasPrefix(line, "--- "):
			if cur == nil || inHunk {
				flush()
				cur = &FileDiff{}
				inHunk, gitHeader = false, false
			}
			if name := headerPath(line[4:]); name != "" {
				cur.OldName = name
				if cur.Filename == "" {
					cur.Filename = name
				}
			} else {
				cur.IsNew = true
			}
		case strings.HasPrefix(line, "+++ "):
			if inHunk {
				continue
			}
			if cur == nil {
				cur = &FileDiff{}
			}
			if name := headerPath(line[4:]); name != "" {
				cur.Filename = name
			} else {
				cur.IsDeleted = true
			}
		case cur == nil:
		case strings.HasPrefix(line, "new file mode"):
			cur.IsNew = true
		case strings.HasPrefix(line, "deleted file mode"):
			cur.IsDeleted = true
		case strings.HasPrefix(line, "Binary files "), line == "GIT binary patch":
			cur.IsBinary = true
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk:
		case strings.HasPrefix(line, "+"):
			cur.observe(gitdiff.OpAdd, line[1:])
		case strings.HasPrefix(line, "-"):
			cur.observe(gitdiff.OpDelete, line[1:])
		}
	}
	flush()
	return m
}

func nameFromGitHeader(line string) string {
	rest := strings.TrimPrefix(line, "diff --git ")
	if i := strings.LastIndex(rest, " b/"); i >= 0 {
		return rest[i+3:]
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "b/")
}

// headerPath strips the a/ or b/ prefix and any trailing timestamp from a
// ---/+++ header. /dev/null yields "".
func headerPath(s string) string {
	if i := strings.IndexByte(s, '\t'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "/dev/null" {
		return ""
	}
	if strings.HasPrefix(s, "a/") || strings.HasPrefix(s, "b/") {
		return s[2:]
	}
	return s
}
