package diff

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

var hunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// Line is one hunk line of a single-file patch. Number is the destination
// line number for added and context lines and 0 for deletions.
type Line struct {
	Op     gitdiff.LineOp
	Text   string
	Number int
}

// WalkPatch calls fn for every hunk line of a single-file patch. A hunk
// header resets the destination counter to its new-side start minus one;
// added and context lines advance it, deletions do not. Lines before the
// first hunk header and "\ No newline" markers are skipped.
func WalkPatch(patch string, fn func(Line)) {
	sc := bufio.NewScanner(strings.NewReader(patch))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	inHunk := false
	for sc.Scan() {
		text := sc.Text()
		if m := hunkHeader.FindStringSubmatch(text); m != nil {
			start, _ := strconv.Atoi(m[1])
			lineNum = start - 1
			inHunk = true
			continue
		}
		if !inHunk {
			continue
		}
		switch {
		case strings.HasPrefix(text, "+"):
			lineNum++
			fn(Line{Op: gitdiff.OpAdd, Text: text[1:], Number: lineNum})
		case strings.HasPrefix(text, "-"):
			fn(Line{Op: gitdiff.OpDelete, Text: text[1:]})
		case strings.HasPrefix(text, `\`):
		default:
			lineNum++
			fn(Line{Op: gitdiff.OpContext, Text: strings.TrimPrefix(text, " "), Number: lineNum})
		}
	}
}

// ChangedLines returns the added and removed line texts of a patch.
func ChangedLines(patch string) (added, removed []string) {
	WalkPatch(patch, func(l Line) {
		switch l.Op {
		case gitdiff.OpAdd:
			added = append(added, l.Text)
		case gitdiff.OpDelete:
			removed = append(removed, l.Text)
		}
	})
	return added, removed
}

// FunctionLines extracts function signatures from the added and removed
// lines of a single-file patch, at most one entry per name, together with
// the declaring line.
func FunctionLines(filename, patch string) []FunctionLine {
	var out []FunctionLine
	seen := make(map[string]bool)
	WalkPatch(patch, func(l Line) {
		if l.Op == gitdiff.OpContext {
			return
		}
		name, ok := FunctionName(filename, l.Text)
		if !ok || seen[name] {
			return
		}
		seen[name] = true
		change := FunctionAdded
		if l.Op == gitdiff.OpDelete {
			change = FunctionRemoved
		}
		out = append(out, FunctionLine{Function: Function{Name: name, Change: change}, Text: l.Text})
	})
	return out
}

// FunctionLine pairs a function with the line that declares it.
type FunctionLine struct {
	Function
	Text string
}
