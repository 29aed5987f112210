package diff

import (
	"path/filepath"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/sprite-ai/prlens/internal/model"
)

// Language returns the display name of filename's language, or "" when no
// lexer recognizes it.
func Language(filename string) string {
	lexer := lexerForFile(filename)
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}

// LanguageStats maps language name to changed-line count over files.
// Files with no recognized language are left out.
func LanguageStats(files []model.FileChange) map[string]int {
	stats := make(map[string]int)
	for _, f := range files {
		lang := Language(f.Filename)
		if lang == "" {
			continue
		}
		stats[lang] += f.Additions + f.Deletions
	}
	return stats
}

func lexerForFile(filename string) chroma.Lexer {
	lexer := lexers.Match(filepath.Base(filename))
	if lexer == nil {
		ext := filepath.Ext(filename)
		if ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	return lexer
}
