package parser

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// DefaultExtensions are the file extensions treated as Python source.
var DefaultExtensions = []string{".py", ".pyi"}

// GrammarLoader owns the Python grammar and the file extensions it accepts.
type GrammarLoader struct {
	language   *sitter.Language
	extensions map[string]bool
}

func NewGrammarLoader(extensions []string) *GrammarLoader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	gl := &GrammarLoader{
		language:   sitter.NewLanguage(tree_sitter_python.Language()),
		extensions: make(map[string]bool, len(extensions)),
	}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		gl.extensions[ext] = true
	}
	return gl
}

func (gl *GrammarLoader) Language() *sitter.Language {
	return gl.language
}

func (gl *GrammarLoader) SupportedExtensions() []string {
	extensions := make([]string, 0, len(gl.extensions))
	for ext := range gl.extensions {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}
