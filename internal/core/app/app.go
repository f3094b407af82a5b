package app

import (
	"fmt"

	"pubscan/internal/core/config"
	"pubscan/internal/core/errors"
	"pubscan/internal/engine/parser"

	"github.com/gobwas/glob"
)

// App runs public API analyses with one configuration and one parser pool.
type App struct {
	Config *config.Config
	Parser *parser.Parser

	dirGlobs  []glob.Glob
	fileGlobs []glob.Glob
	testDirs  map[string]bool
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	dirGlobs, err := compileGlobs(cfg.Exclude.Dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(cfg.Exclude.Files, "exclude file", '/')
	if err != nil {
		return nil, err
	}

	testDirs := make(map[string]bool, len(cfg.Analysis.TestDirs))
	for _, dir := range cfg.Analysis.TestDirs {
		testDirs[dir] = true
	}

	return &App{
		Config:    cfg,
		Parser:    parser.NewParser(parser.NewGrammarLoader(cfg.Analysis.Extensions)),
		dirGlobs:  dirGlobs,
		fileGlobs: fileGlobs,
		testDirs:  testDirs,
	}, nil
}

func compileGlobs(patterns []string, label string, separators ...rune) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, separators...)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeConfig, fmt.Sprintf("invalid %s pattern %q", label, p))
		}
		out = append(out, g)
	}
	return out, nil
}
