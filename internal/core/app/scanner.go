package app

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"pubscan/internal/core/errors"
	"pubscan/internal/engine/boundary"
	"pubscan/internal/shared/util"
)

// DiscoverProjectFiles lists every Python file under root that survives the
// configured exclusions. Paths are canonical, unique and sorted.
func (a *App) DiscoverProjectFiles(ctx context.Context, root string) ([]string, error) {
	canonicalRoot, err := util.CanonicalPath(root)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeDiscoveryFailure, "cannot resolve project root"), errors.CtxPath, root)
	}
	root = canonicalRoot

	seen := make(map[string]bool)
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != root {
				slog.Warn("skipping unreadable path", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && a.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !a.Parser.IsSupportedPath(path) {
			return nil
		}
		if !a.Config.Analysis.IncludeTests && a.Parser.IsTestFile(path) {
			return nil
		}
		if a.excludedFile(root, path) {
			return nil
		}

		canonical, err := util.CanonicalPath(path)
		if err != nil {
			canonical = path
		}
		if !seen[canonical] {
			seen[canonical] = true
			files = append(files, canonical)
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeDiscoveryFailure, "project walk failed"), errors.CtxPath, root)
	}

	sort.Strings(files)
	return files, nil
}

func (a *App) skipDir(name string) bool {
	if boundary.IsSkippedDir(name) {
		return true
	}
	if !a.Config.Analysis.IncludeTests && a.testDirs[name] {
		return true
	}
	for _, g := range a.dirGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// excludedFile matches file patterns against the base name and against the
// slash-separated path relative to root.
func (a *App) excludedFile(root, path string) bool {
	if len(a.fileGlobs) == 0 {
		return false
	}
	base := filepath.Base(path)
	rel := util.NormalizePatternPath(util.DisplayPath(path, root))
	for _, g := range a.fileGlobs {
		if g.Match(base) || g.Match(rel) {
			return true
		}
	}
	return false
}
