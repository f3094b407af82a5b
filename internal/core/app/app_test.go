package app

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"pubscan/internal/core/config"
	"pubscan/internal/core/errors"
	"pubscan/internal/engine/parser"
	"pubscan/internal/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, util.WriteFileWithDirs(path, []byte(content), 0o644))
	}
}

func canonical(t *testing.T, path string) string {
	t.Helper()
	out, err := util.CanonicalPath(path)
	require.NoError(t, err)
	return out
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	a, err := New(cfg)
	require.NoError(t, err)
	return a
}

func entryByName(result *Result, name string) (APIEntry, bool) {
	for _, e := range result.PublicAPI {
		if e.Name == name {
			return e, true
		}
	}
	return APIEntry{}, false
}

func TestAnalyze_EndToEnd(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pyproject.toml": "[project]\nname = \"demo\"\n",
		"m.py": `"""Greeting helpers."""

def greet(name):
    """Say hello.

    Longer description.
    """
    return _helper(name)


def _helper(name):
    return "hi " + name
`,
		"client.py": `from m import greet

greet("a")
greet("b")
`,
	})

	a := newTestApp(t, nil)
	result, err := a.Analyze(context.Background(), Request{Target: filepath.Join(root, "m.py")})
	require.NoError(t, err)

	assert.Equal(t, canonical(t, filepath.Join(root, "m.py")), result.TargetPath)
	assert.Equal(t, canonical(t, root), result.ProjectRoot)
	assert.Equal(t, "module", result.BoundaryKind)

	require.Len(t, result.PublicAPI, 1)
	greet := result.PublicAPI[0]
	assert.Equal(t, "greet", greet.Name)
	assert.Equal(t, "m.greet", greet.FullyQualifiedName)
	assert.Equal(t, parser.KindFunction, greet.Kind)
	assert.Equal(t, 2, greet.UsageCount)
	assert.Equal(t, []string{canonical(t, filepath.Join(root, "client.py"))}, greet.Importers)
	assert.Contains(t, greet.Docstring, "Say hello.")
	assert.Equal(t, 3, greet.Span.StartLine)

	_, found := entryByName(result, "_helper")
	assert.False(t, found)

	var unused []string
	for _, sym := range result.Unused {
		unused = append(unused, sym.Name)
	}
	assert.Equal(t, []string{"_helper"}, unused)

	assert.Equal(t, 2, result.Diagnostics.FilesScanned)
	assert.Zero(t, result.Diagnostics.FilesSkipped)
}

func packageProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pyproject.toml":  "",
		"pkg/__init__.py": "from .core import Engine\n",
		"pkg/core.py": `from pkg.util import helper

class Engine:
    """Runs things."""

    def run(self):
        return helper()
`,
		"pkg/util.py": `def helper():
    return 1

LIMIT = 10
"""Maximum number of runs."""

def internal_only():
    return helper()
`,
		"app/__init__.py": "",
		"app/main.py": `import pkg.util as u
from pkg import Engine
from pkg.core import Engine as CoreEngine

def main():
    e = Engine()
    CoreEngine().run()
    return u.helper() + u.LIMIT
`,
		"app/cli.py": `from pkg.util import helper, LIMIT

for _ in range(LIMIT):
    helper()
    helper()
`,
		"scripts/once.py": `import pkg

pkg.util.helper()
`,
		"scripts/shadow.py": `from pkg.util import helper

def helper():
    return 2

helper()
`,
	})
	return root
}

func TestAnalyze_Package(t *testing.T) {
	root := packageProject(t)
	a := newTestApp(t, nil)

	result, err := a.Analyze(context.Background(), Request{Target: filepath.Join(root, "pkg")})
	require.NoError(t, err)
	assert.Equal(t, "package", result.BoundaryKind)

	helper, ok := entryByName(result, "helper")
	require.True(t, ok)
	assert.Equal(t, "pkg.util.helper", helper.FullyQualifiedName)
	// main.py once, cli.py twice, once.py once; the redefinition in
	// shadow.py makes that file's binding ambiguous.
	assert.Equal(t, 4, helper.UsageCount)
	assert.Len(t, helper.Importers, 3)

	limit, ok := entryByName(result, "LIMIT")
	require.True(t, ok)
	assert.Equal(t, 2, limit.UsageCount)
	assert.Equal(t, "Maximum number of runs.", limit.Docstring)
	assert.Equal(t, parser.KindVariable, limit.Kind)

	var engines []string
	for _, e := range result.PublicAPI {
		if e.Name == "Engine" {
			engines = append(engines, e.FullyQualifiedName)
		}
	}
	assert.Equal(t, []string{"pkg.Engine", "pkg.core.Engine"}, engines)

	_, found := entryByName(result, "internal_only")
	assert.False(t, found)
}

func TestAnalyze_NoSelfUsage(t *testing.T) {
	root := packageProject(t)
	a := newTestApp(t, nil)

	result, err := a.Analyze(context.Background(), Request{Target: filepath.Join(root, "pkg")})
	require.NoError(t, err)

	members := map[string]bool{}
	for _, rel := range []string{"pkg/__init__.py", "pkg/core.py", "pkg/util.py"} {
		members[canonical(t, filepath.Join(root, filepath.FromSlash(rel)))] = true
	}
	for _, e := range result.PublicAPI {
		for _, importer := range e.Importers {
			assert.False(t, members[importer], "%s counted usage from boundary file %s", e.FullyQualifiedName, importer)
		}
	}
}

func TestAnalyze_OrderIndependence(t *testing.T) {
	root := packageProject(t)
	target := filepath.Join(root, "pkg")

	sequential := newTestApp(t, func(cfg *config.Config) {
		off := false
		cfg.Analysis.Parallel = &off
	})
	want, err := sequential.Analyze(context.Background(), Request{Target: target})
	require.NoError(t, err)
	require.NotEmpty(t, want.PublicAPI)

	parallel := newTestApp(t, func(cfg *config.Config) {
		cfg.Analysis.Jobs = 4
	})
	for i := 0; i < 5; i++ {
		got, err := parallel.Analyze(context.Background(), Request{Target: target})
		require.NoError(t, err)
		assert.Equal(t, want.PublicAPI, got.PublicAPI)
		assert.Equal(t, want.Unused, got.Unused)
		assert.Equal(t, want.Diagnostics, got.Diagnostics)
	}
}

func TestAnalyze_ZeroUsageExcluded(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pyproject.toml": "",
		"lib.py":         "def used():\n    pass\n\ndef imported_only():\n    pass\n",
		"client.py":      "from lib import used, imported_only\n\nused()\n",
	})

	result, err := newTestApp(t, nil).Analyze(context.Background(), Request{Target: filepath.Join(root, "lib.py")})
	require.NoError(t, err)

	require.Len(t, result.PublicAPI, 1)
	assert.Equal(t, "used", result.PublicAPI[0].Name)
	for _, e := range result.PublicAPI {
		assert.Positive(t, e.UsageCount)
	}
}

func TestAnalyze_TestFilesExcluded(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pyproject.toml":     "",
		"lib.py":             "def api():\n    pass\n",
		"test_lib.py":        "from lib import api\napi()\n",
		"tests/check.py":     "from lib import api\napi()\n",
		"client.py":          "from lib import api\napi()\n",
		"sub/widget_test.py": "from lib import api\napi()\n",
		"sub/uses_twice.py":  "from lib import api\napi()\napi()\n",
	})
	target := filepath.Join(root, "lib.py")

	result, err := newTestApp(t, nil).Analyze(context.Background(), Request{Target: target})
	require.NoError(t, err)
	require.Len(t, result.PublicAPI, 1)
	assert.Equal(t, 3, result.PublicAPI[0].UsageCount)

	withTests := newTestApp(t, func(cfg *config.Config) { cfg.Analysis.IncludeTests = true })
	result, err = withTests.Analyze(context.Background(), Request{Target: target})
	require.NoError(t, err)
	require.Len(t, result.PublicAPI, 1)
	assert.Equal(t, 6, result.PublicAPI[0].UsageCount)
}

func TestAnalyze_TestFileTargetStillAnalyzed(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pyproject.toml":  "",
		"test_helpers.py": "def fixture():\n    pass\n",
		"client.py":       "from test_helpers import fixture\nfixture()\n",
	})

	result, err := newTestApp(t, nil).Analyze(context.Background(), Request{Target: filepath.Join(root, "test_helpers.py")})
	require.NoError(t, err)
	require.Len(t, result.PublicAPI, 1)
	assert.Equal(t, "fixture", result.PublicAPI[0].Name)
}

func TestAnalyze_ParseFailureIsDiagnostic(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pyproject.toml": "",
		"lib.py":         "def api():\n    pass\n",
		"broken.py":      "from lib import api\ndef oops(:\n    api()\n",
		"client.py":      "from lib import api\napi()\n",
	})

	result, err := newTestApp(t, nil).Analyze(context.Background(), Request{Target: filepath.Join(root, "lib.py")})
	require.NoError(t, err)

	require.Len(t, result.PublicAPI, 1)
	assert.Equal(t, 1, result.PublicAPI[0].UsageCount)
	assert.Equal(t, 1, result.Diagnostics.FilesSkipped)
	assert.Equal(t, 2, result.Diagnostics.FilesScanned)
	require.Len(t, result.Diagnostics.Warnings, 1)
	warning := result.Diagnostics.Warnings[0]
	assert.Equal(t, canonical(t, filepath.Join(root, "broken.py")), warning.Path)
	assert.Equal(t, errors.CodeParseFailure, warning.Code)
}

func TestAnalyze_ExplicitProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"outer.py":              "from inner.src.lib import api\napi()\n",
		"inner/pyproject.toml":  "",
		"inner/src/__init__.py": "",
		"inner/src/lib.py":      "def api():\n    pass\n",
		"inner/src/user.py":     "from src.lib import api\napi()\n",
		"inner/__init__.py":     "",
	})
	target := filepath.Join(root, "inner", "src", "lib.py")

	detected, err := newTestApp(t, nil).Analyze(context.Background(), Request{Target: target})
	require.NoError(t, err)
	assert.Equal(t, canonical(t, filepath.Join(root, "inner")), detected.ProjectRoot)
	require.Len(t, detected.PublicAPI, 1)
	assert.Equal(t, "src.lib.api", detected.PublicAPI[0].FullyQualifiedName)

	explicit, err := newTestApp(t, nil).Analyze(context.Background(), Request{Target: target, ProjectRoot: root})
	require.NoError(t, err)
	require.Len(t, explicit.PublicAPI, 1)
	assert.Equal(t, "inner.src.lib.api", explicit.PublicAPI[0].FullyQualifiedName)
	assert.Equal(t, []string{canonical(t, filepath.Join(root, "outer.py"))}, explicit.PublicAPI[0].Importers)
}

func TestAnalyze_InvalidTargets(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"notes.txt": "hello"})
	a := newTestApp(t, nil)

	_, err := a.Analyze(context.Background(), Request{Target: filepath.Join(root, "missing.py")})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidTarget))

	_, err = a.Analyze(context.Background(), Request{Target: filepath.Join(root, "notes.txt")})
	assert.True(t, errors.IsCode(err, errors.CodeNotPython))
	assert.True(t, errors.IsFatal(err))
}

func TestAnalyze_Cancelled(t *testing.T) {
	root := packageProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestApp(t, nil).Analyze(ctx, Request{Target: filepath.Join(root, "pkg")})
	require.Error(t, err)
	assert.Nil(t, result)
}

type countingProgress struct {
	total    int
	advanced atomic.Int32
	finished bool
}

func (p *countingProgress) Start(total int) { p.total = total }
func (p *countingProgress) Advance()        { p.advanced.Add(1) }
func (p *countingProgress) Finish()         { p.finished = true }

func TestAnalyze_ReportsProgress(t *testing.T) {
	root := packageProject(t)
	progress := &countingProgress{}

	_, err := newTestApp(t, nil).Analyze(context.Background(), Request{Target: filepath.Join(root, "pkg"), Progress: progress})
	require.NoError(t, err)

	// app/__init__.py, app/main.py, app/cli.py, scripts/once.py, scripts/shadow.py
	assert.Equal(t, 5, progress.total)
	assert.EqualValues(t, 5, progress.advanced.Load())
	assert.True(t, progress.finished)
}

func TestDiscoverProjectFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":                   "",
		"b.pyi":                  "",
		"README.md":              "",
		"gen_models.py":          "",
		"legacy/old.py":          "",
		"pkg/mod.py":             "",
		"pkg/__pycache__/mod.py": "",
		".venv/lib/site.py":      "",
		"vendor_x/dep.py":        "",
		"tests/test_a.py":        "",
		"pkg/test_mod.py":        "",
	})

	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Exclude.Dirs = append(cfg.Exclude.Dirs, "vendor_*")
		cfg.Exclude.Files = []string{"gen_*.py", "legacy/**"}
	})
	files, err := a.DiscoverProjectFiles(context.Background(), root)
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		rel = append(rel, filepath.ToSlash(util.DisplayPath(f, canonical(t, root))))
	}
	assert.Equal(t, []string{"a.py", "b.pyi", "pkg/mod.py"}, rel)
}

func TestDiscoverProjectFiles_Symlink(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real/mod.py": ""})
	if err := os.Symlink(filepath.Join(root, "real", "mod.py"), filepath.Join(root, "alias.py")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	files, err := newTestApp(t, nil).DiscoverProjectFiles(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{canonical(t, filepath.Join(root, "real", "mod.py"))}, files)
}

func TestNew_InvalidGlob(t *testing.T) {
	cfg := config.Default()
	cfg.Exclude.Files = []string{"[a-"}
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConfig))
}
