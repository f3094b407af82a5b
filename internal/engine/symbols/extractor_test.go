package symbols

import (
	"context"
	"path/filepath"
	"testing"

	"pubscan/internal/core/errors"
	"pubscan/internal/engine/parser"
	"pubscan/internal/engine/resolver"
	"pubscan/internal/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		require.NoError(t, util.WriteFileWithDirs(filepath.Join(root, rel), []byte(content), 0o644))
	}
}

func newExtractor(root string) *Extractor {
	p := parser.NewParser(parser.NewGrammarLoader(nil))
	return NewExtractor(p, resolver.NewPythonResolver(root))
}

func TestExtract_SingleModule(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"m.py": `def greet(name):
    """Say hello."""
    return name

def _helper():
    pass

class Widget:
    pass

VERSION = "1.0"
`,
	})

	set, failures, err := newExtractor(root).Extract(context.Background(), []string{filepath.Join(root, "m.py")})
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, 4, set.Len())

	greet, ok := set.Get("m.greet")
	require.True(t, ok)
	assert.Equal(t, parser.KindFunction, greet.Kind)
	assert.Equal(t, "Say hello.", greet.Docstring)
	assert.Equal(t, 1, greet.Span.StartLine)
	assert.True(t, greet.Conventional)

	helper, ok := set.Get("m._helper")
	require.True(t, ok)
	assert.False(t, helper.Conventional)

	widget, _ := set.Get("m.Widget")
	assert.Equal(t, parser.KindClass, widget.Kind)
	version, _ := set.Get("m.VERSION")
	assert.Equal(t, parser.KindVariable, version.Kind)

	assert.True(t, set.HasPrefix("m"))
	assert.True(t, set.HasPrefix("m.greet"))
	assert.False(t, set.HasPrefix("m.gree"))
	assert.False(t, set.Contains("m"))
}

func TestExtract_PackageModulesAndDunderAll(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py": `from . import core
from .core import Engine
from os import path

__all__ = ["_private_but_exported"]

_private_but_exported = 1
`,
		"pkg/core.py": `"""Core engine."""

class Engine:
    pass
`,
	})

	members := []string{
		filepath.Join(root, "pkg", "__init__.py"),
		filepath.Join(root, "pkg", "core.py"),
	}
	set, failures, err := newExtractor(root).Extract(context.Background(), members)
	require.NoError(t, err)
	assert.Empty(t, failures)

	core, ok := set.Get("pkg.core")
	require.True(t, ok)
	assert.Equal(t, parser.KindModule, core.Kind)
	assert.Equal(t, "Core engine.", core.Docstring)

	reexport, ok := set.Get("pkg.Engine")
	require.True(t, ok)
	assert.Equal(t, parser.KindVariable, reexport.Kind)

	engine, ok := set.Get("pkg.core.Engine")
	require.True(t, ok)
	assert.Equal(t, parser.KindClass, engine.Kind)

	path, ok := set.Get("pkg.path")
	require.True(t, ok)
	assert.Equal(t, parser.KindVariable, path.Kind)

	exported, ok := set.Get("pkg._private_but_exported")
	require.True(t, ok)
	assert.True(t, exported.Conventional)

	assert.False(t, set.Contains("pkg.__all__"))
}

func TestExtract_SkipsBrokenMembers(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"good.py":   "OK = 1\n",
		"broken.py": "def broken(:\n",
	})

	set, failures, err := newExtractor(root).Extract(context.Background(), []string{
		filepath.Join(root, "broken.py"),
		filepath.Join(root, "good.py"),
		filepath.Join(root, "missing.py"),
	})
	require.NoError(t, err)
	assert.True(t, set.Contains("good.OK"))
	require.Len(t, failures, 2)
	for _, f := range failures {
		assert.True(t, errors.IsCode(f.Err, errors.CodeParseFailure), f.Path)
	}
}

func TestExtract_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"m.py": "x = 1\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := newExtractor(root).Extract(ctx, []string{filepath.Join(root, "m.py")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCandidateSet_LastWriteWinsAndOrder(t *testing.T) {
	set := NewCandidateSet([]DefinedSymbol{
		{Name: "b", FullyQualifiedName: "m.b", Kind: parser.KindFunction},
		{Name: "a", FullyQualifiedName: "z.a"},
		{Name: "a", FullyQualifiedName: "m.a"},
		{Name: "b", FullyQualifiedName: "m.b", Kind: parser.KindVariable},
		{Name: "ignored"},
	})

	assert.Equal(t, 3, set.Len())
	b, _ := set.Get("m.b")
	assert.Equal(t, parser.KindVariable, b.Kind)

	all := set.All()
	require.Len(t, all, 3)
	assert.Equal(t, "m.a", all[0].FullyQualifiedName)
	assert.Equal(t, "z.a", all[1].FullyQualifiedName)
	assert.Equal(t, "m.b", all[2].FullyQualifiedName)
}
