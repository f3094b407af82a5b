package boundary

import (
	"os"
	"path/filepath"
	"testing"

	"pubscan/internal/core/errors"
	"pubscan/internal/engine/parser"
	"pubscan/internal/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		require.NoError(t, util.WriteFileWithDirs(filepath.Join(root, rel), []byte(content), 0o644))
	}
}

func canonicalTempDir(t *testing.T) string {
	t.Helper()
	dir, err := util.CanonicalPath(t.TempDir())
	require.NoError(t, err)
	return dir
}

func pythonFilter() PathFilter {
	return parser.NewParser(parser.NewGrammarLoader(nil))
}

func TestResolve_SingleModule(t *testing.T) {
	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{"m.py": "x = 1\n"})

	b, err := Resolve(filepath.Join(root, "m.py"), pythonFilter())
	require.NoError(t, err)
	assert.Equal(t, KindModule, b.Kind)
	assert.Equal(t, []string{filepath.Join(root, "m.py")}, b.Members())
	assert.True(t, b.Contains(filepath.Join(root, "m.py")))
}

func TestResolve_Package(t *testing.T) {
	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{
		"pkg/__init__.py":              "",
		"pkg/core.py":                  "",
		"pkg/stubs.pyi":                "",
		"pkg/sub/deep.py":              "",
		"pkg/README.md":                "",
		"pkg/.hidden/secret.py":        "",
		"pkg/__pycache__/core.cpython": "",
	})

	b, err := Resolve(filepath.Join(root, "pkg"), pythonFilter())
	require.NoError(t, err)
	assert.Equal(t, KindPackage, b.Kind)
	assert.Equal(t, []string{
		filepath.Join(root, "pkg", "__init__.py"),
		filepath.Join(root, "pkg", "core.py"),
		filepath.Join(root, "pkg", "stubs.pyi"),
		filepath.Join(root, "pkg", "sub", "deep.py"),
	}, b.Members())
}

func TestResolve_NamespacePackageWithoutInit(t *testing.T) {
	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{"ns/a.py": ""})

	b, err := Resolve(filepath.Join(root, "ns"), pythonFilter())
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())
}

func TestResolve_Errors(t *testing.T) {
	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{"notes.txt": "hello"})

	_, err := Resolve(filepath.Join(root, "missing.py"), pythonFilter())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidTarget))

	_, err = Resolve(filepath.Join(root, "notes.txt"), pythonFilter())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotPython))

	_, err = Resolve("  ", pythonFilter())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidTarget))
}

func TestPartition_DisjointAndComplete(t *testing.T) {
	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{
		"pkg/__init__.py": "",
		"pkg/a.py":        "",
		"client.py":       "",
		"other/b.py":      "",
	})

	b, err := Resolve(filepath.Join(root, "pkg"), pythonFilter())
	require.NoError(t, err)

	project := []string{
		filepath.Join(root, "client.py"),
		filepath.Join(root, "other", "b.py"),
		filepath.Join(root, "pkg", "__init__.py"),
		filepath.Join(root, "pkg", "a.py"),
		filepath.Join(root, "client.py"),
	}
	external := Partition(project, b)

	assert.Equal(t, []string{
		filepath.Join(root, "client.py"),
		filepath.Join(root, "other", "b.py"),
	}, external)

	union := make(map[string]bool)
	for _, p := range external {
		assert.False(t, b.Contains(p), "%s is both member and external", p)
		union[p] = true
	}
	for _, p := range b.Members() {
		union[p] = true
	}
	for _, p := range project {
		assert.True(t, union[p], "%s missing from partition", p)
	}
}

func TestResolve_SymlinkedTargetIsCanonical(t *testing.T) {
	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{"real/m.py": ""})
	link := filepath.Join(root, "link")
	if err := os.Symlink(filepath.Join(root, "real"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	b, err := Resolve(link, pythonFilter())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "real"), b.Root)
	assert.True(t, b.Contains(filepath.Join(root, "real", "m.py")))
}
