package parser

import (
	"testing"

	"pubscan/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(NewGrammarLoader(nil))
}

func parseSource(t *testing.T, code string) *SourceFile {
	t.Helper()
	file, err := newTestParser().Parse("mod.py", []byte(code))
	require.NoError(t, err)
	t.Cleanup(file.Close)
	return file
}

func TestParser_SupportedPaths(t *testing.T) {
	p := newTestParser()

	assert.True(t, p.IsSupportedPath("pkg/mod.py"))
	assert.True(t, p.IsSupportedPath("pkg/stubs.pyi"))
	assert.True(t, p.IsSupportedPath("pkg/UPPER.PY"))
	assert.False(t, p.IsSupportedPath("pkg/readme.md"))
	assert.Equal(t, []string{".py", ".pyi"}, p.SupportedExtensions())
}

func TestParser_CustomExtensions(t *testing.T) {
	p := NewParser(NewGrammarLoader([]string{"py", " .PYW "}))
	assert.Equal(t, []string{".py", ".pyw"}, p.SupportedExtensions())
	assert.True(t, p.IsSupportedPath("gui.pyw"))
	assert.False(t, p.IsSupportedPath("stubs.pyi"))
}

func TestParser_IsTestFile(t *testing.T) {
	p := newTestParser()

	cases := map[string]bool{
		"tests/test_api.py": true,
		"api_test.py":       true,
		"test_stub.pyi":     true,
		"contest.py":        false,
		"testing.py":        false,
		"api.py":            false,
	}
	for path, want := range cases {
		assert.Equal(t, want, p.IsTestFile(path), path)
	}
}

func TestParser_RejectsSyntaxErrors(t *testing.T) {
	p := newTestParser()

	_, err := p.Parse("broken.py", []byte("def broken(:\n    pass\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParseFailure))
	assert.Contains(t, err.Error(), "broken.py")
	assert.Equal(t, 0, p.ActiveParsers())
}

func TestParser_RepeatedSyntaxErrors(t *testing.T) {
	p := newTestParser()

	for i := 0; i < 50; i++ {
		_, err := p.Parse("broken.py", []byte("x = 1\ndef broken(:\n    pass\n"))
		require.Error(t, err)
		require.True(t, errors.IsCode(err, errors.CodeParseFailure))
		assert.Contains(t, err.Error(), "syntax error near line")
		assert.NotContains(t, err.Error(), "near line 0")
	}

	file, err := p.Parse("ok.py", []byte("def fine():\n    pass\n"))
	require.NoError(t, err)
	defer file.Close()
	assert.False(t, file.Root().HasError())
	assert.Equal(t, 0, p.ActiveParsers())
}

func TestParser_RejectsUnsupportedFile(t *testing.T) {
	_, err := newTestParser().Parse("notes.txt", []byte("x = 1"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotPython))
}

func TestParser_WithRoleSharesPool(t *testing.T) {
	p := newTestParser()
	member := p.WithRole("member")

	file, err := member.Parse("a.py", []byte("A = 1\n"))
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, p.pool, member.pool)
	assert.Equal(t, "module", file.Root().Kind())
}
