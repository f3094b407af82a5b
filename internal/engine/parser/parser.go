package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pubscan/internal/core/errors"
	"pubscan/internal/shared/observability"
)

// Parser turns Python source into syntax trees using pooled tree-sitter parsers.
type Parser struct {
	loader *GrammarLoader
	pool   *ParserPool
	role   string
}

func NewParser(loader *GrammarLoader) *Parser {
	return &Parser{
		loader: loader,
		pool:   NewParserPool(loader.Language()),
		role:   "any",
	}
}

// WithRole returns a parser sharing the same pool whose parse timings are
// labelled with role ("member" or "external").
func (p *Parser) WithRole(role string) *Parser {
	clone := *p
	clone.role = role
	return &clone
}

// Parse parses content. A tree containing syntax errors is rejected with a
// PARSE_FAILURE error so callers never analyze a partial module.
func (p *Parser) Parse(path string, content []byte) (*SourceFile, error) {
	if !p.IsSupportedPath(path) {
		return nil, errors.New(errors.CodeNotPython, fmt.Sprintf("unsupported file type: %s", filepath.Ext(path)))
	}

	start := time.Now()
	sp := p.pool.Get()
	defer p.pool.Put(sp)

	tree := sp.Parse(content, nil)
	observability.ParsingDuration.WithLabelValues(p.role).Observe(time.Since(start).Seconds())
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeParseFailure, "parse failed"), errors.CtxPath, path)
	}

	root := tree.RootNode()
	if root == nil || root.HasError() {
		// Nodes are invalid once the tree is closed.
		line := 0
		if root != nil {
			if bad := firstErrorNode(root); bad != nil {
				line = int(bad.StartPosition().Row) + 1
			}
		}
		tree.Close()
		err := errors.New(errors.CodeParseFailure, fmt.Sprintf("syntax error near line %d", line))
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}

	return &SourceFile{Path: path, Source: content, Tree: tree}, nil
}

func (p *Parser) IsSupportedPath(filePath string) bool {
	return p.loader.extensions[strings.ToLower(filepath.Ext(filePath))]
}

// IsTestFile matches pytest naming: test_*.py and *_test.py.
func (p *Parser) IsTestFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasPrefix(stem, "test_") || strings.HasSuffix(stem, "_test")
}

func (p *Parser) SupportedExtensions() []string {
	return p.loader.SupportedExtensions()
}

func (p *Parser) ActiveParsers() int {
	return p.pool.Active()
}
