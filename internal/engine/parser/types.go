package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// SourceFile is a parsed Python file. Callers own the tree and must Close it.
type SourceFile struct {
	Path   string
	Source []byte
	Tree   *sitter.Tree
}

func (f *SourceFile) Root() *sitter.Node {
	if f == nil || f.Tree == nil {
		return nil
	}
	return f.Tree.RootNode()
}

func (f *SourceFile) Close() {
	if f != nil && f.Tree != nil {
		f.Tree.Close()
		f.Tree = nil
	}
}

// Span is a 1-based source range.
type Span struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

type BindingKind int

const (
	KindFunction BindingKind = iota
	KindClass
	KindVariable
	KindModule
	KindOther
)

func (k BindingKind) String() string {
	switch k {
	case KindFunction:
		return "Function"
	case KindClass:
		return "Class"
	case KindVariable:
		return "Variable"
	case KindModule:
		return "Module"
	default:
		return "Other"
	}
}

// Binding is a name bound at module scope.
type Binding struct {
	Name      string
	Kind      BindingKind
	Span      Span
	Docstring string
	// Import is set when the name was bound by an import statement.
	Import *ImportBinding
}

// ImportBinding describes one local name introduced by an import statement.
//
//	import a.b.c        -> Local "a", Module "a.b.c", Name ""
//	import a.b.c as x   -> Local "x", Module "a.b.c", Name "", Aliased
//	from .m import n    -> Local "n", Module "m", Level 1, Name "n"
//	from m import *     -> Local "", Module "m", Star
type ImportBinding struct {
	Local   string
	Module  string
	Level   int
	Name    string
	Aliased bool
	Star    bool
	Span    Span
}

// IsFrom reports whether the binding came from a from-import.
func (b ImportBinding) IsFrom() bool {
	return b.Name != "" || b.Star || b.Level > 0
}
