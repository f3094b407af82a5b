package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeClass
	ScopeLambda
	ScopeComprehension
)

// Site is one place where a name gets bound.
type Site struct {
	Name      string
	Kind      BindingKind
	Span      Span
	Docstring string
	Import    *ImportBinding
}

// Scope holds the names bound directly in one Python scope.
type Scope struct {
	Kind   ScopeKind
	Parent *Scope

	sites     map[string][]Site
	order     []string
	globals   map[string]bool
	nonlocals map[string]bool
	stars     []ImportBinding
}

func newScope(kind ScopeKind, parent *Scope) *Scope {
	return &Scope{
		Kind:      kind,
		Parent:    parent,
		sites:     make(map[string][]Site),
		globals:   make(map[string]bool),
		nonlocals: make(map[string]bool),
	}
}

// Sites returns every binding site of name in this scope, in source order.
func (s *Scope) Sites(name string) []Site {
	return s.sites[name]
}

// Names returns the names bound in this scope in first-binding order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Scope) IsGlobal(name string) bool   { return s.globals[name] }
func (s *Scope) IsNonlocal(name string) bool { return s.nonlocals[name] }

// StarImports returns the `from m import *` statements made in this scope.
func (s *Scope) StarImports() []ImportBinding {
	return s.stars
}

func (s *Scope) module() *Scope {
	cur := s
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

func (s *Scope) add(site Site) {
	if site.Name == "" {
		return
	}
	target := s
	if s.Kind != ScopeModule && s.globals[site.Name] {
		target = s.module()
	} else if s.nonlocals[site.Name] {
		// Binding belongs to an enclosing function; resolution will find it there.
		return
	}
	if _, seen := target.sites[site.Name]; !seen {
		target.order = append(target.order, site.Name)
	}
	target.sites[site.Name] = append(target.sites[site.Name], site)
}

// ScopeTree indexes every scope of a file by the node that opens it.
type ScopeTree struct {
	Module *Scope
	byNode map[uintptr]*Scope
	nested []*Scope
}

// Scopes returns every scope other than the module scope, in source order.
func (t *ScopeTree) Scopes() []*Scope {
	return t.nested
}

// ScopeFor returns the scope opened by node (a def, class, lambda or
// comprehension), or nil if node does not open one.
func (t *ScopeTree) ScopeFor(node *sitter.Node) *Scope {
	if node == nil {
		return nil
	}
	return t.byNode[node.Id()]
}

// BuildScopes records every binding site of file, scope by scope.
func BuildScopes(file *SourceFile) *ScopeTree {
	b := &scopeBuilder{
		source: file.Source,
		tree: &ScopeTree{
			Module: newScope(ScopeModule, nil),
			byNode: make(map[uintptr]*Scope),
		},
	}
	b.visitChildren(file.Root(), b.tree.Module)
	return b.tree
}

type scopeBuilder struct {
	source []byte
	tree   *ScopeTree
}

func (b *scopeBuilder) open(node *sitter.Node, kind ScopeKind, parent *Scope) *Scope {
	s := newScope(kind, parent)
	b.tree.byNode[node.Id()] = s
	b.tree.nested = append(b.tree.nested, s)
	return s
}

func (b *scopeBuilder) visitChildren(node *sitter.Node, scope *Scope) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		b.visit(node.Child(i), scope)
	}
}

func (b *scopeBuilder) visit(node *sitter.Node, scope *Scope) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "function_definition":
		body := node.ChildByFieldName("body")
		if name := node.ChildByFieldName("name"); name != nil {
			scope.add(Site{
				Name:      NodeText(b.source, name),
				Kind:      KindFunction,
				Span:      NodeSpan(node),
				Docstring: BlockDocstring(b.source, body),
			})
		}
		params := node.ChildByFieldName("parameters")
		b.visitParameterExpressions(params, scope)
		b.visit(node.ChildByFieldName("return_type"), scope)
		inner := b.open(node, ScopeFunction, scope)
		b.bindParameters(params, inner)
		b.visitChildren(body, inner)

	case "class_definition":
		body := node.ChildByFieldName("body")
		if name := node.ChildByFieldName("name"); name != nil {
			scope.add(Site{
				Name:      NodeText(b.source, name),
				Kind:      KindClass,
				Span:      NodeSpan(node),
				Docstring: BlockDocstring(b.source, body),
			})
		}
		b.visit(node.ChildByFieldName("superclasses"), scope)
		inner := b.open(node, ScopeClass, scope)
		b.visitChildren(body, inner)

	case "lambda":
		params := node.ChildByFieldName("parameters")
		b.visitParameterExpressions(params, scope)
		inner := b.open(node, ScopeLambda, scope)
		b.bindParameters(params, inner)
		b.visit(node.ChildByFieldName("body"), inner)

	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		inner := b.open(node, ScopeComprehension, scope)
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "for_in_clause" {
				b.bindTargets(child.ChildByFieldName("left"), inner, KindVariable, "")
				b.visitExcept(child, inner, child.ChildByFieldName("left"))
				continue
			}
			b.visit(child, inner)
		}

	case "import_statement", "import_from_statement":
		for _, imp := range ImportBindings(b.source, node) {
			imp := imp
			if imp.Star {
				scope.stars = append(scope.stars, imp)
				continue
			}
			kind := KindVariable
			if !imp.IsFrom() {
				kind = KindModule
			}
			scope.add(Site{Name: imp.Local, Kind: kind, Span: imp.Span, Import: &imp})
		}

	case "future_import_statement":

	case "assignment", "augmented_assignment":
		left := node.ChildByFieldName("left")
		// A bare annotation (`x: int`) declares without binding.
		if node.Kind() == "augmented_assignment" || node.ChildByFieldName("right") != nil {
			b.bindTargets(left, scope, KindVariable, AttributeDocstring(b.source, node))
		}
		b.visitExcept(node, scope, left)

	case "for_statement":
		left := node.ChildByFieldName("left")
		b.bindTargets(left, scope, KindVariable, "")
		b.visitExcept(node, scope, left)

	case "named_expression":
		target := scope
		for target.Kind == ScopeComprehension && target.Parent != nil {
			target = target.Parent
		}
		b.bindTargets(node.ChildByFieldName("name"), target, KindVariable, "")
		b.visit(node.ChildByFieldName("value"), scope)

	case "as_pattern":
		alias := node.ChildByFieldName("alias")
		if alias == nil {
			// `case P as name` carries no alias field.
			alias = CaseAlias(node)
		}
		kind := KindVariable
		if node.Parent() != nil && node.Parent().Kind() == "except_clause" {
			kind = KindOther
		}
		b.bindTargets(alias, scope, kind, "")
		b.visitExcept(node, scope, alias)

	case "except_clause", "except_group_clause":
		// Older grammars emit `except E as e` without an as_pattern node.
		afterAs := false
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "as" {
				afterAs = true
				continue
			}
			if afterAs && child.IsNamed() {
				b.bindTargets(child, scope, KindOther, "")
				afterAs = false
				continue
			}
			b.visit(child, scope)
		}

	case "dotted_name":
		if IsCaptureName(node) {
			scope.add(Site{Name: NodeText(b.source, node), Kind: KindVariable, Span: NodeSpan(node)})
		}

	case "splat_pattern":
		for _, id := range NamedChildren(node) {
			if id.Kind() == "identifier" {
				scope.add(Site{Name: NodeText(b.source, id), Kind: KindVariable, Span: NodeSpan(id)})
			}
		}

	case "keyword_pattern":
		// The leading identifier names an attribute of the matched class.
		for i, child := range NamedChildren(node) {
			if i > 0 {
				b.visit(child, scope)
			}
		}

	case "global_statement":
		for _, id := range NamedChildren(node) {
			if id.Kind() == "identifier" {
				scope.globals[NodeText(b.source, id)] = true
			}
		}

	case "nonlocal_statement":
		for _, id := range NamedChildren(node) {
			if id.Kind() == "identifier" {
				scope.nonlocals[NodeText(b.source, id)] = true
			}
		}

	default:
		b.visitChildren(node, scope)
	}
}

// visitExcept visits every child of node other than skip.
func (b *scopeBuilder) visitExcept(node *sitter.Node, scope *Scope, skip *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if skip != nil && child.Id() == skip.Id() {
			b.visitStoreExpressions(child, scope)
			continue
		}
		b.visit(child, scope)
	}
}

// visitStoreExpressions walks the load parts of an assignment target such as
// the object of `a.b = 1` or the index in `a[i] = 1`.
func (b *scopeBuilder) visitStoreExpressions(node *sitter.Node, scope *Scope) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier":
	case "attribute":
		b.visit(node.ChildByFieldName("object"), scope)
	case "subscript":
		b.visitChildren(node, scope)
	default:
		for _, child := range NamedChildren(node) {
			b.visitStoreExpressions(child, scope)
		}
	}
}

// bindTargets binds every plain name inside an assignment target.
func (b *scopeBuilder) bindTargets(node *sitter.Node, scope *Scope, kind BindingKind, doc string) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier":
		scope.add(Site{Name: NodeText(b.source, node), Kind: kind, Span: NodeSpan(node), Docstring: doc})
	case "attribute", "subscript":
	default:
		for _, child := range NamedChildren(node) {
			b.bindTargets(child, scope, kind, doc)
		}
	}
}

func (b *scopeBuilder) bindParameters(params *sitter.Node, scope *Scope) {
	for _, param := range NamedChildren(params) {
		if name := ParameterName(param); name != nil {
			scope.add(Site{Name: NodeText(b.source, name), Kind: KindOther, Span: NodeSpan(name)})
		}
	}
}

// visitParameterExpressions walks defaults and annotations, which are
// evaluated in the scope enclosing the function.
func (b *scopeBuilder) visitParameterExpressions(params *sitter.Node, scope *Scope) {
	for _, param := range NamedChildren(params) {
		b.visit(param.ChildByFieldName("type"), scope)
		b.visit(param.ChildByFieldName("value"), scope)
	}
}

// ParameterName returns the identifier a parameter node binds, or nil.
func ParameterName(param *sitter.Node) *sitter.Node {
	if param == nil {
		return nil
	}
	switch param.Kind() {
	case "identifier":
		return param
	case "default_parameter", "typed_default_parameter":
		return ParameterName(param.ChildByFieldName("name"))
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		for _, child := range NamedChildren(param) {
			if child.Kind() == "identifier" {
				return child
			}
			if child.Kind() == "list_splat_pattern" || child.Kind() == "dictionary_splat_pattern" {
				return ParameterName(child)
			}
		}
	}
	return nil
}

// IsCaptureName reports whether a dotted_name is a match capture pattern
// (`case name:`), which binds rather than reads. Dotted value patterns and
// class pattern names are reads.
func IsCaptureName(node *sitter.Node) bool {
	if node == nil || node.Kind() != "dotted_name" || node.NamedChildCount() != 1 {
		return false
	}
	parent := node.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case "case_pattern", "keyword_pattern":
		return true
	}
	return false
}

// CaseAlias returns the name bound by `case P as name`, or nil for as
// patterns outside match statements.
func CaseAlias(node *sitter.Node) *sitter.Node {
	if node == nil || node.ChildByFieldName("alias") != nil {
		return nil
	}
	afterAs := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "as" {
			afterAs = true
			continue
		}
		if afterAs && child.Kind() == "identifier" {
			return child
		}
	}
	return nil
}
