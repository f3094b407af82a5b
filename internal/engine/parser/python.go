package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// TopLevelBindings returns the module-scope bindings of file. When a name is
// bound more than once, the last binding wins and keeps the first binding's
// position in the result.
func TopLevelBindings(file *SourceFile) []Binding {
	module := BuildScopes(file).Module
	out := make([]Binding, 0, len(module.order))
	for _, name := range module.Names() {
		sites := module.Sites(name)
		if len(sites) == 0 {
			continue
		}
		last := sites[len(sites)-1]
		out = append(out, Binding{
			Name:      last.Name,
			Kind:      last.Kind,
			Span:      last.Span,
			Docstring: last.Docstring,
			Import:    last.Import,
		})
	}
	return out
}

// ImportBindings expands one import statement into the local names it binds.
func ImportBindings(source []byte, node *sitter.Node) []ImportBinding {
	switch node.Kind() {
	case "import_statement":
		return plainImportBindings(source, node)
	case "import_from_statement":
		return fromImportBindings(source, node)
	}
	return nil
}

func plainImportBindings(source []byte, node *sitter.Node) []ImportBinding {
	var out []ImportBinding
	for _, child := range NamedChildren(node) {
		switch child.Kind() {
		case "dotted_name":
			module := NodeText(source, child)
			out = append(out, ImportBinding{
				Local:  firstSegment(module),
				Module: module,
				Span:   NodeSpan(child),
			})
		case "aliased_import":
			module := NodeText(source, child.ChildByFieldName("name"))
			alias := NodeText(source, child.ChildByFieldName("alias"))
			if module == "" || alias == "" {
				continue
			}
			out = append(out, ImportBinding{
				Local:   alias,
				Module:  module,
				Aliased: true,
				Span:    NodeSpan(child),
			})
		}
	}
	return out
}

func fromImportBindings(source []byte, node *sitter.Node) []ImportBinding {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return nil
	}

	var module string
	level := 0
	if moduleNode.Kind() == "relative_import" {
		prefix := ChildOfKind(moduleNode, "import_prefix")
		level = strings.Count(NodeText(source, prefix), ".")
		module = NodeText(source, ChildOfKind(moduleNode, "dotted_name"))
	} else {
		module = NodeText(source, moduleNode)
	}

	var out []ImportBinding
	for _, child := range NamedChildren(node) {
		if child.Id() == moduleNode.Id() {
			continue
		}
		switch child.Kind() {
		case "wildcard_import":
			out = append(out, ImportBinding{Module: module, Level: level, Star: true, Span: NodeSpan(node)})
		case "dotted_name", "identifier":
			name := NodeText(source, child)
			out = append(out, ImportBinding{
				Local:  name,
				Module: module,
				Level:  level,
				Name:   name,
				Span:   NodeSpan(child),
			})
		case "aliased_import":
			name := NodeText(source, child.ChildByFieldName("name"))
			alias := NodeText(source, child.ChildByFieldName("alias"))
			if name == "" || alias == "" {
				continue
			}
			out = append(out, ImportBinding{
				Local:   alias,
				Module:  module,
				Level:   level,
				Name:    name,
				Aliased: true,
				Span:    NodeSpan(child),
			})
		}
	}
	return out
}

func firstSegment(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}

// ModuleDocstring returns the docstring of the file itself.
func ModuleDocstring(file *SourceFile) string {
	return BlockDocstring(file.Source, file.Root())
}

// BlockDocstring returns the docstring of a module or block: its first
// statement, when that statement is a bare string literal.
func BlockDocstring(source []byte, block *sitter.Node) string {
	first := firstStatement(block)
	if first == nil {
		return ""
	}
	return statementString(source, first)
}

// AttributeDocstring returns the string literal statement that directly
// follows an assignment statement, if any.
func AttributeDocstring(source []byte, assignment *sitter.Node) string {
	stmt := assignment.Parent()
	if stmt == nil || stmt.Kind() != "expression_statement" {
		return ""
	}
	next := stmt.NextNamedSibling()
	for next != nil && next.Kind() == "comment" {
		next = next.NextNamedSibling()
	}
	if next == nil {
		return ""
	}
	return statementString(source, next)
}

func firstStatement(block *sitter.Node) *sitter.Node {
	for _, child := range NamedChildren(block) {
		if child.Kind() == "comment" {
			continue
		}
		return child
	}
	return nil
}

func statementString(source []byte, stmt *sitter.Node) string {
	if stmt.Kind() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return ""
	}
	lit := stmt.NamedChild(0)
	switch lit.Kind() {
	case "string":
		return cleanDoc(StringLiteralValue(source, lit))
	case "concatenated_string":
		var b strings.Builder
		for _, part := range NamedChildren(lit) {
			if part.Kind() == "string" {
				b.WriteString(StringLiteralValue(source, part))
			}
		}
		return cleanDoc(b.String())
	}
	return ""
}

// StringLiteralValue returns the raw text between the quotes of a string
// node. Escapes are left as written.
func StringLiteralValue(source []byte, node *sitter.Node) string {
	if node == nil || node.Kind() != "string" {
		return ""
	}
	open := ChildOfKind(node, "string_start")
	closing := ChildOfKind(node, "string_end")
	if open == nil || closing == nil || closing.StartByte() < open.EndByte() {
		return ""
	}
	return string(source[open.EndByte():closing.StartByte()])
}

// cleanDoc trims a docstring and removes the common indentation of every
// line after the first.
func cleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	indent := -1
	for _, line := range lines[1:] {
		stripped := strings.TrimLeft(line, " \t")
		if stripped == "" {
			continue
		}
		if n := len(line) - len(stripped); indent < 0 || n < indent {
			indent = n
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	if indent > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= indent {
				lines[i] = lines[i][indent:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " \t")
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// DunderAll returns the string entries assigned to `__all__` at module level.
func DunderAll(file *SourceFile) []string {
	var names []string
	for _, stmt := range NamedChildren(file.Root()) {
		if stmt.Kind() != "expression_statement" || stmt.NamedChildCount() != 1 {
			continue
		}
		assign := stmt.NamedChild(0)
		if assign.Kind() != "assignment" && assign.Kind() != "augmented_assignment" {
			continue
		}
		if NodeText(file.Source, assign.ChildByFieldName("left")) != "__all__" {
			continue
		}
		right := assign.ChildByFieldName("right")
		for _, item := range NamedChildren(right) {
			if value := StringLiteralValue(file.Source, item); value != "" {
				names = append(names, value)
			}
		}
	}
	return names
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == "ERROR" || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil && child.HasError() {
			if bad := firstErrorNode(child); bad != nil {
				return bad
			}
		}
	}
	return nil
}
