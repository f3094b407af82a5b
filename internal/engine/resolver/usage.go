package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"pubscan/internal/core/errors"
	"pubscan/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// UsageResolver counts references to candidate symbols in external files.
// One resolver is shared by all workers; per-file state lives in a visitor.
type UsageResolver struct {
	parser     *parser.Parser
	modules    *PythonResolver
	candidates CandidateIndex
}

func NewUsageResolver(p *parser.Parser, modules *PythonResolver, candidates CandidateIndex) *UsageResolver {
	return &UsageResolver{parser: p, modules: modules, candidates: candidates}
}

// ResolveFile reads and scans one external file. On failure it returns an
// empty usage together with a PARSE_FAILURE error so the caller can record a
// diagnostic and move on.
func (r *UsageResolver) ResolveFile(ctx context.Context, path string) (*FileUsage, error) {
	usage := newFileUsage(path)
	if err := ctx.Err(); err != nil {
		return usage, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return usage, errors.AddContext(errors.Wrap(err, errors.CodeParseFailure, "read failed"), errors.CtxPath, path)
	}
	return r.ResolveSource(path, content)
}

// ResolveSource scans already-loaded content attributed to path.
func (r *UsageResolver) ResolveSource(path string, content []byte) (*FileUsage, error) {
	usage := newFileUsage(path)

	file, err := r.parser.Parse(path, content)
	if err != nil {
		return usage, err
	}
	defer file.Close()

	v := &usageVisitor{
		resolver: r,
		usage:    usage,
		source:   file.Source,
		scopes:   parser.BuildScopes(file),
		module:   r.modules.GetModuleName(path),
		isInit:   IsPackageInit(path),
		bindings: make(map[*parser.Scope]map[string]resolvedName),
	}
	v.scope = v.scopes.Module
	v.engine = parser.NewExtractorEngine(v.handlers())
	v.reportStarImports()
	v.engine.Walk(parser.NewExtractionContext(file), file.Root())

	for _, amb := range usage.Ambiguous {
		slog.Debug("ambiguous binding not counted",
			"path", path, "name", amb.Name, "line", amb.Line, "reason", amb.Reason)
	}
	return usage, nil
}

type resolvedName struct {
	fqn      string
	imported bool
}

type usageVisitor struct {
	resolver *UsageResolver
	usage    *FileUsage
	source   []byte
	scopes   *parser.ScopeTree
	scope    *parser.Scope
	engine   *parser.ExtractorEngine
	module   string
	isInit   bool
	bindings map[*parser.Scope]map[string]resolvedName
}

func (v *usageVisitor) handlers() map[string]parser.NodeHandler {
	stop := func(*parser.ExtractionContext, *sitter.Node) bool { return true }
	return map[string]parser.NodeHandler{
		"identifier":               v.visitIdentifier,
		"attribute":                v.visitAttribute,
		"dotted_name":              v.visitDottedName,
		"keyword_argument":         v.visitKeywordArgument,
		"function_definition":      v.visitFunction,
		"class_definition":         v.visitClass,
		"lambda":                   v.visitLambda,
		"list_comprehension":       v.visitComprehension,
		"set_comprehension":        v.visitComprehension,
		"dictionary_comprehension": v.visitComprehension,
		"generator_expression":     v.visitComprehension,
		"for_in_clause":            v.visitStoreStatement,
		"assignment":               v.visitStoreStatement,
		"augmented_assignment":     v.visitStoreStatement,
		"for_statement":            v.visitStoreStatement,
		"named_expression":         v.visitNamedExpression,
		"as_pattern":               v.visitAsPattern,
		"keyword_pattern":          v.visitKeywordPattern,
		"splat_pattern":            stop,
		"delete_statement":         v.visitDelete,
		"except_clause":            v.visitExceptClause,
		"except_group_clause":      v.visitExceptClause,
		"import_statement":         stop,
		"import_from_statement":    stop,
		"future_import_statement":  stop,
		"global_statement":         stop,
		"nonlocal_statement":       stop,
	}
}

func (v *usageVisitor) record(fqn string) {
	v.usage.Counts[fqn]++
	v.usage.References++
}

func (v *usageVisitor) visitIdentifier(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	if name, ok := v.lookup(ctx.Text(node)); ok && v.resolver.candidates.Contains(name.fqn) {
		v.record(name.fqn)
	}
	return true
}

func (v *usageVisitor) visitAttribute(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	if fqn, ok := v.attributeFQN(node); ok && v.resolver.candidates.Contains(fqn) {
		v.record(fqn)
	}
	v.engine.Walk(ctx, node.ChildByFieldName("object"))
	return true
}

// attributeFQN composes `name.attr.attr` through the binding of name.
func (v *usageVisitor) attributeFQN(node *sitter.Node) (string, bool) {
	switch node.Kind() {
	case "identifier":
		name, ok := v.lookup(parser.NodeText(v.source, node))
		if !ok {
			return "", false
		}
		return name.fqn, true
	case "attribute":
		base, ok := v.attributeFQN(node.ChildByFieldName("object"))
		if !ok {
			return "", false
		}
		attr := node.ChildByFieldName("attribute")
		if attr == nil {
			return "", false
		}
		return base + "." + parser.NodeText(v.source, attr), true
	}
	return "", false
}

// visitDottedName handles dotted references outside imports, such as value
// patterns in match statements. Capture patterns bind and are skipped.
func (v *usageVisitor) visitDottedName(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	if parser.IsCaptureName(node) {
		return true
	}
	parts := strings.Split(ctx.Text(node), ".")
	name, ok := v.lookup(strings.TrimSpace(parts[0]))
	if !ok {
		return true
	}
	fqn := name.fqn
	if v.resolver.candidates.Contains(fqn) {
		v.record(fqn)
	}
	for _, part := range parts[1:] {
		fqn += "." + strings.TrimSpace(part)
		if v.resolver.candidates.Contains(fqn) {
			v.record(fqn)
		}
	}
	return true
}

func (v *usageVisitor) visitKeywordArgument(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	v.engine.Walk(ctx, node.ChildByFieldName("value"))
	return true
}

func (v *usageVisitor) visitFunction(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	params := node.ChildByFieldName("parameters")
	v.walkParameterExpressions(ctx, params)
	v.engine.Walk(ctx, node.ChildByFieldName("return_type"))
	v.inScope(node, func() {
		v.engine.WalkChildren(ctx, node.ChildByFieldName("body"))
	})
	return true
}

func (v *usageVisitor) visitClass(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	v.engine.Walk(ctx, node.ChildByFieldName("superclasses"))
	v.inScope(node, func() {
		v.engine.WalkChildren(ctx, node.ChildByFieldName("body"))
	})
	return true
}

func (v *usageVisitor) visitLambda(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	v.walkParameterExpressions(ctx, node.ChildByFieldName("parameters"))
	v.inScope(node, func() {
		v.engine.Walk(ctx, node.ChildByFieldName("body"))
	})
	return true
}

func (v *usageVisitor) visitComprehension(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	v.inScope(node, func() {
		v.engine.WalkChildren(ctx, node)
	})
	return true
}

// visitStoreStatement walks a binding statement, skipping the names it
// stores to while still visiting loads inside its target.
func (v *usageVisitor) visitStoreStatement(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	left := node.ChildByFieldName("left")
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if left != nil && child.Id() == left.Id() {
			v.walkStoreTarget(ctx, child)
			continue
		}
		v.engine.Walk(ctx, child)
	}
	return true
}

func (v *usageVisitor) visitNamedExpression(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	v.engine.Walk(ctx, node.ChildByFieldName("value"))
	return true
}

func (v *usageVisitor) visitAsPattern(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	alias := node.ChildByFieldName("alias")
	if alias == nil {
		alias = parser.CaseAlias(node)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if alias != nil && child.Id() == alias.Id() {
			v.walkStoreTarget(ctx, child)
			continue
		}
		v.engine.Walk(ctx, child)
	}
	return true
}

// visitKeywordPattern skips the attribute name in `case Point(x=...)`.
func (v *usageVisitor) visitKeywordPattern(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	for i, child := range parser.NamedChildren(node) {
		if i > 0 {
			v.engine.Walk(ctx, child)
		}
	}
	return true
}

// visitDelete treats `del name` as an unbinding. Loads inside targets such
// as `del name.attr` or `del name[k]` still count.
func (v *usageVisitor) visitDelete(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	for _, target := range parser.NamedChildren(node) {
		v.walkStoreTarget(ctx, target)
	}
	return true
}

func (v *usageVisitor) visitExceptClause(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	afterAs := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "as" {
			afterAs = true
			continue
		}
		if afterAs && child.IsNamed() {
			v.walkStoreTarget(ctx, child)
			afterAs = false
			continue
		}
		v.engine.Walk(ctx, child)
	}
	return true
}

func (v *usageVisitor) walkStoreTarget(ctx *parser.ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier":
	case "attribute":
		v.engine.Walk(ctx, node.ChildByFieldName("object"))
	case "subscript":
		v.engine.WalkChildren(ctx, node)
	default:
		for _, child := range parser.NamedChildren(node) {
			v.walkStoreTarget(ctx, child)
		}
	}
}

func (v *usageVisitor) walkParameterExpressions(ctx *parser.ExtractionContext, params *sitter.Node) {
	for _, param := range parser.NamedChildren(params) {
		v.engine.Walk(ctx, param.ChildByFieldName("type"))
		v.engine.Walk(ctx, param.ChildByFieldName("value"))
	}
}

func (v *usageVisitor) inScope(node *sitter.Node, fn func()) {
	inner := v.scopes.ScopeFor(node)
	if inner == nil {
		fn()
		return
	}
	outer := v.scope
	v.scope = inner
	defer func() { v.scope = outer }()
	fn()
}

// lookup resolves name from the current scope outward. Class scopes are only
// visible from their own body.
func (v *usageVisitor) lookup(name string) (resolvedName, bool) {
	start := v.scope
	for s := start; s != nil; {
		if s != start && s.Kind == parser.ScopeClass {
			s = s.Parent
			continue
		}
		if s.Kind != parser.ScopeModule && s.IsGlobal(name) {
			s = v.scopes.Module
			continue
		}
		if s.IsNonlocal(name) {
			s = s.Parent
			continue
		}
		if len(s.Sites(name)) > 0 {
			resolved := v.resolveIn(s, name)
			return resolved, resolved.imported
		}
		if s.Kind == parser.ScopeModule {
			break
		}
		s = s.Parent
	}
	return resolvedName{}, false
}

// resolveIn classifies the binding of name in scope s. Only a binding made
// exclusively by imports agreeing on one candidate-relevant FQN is kept;
// everything else shadows as a plain local.
func (v *usageVisitor) resolveIn(s *parser.Scope, name string) resolvedName {
	cache, ok := v.bindings[s]
	if !ok {
		cache = make(map[string]resolvedName)
		v.bindings[s] = cache
	}
	if resolved, ok := cache[name]; ok {
		return resolved
	}

	sites := s.Sites(name)
	fqns := make(map[string]bool)
	hasLocal := false
	relevant := false
	for _, site := range sites {
		if site.Import == nil {
			hasLocal = true
			continue
		}
		fqn, ok := v.resolver.modules.ResolveImport(v.module, v.isInit, *site.Import)
		if !ok {
			hasLocal = true
			continue
		}
		fqns[fqn] = true
		if v.resolver.candidates.HasPrefix(fqn) {
			relevant = true
		}
	}

	resolved := resolvedName{}
	switch {
	case !relevant:
	case hasLocal || len(fqns) > 1:
		reason := "bound by both an import and a local definition"
		if !hasLocal {
			reason = fmt.Sprintf("bound by %d conflicting imports", len(fqns))
		}
		v.usage.Ambiguous = append(v.usage.Ambiguous, Ambiguity{
			Name:   name,
			Line:   sites[0].Span.StartLine,
			Reason: reason,
		})
	default:
		for fqn := range fqns {
			resolved = resolvedName{fqn: fqn, imported: true}
		}
	}
	cache[name] = resolved
	return resolved
}

// reportStarImports flags wildcard imports from candidate modules. Names they
// bring in are never counted.
func (v *usageVisitor) reportStarImports() {
	var scopes []*parser.Scope
	scopes = append(scopes, v.scopes.Module)
	scopes = append(scopes, v.scopes.Scopes()...)
	for _, s := range scopes {
		for _, imp := range s.StarImports() {
			module, ok := v.resolver.modules.ResolveModule(v.module, v.isInit, imp)
			if !ok || !v.resolver.candidates.HasPrefix(module) {
				continue
			}
			v.usage.Ambiguous = append(v.usage.Ambiguous, Ambiguity{
				Name:   module + ".*",
				Line:   imp.Span.StartLine,
				Reason: "wildcard import",
			})
		}
	}
}
