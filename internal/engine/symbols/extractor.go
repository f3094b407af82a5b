package symbols

import (
	"context"
	"log/slog"
	"os"
	"time"

	"pubscan/internal/core/errors"
	"pubscan/internal/engine/parser"
	"pubscan/internal/engine/resolver"
	"pubscan/internal/shared/observability"
)

// FileError is a member file that could not be read or parsed.
type FileError struct {
	Path string
	Err  error
}

// Extractor collects candidate symbols from boundary member files.
type Extractor struct {
	parser  *parser.Parser
	modules *resolver.PythonResolver
}

func NewExtractor(p *parser.Parser, modules *resolver.PythonResolver) *Extractor {
	return &Extractor{parser: p, modules: modules}
}

type memberFile struct {
	path      string
	module    string
	isInit    bool
	docstring string
	exported  map[string]bool
	bindings  []parser.Binding
}

// Extract parses every member and returns their module-scope bindings as
// candidates. Unreadable or unparsable members are skipped and reported.
func (e *Extractor) Extract(ctx context.Context, members []string) (*CandidateSet, []FileError, error) {
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("candidates").Observe(time.Since(start).Seconds())
	}()

	var failures []FileError
	parsed := make([]memberFile, 0, len(members))
	moduleDocs := make(map[string]string, len(members))

	for _, path := range members {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		member, err := e.load(path)
		if err != nil {
			slog.Warn("skipping boundary file", "path", path, "error", err)
			observability.FilesProcessedTotal.WithLabelValues("member", "skipped").Inc()
			failures = append(failures, FileError{Path: path, Err: err})
			continue
		}
		observability.FilesProcessedTotal.WithLabelValues("member", "ok").Inc()
		parsed = append(parsed, member)
		moduleDocs[member.module] = member.docstring
	}

	var symbols []DefinedSymbol
	for _, member := range parsed {
		for _, b := range member.bindings {
			if b.Name == "__all__" {
				continue
			}
			sym := DefinedSymbol{
				Name:               b.Name,
				Kind:               b.Kind,
				File:               member.path,
				Span:               b.Span,
				Docstring:          b.Docstring,
				FullyQualifiedName: joinName(member.module, b.Name),
				Conventional:       isConventionallyPublic(b.Name, member.exported),
			}
			if b.Import != nil {
				if target, ok := e.modules.ResolveImport(member.module, member.isInit, *b.Import); ok {
					if doc, isMember := moduleDocs[target]; isMember {
						sym.Kind = parser.KindModule
						sym.Docstring = doc
					}
				}
			}
			symbols = append(symbols, sym)
		}
	}

	set := NewCandidateSet(symbols)
	observability.CandidateSymbols.Set(float64(set.Len()))
	slog.Debug("collected candidate symbols", "files", len(parsed), "count", set.Len())
	return set, failures, nil
}

func (e *Extractor) load(path string) (memberFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return memberFile{}, errors.AddContext(errors.Wrap(err, errors.CodeParseFailure, "read failed"), errors.CtxPath, path)
	}
	file, err := e.parser.Parse(path, content)
	if err != nil {
		return memberFile{}, err
	}
	defer file.Close()

	exported := make(map[string]bool)
	for _, name := range parser.DunderAll(file) {
		exported[name] = true
	}
	return memberFile{
		path:      path,
		module:    e.modules.GetModuleName(path),
		isInit:    resolver.IsPackageInit(path),
		docstring: parser.ModuleDocstring(file),
		exported:  exported,
		bindings:  parser.TopLevelBindings(file),
	}, nil
}

func joinName(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}
