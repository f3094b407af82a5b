package report

import (
	"encoding/json"
	"io"

	"pubscan/internal/core/app"
	"pubscan/internal/engine/symbols"
)

type jsonDocument struct {
	TargetPath  string          `json:"target_path"`
	ProjectRoot string          `json:"project_root"`
	PublicAPI   []jsonSymbol    `json:"public_api"`
	Unused      []jsonUnused    `json:"unused"`
	Diagnostics jsonDiagnostics `json:"diagnostics"`
}

type jsonSymbol struct {
	Name                 string       `json:"name"`
	FullyQualifiedName   string       `json:"fully_qualified_name"`
	Kind                 string       `json:"kind"`
	Location             jsonLocation `json:"location"`
	Docstring            *string      `json:"docstring"`
	UsageCount           int          `json:"usage_count"`
	Importers            []string     `json:"importers"`
	ConventionallyPublic bool         `json:"conventionally_public"`
}

type jsonLocation struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
}

type jsonUnused struct {
	Name               string       `json:"name"`
	FullyQualifiedName string       `json:"fully_qualified_name"`
	Kind               string       `json:"kind"`
	Location           jsonLocation `json:"location"`
}

type jsonDiagnostics struct {
	FilesScanned int           `json:"files_scanned"`
	FilesSkipped int           `json:"files_skipped"`
	Warnings     []jsonWarning `json:"warnings"`
}

type jsonWarning struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSONGenerator renders results as a stable JSON document. Every key is
// always present; empty lists are [] and a missing docstring is null.
type JSONGenerator struct{}

func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

func (g *JSONGenerator) Write(w io.Writer, result *app.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g.document(result))
}

func (g *JSONGenerator) document(result *app.Result) jsonDocument {
	doc := jsonDocument{
		TargetPath:  result.TargetPath,
		ProjectRoot: result.ProjectRoot,
		PublicAPI:   make([]jsonSymbol, 0, len(result.PublicAPI)),
		Unused:      make([]jsonUnused, 0, len(result.Unused)),
		Diagnostics: jsonDiagnostics{
			FilesScanned: result.Diagnostics.FilesScanned,
			FilesSkipped: result.Diagnostics.FilesSkipped,
			Warnings:     make([]jsonWarning, 0, len(result.Diagnostics.Warnings)),
		},
	}

	for _, entry := range result.PublicAPI {
		var docstring *string
		if entry.Docstring != "" {
			d := entry.Docstring
			docstring = &d
		}
		importers := entry.Importers
		if importers == nil {
			importers = []string{}
		}
		doc.PublicAPI = append(doc.PublicAPI, jsonSymbol{
			Name:                 entry.Name,
			FullyQualifiedName:   entry.FullyQualifiedName,
			Kind:                 entry.Kind.String(),
			Location:             locationOf(entry.DefinedSymbol),
			Docstring:            docstring,
			UsageCount:           entry.UsageCount,
			Importers:            importers,
			ConventionallyPublic: entry.Conventional,
		})
	}

	for _, sym := range result.Unused {
		doc.Unused = append(doc.Unused, jsonUnused{
			Name:               sym.Name,
			FullyQualifiedName: sym.FullyQualifiedName,
			Kind:               sym.Kind.String(),
			Location:           locationOf(sym),
		})
	}

	for _, w := range result.Diagnostics.Warnings {
		doc.Diagnostics.Warnings = append(doc.Diagnostics.Warnings, jsonWarning{
			Path:    w.Path,
			Code:    string(w.Code),
			Message: w.Message,
		})
	}
	return doc
}

func locationOf(sym symbols.DefinedSymbol) jsonLocation {
	return jsonLocation{
		Path:      sym.File,
		Line:      sym.Span.StartLine,
		Column:    sym.Span.StartColumn,
		EndLine:   sym.Span.EndLine,
		EndColumn: sym.Span.EndColumn,
	}
}
