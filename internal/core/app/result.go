package app

import (
	"pubscan/internal/core/errors"
	"pubscan/internal/engine/resolver"
	"pubscan/internal/engine/symbols"
)

// APIEntry is a candidate symbol referenced from outside the boundary.
type APIEntry struct {
	symbols.DefinedSymbol
	UsageCount int
	// Importers are the external files that reference the symbol, sorted.
	Importers []string
}

// Diagnostic is a non-fatal problem met during a run.
type Diagnostic struct {
	Path    string
	Code    errors.ErrorCode
	Message string
}

type Diagnostics struct {
	FilesScanned int
	FilesSkipped int
	Warnings     []Diagnostic
}

// Result is the outcome of one analysis.
type Result struct {
	TargetPath   string
	ProjectRoot  string
	BoundaryKind string
	PublicAPI    []APIEntry
	// Unused holds candidates no external file references.
	Unused      []symbols.DefinedSymbol
	Diagnostics Diagnostics
}

// buildEntries keeps the candidates with a positive merged count. Both lists
// follow CandidateSet.All order: name, then fully qualified name.
func buildEntries(candidates *symbols.CandidateSet, table resolver.UsageTable) ([]APIEntry, []symbols.DefinedSymbol) {
	var public []APIEntry
	var unused []symbols.DefinedSymbol
	for _, sym := range candidates.All() {
		rec, ok := table[sym.FullyQualifiedName]
		if !ok || rec.Count <= 0 {
			unused = append(unused, sym)
			continue
		}
		public = append(public, APIEntry{
			DefinedSymbol: sym,
			UsageCount:    rec.Count,
			Importers:     rec.SortedImporters(),
		})
	}
	return public, unused
}

func diagnosticFor(path string, err error) Diagnostic {
	return Diagnostic{Path: path, Code: errors.CodeOf(err), Message: errors.MessageOf(err)}
}
