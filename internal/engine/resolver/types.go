package resolver

import (
	"sort"
)

// CandidateIndex answers membership questions about the candidate symbols.
// Implementations must be safe for concurrent reads.
type CandidateIndex interface {
	// Contains reports whether fqn names a candidate symbol.
	Contains(fqn string) bool
	// HasPrefix reports whether fqn is a candidate or a dotted prefix of one.
	HasPrefix(fqn string) bool
}

// Ambiguity is a name that could not be attributed to a single import.
type Ambiguity struct {
	Name   string
	Line   int
	Reason string
}

// FileUsage holds the import-confirmed references found in one external file.
type FileUsage struct {
	Path       string
	Counts     map[string]int
	Ambiguous  []Ambiguity
	References int
}

func newFileUsage(path string) *FileUsage {
	return &FileUsage{Path: path, Counts: make(map[string]int)}
}

// UsageRecord is the merged usage of one candidate across all external files.
type UsageRecord struct {
	Count     int
	Importers map[string]struct{}
}

// SortedImporters returns the importer paths in lexical order.
func (r *UsageRecord) SortedImporters() []string {
	out := make([]string, 0, len(r.Importers))
	for path := range r.Importers {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// UsageTable maps candidate FQN to its merged usage.
type UsageTable map[string]*UsageRecord

// Merge folds one file's usage into the table. Counts add; importers union.
func (t UsageTable) Merge(usage *FileUsage) {
	if usage == nil {
		return
	}
	for fqn, count := range usage.Counts {
		if count <= 0 {
			continue
		}
		rec, ok := t[fqn]
		if !ok {
			rec = &UsageRecord{Importers: make(map[string]struct{})}
			t[fqn] = rec
		}
		rec.Count += count
		rec.Importers[usage.Path] = struct{}{}
	}
}

// Fold merges per-file usages in order into a fresh table.
func Fold(usages []*FileUsage) UsageTable {
	table := make(UsageTable)
	for _, usage := range usages {
		table.Merge(usage)
	}
	return table
}
