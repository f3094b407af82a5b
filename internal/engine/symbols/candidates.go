package symbols

import (
	"sort"
	"strings"

	"pubscan/internal/engine/parser"
)

// DefinedSymbol is a top-level binding inside the target boundary.
type DefinedSymbol struct {
	Name               string
	Kind               parser.BindingKind
	File               string
	Span               parser.Span
	Docstring          string
	FullyQualifiedName string
	// Conventional is true when the name looks public by convention: no
	// leading underscore, or listed in __all__. It never decides the result.
	Conventional bool
}

// CandidateSet is a read-only index of candidate symbols by fully qualified
// name. It is built before usage scanning and never mutated afterwards, so
// workers may share it without locking.
type CandidateSet struct {
	byFQN    map[string]DefinedSymbol
	prefixes map[string]bool
}

// NewCandidateSet indexes symbols. A later symbol with the same FQN replaces
// an earlier one.
func NewCandidateSet(symbols []DefinedSymbol) *CandidateSet {
	cs := &CandidateSet{
		byFQN:    make(map[string]DefinedSymbol, len(symbols)),
		prefixes: make(map[string]bool),
	}
	for _, sym := range symbols {
		fqn := sym.FullyQualifiedName
		if fqn == "" {
			continue
		}
		cs.byFQN[fqn] = sym
		for i := 0; i < len(fqn); i++ {
			if fqn[i] == '.' {
				cs.prefixes[fqn[:i]] = true
			}
		}
		cs.prefixes[fqn] = true
	}
	return cs
}

func (cs *CandidateSet) Contains(fqn string) bool {
	_, ok := cs.byFQN[fqn]
	return ok
}

func (cs *CandidateSet) HasPrefix(fqn string) bool {
	return cs.prefixes[fqn]
}

func (cs *CandidateSet) Get(fqn string) (DefinedSymbol, bool) {
	sym, ok := cs.byFQN[fqn]
	return sym, ok
}

func (cs *CandidateSet) Len() int {
	return len(cs.byFQN)
}

// All returns every candidate ordered by name, then fully qualified name.
func (cs *CandidateSet) All() []DefinedSymbol {
	out := make([]DefinedSymbol, 0, len(cs.byFQN))
	for _, sym := range cs.byFQN {
		out = append(out, sym)
	}
	SortSymbols(out)
	return out
}

// SortSymbols orders symbols by name, then fully qualified name.
func SortSymbols(syms []DefinedSymbol) {
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].Name != syms[j].Name {
			return syms[i].Name < syms[j].Name
		}
		return syms[i].FullyQualifiedName < syms[j].FullyQualifiedName
	})
}

func isConventionallyPublic(name string, exported map[string]bool) bool {
	return exported[name] || !strings.HasPrefix(name, "_")
}
