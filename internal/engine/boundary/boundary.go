package boundary

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pubscan/internal/core/errors"
	"pubscan/internal/shared/util"
)

type Kind int

const (
	KindModule Kind = iota
	KindPackage
)

func (k Kind) String() string {
	if k == KindPackage {
		return "package"
	}
	return "module"
}

// PathFilter decides which files count as Python source.
type PathFilter interface {
	IsSupportedPath(path string) bool
}

// TargetBoundary is the set of files whose symbols are being analyzed.
// Paths are canonical. It is immutable once resolved.
type TargetBoundary struct {
	Kind    Kind
	Root    string
	members map[string]struct{}
	sorted  []string
}

// Members returns the member files in lexical order.
func (b *TargetBoundary) Members() []string {
	out := make([]string, len(b.sorted))
	copy(out, b.sorted)
	return out
}

func (b *TargetBoundary) Contains(path string) bool {
	_, ok := b.members[path]
	return ok
}

func (b *TargetBoundary) Len() int {
	return len(b.sorted)
}

// Resolve classifies target as a single module or a package and collects its
// member files.
func Resolve(target string, filter PathFilter) (*TargetBoundary, error) {
	if strings.TrimSpace(target) == "" {
		return nil, errors.New(errors.CodeInvalidTarget, "no target path given")
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInvalidTarget, "target does not exist"), errors.CtxPath, target)
	}
	root, err := util.CanonicalPath(target)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInvalidTarget, "cannot resolve target"), errors.CtxPath, target)
	}

	switch {
	case info.Mode().IsRegular():
		if !filter.IsSupportedPath(root) {
			return nil, errors.AddContext(errors.New(errors.CodeNotPython, "target is not a Python file"), errors.CtxPath, target)
		}
		return newBoundary(KindModule, root, []string{root}), nil
	case info.IsDir():
		files, err := collectPythonFiles(root, filter)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInvalidTarget, "cannot read target directory"), errors.CtxPath, target)
		}
		return newBoundary(KindPackage, root, files), nil
	default:
		return nil, errors.AddContext(errors.New(errors.CodeInvalidTarget, fmt.Sprintf("unsupported file type %s", info.Mode().Type())), errors.CtxPath, target)
	}
}

func newBoundary(kind Kind, root string, files []string) *TargetBoundary {
	b := &TargetBoundary{
		Kind:    kind,
		Root:    root,
		members: make(map[string]struct{}, len(files)),
	}
	for _, f := range files {
		if _, dup := b.members[f]; dup {
			continue
		}
		b.members[f] = struct{}{}
		b.sorted = append(b.sorted, f)
	}
	sort.Strings(b.sorted)
	return b
}

func collectPythonFiles(root string, filter PathFilter) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && IsSkippedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && filter.IsSupportedPath(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// IsSkippedDir reports directories never searched for source: hidden
// directories and bytecode caches.
func IsSkippedDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "__pycache__"
}

// Partition splits project files into those outside the boundary. The result
// keeps the input order and drops duplicates.
func Partition(projectFiles []string, b *TargetBoundary) []string {
	external := make([]string, 0, len(projectFiles))
	seen := make(map[string]struct{}, len(projectFiles))
	for _, path := range projectFiles {
		if b.Contains(path) {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		external = append(external, path)
	}
	return external
}
