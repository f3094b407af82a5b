package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pubscan/internal/engine/parser"
	"pubscan/internal/shared/util"
)

// PythonResolver maps files to dotted module names and resolves import
// statements to fully qualified names.
type PythonResolver struct {
	projectRoot string
	// packageRoot is treated as a package, with every directory below it,
	// whether or not it carries an __init__.py.
	packageRoot string

	mu       sync.Mutex
	packages map[string]bool
}

func NewPythonResolver(projectRoot string) *PythonResolver {
	return &PythonResolver{
		projectRoot: filepath.Clean(projectRoot),
		packages:    make(map[string]bool),
	}
}

// WithPackageRoot marks dir as a package root. Namespace packages given as a
// target then still produce dotted names. The project root itself is never a
// package.
func (r *PythonResolver) WithPackageRoot(dir string) *PythonResolver {
	dir = filepath.Clean(dir)
	if dir != r.projectRoot {
		r.packageRoot = dir
	}
	return r
}

func (r *PythonResolver) ProjectRoot() string {
	return r.projectRoot
}

// GetModuleName walks up from the file through enclosing package
// directories, stopping at the project root or the first non-package.
func (r *PythonResolver) GetModuleName(filePath string) string {
	base := filepath.Base(filePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var parts []string
	if stem != "__init__" {
		parts = append(parts, stem)
	}

	dir := filepath.Dir(filepath.Clean(filePath))
	for dir != r.projectRoot && r.isPackage(dir) {
		parts = append(parts, filepath.Base(dir))
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// IsPackageInit reports whether path is a package's __init__ file.
func IsPackageInit(path string) bool {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) == "__init__"
}

func (r *PythonResolver) isPackage(dir string) bool {
	if r.packageRoot != "" && util.HasPathPrefix(dir, r.packageRoot) {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if known, ok := r.packages[dir]; ok {
		return known
	}
	found := false
	for _, name := range []string{"__init__.py", "__init__.pyi"} {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			found = true
			break
		}
	}
	r.packages[dir] = found
	return found
}

// ResolveImport returns the fully qualified name bound by imp when it appears
// in fromModule. isPackage is true when fromModule is a package __init__.
// Relative imports that climb past the top-level package do not resolve.
func (r *PythonResolver) ResolveImport(fromModule string, isPackage bool, imp parser.ImportBinding) (string, bool) {
	if imp.Star {
		return "", false
	}

	module := imp.Module
	if imp.Level > 0 {
		base, ok := relativeBase(fromModule, isPackage, imp.Level)
		if !ok {
			return "", false
		}
		module = joinDotted(base, imp.Module)
	}

	if !imp.IsFrom() {
		if imp.Aliased {
			return module, module != ""
		}
		return firstSegment(module), module != ""
	}
	fqn := joinDotted(module, imp.Name)
	return fqn, fqn != ""
}

// ResolveModule returns the module a star or from-import reads from.
func (r *PythonResolver) ResolveModule(fromModule string, isPackage bool, imp parser.ImportBinding) (string, bool) {
	if imp.Level == 0 {
		return imp.Module, imp.Module != ""
	}
	base, ok := relativeBase(fromModule, isPackage, imp.Level)
	if !ok {
		return "", false
	}
	module := joinDotted(base, imp.Module)
	return module, module != ""
}

func relativeBase(fromModule string, isPackage bool, level int) (string, bool) {
	var parts []string
	if fromModule != "" {
		parts = strings.Split(fromModule, ".")
	}
	if !isPackage {
		if len(parts) == 0 {
			return "", false
		}
		parts = parts[:len(parts)-1]
	}
	drop := level - 1
	if drop > len(parts) || (drop == len(parts) && level > 1) {
		return "", false
	}
	return strings.Join(parts[:len(parts)-drop], "."), true
}

func joinDotted(base, name string) string {
	switch {
	case base == "":
		return name
	case name == "":
		return base
	default:
		return base + "." + name
	}
}

func firstSegment(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}
