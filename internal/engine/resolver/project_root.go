package resolver

import (
	"os"
	"path/filepath"
)

var projectMarkers = []string{
	"pyproject.toml",
	"setup.py",
	"setup.cfg",
	filepath.Join("src", "__init__.py"),
}

// DetectProjectRoot walks up from target looking for a Python project marker.
// Without one, the target's directory (or the target itself when it is a
// directory) is the root.
func DetectProjectRoot(target string) string {
	start := target
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		start = filepath.Dir(target)
	}
	start = filepath.Clean(start)

	for dir := start; ; {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return start
}
