package ports

import (
	"context"

	"pubscan/internal/engine/parser"
	"pubscan/internal/engine/resolver"
)

// SourceParser abstracts Python parsing and file classification.
type SourceParser interface {
	Parse(path string, content []byte) (*parser.SourceFile, error)
	IsSupportedPath(filePath string) bool
	IsTestFile(path string) bool
	SupportedExtensions() []string
}

// FileDiscoverer lists the Python files of a project.
type FileDiscoverer interface {
	DiscoverProjectFiles(ctx context.Context, root string) ([]string, error)
}

// UsageScanner resolves the candidate references made by one external file.
// Implementations must be safe for concurrent use.
type UsageScanner interface {
	ResolveFile(ctx context.Context, path string) (*resolver.FileUsage, error)
}

// ProgressReporter receives usage-scan progress. Advance may be called from
// several goroutines.
type ProgressReporter interface {
	Start(total int)
	Advance()
	Finish()
}
