package config

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Exclude       Exclude       `toml:"exclude"`
	Analysis      Analysis      `toml:"analysis"`
	Output        Output        `toml:"output"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
}

// Exclude holds glob patterns for project discovery. Dir patterns match
// directory base names; file patterns match base names and root-relative
// paths.
type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Analysis struct {
	// Jobs bounds the usage-scan worker pool. Zero means one per CPU.
	Jobs         int      `toml:"jobs"`
	Parallel     *bool    `toml:"parallel"`
	IncludeTests bool     `toml:"include_tests"`
	TestDirs     []string `toml:"test_dirs"`
	Extensions   []string `toml:"extensions"`
}

type Output struct {
	Format       string `toml:"format"`
	Short        bool   `toml:"short"`
	ShowUnused   bool   `toml:"show_unused"`
	MaxImporters int    `toml:"max_importers"`
	Color        string `toml:"color"`
}

type Observability struct {
	MetricsFile string `toml:"metrics_file"`
	// OTLPEndpoint (host:port) enables span export over OTLP/gRPC.
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

// ParallelEnabled reports whether usage scanning runs on the worker pool.
func (a Analysis) ParallelEnabled() bool {
	return a.Parallel == nil || *a.Parallel
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
