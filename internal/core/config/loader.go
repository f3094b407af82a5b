package config

import (
	"os"
	"path/filepath"
	"strings"

	"pubscan/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is looked up in the project root when no --config is given.
const DefaultFileName = "pubscan.toml"

var defaultExcludeDirs = []string{".git", ".hg", ".venv", "venv", "node_modules", "build", "dist", ".tox", ".mypy_cache"}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfig, "cannot read config"), errors.CtxPath, path)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfig, "invalid TOML"), errors.CtxPath, path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, errors.AddContext(errors.New(errors.CodeConfig, "unknown keys: "+strings.Join(keys, ", ")), errors.CtxPath, path)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfig, "invalid config"), errors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadOrDefault loads explicit when set, else DefaultFileName from dir when
// it exists, else the defaults. The returned path is empty for defaults.
func LoadOrDefault(explicit, dir string) (*Config, string, error) {
	if strings.TrimSpace(explicit) != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}
	if dir != "" {
		candidate := filepath.Join(dir, DefaultFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			cfg, err := Load(candidate)
			return cfg, candidate, err
		}
	}
	return Default(), "", nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = append([]string(nil), defaultExcludeDirs...)
	}

	if len(cfg.Analysis.TestDirs) == 0 {
		cfg.Analysis.TestDirs = []string{"test", "tests"}
	}
	if len(cfg.Analysis.Extensions) == 0 {
		cfg.Analysis.Extensions = []string{".py", ".pyi"}
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	if cfg.Output.MaxImporters == 0 {
		cfg.Output.MaxImporters = 3
	}
	if strings.TrimSpace(cfg.Output.Color) == "" {
		cfg.Output.Color = "auto"
	}
}
