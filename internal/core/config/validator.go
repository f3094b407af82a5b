package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Validate checks a configuration after defaults have been applied.
func Validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateExclude(cfg); err != nil {
		return err
	}
	if err := validateAnalysis(cfg); err != nil {
		return err
	}
	return validateOutput(cfg)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for i, pattern := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.dirs[%d]: invalid glob %q: %w", i, pattern, err)
		}
	}
	for i, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("exclude.files[%d]: invalid glob %q: %w", i, pattern, err)
		}
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.Jobs < 0 {
		return fmt.Errorf("analysis.jobs must be >= 0, got %d", cfg.Analysis.Jobs)
	}
	for i, ext := range cfg.Analysis.Extensions {
		if strings.TrimSpace(ext) == "" {
			return fmt.Errorf("analysis.extensions[%d] must not be empty", i)
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Format {
	case "text", "json":
	default:
		return fmt.Errorf("output.format must be one of: text, json (got %q)", cfg.Output.Format)
	}
	if cfg.Output.MaxImporters < 0 {
		return fmt.Errorf("output.max_importers must be >= 0, got %d", cfg.Output.MaxImporters)
	}
	switch cfg.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("output.color must be one of: auto, always, never (got %q)", cfg.Output.Color)
	}
	return nil
}
