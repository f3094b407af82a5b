package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PUBSCAN_[SECTION]_[KEY] (e.g., PUBSCAN_ANALYSIS_JOBS).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Paths.ProjectRoot, "PUBSCAN_PATHS_PROJECT_ROOT")

	setEnvList(&cfg.Exclude.Dirs, "PUBSCAN_EXCLUDE_DIRS")
	setEnvList(&cfg.Exclude.Files, "PUBSCAN_EXCLUDE_FILES")

	setEnvInt(&cfg.Analysis.Jobs, "PUBSCAN_ANALYSIS_JOBS")
	setEnvBoolPtr(&cfg.Analysis.Parallel, "PUBSCAN_ANALYSIS_PARALLEL")
	setEnvBool(&cfg.Analysis.IncludeTests, "PUBSCAN_ANALYSIS_INCLUDE_TESTS")

	setEnvString(&cfg.Output.Format, "PUBSCAN_OUTPUT_FORMAT")
	setEnvBool(&cfg.Output.Short, "PUBSCAN_OUTPUT_SHORT")
	setEnvBool(&cfg.Output.ShowUnused, "PUBSCAN_OUTPUT_SHOW_UNUSED")
	setEnvInt(&cfg.Output.MaxImporters, "PUBSCAN_OUTPUT_MAX_IMPORTERS")
	setEnvString(&cfg.Output.Color, "PUBSCAN_OUTPUT_COLOR")

	setEnvString(&cfg.Observability.MetricsFile, "PUBSCAN_OBSERVABILITY_METRICS_FILE")
	setEnvString(&cfg.Observability.OTLPEndpoint, "PUBSCAN_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		var items []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		slog.Debug("applying env override", "key", key, "value", val)
		*target = items
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &b
		}
	}
}
