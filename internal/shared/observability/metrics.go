package observability

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pubscan_parsing_seconds",
		Help:    "Time spent parsing a Python source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"role"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pubscan_analysis_seconds",
		Help:    "Time spent on each analysis phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	FilesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubscan_files_processed_total",
		Help: "Files processed, by role (member or external) and outcome.",
	}, []string{"role", "status"})

	CandidateSymbols = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pubscan_candidate_symbols",
		Help: "Number of top-level symbols defined inside the target boundary.",
	})

	PublicSymbols = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pubscan_public_symbols",
		Help: "Number of candidate symbols with at least one external usage.",
	})

	ReferencesCountedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pubscan_references_counted_total",
		Help: "Import-confirmed references to candidate symbols found in external files.",
	})

	AmbiguousBindingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pubscan_ambiguous_bindings_total",
		Help: "Local names whose binding could not be attributed to a single import.",
	})

	ParserPoolActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pubscan_parser_pool_active",
		Help: "Parsers currently leased from the pool.",
	})
)

// WriteMetricsFile dumps the default registry in the Prometheus text format,
// creating parent directories as needed.
func WriteMetricsFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
