package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X pubscan/internal/ui/cli.Version=...".
var Version = "dev"

type cliOptions struct {
	configPath   string
	projectRoot  string
	outputFormat string
	noParallel   bool
	jobs         int
	verbosity    int
	short        bool
	includeTests bool
	showUnused   bool
	metricsFile  string
	color        string
	target       string
}

func newRootCommand(opts *cliOptions, run func(cmd *cobra.Command) error, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pubscan [flags] <target>",
		Short: "Report the effective public API of a Python module or package",
		Long: `pubscan lists the symbols defined in a Python file or package that are
imported and referenced by code outside of it, together with how often and
from where they are used.`,
		Args:          cobra.ExactArgs(1),
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.target = args[0]
			return run(cmd)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate(fmt.Sprintf("pubscan %s\n", Version))

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a pubscan.toml (default: <project-root>/pubscan.toml when present)")
	flags.StringVar(&opts.projectRoot, "project-root", "", "Project root to scan for external usage (default: detected from the target)")
	flags.StringVarP(&opts.outputFormat, "output-format", "o", "", "Output format: text or json")
	flags.BoolVar(&opts.noParallel, "no-parallel", false, "Scan external files sequentially")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "Number of parallel workers (default: number of CPUs)")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
	flags.BoolVar(&opts.short, "short", false, "Print one line per symbol, most used first")
	flags.BoolVar(&opts.includeTests, "no-ignore-test-files", false, "Count usage from test files and test directories")
	flags.BoolVar(&opts.showUnused, "show-unused", false, "Also list candidate symbols without external usage")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this path")
	flags.StringVar(&opts.color, "color", "", "Colorize text output: auto, always or never")
	return cmd
}
