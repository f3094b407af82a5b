package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"pubscan/internal/core/app"
	"pubscan/internal/core/config"
	"pubscan/internal/core/errors"
	"pubscan/internal/engine/resolver"
	"pubscan/internal/shared/observability"
	"pubscan/internal/ui/report"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

// runError marks a failure of the analysis itself, as opposed to bad usage.
type runError struct{ err error }

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts cliOptions
	cmd := newRootCommand(&opts, func(c *cobra.Command) error {
		if err := execute(c, &opts, stdout, stderr); err != nil {
			return &runError{err: err}
		}
		return nil
	}, stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)

	var re *runError
	if stderrors.As(err, &re) {
		return exitFatal
	}
	fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", cmd.Name())
	return exitUsage
}

func execute(cmd *cobra.Command, opts *cliOptions, stdout, stderr io.Writer) error {
	configureLogging(opts.verbosity, stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cfgPath, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		slog.Info("using config file", "path", cfgPath)
	}
	applyFlagOverrides(cmd, opts, cfg)
	if err := config.Validate(cfg); err != nil {
		return errors.Wrap(err, errors.CodeConfig, "invalid options")
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		return errors.Wrap(err, errors.CodeConfig, "cannot start trace exporter")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	req := app.Request{Target: opts.target}
	if opts.verbosity > 0 && isTerminal(stderr) {
		req.Progress = newProgressReporter(stderr)
	}

	result, err := a.Analyze(ctx, req)
	if err != nil {
		return err
	}

	renderOpts := report.Options{
		Format:       cfg.Output.Format,
		Short:        cfg.Output.Short,
		ShowUnused:   cfg.Output.ShowUnused,
		MaxImporters: cfg.Output.MaxImporters,
		Color:        cfg.Output.Color,
	}
	if err := report.Render(stdout, result, renderOpts); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to write report")
	}

	if path := strings.TrimSpace(cfg.Observability.MetricsFile); path != "" {
		if err := observability.WriteMetricsFile(path); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "failed to write metrics"), errors.CtxPath, path)
		}
		slog.Info("wrote metrics", "path", path)
	}
	return nil
}

// loadConfig reads --config, or pubscan.toml from the project root, then
// applies environment overrides.
func loadConfig(opts *cliOptions) (*config.Config, string, error) {
	dir := strings.TrimSpace(opts.projectRoot)
	if dir == "" {
		if abs, err := filepath.Abs(opts.target); err == nil {
			dir = resolver.DetectProjectRoot(abs)
		}
	}

	cfg, path, err := config.LoadOrDefault(opts.configPath, dir)
	if err != nil {
		return nil, "", err
	}
	if path != "" && cfg.Paths.ProjectRoot != "" && !filepath.IsAbs(cfg.Paths.ProjectRoot) {
		cfg.Paths.ProjectRoot = filepath.Join(filepath.Dir(path), cfg.Paths.ProjectRoot)
	}
	config.ApplyEnvOverrides(cfg)
	return cfg, path, nil
}

// applyFlagOverrides lets explicitly set flags win over the config file.
func applyFlagOverrides(cmd *cobra.Command, opts *cliOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("project-root") {
		cfg.Paths.ProjectRoot = opts.projectRoot
	}
	if flags.Changed("output-format") {
		cfg.Output.Format = strings.ToLower(strings.TrimSpace(opts.outputFormat))
	}
	if flags.Changed("no-parallel") && opts.noParallel {
		off := false
		cfg.Analysis.Parallel = &off
	}
	if flags.Changed("jobs") {
		cfg.Analysis.Jobs = opts.jobs
	}
	if flags.Changed("short") {
		cfg.Output.Short = opts.short
	}
	if flags.Changed("no-ignore-test-files") {
		cfg.Analysis.IncludeTests = opts.includeTests
	}
	if flags.Changed("show-unused") {
		cfg.Output.ShowUnused = opts.showUnused
	}
	if flags.Changed("metrics-file") {
		cfg.Observability.MetricsFile = opts.metricsFile
	}
	if flags.Changed("color") {
		cfg.Output.Color = strings.ToLower(strings.TrimSpace(opts.color))
	}
}

// configureLogging maps -v counts to levels: none is warnings only, -v info,
// -vv debug, -vvv debug with source locations.
func configureLogging(verbosity int, w io.Writer) {
	handlerOpts := &slog.HandlerOptions{Level: slog.LevelWarn}
	switch {
	case verbosity >= 3:
		handlerOpts.Level = slog.LevelDebug
		handlerOpts.AddSource = true
	case verbosity == 2:
		handlerOpts.Level = slog.LevelDebug
	case verbosity == 1:
		handlerOpts.Level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, handlerOpts)))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
