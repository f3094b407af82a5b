package app

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"pubscan/internal/core/errors"
	"pubscan/internal/core/ports"
	"pubscan/internal/engine/boundary"
	"pubscan/internal/engine/resolver"
	"pubscan/internal/engine/symbols"
	"pubscan/internal/shared/observability"
	"pubscan/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Request describes one analysis run.
type Request struct {
	Target string
	// ProjectRoot overrides detection when set.
	ProjectRoot string
	// Progress is optional.
	Progress ports.ProgressReporter
}

// Analyze computes the effective public API of req.Target. Per-file failures
// become diagnostics; anything else aborts the run without a result.
func (a *App) Analyze(ctx context.Context, req Request) (*Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "pubscan.Analyze")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	}()

	b, err := boundary.Resolve(req.Target, a.Parser)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	root, err := a.projectRoot(req, b)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("pubscan.target", b.Root),
		attribute.String("pubscan.project_root", root),
		attribute.String("pubscan.boundary", b.Kind.String()),
	)
	slog.Info("analyzing", "target", b.Root, "kind", b.Kind.String(), "members", b.Len(), "project_root", root)

	modules := resolver.NewPythonResolver(root)
	if b.Kind == boundary.KindPackage {
		modules.WithPackageRoot(b.Root)
	}

	projectFiles, err := a.discover(ctx, root)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	external := boundary.Partition(projectFiles, b)
	slog.Debug("partitioned project files", "project", len(projectFiles), "external", len(external))

	candidates, memberFailures, err := a.extract(ctx, modules, b)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	usages, scanFailures, err := a.scanUsage(ctx, modules, candidates, external, req.Progress)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	table := resolver.Fold(usages)
	public, unused := buildEntries(candidates, table)
	observability.PublicSymbols.Set(float64(len(public)))

	result := &Result{
		TargetPath:   b.Root,
		ProjectRoot:  root,
		BoundaryKind: b.Kind.String(),
		PublicAPI:    public,
		Unused:       unused,
	}
	for _, failure := range memberFailures {
		result.Diagnostics.Warnings = append(result.Diagnostics.Warnings, diagnosticFor(failure.Path, failure.Err))
	}
	result.Diagnostics.Warnings = append(result.Diagnostics.Warnings, scanFailures...)
	result.Diagnostics.FilesSkipped = len(result.Diagnostics.Warnings)
	result.Diagnostics.FilesScanned = b.Len() + len(external) - result.Diagnostics.FilesSkipped

	span.SetAttributes(
		attribute.Int("pubscan.candidates", candidates.Len()),
		attribute.Int("pubscan.public", len(public)),
		attribute.Int("pubscan.skipped", result.Diagnostics.FilesSkipped),
	)
	slog.Info("analysis complete",
		"public", len(public),
		"candidates", candidates.Len(),
		"external_files", len(external),
		"skipped", result.Diagnostics.FilesSkipped,
		"duration", time.Since(start))
	return result, nil
}

func (a *App) projectRoot(req Request, b *boundary.TargetBoundary) (string, error) {
	root := strings.TrimSpace(req.ProjectRoot)
	if root == "" {
		root = strings.TrimSpace(a.Config.Paths.ProjectRoot)
	}
	if root == "" {
		return resolver.DetectProjectRoot(b.Root), nil
	}
	canonical, err := util.CanonicalPath(root)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeInvalidTarget, "cannot resolve project root"), errors.CtxPath, root)
	}
	return canonical, nil
}

func (a *App) discover(ctx context.Context, root string) ([]string, error) {
	ctx, span := observability.Tracer.Start(ctx, "pubscan.Discover")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("discovery").Observe(time.Since(start).Seconds())
	}()

	files, err := a.DiscoverProjectFiles(ctx, root)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("pubscan.files", len(files)))
	return files, nil
}

func (a *App) extract(ctx context.Context, modules *resolver.PythonResolver, b *boundary.TargetBoundary) (*symbols.CandidateSet, []symbols.FileError, error) {
	ctx, span := observability.Tracer.Start(ctx, "pubscan.ExtractCandidates")
	defer span.End()
	return symbols.NewExtractor(a.Parser.WithRole("member"), modules).Extract(ctx, b.Members())
}

// scanUsage resolves every external file. Worker i writes only results[i];
// callers fold the slice after the barrier so the outcome does not depend on
// scheduling.
func (a *App) scanUsage(
	ctx context.Context,
	modules *resolver.PythonResolver,
	candidates *symbols.CandidateSet,
	files []string,
	progress ports.ProgressReporter,
) ([]*resolver.FileUsage, []Diagnostic, error) {
	ctx, span := observability.Tracer.Start(ctx, "pubscan.ScanUsage")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("usage").Observe(time.Since(start).Seconds())
	}()

	var scanner ports.UsageScanner = resolver.NewUsageResolver(a.Parser.WithRole("external"), modules, candidates)
	results := make([]*resolver.FileUsage, len(files))
	failures := make([]error, len(files))

	if progress != nil {
		progress.Start(len(files))
		defer progress.Finish()
	}

	scanOne := func(ctx context.Context, i int) error {
		usage, err := scanner.ResolveFile(ctx, files[i])
		if progress != nil {
			progress.Advance()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.IsFatal(err) {
				return err
			}
			slog.Warn("skipping external file", "path", files[i], "error", err)
			observability.FilesProcessedTotal.WithLabelValues("external", "skipped").Inc()
			failures[i] = err
			return nil
		}
		observability.FilesProcessedTotal.WithLabelValues("external", "ok").Inc()
		observability.ReferencesCountedTotal.Add(float64(usage.References))
		observability.AmbiguousBindingsTotal.Add(float64(len(usage.Ambiguous)))
		results[i] = usage
		return nil
	}

	workers := a.workers()
	span.SetAttributes(attribute.Int("pubscan.workers", workers), attribute.Int("pubscan.files", len(files)))
	if workers <= 1 {
		for i := range files {
			if err := scanOne(ctx, i); err != nil {
				return nil, nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range files {
			g.Go(func() error {
				return scanOne(gctx, i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var diags []Diagnostic
	for i, err := range failures {
		if err != nil {
			diags = append(diags, diagnosticFor(files[i], err))
		}
	}
	return results, diags, nil
}

func (a *App) workers() int {
	if !a.Config.Analysis.ParallelEnabled() {
		return 1
	}
	if a.Config.Analysis.Jobs > 0 {
		return a.Config.Analysis.Jobs
	}
	return runtime.NumCPU()
}
