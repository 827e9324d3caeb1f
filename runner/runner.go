// Package runner contains the test-execution engine: suite preparation,
// single-test execution inside containers, and the sequential and parallel
// scheduling layers that stream results to sinks and aggregate them per
// suite.
package runner

import (
	"context"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neurodesk/testrunner/registry"
	"github.com/neurodesk/testrunner/types"
)

// Counters tracks run-wide completion counts. Updated atomically as results
// arrive from any worker.
type Counters struct {
	Completed atomic.Int64
	Passed    atomic.Int64
	Failed    atomic.Int64
}

// Record registers one completed test.
func (c *Counters) Record(passed bool) {
	c.Completed.Add(1)
	if passed {
		c.Passed.Add(1)
	} else {
		c.Failed.Add(1)
	}
}

// Config configures a Runner.
type Config struct {
	Preparer    *Preparer
	Executor    TestExecutor
	Sink        ResultSink
	Progress    ProgressIndicator
	Concurrency int
	RunID       string
}

// Runner drives suite execution in sequential or parallel mode and merges
// streaming per-test results into suite-level and run-level aggregates.
type Runner struct {
	preparer    *Preparer
	executor    TestExecutor
	sink        ResultSink
	progress    ProgressIndicator
	concurrency int
	runID       string
	counters    Counters
	tracer      trace.Tracer
}

// NewRunner creates a Runner. A nil sink or progress indicator is replaced
// with a no-op implementation.
func NewRunner(cfg Config) *Runner {
	sink := cfg.Sink
	if sink == nil {
		sink = NewMultiSink()
	}
	progress := cfg.Progress
	if progress == nil {
		progress = NewNoOpProgressIndicator()
	}

	return &Runner{
		preparer:    cfg.Preparer,
		executor:    cfg.Executor,
		sink:        sink,
		progress:    progress,
		concurrency: cfg.Concurrency,
		runID:       cfg.RunID,
		tracer:      otel.Tracer("testrunner/runner"),
	}
}

// Counters exposes the live completion counters for progress observers.
func (r *Runner) Counters() *Counters {
	return &r.counters
}

// RunSequential executes suites one at a time, in order, preserving the
// declaration order of tests within each suite. Results reach the sink
// immediately after each test completes.
func (r *Runner) RunSequential(ctx context.Context, suites []*registry.SuiteFile) *types.RunResult {
	start := time.Now()
	run := &types.RunResult{RunID: r.runID}

	for _, sf := range suites {
		run.Suites = append(run.Suites, r.runSuiteSequential(ctx, sf))
	}

	run.Duration = time.Since(start)
	return run
}

func (r *Runner) runSuiteSequential(ctx context.Context, sf *registry.SuiteFile) types.SuiteResult {
	if sf.LoadError != "" {
		return r.recordLoadFailure(sf)
	}
	def := sf.Definition

	ctx, span := r.tracer.Start(ctx, "suite "+def.Name,
		trace.WithAttributes(attribute.String("container", def.Container)))
	defer span.End()

	suiteStart := time.Now()

	prepared, aborted := r.preparer.Prepare(ctx, def)
	if aborted != nil {
		return r.recordAbort(aborted)
	}

	r.progress.StartSuite(def.Name, len(prepared.Units))

	results := make([]types.TestResult, 0, len(prepared.Units))
	for _, unit := range prepared.Units {
		key := unit.Key()
		r.progress.StartTest(key)
		result := r.executor.Execute(ctx, unit)
		r.progress.CompleteTest(key, result.Passed)

		r.counters.Record(result.Passed)
		r.emit(def.Name, def.Container, result)
		results = append(results, result)
	}

	r.preparer.RunCleanup(ctx, prepared)
	r.progress.CompleteSuite(def.Name)

	return types.NewSuiteResult(def.Name, def.Container, results, time.Since(suiteStart))
}

// RunParallel prepares every suite up front, concatenates all prepared units,
// shuffles them so no single container's tests cluster on the worker pool,
// and executes with a fixed number of workers. Completion order is arbitrary;
// aggregation groups results back by suite afterwards.
func (r *Runner) RunParallel(ctx context.Context, suites []*registry.SuiteFile) *types.RunResult {
	start := time.Now()
	run := &types.RunResult{RunID: r.runID}

	var allUnits []types.PreparedTest
	var prepared []*PreparedSuite
	var syntheticSuites []types.SuiteResult

	for _, sf := range suites {
		if sf.LoadError != "" {
			syntheticSuites = append(syntheticSuites, r.recordLoadFailure(sf))
			continue
		}
		ps, aborted := r.preparer.Prepare(ctx, sf.Definition)
		if aborted != nil {
			syntheticSuites = append(syntheticSuites, r.recordAbort(aborted))
			continue
		}
		// Stamp each unit with its suite's ordinal; suite names may collide
		// across files and must not cross-contaminate aggregates.
		for i := range ps.Units {
			ps.Units[i].SuiteIndex = len(prepared)
		}
		prepared = append(prepared, ps)
		allUnits = append(allUnits, ps.Units...)
		r.progress.StartSuite(ps.Name, len(ps.Units))
	}

	rand.Shuffle(len(allUnits), func(i, j int) {
		allUnits[i], allUnits[j] = allUnits[j], allUnits[i]
	})

	slog.Info("starting parallel test execution",
		"totalTests", len(allUnits),
		"suites", len(prepared),
		"concurrency", r.concurrency)

	suiteResults := make(map[int][]types.TestResult)
	r.executeUnits(ctx, allUnits, func(wr workResult) {
		r.counters.Record(wr.result.Passed)
		r.emit(wr.unit.SuiteName, wr.unit.ContainerName, wr.result)
		suiteResults[wr.unit.SuiteIndex] = append(suiteResults[wr.unit.SuiteIndex], wr.result)
	})

	// Group results back into suite aggregates in preparation order. Suite
	// duration is summed test time: wall-clock is meaningless for a suite
	// whose tests interleaved with every other suite's.
	for idx, ps := range prepared {
		results := suiteResults[idx]
		var total time.Duration
		for i := range results {
			total += results[i].Duration
		}
		run.Suites = append(run.Suites, types.NewSuiteResult(ps.Name, ps.Container, results, total))

		r.preparer.RunCleanup(ctx, ps)
		r.progress.CompleteSuite(ps.Name)
	}
	run.Suites = append(run.Suites, syntheticSuites...)

	run.Duration = time.Since(start)
	return run
}

// recordLoadFailure synthesizes the single-entry suite result for a suite
// definition that could not be parsed. With no parsed test list there is
// nothing to mark skipped.
func (r *Runner) recordLoadFailure(sf *registry.SuiteFile) types.SuiteResult {
	slog.Error("suite failed to load", "suite", sf.Name(), "path", sf.Path, "err", sf.LoadError)

	result := types.TestResult{
		Name:      "Suite preparation",
		Passed:    false,
		StartTime: time.Now(),
		Message:   sf.LoadError,
	}
	r.counters.Record(false)
	r.emit(sf.Name(), "", result)

	return types.NewSuiteResult(sf.Name(), "", []types.TestResult{result}, 0)
}

// recordAbort synthesizes results for a suite that failed preparation: the
// lead failure plus one skipped failure per filtered test, none of which ever
// invoked a command.
func (r *Runner) recordAbort(abort *SuiteAbort) types.SuiteResult {
	slog.Error("suite aborted during preparation",
		"suite", abort.SuiteName,
		"stage", abort.Lead.Name,
		"reason", abort.Lead.Message)

	results := abort.Results()
	for _, result := range results {
		r.counters.Record(false)
		r.emit(abort.SuiteName, abort.Container, result)
	}
	return types.NewSuiteResult(abort.SuiteName, abort.Container, results, abort.Lead.Duration)
}

func (r *Runner) emit(suiteName, container string, result types.TestResult) {
	if err := r.sink.Emit(suiteName, container, result); err != nil {
		slog.Warn("failed to emit result", "suite", suiteName, "test", result.Name, "err", err)
	}
}
