// Package testrunner wires the suite registry, the preparation and
// execution engine, and the reporting outputs into a single run.
package testrunner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/neurodesk/testrunner/logging"
	"github.com/neurodesk/testrunner/metrics"
	"github.com/neurodesk/testrunner/registry"
	"github.com/neurodesk/testrunner/reporting"
	"github.com/neurodesk/testrunner/runner"
	"github.com/neurodesk/testrunner/types"
)

// Run executes the configured test run end to end and returns a
// TestFailureError if any test failed, a RuntimeError on operational
// failures, or nil when everything passed.
func Run(ctx context.Context, cfg *Config) error {
	reg, err := registry.NewRegistry(cfg.TestsDir)
	if err != nil {
		return NewRuntimeError(err)
	}

	paths, err := reg.DiscoverFiles(cfg.Patterns)
	if err != nil {
		return NewRuntimeError(err)
	}
	if len(paths) == 0 {
		return NewRuntimeError(fmt.Errorf("no suite definition files found in %s", cfg.TestsDir))
	}

	suites := reg.LoadSuites(paths)

	if cfg.List {
		return listSuites(suites)
	}

	runID := uuid.New().String()
	cfg.Log.Info("starting test run",
		"runID", runID,
		"suites", len(suites),
		"jobs", cfg.Jobs,
		"testsDir", reg.TestsDir(),
		"workDir", cfg.WorkDir)

	preparer, err := runner.NewPreparer(cfg.ContainersDir, cfg.WorkDir, cfg.Filter, cfg.ApptainerBinary)
	if err != nil {
		return NewRuntimeError(err)
	}

	sinks := []runner.ResultSink{
		runner.SinkFunc(func(suiteName, container string, result types.TestResult) error {
			metrics.RecordTest(runID, suiteName, result)
			return nil
		}),
	}
	if !cfg.Quiet {
		sinks = append(sinks, runner.SinkFunc(func(suiteName, container string, result types.TestResult) error {
			reporting.PrintTestLine(os.Stdout, suiteName, result)
			return nil
		}))
	}

	var jsonlSink *logging.JSONLSink
	if cfg.JSONLFile != "" {
		jsonlSink, err = logging.NewJSONLSink(cfg.JSONLFile)
		if err != nil {
			return NewRuntimeError(fmt.Errorf("failed to open results file: %w", err))
		}
		defer jsonlSink.Close()
		sinks = append(sinks, jsonlSink)
	}

	progress := runner.NewNoOpProgressIndicator()
	if cfg.ShowProgress && cfg.Jobs > 1 {
		progress = runner.NewConsoleProgressIndicator(cfg.Log, cfg.ProgressInterval)
	}
	defer progress.Stop()

	r := runner.NewRunner(runner.Config{
		Preparer:    preparer,
		Executor:    runner.NewTestExecutor(cfg.ApptainerBinary),
		Sink:        runner.NewMultiSink(sinks...),
		Progress:    progress,
		Concurrency: cfg.Jobs,
		RunID:       runID,
	})

	var run *types.RunResult
	if cfg.Jobs > 1 {
		run = r.RunParallel(ctx, suites)
	} else {
		run = r.RunSequential(ctx, suites)
	}

	metrics.RecordRun(runID, run.TotalFailed(), run.Duration)

	formatter := reporting.NewConsoleResultFormatter(os.Stdout, cfg.FailedOnly)
	if err := formatter.FormatResults(run); err != nil {
		cfg.Log.Error("failed to render results table", "error", err)
	}

	now := time.Now()
	if cfg.LogFile != "" {
		if err := logging.WriteTextLog(cfg.LogFile, run, now); err != nil {
			cfg.Log.Error("failed to write test log", "file", cfg.LogFile, "error", err)
			metrics.RecordError("write_log")
		} else {
			cfg.Log.Info("test log written", "file", cfg.LogFile)
		}
	}
	if cfg.OutputFile != "" {
		if err := logging.WriteSummary(cfg.OutputFile, run, now); err != nil {
			cfg.Log.Error("failed to write summary", "file", cfg.OutputFile, "error", err)
			metrics.RecordError("write_summary")
		} else {
			cfg.Log.Info("summary written", "file", cfg.OutputFile)
		}
	}
	if jsonlSink != nil {
		cfg.Log.Info("streaming results written", "file", jsonlSink.Path())
	}

	if failed := run.TotalFailed(); failed > 0 {
		return NewTestFailureError(fmt.Sprintf("%d of %d tests failed", failed, run.TotalTests()))
	}
	return nil
}

// listSuites prints the discovered suite files with their test counts.
func listSuites(suites []*registry.SuiteFile) error {
	fmt.Println("Available test suites:")
	for _, sf := range suites {
		if sf.LoadError != "" {
			fmt.Printf("  %s (invalid: %s)\n", sf.Name(), sf.LoadError)
			continue
		}
		fmt.Printf("  %s (%d tests, container %s)\n",
			sf.Name(), len(sf.Definition.Tests), sf.Definition.Container)
	}
	return nil
}
