// Package flags declares the command line interface of the test runner.
package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "TESTRUNNER"

// prefixEnvVar builds the environment variable name for a flag.
func prefixEnvVar(name string) []string {
	return []string{fmt.Sprintf("%s_%s", EnvVarPrefix, name)}
}

var (
	TestsDir = &cli.StringFlag{
		Name:    "tests-dir",
		Value:   "tests",
		EnvVars: prefixEnvVar("TESTS_DIR"),
		Usage:   "Directory containing suite definition YAML files",
	}
	ContainersDir = &cli.StringFlag{
		Name:    "containers-dir",
		Aliases: []string{"c"},
		Value:   "containers",
		EnvVars: prefixEnvVar("CONTAINERS_DIR"),
		Usage:   "Directory containing container image files",
	}
	WorkDir = &cli.StringFlag{
		Name:    "work-dir",
		Value:   "work",
		EnvVars: prefixEnvVar("WORK_DIR"),
		Usage:   "Working directory in which tests run",
	}
	Jobs = &cli.IntFlag{
		Name:    "jobs",
		Aliases: []string{"j"},
		Value:   1,
		EnvVars: prefixEnvVar("JOBS"),
		Usage:   "Number of parallel workers (1 = sequential)",
	}
	Filter = &cli.StringFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		EnvVars: prefixEnvVar("FILTER"),
		Usage:   "Filter tests by name pattern (case-insensitive regex)",
	}
	Quiet = &cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q"},
		EnvVars: prefixEnvVar("QUIET"),
		Usage:   "Hide individual test results (only show summary)",
	}
	List = &cli.BoolFlag{
		Name:    "list",
		Aliases: []string{"l"},
		Usage:   "List available suite definition files and exit",
	}
	FailedOnly = &cli.BoolFlag{
		Name:    "failed-only",
		EnvVars: prefixEnvVar("FAILED_ONLY"),
		Usage:   "Only show failed suites in the summary table",
	}
	Output = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		EnvVars: prefixEnvVar("OUTPUT"),
		Usage:   "Write the aggregate run summary to this JSON file",
	}
	Log = &cli.StringFlag{
		Name:    "log",
		Value:   "test_results.log",
		EnvVars: prefixEnvVar("LOG"),
		Usage:   "Write the pipe-delimited test log to this file",
	}
	NoLog = &cli.BoolFlag{
		Name:    "no-log",
		EnvVars: prefixEnvVar("NO_LOG"),
		Usage:   "Disable the test log file",
	}
	JSONL = &cli.StringFlag{
		Name:    "jsonl",
		Value:   "test_results.jsonl",
		EnvVars: prefixEnvVar("JSONL"),
		Usage:   "Write streaming per-test JSON records to this file",
	}
	NoJSONL = &cli.BoolFlag{
		Name:    "no-jsonl",
		EnvVars: prefixEnvVar("NO_JSONL"),
		Usage:   "Disable the streaming JSONL output",
	}
	ApptainerBinary = &cli.StringFlag{
		Name:    "apptainer-binary",
		Value:   "apptainer",
		EnvVars: prefixEnvVar("APPTAINER_BINARY"),
		Usage:   "Path to the container runtime binary",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "progress",
		Value:   true,
		EnvVars: prefixEnvVar("PROGRESS"),
		Usage:   "Log periodic progress updates during execution",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   30 * time.Second,
		EnvVars: prefixEnvVar("PROGRESS_INTERVAL"),
		Usage:   "Interval between progress updates",
	}
	ServeMetrics = &cli.BoolFlag{
		Name:    "serve-metrics",
		EnvVars: prefixEnvVar("SERVE_METRICS"),
		Usage:   "Expose prometheus metrics and healthz endpoints while running",
	}
	Tracing = &cli.BoolFlag{
		Name:    "tracing",
		EnvVars: prefixEnvVar("TRACING"),
		Usage:   "Enable OpenTelemetry trace export",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVar("LOG_LEVEL"),
		Usage:   "Log level (debug, info, warn, error)",
	}
)

var Flags = []cli.Flag{
	TestsDir,
	ContainersDir,
	WorkDir,
	Jobs,
	Filter,
	Quiet,
	List,
	FailedOnly,
	Output,
	Log,
	NoLog,
	JSONL,
	NoJSONL,
	ApptainerBinary,
	ShowProgress,
	ProgressInterval,
	ServeMetrics,
	Tracing,
	LogLevel,
}
