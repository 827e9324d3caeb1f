package testrunner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/neurodesk/testrunner/flags"
)

// Config holds the application configuration
type Config struct {
	TestsDir         string
	ContainersDir    string
	WorkDir          string
	Patterns         []string // suite file patterns from positional args (empty = all)
	Filter           string
	Jobs             int
	Quiet            bool
	List             bool
	FailedOnly       bool
	OutputFile       string // aggregate summary JSON destination ("" = disabled)
	LogFile          string // pipe-delimited log destination ("" = disabled)
	JSONLFile        string // streaming JSONL destination ("" = disabled)
	ApptainerBinary  string
	ShowProgress     bool
	ProgressInterval time.Duration
	ServeMetrics     bool
	Log              *slog.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log *slog.Logger) (*Config, error) {
	testsDir, err := filepath.Abs(ctx.String(flags.TestsDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tests directory: %w", err)
	}
	containersDir, err := filepath.Abs(ctx.String(flags.ContainersDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve containers directory: %w", err)
	}
	workDir, err := filepath.Abs(ctx.String(flags.WorkDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work directory: %w", err)
	}

	if _, err := os.Stat(testsDir); err != nil {
		return nil, fmt.Errorf("tests directory not accessible: %w", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	jobs := ctx.Int(flags.Jobs.Name)
	if jobs < 1 {
		return nil, fmt.Errorf("jobs must be at least 1, got %d", jobs)
	}

	logFile := ctx.String(flags.Log.Name)
	if ctx.Bool(flags.NoLog.Name) {
		logFile = ""
	}
	jsonlFile := ctx.String(flags.JSONL.Name)
	if ctx.Bool(flags.NoJSONL.Name) {
		jsonlFile = ""
	}

	return &Config{
		TestsDir:         testsDir,
		ContainersDir:    containersDir,
		WorkDir:          workDir,
		Patterns:         ctx.Args().Slice(),
		Filter:           ctx.String(flags.Filter.Name),
		Jobs:             jobs,
		Quiet:            ctx.Bool(flags.Quiet.Name),
		List:             ctx.Bool(flags.List.Name),
		FailedOnly:       ctx.Bool(flags.FailedOnly.Name),
		OutputFile:       ctx.String(flags.Output.Name),
		LogFile:          logFile,
		JSONLFile:        jsonlFile,
		ApptainerBinary:  ctx.String(flags.ApptainerBinary.Name),
		ShowProgress:     ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval: ctx.Duration(flags.ProgressInterval.Name),
		ServeMetrics:     ctx.Bool(flags.ServeMetrics.Name),
		Log:              log,
	}, nil
}
