package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	testrunner "github.com/neurodesk/testrunner"
	"github.com/neurodesk/testrunner/flags"
	"github.com/neurodesk/testrunner/service"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "testrunner"
	app.Usage = "Container test execution engine"
	app.Description = "testrunner executes declarative YAML test suites inside container images"
	app.ArgsUsage = "[suite file patterns]"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if testrunner.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), 2))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	log := newLogger(ctx.String(flags.LogLevel.Name))
	slog.SetDefault(log)

	if ctx.Bool(flags.Tracing.Name) {
		shutdown, err := otelconfig.ConfigureOpenTelemetry(
			otelconfig.WithServiceName("testrunner"),
			otelconfig.WithServiceVersion(Version),
		)
		if err != nil {
			return testrunner.NewRuntimeError(fmt.Errorf("failed to set up telemetry: %w", err))
		}
		defer shutdown()
	}

	cfg, err := testrunner.NewConfig(ctx, log)
	if err != nil {
		return testrunner.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	if cfg.ServeMetrics {
		svc := service.New()
		svc.Start(ctx.Context)
		defer svc.Shutdown()
	}

	return testrunner.Run(ctx.Context, cfg)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
