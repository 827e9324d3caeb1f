package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neurodesk/testrunner/types"
	"github.com/neurodesk/testrunner/vars"
)

var _ TestExecutor = (*testExecutor)(nil)

// TestExecutor runs one prepared test and evaluates its expectations. It
// never returns an error: every failure mode, including panics inside
// evaluation logic, becomes a failed TestResult so one broken test cannot
// abort its siblings.
type TestExecutor interface {
	Execute(ctx context.Context, unit types.PreparedTest) types.TestResult
}

// testExecutor implements TestExecutor
type testExecutor struct {
	apptainerBinary string
	tracer          trace.Tracer
}

// NewTestExecutor creates a test executor using the given container runtime
// binary ("apptainer" when empty).
func NewTestExecutor(apptainerBinary string) TestExecutor {
	if apptainerBinary == "" {
		apptainerBinary = DefaultApptainerBinary
	}
	return &testExecutor{
		apptainerBinary: apptainerBinary,
		tracer:          otel.Tracer("testrunner/runner"),
	}
}

// Execute runs a single prepared test.
func (e *testExecutor) Execute(ctx context.Context, unit types.PreparedTest) (result types.TestResult) {
	name := unit.Spec.DisplayName()
	startTimestamp := time.Now()

	ctx, span := e.tracer.Start(ctx, "test "+name,
		trace.WithAttributes(
			attribute.String("suite", unit.SuiteName),
			attribute.String("container", unit.ContainerName),
		))
	defer span.End()

	// A fault in one test must never propagate out of its evaluation.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("test evaluation panicked", "suite", unit.SuiteName, "test", name, "panic", r)
			result = types.TestResult{
				Name:      name,
				Passed:    false,
				Duration:  time.Since(startTimestamp),
				StartTime: startTimestamp,
				Message:   fmt.Sprintf("Error: %v", r),
			}
		}
	}()

	if unit.Spec.Command == "" {
		return types.TestResult{
			Name:      name,
			Passed:    false,
			StartTime: startTimestamp,
			Message:   "No command specified",
		}
	}

	command := vars.Substitute(unit.Spec.Command, unit.Variables)

	envSetup := unit.Spec.EnvSetup
	if envSetup == "" {
		envSetup = unit.GlobalEnvSetup
	}
	if envSetup != "" {
		envSetup = vars.Substitute(envSetup, unit.Variables)
	}

	// Running the command from a script file sidesteps shell quoting issues
	// entirely. The name must be collision-free: the working directory is
	// shared across concurrently running tests.
	scriptPath := filepath.Join(unit.WorkDir, fmt.Sprintf(".test_%d_%s.sh", os.Getpid(), uuid.NewString()))
	if err := writeScript(scriptPath, envSetup, command); err != nil {
		return types.TestResult{
			Name:      name,
			Passed:    false,
			Duration:  time.Since(startTimestamp),
			StartTime: startTimestamp,
			Message:   fmt.Sprintf("Failed to create test script: %v", err),
		}
	}
	defer func() {
		_ = os.Remove(scriptPath)
	}()

	timeoutSeconds := unit.Spec.EffectiveTimeoutSeconds(unit.DefaultTimeout)
	timeout := time.Duration(timeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if unit.ContainerPath != "" {
		args := []string{"exec", "--writable-tmpfs"}
		for _, bind := range bindMounts(unit.WorkDir, unit.Variables) {
			args = append(args, "-B", bind)
		}
		args = append(args, unit.ContainerPath, "bash", scriptPath)
		cmd = exec.CommandContext(runCtx, e.apptainerBinary, args...)
	} else {
		cmd = exec.CommandContext(runCtx, "bash", scriptPath)
	}
	cmd.Dir = unit.WorkDir
	cmd.WaitDelay = PipeWaitDelay

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	duration := time.Since(startTimestamp)

	if runCtx.Err() == context.DeadlineExceeded {
		return types.TestResult{
			Name:      name,
			Passed:    false,
			Duration:  duration,
			StartTime: startTimestamp,
			Message:   fmt.Sprintf("Timeout after %ds", timeoutSeconds),
		}
	}

	stdout := stdoutBuf.String()
	stderr := stderrBuf.String()

	exitCode := 0
	if runErr != nil {
		exitErr := &exec.ExitError{}
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// The command never ran (runtime binary missing, exec error).
			return types.TestResult{
				Name:      name,
				Passed:    false,
				Duration:  duration,
				StartTime: startTimestamp,
				Message:   fmt.Sprintf("Error: %v", runErr),
				Stdout:    stdout,
				Stderr:    stderr,
			}
		}
	}

	fail := func(message string) types.TestResult {
		return types.TestResult{
			Name:      name,
			Passed:    false,
			Duration:  duration,
			StartTime: startTimestamp,
			Message:   message,
			Stdout:    stdout,
			Stderr:    stderr,
			ExitCode:  exitCode,
		}
	}

	// Exit code expectations. The negated form takes precedence when both
	// are declared; the exact check then does not apply.
	if unit.Spec.ExpectedExitCodeNot != nil {
		if exitCode == *unit.Spec.ExpectedExitCodeNot {
			return fail(fmt.Sprintf("Exit code should not be %d", *unit.Spec.ExpectedExitCodeNot))
		}
	} else {
		expected := 0
		if unit.Spec.ExpectedExitCode != nil {
			expected = *unit.Spec.ExpectedExitCode
		}
		if exitCode != expected {
			return fail(fmt.Sprintf("Expected exit code %d, got %d", expected, exitCode))
		}
	}

	combinedOutput := stdout + stderr
	for _, expected := range unit.Spec.ExpectedOutputContains {
		if expected != "" && !strings.Contains(combinedOutput, expected) {
			return fail(fmt.Sprintf("Expected output not found: '%s...'", truncate(expected, expectedOutputPreviewLen)))
		}
	}

	for _, validation := range unit.Spec.Validate {
		if msg, ok := e.runValidation(validation, unit.Variables); !ok {
			return fail(msg)
		}
	}

	return types.TestResult{
		Name:      name,
		Passed:    true,
		Duration:  duration,
		StartTime: startTimestamp,
		Message:   "OK",
		Stdout:    stdout,
		Stderr:    stderr,
		ExitCode:  exitCode,
	}
}

// runValidation evaluates one validation directive, returning a failure
// message when the check does not hold.
func (e *testExecutor) runValidation(validation types.Validation, variables map[string]string) (string, bool) {
	switch validation.Kind {
	case types.ValidationOutputExists:
		path := vars.Substitute(validation.Path, variables)
		if _, err := os.Stat(path); err != nil {
			return fmt.Sprintf("Output file not found: %s", path), false
		}
		return "", true

	case types.ValidationSameDimensions:
		path1 := vars.Substitute(validation.Paths[0], variables)
		path2 := vars.Substitute(validation.Paths[1], variables)

		shape1, err := niftiShape(path1)
		if err != nil {
			return fmt.Sprintf("Error comparing dimensions: %v", err), false
		}
		shape2, err := niftiShape(path2)
		if err != nil {
			return fmt.Sprintf("Error comparing dimensions: %v", err), false
		}
		if !sameShape(shape1, shape2) {
			return fmt.Sprintf("Dimension mismatch: %s vs %s", formatShape(shape1), formatShape(shape2)), false
		}
		return "", true

	default:
		return fmt.Sprintf("Unknown validation kind: %s", validation.Kind), false
	}
}

// writeScript materializes the per-test shell script with execute permission.
func writeScript(path, envSetup, command string) error {
	var b strings.Builder
	b.WriteString("#!/usr/bin/env bash\n")
	if envSetup != "" {
		b.WriteString(envSetup)
		b.WriteString("\n")
	}
	b.WriteString(command)
	b.WriteString("\n")

	return os.WriteFile(path, []byte(b.String()), 0o755)
}

// bindMounts returns the host paths mounted into the container: the working
// directory plus the parent directory of every path-shaped variable value.
// The output directory is container-internal to the suite and is excluded.
// Results are sorted so the container command line is deterministic.
func bindMounts(workDir string, variables map[string]string) []string {
	binds := map[string]struct{}{
		workDir + ":" + workDir: {},
	}
	for key, value := range variables {
		if key == types.OutputDirVariable || !strings.Contains(value, "/") {
			continue
		}
		parent := filepath.Dir(value)
		if info, err := os.Stat(parent); err == nil && info.IsDir() {
			binds[parent+":"+parent] = struct{}{}
		}
	}

	out := make([]string, 0, len(binds))
	for b := range binds {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// truncate shortens s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
