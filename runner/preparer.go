package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	"github.com/neurodesk/testrunner/containers"
	"github.com/neurodesk/testrunner/types"
	"github.com/neurodesk/testrunner/vars"
)

// PreparedSuite is a suite expanded into ready-to-run test units. Everything
// a unit needs is copied in during preparation; no suite-level mutable state
// is consulted at run time.
type PreparedSuite struct {
	Name          string
	Container     string
	ContainerPath string
	Units         []types.PreparedTest
	Variables     map[string]string
	CleanupScript string
	WorkDir       string
}

// SuiteAbort describes a suite that failed during preparation. The lead
// result names the failing stage (container lookup, setup, health check);
// every declared test that survived the name filter is recorded as a skipped
// failure without ever being invoked.
type SuiteAbort struct {
	SuiteName    string
	Container    string
	Lead         types.TestResult
	SkippedTests []string
}

// Results expands the abort into the synthetic results recorded for the
// suite: the lead failure plus one zero-duration skip per filtered test.
func (a *SuiteAbort) Results() []types.TestResult {
	results := make([]types.TestResult, 0, 1+len(a.SkippedTests))
	results = append(results, a.Lead)
	for _, name := range a.SkippedTests {
		results = append(results, types.TestResult{
			Name:      name,
			Passed:    false,
			StartTime: a.Lead.StartTime,
			Message:   fmt.Sprintf("Skipped: %s", a.Lead.Name+" failed"),
			Skipped:   true,
		})
	}
	return results
}

// Preparer turns suite definitions into prepared test units.
type Preparer struct {
	ContainersDir   string
	WorkDir         string
	Filter          *regexp.Regexp // optional, matched against test names
	ApptainerBinary string
}

// NewPreparer creates a Preparer. filter may be empty; it is compiled as a
// case-insensitive regular expression.
func NewPreparer(containersDir, workDir, filter, apptainerBinary string) (*Preparer, error) {
	if apptainerBinary == "" {
		apptainerBinary = DefaultApptainerBinary
	}

	var re *regexp.Regexp
	if filter != "" {
		var err error
		re, err = regexp.Compile("(?i)" + filter)
		if err != nil {
			return nil, fmt.Errorf("invalid test filter %q: %w", filter, err)
		}
	}

	return &Preparer{
		ContainersDir:   containersDir,
		WorkDir:         workDir,
		Filter:          re,
		ApptainerBinary: apptainerBinary,
	}, nil
}

// Prepare runs the full preparation sequence for one suite: container
// resolution, variable materialization, setup script, health probe and name
// filtering. On success it returns the prepared suite; on any gate failure it
// returns a SuiteAbort and no tests are attempted.
func (p *Preparer) Prepare(ctx context.Context, def *types.SuiteDefinition) (*PreparedSuite, *SuiteAbort) {
	now := time.Now()
	filtered := p.filterTests(def.Tests)

	abort := func(lead types.TestResult) *SuiteAbort {
		names := make([]string, 0, len(filtered))
		for i := range filtered {
			names = append(names, filtered[i].DisplayName())
		}
		return &SuiteAbort{
			SuiteName:    def.Name,
			Container:    def.Container,
			Lead:         lead,
			SkippedTests: names,
		}
	}

	containerPath := containers.Resolve(def.Container, p.ContainersDir)
	if containerPath == "" {
		return nil, abort(types.TestResult{
			Name:      "Container lookup",
			Passed:    false,
			StartTime: now,
			Message:   fmt.Sprintf("Container not found: %s", def.Container),
		})
	}

	variables := p.resolveVariables(def.TestData)

	// The output directory is suite-scoped scratch space: recreate it fresh
	// so stale artifacts from earlier runs cannot satisfy validations.
	if outputDir, ok := variables[types.OutputDirVariable]; ok {
		if err := os.RemoveAll(outputDir); err != nil {
			return nil, abort(types.TestResult{
				Name:      "Output directory",
				Passed:    false,
				StartTime: now,
				Message:   fmt.Sprintf("Failed to reset output directory: %v", err),
			})
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, abort(types.TestResult{
				Name:      "Output directory",
				Passed:    false,
				StartTime: now,
				Message:   fmt.Sprintf("Failed to create output directory: %v", err),
			})
		}
	}

	if script := def.Setup.Script; script != "" {
		if stderr, err := p.runHostScript(ctx, script, variables); err != nil {
			msg := stderr
			if msg == "" {
				msg = err.Error()
			}
			return nil, abort(types.TestResult{
				Name:      "Setup",
				Passed:    false,
				StartTime: now,
				Message:   fmt.Sprintf("Setup failed: %s", msg),
			})
		}
	}

	if health := p.healthCheck(ctx, containerPath); !health.Passed {
		return nil, abort(health)
	}

	units := make([]types.PreparedTest, 0, len(filtered))
	for i := range filtered {
		units = append(units, types.PreparedTest{
			SuiteName:      def.Name,
			ContainerName:  def.Container,
			ContainerPath:  containerPath,
			Spec:           filtered[i],
			Variables:      types.CloneVariables(variables),
			WorkDir:        p.WorkDir,
			GlobalEnvSetup: def.EnvSetup,
			DefaultTimeout: def.DefaultTimeout,
		})
	}

	slog.Debug("prepared suite",
		"suite", def.Name,
		"container", containerPath,
		"tests", len(units))

	return &PreparedSuite{
		Name:          def.Name,
		Container:     def.Container,
		ContainerPath: containerPath,
		Units:         units,
		Variables:     variables,
		CleanupScript: def.Cleanup.Script,
		WorkDir:       p.WorkDir,
	}, nil
}

// RunCleanup executes the suite's cleanup script on the host. Cleanup is
// best-effort: failures are logged and swallowed, never surfacing as a run
// failure. It is not called for suites that aborted during preparation.
func (p *Preparer) RunCleanup(ctx context.Context, suite *PreparedSuite) {
	if suite == nil || suite.CleanupScript == "" {
		return
	}
	if stderr, err := p.runHostScript(ctx, suite.CleanupScript, suite.Variables); err != nil {
		slog.Warn("cleanup script failed", "suite", suite.Name, "err", err, "stderr", stderr)
	}
}

// filterTests applies the optional name filter to the declared test list.
func (p *Preparer) filterTests(tests []types.TestSpec) []types.TestSpec {
	if p.Filter == nil {
		return tests
	}
	var out []types.TestSpec
	for i := range tests {
		if p.Filter.MatchString(tests[i].Name) {
			out = append(out, tests[i])
		}
	}
	return out
}

// resolveVariables anchors path-shaped test-data values under the working
// directory. Already-absolute values are kept as-is; the output directory is
// always placed under the working directory so separate checkouts cannot
// share output.
func (p *Preparer) resolveVariables(testData map[string]string) map[string]string {
	variables := make(map[string]string, len(testData))
	for key, value := range testData {
		if filepath.IsAbs(value) {
			variables[key] = value
			continue
		}
		variables[key] = filepath.Join(p.WorkDir, value)
	}
	return variables
}

// healthCheck runs a no-op command inside the container to confirm the image
// is usable before committing to run any declared test.
func (p *Preparer) healthCheck(ctx context.Context, containerPath string) types.TestResult {
	start := time.Now()
	const name = "Container health check"

	runCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.ApptainerBinary,
		"exec", "--writable-tmpfs",
		"-B", p.WorkDir+":"+p.WorkDir,
		containerPath, "true")
	cmd.Dir = p.WorkDir
	cmd.WaitDelay = PipeWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if err == nil {
		return types.TestResult{
			Name:      name,
			Passed:    true,
			Duration:  duration,
			StartTime: start,
			Message:   "OK",
		}
	}

	if exitCode := cmd.ProcessState.ExitCode(); exitCode > 0 {
		return types.TestResult{
			Name:      name,
			Passed:    false,
			Duration:  duration,
			StartTime: start,
			Message: fmt.Sprintf("Container cannot execute commands (exit %d): %s",
				exitCode, truncate(stderr.String(), healthCheckStderrLimit)),
			Stderr:   stderr.String(),
			ExitCode: exitCode,
		}
	}

	return types.TestResult{
		Name:      name,
		Passed:    false,
		Duration:  duration,
		StartTime: start,
		Message:   fmt.Sprintf("Container health check error: %v", err),
	}
}

// runHostScript runs a shell snippet on the host (outside any container) with
// variables substituted, returning captured stderr on failure.
func (p *Preparer) runHostScript(ctx context.Context, script string, variables map[string]string) (string, error) {
	script = vars.Substitute(script, variables)

	runCtx, cancel := context.WithTimeout(ctx, SetupScriptTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-c", script)
	cmd.Dir = p.WorkDir
	cmd.WaitDelay = PipeWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stderr.String(), err
	}
	return "", nil
}
