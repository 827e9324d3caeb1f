package runner

import "time"

const (
	// DefaultApptainerBinary is the container runtime executable.
	DefaultApptainerBinary = "apptainer"

	// HealthCheckTimeout bounds the pre-flight probe that confirms a
	// container can execute commands at all.
	HealthCheckTimeout = 30 * time.Second

	// SetupScriptTimeout bounds suite setup and cleanup scripts; a wedged
	// setup must not block the whole run.
	SetupScriptTimeout = 5 * time.Minute

	// PipeWaitDelay is how long Wait may block on stdout/stderr pipes after
	// the process is done. A test that leaves a background child holding the
	// inherited pipes would otherwise keep the worker blocked until that
	// child exits.
	PipeWaitDelay = 5 * time.Second

	// expectedOutputPreviewLen bounds the quoted substring in "expected
	// output not found" messages.
	expectedOutputPreviewLen = 50

	// healthCheckStderrLimit bounds how much container stderr is quoted in
	// a failed health check message.
	healthCheckStderrLimit = 500
)
